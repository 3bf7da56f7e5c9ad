package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbulk/shopbulk/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests either
// set globals AFTER newRootCmd() returns (direct function tests) or use
// cmd.SetArgs() + cmd.Execute() to let Cobra parse them.

func saveFlags(t *testing.T) {
	t.Helper()

	oldVerbose := flagVerbose
	oldQuiet := flagQuiet
	oldJSON := flagJSON
	oldCfg := resolvedCfg

	t.Cleanup(func() {
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
		flagJSON = oldJSON
		resolvedCfg = oldCfg
	})
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"apply", "remove", "preview", "status", "history"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	assert.Equal(t, "shopbulk", cmd.Name())
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, want := range []string{"config", "shop", "token", "json", "verbose", "quiet"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(want), "missing flag %q", want)
	}
}

func TestBuildLogger_Default(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = false
	resolvedCfg = nil

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	saveFlags(t)

	flagVerbose = false
	flagQuiet = false
	resolvedCfg = &config.Resolved{LogLevel: "warn"}

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	saveFlags(t)

	flagVerbose = true
	flagQuiet = false
	resolvedCfg = &config.Resolved{LogLevel: "error"}

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietWins(t *testing.T) {
	saveFlags(t)

	flagVerbose = true
	flagQuiet = true
	resolvedCfg = nil

	logger := buildLogger()

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	assert.Equal(t, 45*time.Second, newHTTPClient(45*time.Second).Timeout)

	// Unset config falls back to the default.
	assert.Equal(t, config.DefaultHTTPTimeout, newHTTPClient(0).Timeout)
}

func TestBuildRunner_MissingCredentials(t *testing.T) {
	saveFlags(t)

	resolvedCfg = &config.Resolved{}

	_, err := buildRunner(buildLogger())
	assert.Error(t, err)
}
