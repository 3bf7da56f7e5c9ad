package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/admin"
	"github.com/shopbulk/shopbulk/internal/config"
	"github.com/shopbulk/shopbulk/internal/tagging"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagShop       string
	flagToken      string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// newHTTPClient returns an HTTP client whose per-request timeout comes
// from job.http_timeout. A timed-out fetch is classified like any other
// transient I/O error.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}

	return &http.Client{Timeout: timeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shopbulk",
		Short:   "Bulk tag operations for Shopify catalogs",
		Long:    "Apply or remove a tag across thousands of products using the Admin API's asynchronous bulk jobs.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagShop, "shop", "", "shop domain (e.g. example.myshopify.com)")
	cmd.PersistentFlags().StringVar(&flagToken, "token", "", "Admin API access token")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg for subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Shop:       flagShop,
		Token:      flagToken,
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildRunner constructs the Admin API client and pipeline runner from the
// resolved configuration. Fails fast when credentials are missing.
func buildRunner(logger *slog.Logger) (*tagging.Runner, error) {
	if err := resolvedCfg.RequireCredentials(); err != nil {
		return nil, err
	}

	client := admin.NewClient(
		resolvedCfg.Endpoint(),
		newHTTPClient(resolvedCfg.HTTPTimeout),
		admin.StaticToken(resolvedCfg.AccessToken),
		logger,
	)

	return tagging.NewRunner(client, resolvedCfg.PageSize, resolvedCfg.PageDelay, logger), nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
