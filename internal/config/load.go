package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in
// a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports a zero-config
// first run where credentials come entirely from the environment.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// checkUnknownKeys fails on any key the Config struct did not decode.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}

// CLIOverrides holds values from command-line flags, the highest-priority
// layer of the override chain.
type CLIOverrides struct {
	ConfigPath string
	Shop       string
	Token      string
}

// Resolved is the effective configuration after the full override chain,
// with duration strings parsed and the endpoint assembled.
type Resolved struct {
	Shop         string
	AccessToken  string
	APIVersion   string
	PageSize     int
	PageDelay    time.Duration
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	HistoryPath  string
	LogLevel     string
}

// Endpoint returns the shop's Admin GraphQL URL.
func (r *Resolved) Endpoint() string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", r.Shop, r.APIVersion)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment -> CLI flags. CLI flags always
// win, matching user expectations for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		Shop:        cfg.Shop.Domain,
		AccessToken: cfg.Shop.AccessToken,
		APIVersion:  cfg.Shop.APIVersion,
		PageSize:    cfg.Job.PageSize,
		HistoryPath: cfg.Job.HistoryPath,
		LogLevel:    cfg.Logging.Level,
	}

	// Validated in Load; defaults are always parseable.
	resolved.PageDelay = parseDurationOr(cfg.Job.PageDelay, DefaultPageDelay)
	resolved.PollInterval = parseDurationOr(cfg.Job.PollInterval, DefaultPollInterval)
	resolved.HTTPTimeout = parseDurationOr(cfg.Job.HTTPTimeout, DefaultHTTPTimeout)

	if env.Shop != "" {
		resolved.Shop = env.Shop
	}

	if env.Token != "" {
		resolved.AccessToken = env.Token
	}

	if cli.Shop != "" {
		resolved.Shop = cli.Shop
	}

	if cli.Token != "" {
		resolved.AccessToken = cli.Token
	}

	if resolved.APIVersion == "" {
		resolved.APIVersion = DefaultAPIVersion
	}

	if resolved.PageSize == 0 {
		resolved.PageSize = DefaultPageSize
	}

	if resolved.HistoryPath == "" {
		resolved.HistoryPath = DefaultHistoryPath()
	}

	return resolved, nil
}

// RequireCredentials errors unless both shop domain and access token are
// present. Commands that talk to the Admin API call this before building
// a client.
func (r *Resolved) RequireCredentials() error {
	if r.Shop == "" {
		return errors.New("no shop configured: set shop.domain in the config file, SHOPBULK_SHOP, or --shop")
	}

	if r.AccessToken == "" {
		return errors.New("no access token configured: set shop.access_token in the config file, SHOPBULK_TOKEN, or --token")
	}

	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}

	return d
}
