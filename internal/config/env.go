package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig = "SHOPBULK_CONFIG"
	EnvShop   = "SHOPBULK_SHOP"
	EnvToken  = "SHOPBULK_TOKEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SHOPBULK_CONFIG: override config file path
	Shop       string // SHOPBULK_SHOP: shop domain
	Token      string // SHOPBULK_TOKEN: Admin API access token
}

// ReadEnvOverrides loads a .env file from the working directory if one
// exists (never overriding variables already set in the environment),
// then reads the override variables. This does not modify the Config;
// callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	// Best effort: a missing .env file is the normal case.
	_ = godotenv.Load() //nolint:errcheck

	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Shop:       os.Getenv(EnvShop),
		Token:      os.Getenv(EnvToken),
	}
}
