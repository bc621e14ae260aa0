package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultSolanaRPCURL   = "https://api.mainnet-beta.solana.com"
	DefaultInputFile      = "input.json"
	DefaultCacheFile      = "transactions_mints.json"
	DefaultSignatureLimit = 50
	DefaultDumpWallet     = "HuwdWCb8tHpTiv2U8W8SQebQYPc5BnNM3wori4ttsAJj"
	DefaultDumpPageSize   = 100
	DefaultReportFile     = "enhancedOutput.json"
)

// Config holds all application configuration loaded from environment variables.
// Every field has a default, so Load only fails on malformed values.
type Config struct {
	LogLevel string `validate:"oneof=debug info warn error"`

	// Solana configuration
	SolanaRPCURL string `validate:"required,http_url"`

	// Incremental sync
	InputFile      string `validate:"required"`
	CacheFile      string `validate:"required"`
	SignatureLimit int    `validate:"gt=0,lte=1000"`

	// Raw dump
	DumpWallet   string `validate:"required,solana_pubkey"`
	DumpPageSize int    `validate:"gt=0,lte=1000"`
	DumpDir      string `validate:"required"`

	// Optional outputs; empty disables them
	MetricsFile string
	NATSURL     string `validate:"omitempty,url"`
	DatabaseURL string `validate:"omitempty,url"`
}

// Load reads configuration from environment variables and validates it.
// All problems are reported together.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without
// validating it. Callers that apply overrides call Validate afterwards.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", DefaultSolanaRPCURL)

	cfg.InputFile = getEnvOrDefault("INPUT_FILE", DefaultInputFile)
	cfg.CacheFile = getEnvOrDefault("CACHE_FILE", DefaultCacheFile)
	limit, err := parseInt("SIGNATURE_LIMIT", DefaultSignatureLimit)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SignatureLimit = limit
	}

	cfg.DumpWallet = getEnvOrDefault("DUMP_WALLET", DefaultDumpWallet)
	pageSize, err := parseInt("DUMP_PAGE_SIZE", DefaultDumpPageSize)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DumpPageSize = pageSize
	}
	cfg.DumpDir = getEnvOrDefault("DUMP_DIR", ".")

	cfg.MetricsFile = os.Getenv("METRICS_FILE")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful after flags have overridden values loaded from env.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
