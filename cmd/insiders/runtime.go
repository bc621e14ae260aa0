package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andrewbouras/insiders/service/config"
	"github.com/andrewbouras/insiders/service/metrics"
	"github.com/andrewbouras/insiders/service/solana"
)

// loadConfig reads configuration from the environment and applies any
// flag the user set explicitly on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	overrideString(c, "rpc-url", &cfg.SolanaRPCURL)
	overrideString(c, "log-level", &cfg.LogLevel)
	overrideString(c, "metrics-file", &cfg.MetricsFile)
	overrideString(c, "input", &cfg.InputFile)
	overrideString(c, "cache", &cfg.CacheFile)
	overrideInt(c, "limit", &cfg.SignatureLimit)
	overrideString(c, "wallet", &cfg.DumpWallet)
	overrideInt(c, "page-size", &cfg.DumpPageSize)
	overrideString(c, "out-dir", &cfg.DumpDir)
	overrideString(c, "nats-url", &cfg.NATSURL)
	overrideString(c, "database-url", &cfg.DatabaseURL)

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideString(c *cli.Context, flag string, dst *string) {
	if c.IsSet(flag) {
		*dst = c.String(flag)
	}
}

func overrideInt(c *cli.Context, flag string, dst *int) {
	if c.IsSet(flag) {
		*dst = c.Int(flag)
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newSolanaClient builds the Solana client for the configured endpoint.
func newSolanaClient(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *solana.Client {
	endpoint := extractEndpointFromURL(cfg.SolanaRPCURL)
	return solana.NewClient(solana.NewRPCClient(cfg.SolanaRPCURL), endpoint, m, logger)
}

// writeMetrics dumps the run's metrics when a metrics file is configured.
// Failures are logged, not returned.
func writeMetrics(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) {
	if cfg.MetricsFile == "" || m == nil {
		return
	}
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		return
	}
	logger.Debug("wrote metrics file", "path", cfg.MetricsFile)
}

// extractEndpointFromURL extracts a short identifier from the Solana RPC URL for metrics labeling.
// Examples:
//   - "https://api.mainnet-beta.solana.com" -> "mainnet"
//   - "https://mainnet.helius-rpc.com/?api-key=..." -> "helius"
//   - "https://some-endpoint.quiknode.pro/..." -> "quiknode"
func extractEndpointFromURL(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	host := parsed.Hostname()

	providers := []struct {
		needle string
		label  string
	}{
		{"helius", "helius"},
		{"quiknode", "quiknode"},
		{"quicknode", "quiknode"},
		{"alchemy", "alchemy"},
		{"triton", "triton"},
		{"rpcpool", "rpcpool"},
		{"mainnet", "mainnet"},
		{"devnet", "devnet"},
		{"testnet", "testnet"},
	}
	for _, p := range providers {
		if strings.Contains(host, p.needle) {
			return p.label
		}
	}
	return host
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
