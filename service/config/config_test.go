package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	defer cleanupEnv()
	cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSolanaRPCURL, cfg.SolanaRPCURL)
	assert.Equal(t, "input.json", cfg.InputFile)
	assert.Equal(t, "transactions_mints.json", cfg.CacheFile)
	assert.Equal(t, 50, cfg.SignatureLimit)
	assert.Equal(t, "HuwdWCb8tHpTiv2U8W8SQebQYPc5BnNM3wori4ttsAJj", cfg.DumpWallet)
	assert.Equal(t, 100, cfg.DumpPageSize)
	assert.Equal(t, ".", cfg.DumpDir)
	assert.Empty(t, cfg.MetricsFile)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SOLANA_RPC_URL", "https://mainnet.helius-rpc.com/?api-key=secret")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("INPUT_FILE", "/tmp/wallets.json")
	os.Setenv("CACHE_FILE", "/tmp/cache.json")
	os.Setenv("SIGNATURE_LIMIT", "25")
	os.Setenv("DUMP_WALLET", "11111111111111111111111111111111")
	os.Setenv("DUMP_PAGE_SIZE", "500")
	os.Setenv("DUMP_DIR", "/tmp/dump")
	os.Setenv("METRICS_FILE", "/tmp/insiders.prom")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mainnet.helius-rpc.com/?api-key=secret", cfg.SolanaRPCURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/wallets.json", cfg.InputFile)
	assert.Equal(t, "/tmp/cache.json", cfg.CacheFile)
	assert.Equal(t, 25, cfg.SignatureLimit)
	assert.Equal(t, "11111111111111111111111111111111", cfg.DumpWallet)
	assert.Equal(t, 500, cfg.DumpPageSize)
	assert.Equal(t, "/tmp/dump", cfg.DumpDir)
	assert.Equal(t, "/tmp/insiders.prom", cfg.MetricsFile)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
}

func TestLoad_InvalidInteger(t *testing.T) {
	os.Setenv("SIGNATURE_LIMIT", "fifty")
	os.Setenv("DUMP_PAGE_SIZE", "lots")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SIGNATURE_LIMIT: invalid integer")
	assert.Contains(t, err.Error(), "DUMP_PAGE_SIZE: invalid integer")
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Setenv("SIGNATURE_LIMIT", "0")
	os.Setenv("DUMP_WALLET", "not-a-wallet")
	os.Setenv("LOG_LEVEL", "verbose")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "SignatureLimit")
	assert.Contains(t, err.Error(), "DumpWallet")
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestFromEnv_DoesNotValidate(t *testing.T) {
	os.Setenv("SIGNATURE_LIMIT", "5000")
	defer cleanupEnv()

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.SignatureLimit)
	assert.ErrorIs(t, cfg.Validate(), ErrValidationFailed)

	cfg.SignatureLimit = 10
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		LogLevel:       "info",
		SolanaRPCURL:   DefaultSolanaRPCURL,
		InputFile:      DefaultInputFile,
		CacheFile:      DefaultCacheFile,
		SignatureLimit: DefaultSignatureLimit,
		DumpWallet:     DefaultDumpWallet,
		DumpPageSize:   DefaultDumpPageSize,
		DumpDir:        ".",
	}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadRPCURL(t *testing.T) {
	cfg := &Config{
		LogLevel:       "info",
		SolanaRPCURL:   "localhost:8899",
		InputFile:      DefaultInputFile,
		CacheFile:      DefaultCacheFile,
		SignatureLimit: DefaultSignatureLimit,
		DumpWallet:     DefaultDumpWallet,
		DumpPageSize:   DefaultDumpPageSize,
		DumpDir:        ".",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SolanaRPCURL")
}

func TestValidate_PageSizeTooLarge(t *testing.T) {
	cfg := &Config{
		LogLevel:       "info",
		SolanaRPCURL:   DefaultSolanaRPCURL,
		InputFile:      DefaultInputFile,
		CacheFile:      DefaultCacheFile,
		SignatureLimit: DefaultSignatureLimit,
		DumpWallet:     DefaultDumpWallet,
		DumpPageSize:   5000,
		DumpDir:        ".",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DumpPageSize")
}

func TestMustLoad_Panics(t *testing.T) {
	os.Setenv("SIGNATURE_LIMIT", "abc")
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	defer cleanupEnv()
	cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	os.Unsetenv("SOLANA_RPC_URL")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("INPUT_FILE")
	os.Unsetenv("CACHE_FILE")
	os.Unsetenv("SIGNATURE_LIMIT")
	os.Unsetenv("DUMP_WALLET")
	os.Unsetenv("DUMP_PAGE_SIZE")
	os.Unsetenv("DUMP_DIR")
	os.Unsetenv("METRICS_FILE")
	os.Unsetenv("NATS_URL")
	os.Unsetenv("DATABASE_URL")
}
