package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.Trader.Interval())
	assert.Equal(t, "memory", cfg.Trader.StorageScheme())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradebot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "trade"

[trader]
asset = "ETH"
asset_pair = "ETHUSD"
trading_frequency = 2.0
storage_location = "postgres://bot:secret@db:5432/tradebot"

[lykke]
timeout = "3s"
`), 0o600))

	t.Setenv("TRADEBOT_TRADER_API_KEY", "env-key")
	t.Setenv("TRADEBOT_TRADER_VOLUME", "0.5")
	t.Setenv("TRADEBOT_SERVER_CORS_ORIGINS", "http://a, ,http://b")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, "ETHUSD", cfg.Trader.AssetPair)
	assert.Equal(t, "env-key", cfg.Trader.APIKey)
	assert.Equal(t, 0.5, cfg.Trader.Volume)
	assert.Equal(t, 500*time.Millisecond, cfg.Trader.Interval())
	assert.Equal(t, 3*time.Second, cfg.Lykke.Timeout.Duration)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Trader.MomentumAccumulator)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Trader.TradingFrequency = 0
	cfg.Trader.Volume = -1
	cfg.Risk.FundsCheck = "vibes"
	cfg.Trader.Strategy = "martingale"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "api_key or encrypted_key_path")
	assert.Contains(t, msg, "trading_frequency")
	assert.Contains(t, msg, "volume must be > 0")
	assert.Contains(t, msg, "funds_check")
	assert.Contains(t, msg, `unknown strategy "martingale"`)
	assert.Contains(t, msg, "memory:// is not durable")
}

func TestValidateAcceptsEveryBuiltInStrategy(t *testing.T) {
	for _, name := range []string{"momentum", "threshold", "random", "noop"} {
		cfg := Defaults()
		cfg.Mode = "paper"
		cfg.Trader.Strategy = name
		assert.NoError(t, cfg.Validate(), name)
	}

	cfg := Defaults()
	cfg.Mode = "paper"
	cfg.Trader.Strategy = ""
	assert.ErrorContains(t, cfg.Validate(), "unknown strategy")
}

func TestValidateArchiveNeedsBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.Trader.StorageLocation = "postgres://localhost/tradebot"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")

	cfg.S3.Bucket = "history"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Trader.APIKey = "key"
	cfg.Trader.StorageLocation = "postgres://bot:secret@db:5432/tradebot"
	cfg.Notify.TelegramToken = "tok"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Trader.APIKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.NotContains(t, out.Trader.StorageLocation, "secret")
	assert.Contains(t, out.Trader.StorageLocation, "db:5432/tradebot")
	assert.Empty(t, out.Redis.Password)

	out.Notify.Events[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Notify.Events[0])
	assert.Equal(t, "key", cfg.Trader.APIKey)
}
