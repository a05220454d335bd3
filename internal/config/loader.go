package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADEBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from TRADEBOT_* environment
// variables that are set and non-empty.
func applyEnvOverrides(cfg *Config) {
	// ── Trader ──
	setStr(&cfg.Trader.APIKey, "TRADEBOT_TRADER_API_KEY")
	setStr(&cfg.Trader.EncryptedKeyPath, "TRADEBOT_TRADER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Trader.KeyPassword, "TRADEBOT_TRADER_KEY_PASSWORD")
	setStr(&cfg.Trader.Asset, "TRADEBOT_TRADER_ASSET")
	setStr(&cfg.Trader.AssetPair, "TRADEBOT_TRADER_ASSET_PAIR")
	setFloat64(&cfg.Trader.TradingFrequency, "TRADEBOT_TRADER_TRADING_FREQUENCY")
	setFloat64(&cfg.Trader.Volume, "TRADEBOT_TRADER_VOLUME")
	setInt(&cfg.Trader.MomentumAccumulator, "TRADEBOT_TRADER_MOMENTUM_ACCUMULATOR")
	setStr(&cfg.Trader.StorageLocation, "TRADEBOT_TRADER_STORAGE_LOCATION")
	setStr(&cfg.Trader.Strategy, "TRADEBOT_TRADER_STRATEGY")
	setUint64(&cfg.Trader.Seed, "TRADEBOT_TRADER_SEED")

	// ── Risk ──
	setStr(&cfg.Risk.FundsCheck, "TRADEBOT_RISK_FUNDS_CHECK")
	setFloat64(&cfg.Risk.MinBalance, "TRADEBOT_RISK_MIN_BALANCE")

	// ── Lykke ──
	setStr(&cfg.Lykke.BaseURL, "TRADEBOT_LYKKE_BASE_URL")
	setDuration(&cfg.Lykke.Timeout, "TRADEBOT_LYKKE_TIMEOUT")

	// ── Postgres ──
	setInt(&cfg.Postgres.MaxConns, "TRADEBOT_POSTGRES_MAX_CONNS")
	setInt(&cfg.Postgres.MinConns, "TRADEBOT_POSTGRES_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRADEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TRADEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "TRADEBOT_REDIS_LOCK_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRADEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "TRADEBOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "TRADEBOT_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "TRADEBOT_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TRADEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRADEBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "TRADEBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADEBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "TRADEBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "TRADEBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRADEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRADEBOT_MODE")
	setStr(&cfg.LogLevel, "TRADEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
