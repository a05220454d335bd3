// Package config defines the tradebot configuration and its validation.
package config

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/tradebot/internal/strategy"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRADEBOT_* environment variables.
type Config struct {
	Trader   TraderConfig   `toml:"trader"`
	Risk     RiskConfig     `toml:"risk"`
	Lykke    LykkeConfig    `toml:"lykke"`
	Paper    PaperConfig    `toml:"paper"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TraderConfig holds the trading loop parameters. It is read once at start-up.
type TraderConfig struct {
	APIKey           string `toml:"api_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`

	Asset     string `toml:"asset"`
	AssetPair string `toml:"asset_pair"`
	// TradingFrequency is in Hz; one cycle runs every 1/TradingFrequency seconds.
	TradingFrequency    float64 `toml:"trading_frequency"`
	Volume              float64 `toml:"volume"`
	MomentumAccumulator int     `toml:"momentum_accumulator"`
	StorageLocation     string  `toml:"storage_location"`

	Strategy    string `toml:"strategy"`
	Seed        uint64 `toml:"seed"`
	RecentLimit int    `toml:"recent_limit"`
}

// Interval is the sleep between two cycles.
func (t TraderConfig) Interval() time.Duration {
	if t.TradingFrequency <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / t.TradingFrequency)
}

// StorageScheme returns the lower-cased scheme of storage_location.
func (t TraderConfig) StorageScheme() string {
	u, err := url.Parse(t.StorageLocation)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// RiskConfig selects the funds check applied before every order.
type RiskConfig struct {
	// FundsCheck is one of none, minimum_balance or all_balances.
	FundsCheck string  `toml:"funds_check"`
	MinBalance float64 `toml:"min_balance"`
}

// LykkeConfig holds the exchange HTTP API parameters.
type LykkeConfig struct {
	BaseURL        string   `toml:"base_url"`
	Timeout        duration `toml:"timeout"`
	VolumeAccuracy int32    `toml:"volume_accuracy"`
}

// PaperConfig seeds the simulated wallet used in paper mode.
type PaperConfig struct {
	Balances map[string]float64 `toml:"balances"`
}

// PostgresConfig tunes the connection pool. The DSN itself is
// trader.storage_location.
type PostgresConfig struct {
	MaxConns          int      `toml:"max_conns"`
	MinConns          int      `toml:"min_conns"`
	HealthCheckPeriod duration `toml:"health_check_period"`
	RunMigrations     bool     `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// quote cache, the event bus and the trader lock.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	LockTTL      duration `toml:"lock_ttl"`
	QuoteTTL     duration `toml:"quote_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the cold-storage export of old history.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
	// Cron is a five-field UTC schedule, for example "0 3 * * *".
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// Cutoff returns the instant before which rows are archived.
func (a ArchiveConfig) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -a.RetentionDays)
}

// ServerConfig holds the status HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is requests per RateWindow per client IP. It needs Redis;
	// zero disables it.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	Cooldown          duration `toml:"cooldown"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// of values like "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible default values.
func Defaults() Config {
	return Config{
		Trader: TraderConfig{
			Asset:               "BTC",
			AssetPair:           "BTCUSD",
			TradingFrequency:    0.1,
			Volume:              0.001,
			MomentumAccumulator: 10,
			StorageLocation:     "memory://",
			Strategy:            "momentum",
			RecentLimit:         100,
		},
		Risk: RiskConfig{
			FundsCheck: "none",
		},
		Lykke: LykkeConfig{
			BaseURL:        "https://hft-api.lykke.com",
			Timeout:        duration{10 * time.Second},
			VolumeAccuracy: 8,
		},
		Paper: PaperConfig{
			Balances: map[string]float64{"USD": 10_000},
		},
		Postgres: PostgresConfig{
			MaxConns:          5,
			MinConns:          1,
			HealthCheckPeriod: duration{time.Minute},
			RunMigrations:     true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MaxRetries:   3,
			LockTTL:      duration{30 * time.Second},
			QuoteTTL:     duration{5 * time.Minute},
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Cron:          "0 3 * * *",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events:   []string{"order_filled", "cycle_error"},
			Cooldown: duration{5 * time.Minute},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"paper":   true,
	"archive": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validFundsChecks = map[string]bool{
	"none":            true,
	"minimum_balance": true,
	"all_balances":    true,
}

var validStorageSchemes = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"memory":     true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper, archive, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	trading := mode == "trade" || mode == "paper"

	// Trader
	if mode == "trade" {
		if c.Trader.APIKey == "" && c.Trader.EncryptedKeyPath == "" {
			errs = append(errs, "trader: either api_key or encrypted_key_path must be set for mode trade")
		}
		if c.Trader.EncryptedKeyPath != "" && c.Trader.KeyPassword == "" {
			errs = append(errs, "trader: key_password is required when encrypted_key_path is set")
		}
	}
	if trading || mode == "server" {
		if strings.TrimSpace(c.Trader.AssetPair) == "" {
			errs = append(errs, "trader: asset_pair must not be empty")
		}
	}
	if trading {
		if strings.TrimSpace(c.Trader.Asset) == "" {
			errs = append(errs, "trader: asset must not be empty")
		}
		f := c.Trader.TradingFrequency
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			errs = append(errs, fmt.Sprintf("trader: trading_frequency must be > 0 Hz, got %v", f))
		}
		if c.Trader.Volume <= 0 {
			errs = append(errs, "trader: volume must be > 0")
		}
		if c.Trader.MomentumAccumulator < 1 {
			errs = append(errs, "trader: momentum_accumulator must be >= 1")
		}
		if known := strategy.DefaultRegistry().List(); !slices.Contains(known, c.Trader.Strategy) {
			errs = append(errs, fmt.Sprintf("trader: unknown strategy %q (valid: %s)",
				c.Trader.Strategy, strings.Join(known, ", ")))
		}
		if strings.TrimSpace(c.Lykke.BaseURL) == "" {
			errs = append(errs, "lykke: base_url must not be empty")
		}
		if c.Lykke.VolumeAccuracy < 0 {
			errs = append(errs, "lykke: volume_accuracy must be >= 0")
		}
	}

	scheme := c.Trader.StorageScheme()
	if !validStorageSchemes[scheme] {
		errs = append(errs, fmt.Sprintf("trader: storage_location %q must use postgres:// or memory://", c.Trader.StorageLocation))
	}
	if scheme == "memory" && (mode == "trade" || mode == "archive") {
		errs = append(errs, "trader: storage_location memory:// is not durable; use postgres:// for mode "+mode)
	}

	// Risk
	if !validFundsChecks[c.Risk.FundsCheck] {
		errs = append(errs, fmt.Sprintf("risk: unknown funds_check %q (valid: none, minimum_balance, all_balances)", c.Risk.FundsCheck))
	}
	if c.Risk.MinBalance < 0 {
		errs = append(errs, "risk: min_balance must be >= 0")
	}

	// Postgres
	if c.Postgres.MaxConns < 1 {
		errs = append(errs, "postgres: max_conns must be >= 1")
	}
	if c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, "postgres: min_conns must be between 0 and max_conns")
	}

	// Redis
	if c.Redis.Enabled() {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// Archive
	if mode == "archive" || c.Archive.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if strings.TrimSpace(c.Archive.Cron) == "" {
			errs = append(errs, "archive: cron must not be empty")
		}
	}

	// Server
	if c.Server.Enabled || mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
