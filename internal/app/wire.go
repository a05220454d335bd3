package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/tradebot/internal/blob/s3"
	"github.com/alanyoungcy/tradebot/internal/cache/redis"
	"github.com/alanyoungcy/tradebot/internal/config"
	"github.com/alanyoungcy/tradebot/internal/domain"
	"github.com/alanyoungcy/tradebot/internal/notify"
	"github.com/alanyoungcy/tradebot/internal/platform/lykke"
	"github.com/alanyoungcy/tradebot/internal/server/handler"
	"github.com/alanyoungcy/tradebot/internal/store/memory"
	"github.com/alanyoungcy/tradebot/internal/store/postgres"
)

// Dependencies bundles every concrete collaborator the modes need. Optional
// ones are nil when their backend is not configured.
type Dependencies struct {
	// History
	History      domain.PriceHistoryStore
	Orders       domain.OrderHistory
	PriceArchive domain.PriceArchiveSource
	Audit        domain.AuditStore

	// Redis
	Quotes  domain.QuoteCache
	Bus     domain.EventBus
	Locks   domain.LockManager
	Limiter domain.RateLimiter

	// Blob storage
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Exchange is the live HFT client; paper mode reads quotes from it too.
	Exchange *lykke.Client

	Notifier *notify.Notifier
	Health   map[string]handler.HealthCheck
}

// needsExchange returns true for modes that talk to the exchange.
func needsExchange(mode string) bool {
	return mode == "trade" || mode == "paper"
}

// needsS3 returns true when object storage is used for archiving or listing.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled || (cfg.Mode == "server" && cfg.S3.Bucket != "")
}

// historyStore is what both history backends implement.
type historyStore interface {
	domain.PriceHistoryStore
	domain.OrderHistory
	domain.PriceArchiveSource
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Health: map[string]handler.HealthCheck{}}

	// --- Price history: storage_location picks the backend ---
	var history historyStore
	switch cfg.Trader.StorageScheme() {
	case "postgres", "postgresql":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:               cfg.Trader.StorageLocation,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		history = postgres.NewHistoryStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pool.Ping
	case "memory":
		logger.WarnContext(ctx, "using in-memory price history; nothing survives a restart")
		history = memory.NewHistoryStore()
	default:
		return nil, nil, fmt.Errorf("wire: unsupported storage_location %q", cfg.Trader.StorageLocation)
	}
	deps.History = history
	deps.Orders = history
	deps.PriceArchive = history

	// --- Redis (optional) ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Quotes = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
		deps.Bus = redis.NewEventBus(redisClient, cfg.Redis.StreamMaxLen)
		deps.Locks = redis.NewLockManager(redisClient)
		deps.Limiter = redis.NewRateLimiter(redisClient)
		deps.Health["redis"] = redisClient.Ping
	}

	// --- S3 blob storage ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobReader = s3Client
		deps.Archiver = s3blob.NewArchiver(s3Client, s3Client, history, history, deps.Audit, logger)
		deps.Health["s3"] = s3Client.Health
	}

	// --- Exchange ---
	if needsExchange(cfg.Mode) {
		deps.Exchange = lykke.NewClient(lykke.Config{
			BaseURL:        cfg.Lykke.BaseURL,
			Timeout:        cfg.Lykke.Timeout.Duration,
			VolumeAccuracy: cfg.Lykke.VolumeAccuracy,
		}, logger)
		deps.Health["exchange"] = deps.Exchange.IsAlive
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.Cooldown.Duration, logger)

	return deps, cleanup, nil
}
