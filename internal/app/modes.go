package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradebot/internal/archive"
	"github.com/alanyoungcy/tradebot/internal/cache/redis"
	"github.com/alanyoungcy/tradebot/internal/crypto"
	"github.com/alanyoungcy/tradebot/internal/domain"
	"github.com/alanyoungcy/tradebot/internal/platform/paper"
	"github.com/alanyoungcy/tradebot/internal/server"
	"github.com/alanyoungcy/tradebot/internal/server/handler"
	"github.com/alanyoungcy/tradebot/internal/server/ws"
	"github.com/alanyoungcy/tradebot/internal/service"
	"github.com/alanyoungcy/tradebot/internal/strategy"
	"github.com/alanyoungcy/tradebot/internal/trader"
)

// TradeMode runs the trading loop against the live exchange.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	apiKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawKey:           a.cfg.Trader.APIKey,
		EncryptedKeyPath: a.cfg.Trader.EncryptedKeyPath,
		KeyPassword:      a.cfg.Trader.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: load api key: %w", err)
	}

	return a.runTrader(ctx, deps, deps.Exchange, apiKey, "live")
}

// PaperMode runs the trading loop on live quotes with simulated fills and
// balances. No API key is needed.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode",
		slog.Any("balances", a.cfg.Paper.Balances),
	)

	gw := paper.NewGateway(deps.Exchange, a.cfg.Paper.Balances, a.logger)
	return a.runTrader(ctx, deps, gw, "paper", "paper")
}

// ArchiveMode exports history older than the retention window to object
// storage once, then keeps running it on the configured cron schedule.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.String("cron", a.cfg.Archive.Cron),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	g, ctx := errgroup.WithContext(ctx)

	sched := archive.NewScheduler(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	triggerCh := make(chan struct{}, 1)

	g.Go(func() error {
		if _, err := sched.Run(ctx); err != nil {
			a.logger.ErrorContext(ctx, "initial archive run failed", slog.String("error", err.Error()))
		}
		return sched.RunCron(ctx, a.cfg.Archive.Cron, triggerCh)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, nil, nil, triggerCh)
	}

	return wait(g)
}

// ServerMode serves the status API, history endpoints and websocket without
// running a trader in this process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	quotes := service.NewPriceService(deps.Quotes, deps.Bus, a.logger)
	a.startHTTPServer(ctx, g, deps, nil, quotes, nil)
	return wait(g)
}

// runTrader builds the trading loop around gw and runs it, together with the
// optional HTTP server and archive cron, until ctx is cancelled.
func (a *App) runTrader(ctx context.Context, deps *Dependencies, gw domain.ExchangeGateway, apiKey, mode string) error {
	tc := a.cfg.Trader

	if err := a.checkExchange(ctx, deps); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// One trader per asset pair across processes sharing the same Redis.
	if deps.Locks != nil {
		lock, err := deps.Locks.Acquire(ctx, redis.TraderLockKey(tc.AssetPair), a.cfg.Redis.LockTTL.Duration)
		if err != nil {
			return fmt.Errorf("app: trader lock for %s: %w", tc.AssetPair, err)
		}
		defer lock.Release()
		g.Go(func() error {
			return a.keepLock(ctx, lock)
		})
	}

	policy, err := strategy.New(strategy.Config{
		Name:     tc.Strategy,
		Lookback: strategy.LookbackFor(tc.TradingFrequency, tc.MomentumAccumulator),
		Seed:     tc.Seed,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: build policy: %w", err)
	}

	risk := service.NewRiskService(gw, service.RiskConfig{
		Volume: tc.Volume,
		Funds:  a.fundsPredicate(),
	}, a.logger)
	prices := service.NewPriceService(deps.Quotes, deps.Bus, a.logger)
	var notifier service.Notifier
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}
	events := service.NewOrderService(deps.Bus, deps.Audit, notifier, a.logger)

	tr, err := trader.New(trader.Config{
		APIKey:      apiKey,
		Asset:       tc.Asset,
		AssetPair:   tc.AssetPair,
		Volume:      tc.Volume,
		Interval:    tc.Interval(),
		Mode:        mode,
		RecentLimit: tc.RecentLimit,
	}, gw, deps.History, policy, risk, trader.Options{
		Prices: prices,
		Events: events,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: build trader: %w", err)
	}

	g.Go(func() error {
		return tr.Run(ctx)
	})

	var triggerCh chan struct{}
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		triggerCh = make(chan struct{}, 1)
		sched := archive.NewScheduler(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return sched.RunCron(ctx, a.cfg.Archive.Cron, triggerCh)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, tr, prices, triggerCh)
	}

	return wait(g)
}

// checkExchange verifies the exchange is up and lists the configured pair.
func (a *App) checkExchange(ctx context.Context, deps *Dependencies) error {
	if err := deps.Exchange.IsAlive(ctx); err != nil {
		return fmt.Errorf("app: exchange unavailable: %w", err)
	}

	pairs, err := deps.Exchange.AssetPairs(ctx)
	if err != nil {
		// Listing is advisory; the first cycle surfaces a bad pair anyway.
		a.logger.WarnContext(ctx, "could not list asset pairs", slog.String("error", err.Error()))
		return nil
	}
	for _, p := range pairs {
		if p.ID == a.cfg.Trader.AssetPair {
			a.logger.InfoContext(ctx, "asset pair found",
				slog.String("asset_pair", p.ID),
				slog.String("name", p.Name),
				slog.Int("accuracy", int(p.Accuracy)),
			)
			return nil
		}
	}
	return fmt.Errorf("app: asset pair %q not listed by the exchange", a.cfg.Trader.AssetPair)
}

// keepLock extends the trader lock every third of its TTL. Losing the lock
// stops the process.
func (a *App) keepLock(ctx context.Context, lock domain.Lock) error {
	ttl := a.cfg.Redis.LockTTL.Duration
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := lock.Extend(ctx, ttl); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("app: extend trader lock: %w", err)
			}
		}
	}
}

// fundsPredicate maps risk.funds_check to a predicate.
func (a *App) fundsPredicate() service.FundsPredicate {
	rc := a.cfg.Risk
	switch rc.FundsCheck {
	case "minimum_balance":
		return service.MinimumBalance(a.cfg.Trader.Asset, rc.MinBalance)
	case "all_balances":
		return service.AllBalancesAtLeast(rc.MinBalance)
	default:
		return service.AlwaysSufficient
	}
}

// startHTTPServer registers the status server and its websocket hub on g.
// source and quotes may be nil; archiveTrigger is nil when no archive cron
// runs in this process.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	source *trader.Trader,
	quotes handler.LatestQuoter,
	archiveTrigger chan<- struct{},
) {
	pair := a.cfg.Trader.AssetPair

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Health, a.logger),
		Prices: handler.NewPriceHandler(deps.History, pair, a.logger),
		Orders: handler.NewOrderHandler(deps.Orders, pair, a.logger),
	}
	// A nil *trader.Trader must not become a non-nil StatusSource.
	if source != nil {
		handlers.Status = handler.NewStatusHandler(a.cfg.Mode, pair, source, quotes, a.logger)
	} else {
		handlers.Status = handler.NewStatusHandler(a.cfg.Mode, pair, nil, quotes, a.logger)
	}
	if deps.BlobReader != nil {
		ah := handler.NewArchiveHandler(deps.BlobReader, a.logger)
		if archiveTrigger != nil {
			ah = ah.WithTriggerChannel(archiveTrigger)
		}
		handlers.Archives = ah
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			AssetPair: pair,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	rateLimit := a.cfg.Server.RateLimit
	if deps.Limiter == nil && rateLimit > 0 {
		a.logger.InfoContext(ctx, "rate limiting disabled: redis not configured")
		rateLimit = 0
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   rateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.Limiter, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	g.Go(func() error {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("http server: listen %s: %w", addr, err)
		}
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("addr", addr),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Serve(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// wait blocks on g and treats cancellation as a clean exit.
func wait(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
