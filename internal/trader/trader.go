// Package trader runs the trading decision cycle: inform, evaluate, act or
// skip, then sleep. One Trader drives one asset pair from a single goroutine.
package trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradebot/internal/domain"
	"github.com/alanyoungcy/tradebot/internal/metrics"
	"github.com/alanyoungcy/tradebot/internal/strategy"
)

// Config holds the per-process trading parameters. It is read-only once the
// Trader is built.
type Config struct {
	APIKey    string
	Asset     string
	AssetPair string
	Volume    float64
	// Interval is the sleep between cycles, 1/trading_frequency.
	Interval time.Duration
	// Mode labels metrics ("live" or "paper").
	Mode string
	// RecentLimit bounds the in-memory cycle history served by Recent.
	RecentLimit int
}

// Assessor evaluates account risk before an order.
type Assessor interface {
	Assess(ctx context.Context, apiKey string) (domain.RiskAssessment, error)
}

// PriceSink receives every recorded observation.
type PriceSink interface {
	HandleObservation(ctx context.Context, obs domain.PriceObservation)
}

// EventSink receives executed orders and finished cycles.
type EventSink interface {
	HandleOrder(ctx context.Context, rec domain.OrderRecord)
	HandleCycle(ctx context.Context, report domain.CycleReport)
}

// Options carries the optional collaborators of a Trader.
type Options struct {
	Prices PriceSink
	Events EventSink
	// Now defaults to time.Now.
	Now func() time.Time
}

// CycleError is returned by RunOnce when a cycle is abandoned. Err is a
// *domain.GatewayError or *domain.StorageError.
type CycleError struct {
	Phase domain.Phase
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("trader: %s: %v", e.Phase, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// Trader owns the trading loop for one asset pair.
type Trader struct {
	cfg     Config
	gateway domain.ExchangeGateway
	store   domain.PriceHistoryStore
	policy  strategy.Policy
	risk    Assessor
	prices  PriceSink
	events  EventSink
	now     func() time.Time
	logger  *slog.Logger

	mu     sync.Mutex
	recent []domain.CycleReport
	cycles int64
	orders int64
}

// New creates a Trader.
func New(
	cfg Config,
	gateway domain.ExchangeGateway,
	store domain.PriceHistoryStore,
	policy strategy.Policy,
	risk Assessor,
	opts Options,
	logger *slog.Logger,
) (*Trader, error) {
	if cfg.AssetPair == "" {
		return nil, errors.New("trader: asset pair is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("trader: interval must be positive, got %s", cfg.Interval)
	}
	if gateway == nil || store == nil || policy == nil || risk == nil {
		return nil, errors.New("trader: gateway, store, policy and risk are required")
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 100
	}
	if cfg.Mode == "" {
		cfg.Mode = "live"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Trader{
		cfg:     cfg,
		gateway: gateway,
		store:   store,
		policy:  policy,
		risk:    risk,
		prices:  opts.Prices,
		events:  opts.Events,
		now:     now,
		logger: logger.With(
			slog.String("component", "trader"),
			slog.String("asset_pair", cfg.AssetPair),
			slog.String("policy", policy.Name()),
		),
	}, nil
}

// Run repeats the cycle until ctx is cancelled. A cycle that has started runs
// to completion even if ctx is cancelled meanwhile, so an order is never sent
// without being recorded. Cancellation is a clean exit and returns nil.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "trader started",
		slog.Duration("interval", t.cfg.Interval),
		slog.Float64("volume", t.cfg.Volume),
	)

	for ctx.Err() == nil {
		// Failures are logged and reported inside RunOnce; the loop goes on.
		_, _ = t.RunOnce(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
		case <-time.After(t.cfg.Interval):
		}
	}

	t.logger.Info("trader stopped", slog.Int64("cycles", t.cycleCount()))
	return nil
}

// RunOnce performs a single inform, evaluate and act-or-skip pass. The
// returned report is always populated; err is a *CycleError when the cycle
// was abandoned.
func (t *Trader) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	report := domain.CycleReport{
		ID:        uuid.NewString(),
		AssetPair: t.cfg.AssetPair,
		StartedAt: t.now(),
		Phase:     domain.PhaseInform,
		Signal:    domain.SignalHold,
	}
	log := t.logger.With(slog.String("cycle_id", report.ID))

	obs, err := t.inform(ctx)
	if err != nil {
		return t.finish(ctx, log, report, err)
	}
	report.Observation = &obs

	report.Phase = domain.PhaseEvaluate
	assessment, err := t.evaluate(ctx)
	if err != nil {
		return t.finish(ctx, log, report, err)
	}
	report.Risk = &assessment

	if !assessment.TradingAllowed() {
		report.Phase = domain.PhaseSkip
		log.DebugContext(ctx, "cycle skipped",
			slog.Bool("funds_sufficient", assessment.FundsSufficient),
			slog.Int("pending_orders", assessment.PendingOrders),
		)
		return t.finish(ctx, log, report, nil)
	}

	report.Phase = domain.PhaseAct
	err = t.act(ctx, log, &report)
	return t.finish(ctx, log, report, err)
}

// inform fetches both sides of the book and records the observation.
func (t *Trader) inform(ctx context.Context) (domain.PriceObservation, error) {
	buy, err := t.gateway.GetPrice(ctx, t.cfg.AssetPair, domain.SideBuy)
	if err != nil {
		return domain.PriceObservation{}, asGatewayError("get buy price", err)
	}
	sell, err := t.gateway.GetPrice(ctx, t.cfg.AssetPair, domain.SideSell)
	if err != nil {
		return domain.PriceObservation{}, asGatewayError("get sell price", err)
	}

	obs := domain.ObservationFromQuotes(buy, sell)
	obs.AssetPair = t.cfg.AssetPair
	if obs.Timestamp.IsZero() {
		obs.Timestamp = t.now()
	}

	if err := t.store.RecordPrice(ctx, obs); err != nil {
		return domain.PriceObservation{}, asStorageError("record price", err)
	}

	metrics.Midquote.WithLabelValues(obs.AssetPair).Set(obs.Midquote())
	if t.prices != nil {
		t.prices.HandleObservation(ctx, obs)
	}
	return obs, nil
}

func (t *Trader) evaluate(ctx context.Context) (domain.RiskAssessment, error) {
	assessment, err := t.risk.Assess(ctx, t.cfg.APIKey)
	if err != nil {
		return domain.RiskAssessment{}, asGatewayError("assess risk", err)
	}
	return assessment, nil
}

// act reads the policy's window, decides, and dispatches exactly one of buy,
// sell or nothing. report.Order is set once the exchange has confirmed an
// order, even if persisting it failed.
func (t *Trader) act(ctx context.Context, log *slog.Logger, report *domain.CycleReport) error {
	q := domain.WindowQuery{AssetPair: t.cfg.AssetPair}
	if w, ok := t.policy.(strategy.Windowed); ok {
		q.After = t.now().Add(-w.Lookback())
	} else {
		q.Limit = 1
	}

	window, err := t.store.PriceWindow(ctx, q)
	if err != nil {
		return asStorageError("price window", err)
	}

	sig, err := t.policy.Decide(window)
	if errors.Is(err, domain.ErrInsufficientData) {
		log.InfoContext(ctx, "waiting for more price history",
			slog.Int("observations", len(window)),
			slog.String("reason", err.Error()),
		)
		sig = domain.SignalHold
		report.InsufficientData = true
	} else if err != nil {
		return fmt.Errorf("trader: decide: %w", err)
	}
	report.Signal = sig
	metrics.Decisions.WithLabelValues(sig.String()).Inc()

	action, ok := sig.Action()
	if !ok {
		return nil
	}

	req := domain.MarketOrderRequest{
		APIKey:    t.cfg.APIKey,
		AssetPair: t.cfg.AssetPair,
		Asset:     t.cfg.Asset,
		Action:    action,
		Volume:    t.cfg.Volume,
	}
	exec, err := t.gateway.SendMarketOrder(ctx, req)
	if err != nil {
		return asGatewayError("send market order", err)
	}

	executedAt := exec.Timestamp
	if executedAt.IsZero() {
		executedAt = t.now()
	}
	rec := domain.OrderRecord{
		ID:            uuid.NewString(),
		ExecutedAt:    executedAt,
		AssetPair:     req.AssetPair,
		Asset:         req.Asset,
		Action:        action,
		Volume:        req.Volume,
		ExecutedPrice: exec.Price,
		Signal:        sig,
		Policy:        t.policy.Name(),
	}

	t.mu.Lock()
	t.orders++
	t.mu.Unlock()
	metrics.Orders.WithLabelValues(t.cfg.Mode, string(action)).Inc()
	log.InfoContext(ctx, "market order executed",
		slog.String("order_id", rec.ID),
		slog.String("action", string(action)),
		slog.Float64("volume", rec.Volume),
		slog.Float64("price", rec.ExecutedPrice),
	)

	report.Order = &rec
	recordErr := t.store.RecordOrder(ctx, rec)
	if t.events != nil {
		t.events.HandleOrder(ctx, rec)
	}
	if recordErr != nil {
		return asStorageError("record order", recordErr)
	}
	return nil
}

// finish stamps, logs, counts and publishes the report.
func (t *Trader) finish(ctx context.Context, log *slog.Logger, report domain.CycleReport, err error) (domain.CycleReport, error) {
	report.FinishedAt = t.now()
	metrics.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	var cycleErr *CycleError
	if err != nil {
		cycleErr = &CycleError{Phase: report.Phase, Err: err}
		report.Error = err.Error()
		metrics.CycleErrors.WithLabelValues(string(report.Phase)).Inc()
		metrics.Cycles.WithLabelValues("failed").Inc()
		log.ErrorContext(ctx, "cycle failed",
			slog.String("phase", string(report.Phase)),
			slog.Time("timestamp", report.FinishedAt),
			slog.String("error", err.Error()),
		)
	} else {
		metrics.Cycles.WithLabelValues(outcome(report)).Inc()
		log.DebugContext(ctx, "cycle complete",
			slog.String("phase", string(report.Phase)),
			slog.String("signal", report.Signal.String()),
		)
	}

	t.remember(report)
	if t.events != nil {
		t.events.HandleCycle(ctx, report)
	}

	if cycleErr != nil {
		return report, cycleErr
	}
	return report, nil
}

func outcome(r domain.CycleReport) string {
	switch {
	case r.Order != nil:
		return "traded"
	case r.Phase == domain.PhaseSkip:
		return "skipped"
	case r.InsufficientData:
		return "insufficient_data"
	default:
		return "held"
	}
}

func asGatewayError(op string, err error) error {
	if domain.IsGatewayError(err) {
		return err
	}
	return &domain.GatewayError{Op: op, Err: err}
}

func asStorageError(op string, err error) error {
	if domain.IsStorageError(err) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
