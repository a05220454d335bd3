// Package archive runs the cold-storage export of price and order history on
// a cron schedule, plus on-demand runs requested over the status API.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Result summarises one archive run.
type Result struct {
	Cutoff time.Time `json:"cutoff"`
	Prices int64     `json:"prices"`
	Orders int64     `json:"orders"`
}

// Scheduler exports history older than the retention window.
type Scheduler struct {
	blob          domain.Archiver
	retentionDays int
	now           func() time.Time
	logger        *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(blob domain.Archiver, retentionDays int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		blob:          blob,
		retentionDays: retentionDays,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "archive")),
	}
}

// ErrRunning is returned when a run is requested while another is active.
var ErrRunning = errors.New("archive: run already in progress")

// Run executes a single archive run over prices then orders.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}, ErrRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	res := Result{Cutoff: s.now().UTC().AddDate(0, 0, -s.retentionDays)}
	s.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", res.Cutoff),
		slog.Int("retention_days", s.retentionDays),
	)

	var err error
	if res.Prices, err = s.blob.ArchivePrices(ctx, res.Cutoff); err != nil {
		return res, fmt.Errorf("archive: prices before %s: %w", res.Cutoff.Format(time.RFC3339), err)
	}
	if res.Orders, err = s.blob.ArchiveOrders(ctx, res.Cutoff); err != nil {
		return res, fmt.Errorf("archive: orders before %s: %w", res.Cutoff.Format(time.RFC3339), err)
	}

	s.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("prices_archived", res.Prices),
		slog.Int64("orders_archived", res.Orders),
	)
	return res, nil
}

// RunCron runs the archiver on schedule, and whenever trigger fires, until
// ctx is cancelled. Run failures are logged and do not stop the loop.
func (s *Scheduler) RunCron(ctx context.Context, cronExpr string, trigger <-chan struct{}) error {
	sched, err := ParseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("archive: parse cron %q: %w", cronExpr, err)
	}
	s.logger.InfoContext(ctx, "archive cron started", slog.String("cron", cronExpr))

	for {
		next, err := sched.Next(s.now().UTC())
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		s.logger.DebugContext(ctx, "archive waiting for next trigger",
			slog.Time("next_run", next),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.InfoContext(ctx, "archive cron stopped")
			return ctx.Err()
		case <-trigger:
			timer.Stop()
			s.logger.InfoContext(ctx, "archive run requested")
		case <-timer.C:
		}

		if _, err := s.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
		}
	}
}
