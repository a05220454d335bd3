package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseCronNext(t *testing.T) {
	base := time.Date(2025, 3, 10, 2, 59, 30, 0, time.UTC) // Monday

	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)},
		{"30 4 1 * *", time.Date(2025, 4, 1, 4, 30, 0, 0, time.UTC)},
		{"0 0 * * 6", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"5-10 2 * * 1-5", time.Date(2025, 3, 11, 2, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := ParseCron(tt.expr)
			require.NoError(t, err)
			got, err := s.Next(base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCronRejects(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "*/0 * * * *", "a * * * *", "5-1 * * * *"} {
		_, err := ParseCron(expr)
		assert.Error(t, err, expr)
	}
}

type fakeArchiver struct {
	cutoffs []time.Time
	err     error
}

func (f *fakeArchiver) ArchivePrices(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return 7, f.err
}

func (f *fakeArchiver) ArchiveOrders(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return 2, nil
}

func TestSchedulerRun(t *testing.T) {
	fa := &fakeArchiver{}
	s := NewScheduler(fa, 30, discard)
	s.now = func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) }

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Result{Cutoff: want, Prices: 7, Orders: 2}, res)
	assert.Equal(t, []time.Time{want, want}, fa.cutoffs)
}

func TestSchedulerRunStopsOnPriceError(t *testing.T) {
	boom := errors.New("s3 down")
	fa := &fakeArchiver{err: boom}
	_, err := NewScheduler(fa, 1, discard).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, fa.cutoffs, 1)
}

func TestRunCronTriggerAndCancel(t *testing.T) {
	fa := &fakeArchiver{}
	s := NewScheduler(fa, 1, discard)
	trigger := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.RunCron(ctx, "0 0 1 1 *", trigger) }()

	trigger <- struct{}{}
	// The second send only lands once the first run has finished.
	trigger <- struct{}{}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("RunCron did not stop")
	}
	assert.GreaterOrEqual(t, len(fa.cutoffs), 2)
}

func TestRunCronBadExpression(t *testing.T) {
	err := NewScheduler(&fakeArchiver{}, 1, discard).RunCron(context.Background(), "bogus", nil)
	assert.Error(t, err)
}
