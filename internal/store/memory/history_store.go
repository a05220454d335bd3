// Package memory provides an in-process price history store for paper
// trading and tests. Nothing is pruned; memory grows with the run.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.PriceHistoryStore  = (*HistoryStore)(nil)
	_ domain.OrderHistory       = (*HistoryStore)(nil)
	_ domain.PriceArchiveSource = (*HistoryStore)(nil)
)

// HistoryStore keeps observations per asset pair, sorted by timestamp, and
// executed orders in insertion order.
type HistoryStore struct {
	prices map[string][]domain.PriceObservation
	orders []domain.OrderRecord
	mu     sync.RWMutex
}

// NewHistoryStore returns an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		prices: make(map[string][]domain.PriceObservation),
	}
}

// RecordPrice appends obs. Out-of-order timestamps are inserted in place so
// windows stay sorted.
func (s *HistoryStore) RecordPrice(_ context.Context, obs domain.PriceObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.prices[obs.AssetPair]
	n := len(list)
	if n == 0 || !obs.Timestamp.Before(list[n-1].Timestamp) {
		s.prices[obs.AssetPair] = append(list, obs)
		return nil
	}

	i := sort.Search(n, func(i int) bool { return list[i].Timestamp.After(obs.Timestamp) })
	list = append(list, domain.PriceObservation{})
	copy(list[i+1:], list[i:])
	list[i] = obs
	s.prices[obs.AssetPair] = list
	return nil
}

// PriceWindow returns observations strictly after q.After, oldest first,
// trimmed to the newest q.Limit when Limit is positive.
func (s *HistoryStore) PriceWindow(_ context.Context, q domain.WindowQuery) ([]domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.prices[q.AssetPair]
	start := 0
	if !q.After.IsZero() {
		start = sort.Search(len(list), func(i int) bool { return list[i].Timestamp.After(q.After) })
	}
	window := list[start:]
	if q.Limit > 0 && len(window) > q.Limit {
		window = window[len(window)-q.Limit:]
	}

	out := make([]domain.PriceObservation, len(window))
	copy(out, window)
	return out, nil
}

// RecordOrder appends rec to the order log.
func (s *HistoryStore) RecordOrder(_ context.Context, rec domain.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, rec)
	return nil
}

// ListOrders returns orders for assetPair, newest first. An empty assetPair
// matches every pair.
func (s *HistoryStore) ListOrders(_ context.Context, assetPair string, opts domain.ListOpts) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.OrderRecord
	skipped := 0
	for i := len(s.orders) - 1; i >= 0; i-- {
		rec := s.orders[i]
		if assetPair != "" && rec.AssetPair != assetPair {
			continue
		}
		if opts.Since != nil && rec.ExecutedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && !rec.ExecutedAt.Before(*opts.Until) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, rec)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// OrdersBefore returns every order executed before the cut-off, oldest first.
func (s *HistoryStore) OrdersBefore(_ context.Context, before time.Time) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.OrderRecord
	for _, rec := range s.orders {
		if rec.ExecutedAt.Before(before) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// PricesBefore returns every observation taken before the cut-off, across
// all pairs.
func (s *HistoryStore) PricesBefore(_ context.Context, before time.Time) ([]domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PriceObservation
	for _, list := range s.prices {
		for _, obs := range list {
			if !obs.Timestamp.Before(before) {
				break
			}
			out = append(out, obs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
