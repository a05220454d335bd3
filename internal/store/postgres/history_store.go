package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.PriceHistoryStore  = (*HistoryStore)(nil)
	_ domain.OrderHistory       = (*HistoryStore)(nil)
	_ domain.PriceArchiveSource = (*HistoryStore)(nil)
	_ domain.AuditStore         = (*AuditStore)(nil)
)

// HistoryStore persists price observations and executed orders.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// RecordPrice inserts one observation.
func (s *HistoryStore) RecordPrice(ctx context.Context, obs domain.PriceObservation) error {
	const query = `
		INSERT INTO price_observations (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		obs.AssetPair, obs.Timestamp, obs.BuyPrice, obs.SellPrice, obs.BuyVolume, obs.SellVolume,
	)
	if err != nil {
		return fmt.Errorf("postgres: record price %s: %w", obs.AssetPair, err)
	}
	return nil
}

// PriceWindow returns observations strictly after q.After, oldest first.
func (s *HistoryStore) PriceWindow(ctx context.Context, q domain.WindowQuery) ([]domain.PriceObservation, error) {
	query, args := windowQuery(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: price window %s: %w", q.AssetPair, err)
	}
	return collectObservations(rows)
}

// PricesBefore returns every observation taken before the cut-off.
func (s *HistoryStore) PricesBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error) {
	query, args := beforeQuery(`SELECT `+priceColumns+` FROM price_observations`, "observed_at", before)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: prices before %s: %w", before.Format(time.RFC3339), err)
	}
	return collectObservations(rows)
}

func collectObservations(rows pgx.Rows) ([]domain.PriceObservation, error) {
	defer rows.Close()

	out := []domain.PriceObservation{}
	for rows.Next() {
		var o domain.PriceObservation
		if err := rows.Scan(&o.AssetPair, &o.Timestamp, &o.BuyPrice, &o.SellPrice, &o.BuyVolume, &o.SellVolume); err != nil {
			return nil, fmt.Errorf("postgres: scan price observation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: price observation rows: %w", err)
	}
	return out, nil
}

const orderColumns = `id, executed_at, asset_pair, asset, action, volume, executed_price, signal, policy`

// RecordOrder inserts one executed order. Records are never updated.
func (s *HistoryStore) RecordOrder(ctx context.Context, rec domain.OrderRecord) error {
	const query = `
		INSERT INTO market_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.ExecutedAt, rec.AssetPair, rec.Asset, string(rec.Action),
		rec.Volume, rec.ExecutedPrice, int16(rec.Signal), rec.Policy,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", rec.ID, err)
	}
	return nil
}

// ListOrders returns orders newest first. An empty assetPair matches all.
func (s *HistoryStore) ListOrders(ctx context.Context, assetPair string, opts domain.ListOpts) ([]domain.OrderRecord, error) {
	q := newQuery(`SELECT ` + orderColumns + ` FROM market_orders`)
	if assetPair != "" {
		q.where("asset_pair =", assetPair)
	}
	q.timeRange("executed_at", opts)
	q.raw(" ORDER BY executed_at DESC")
	q.page(opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	return collectOrders(rows)
}

// OrdersBefore returns orders executed before the cut-off, oldest first.
func (s *HistoryStore) OrdersBefore(ctx context.Context, before time.Time) ([]domain.OrderRecord, error) {
	query, args := beforeQuery(`SELECT `+orderColumns+` FROM market_orders`, "executed_at", before)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: orders before %s: %w", before.Format(time.RFC3339), err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]domain.OrderRecord, error) {
	defer rows.Close()

	out := []domain.OrderRecord{}
	for rows.Next() {
		var (
			r      domain.OrderRecord
			action string
			signal int16
		)
		if err := rows.Scan(&r.ID, &r.ExecutedAt, &r.AssetPair, &r.Asset, &action,
			&r.Volume, &r.ExecutedPrice, &signal, &r.Policy); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		r.Action = domain.Action(action)
		r.Signal = domain.Signal(signal)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: order rows: %w", err)
	}
	return out, nil
}
