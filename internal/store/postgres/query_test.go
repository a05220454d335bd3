package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

func TestWindowQueryUnbounded(t *testing.T) {
	sql, args := windowQuery(domain.WindowQuery{AssetPair: "BTCUSD"})

	assert.Equal(t,
		"SELECT "+priceColumns+" FROM price_observations WHERE 1=1 AND asset_pair = $1 ORDER BY observed_at ASC, id ASC",
		sql)
	assert.Equal(t, []any{"BTCUSD"}, args)
}

func TestWindowQueryAfter(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, args := windowQuery(domain.WindowQuery{AssetPair: "BTCUSD", After: after})

	assert.Contains(t, sql, "AND observed_at > $2")
	assert.Equal(t, []any{"BTCUSD", after}, args)
}

func TestWindowQueryLimitTakesNewestThenSortsAscending(t *testing.T) {
	sql, args := windowQuery(domain.WindowQuery{AssetPair: "BTCUSD", Limit: 1})

	assert.Contains(t, sql, "ORDER BY observed_at DESC, id DESC LIMIT $2")
	assert.Contains(t, sql, ") newest ORDER BY observed_at ASC")
	assert.Equal(t, []any{"BTCUSD", 1}, args)
}

func TestQueryBuilderPaging(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := newQuery("SELECT id FROM market_orders")
	q.where("asset_pair =", "BTCUSD")
	q.timeRange("executed_at", domain.ListOpts{Since: &since})
	q.raw(" ORDER BY executed_at DESC")
	q.page(10, 20)

	assert.Equal(t,
		"SELECT id FROM market_orders WHERE 1=1 AND asset_pair = $1 AND executed_at >= $2 ORDER BY executed_at DESC LIMIT $3 OFFSET $4",
		q.String())
	assert.Equal(t, []any{"BTCUSD", since, 10, 20}, q.args)
}

func TestBeforeQuery(t *testing.T) {
	cut := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	sql, args := beforeQuery("SELECT id FROM market_orders", "executed_at", cut)

	assert.Equal(t, "SELECT id FROM market_orders WHERE 1=1 AND executed_at < $1 ORDER BY executed_at ASC", sql)
	assert.Equal(t, []any{cut}, args)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p%40ss@db:5432/trades?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p@ss", Database: "trades"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestPendingMigrations(t *testing.T) {
	pending, err := pendingMigrations(map[string]bool{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql"}, pending)

	pending, err = pendingMigrations(map[string]bool{"001_init.sql": true})
	assert.NoError(t, err)
	assert.Empty(t, pending)
}
