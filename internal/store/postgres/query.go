package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// queryBuilder appends positional-parameter predicates to a SELECT.
type queryBuilder struct {
	sb   strings.Builder
	args []any
}

func newQuery(base string) *queryBuilder {
	q := &queryBuilder{}
	q.sb.WriteString(base)
	q.sb.WriteString(" WHERE 1=1")
	return q
}

// where adds "AND <expr> $n" for a single argument.
func (q *queryBuilder) where(expr string, arg any) {
	q.args = append(q.args, arg)
	fmt.Fprintf(&q.sb, " AND %s $%d", expr, len(q.args))
}

// timeRange adds the Since/Until bounds of opts on column.
func (q *queryBuilder) timeRange(column string, opts domain.ListOpts) {
	if opts.Since != nil {
		q.where(column+" >=", *opts.Since)
	}
	if opts.Until != nil {
		q.where(column+" <", *opts.Until)
	}
}

func (q *queryBuilder) raw(s string) {
	q.sb.WriteString(s)
}

// page adds LIMIT and OFFSET when set.
func (q *queryBuilder) page(limit, offset int) {
	if limit > 0 {
		q.args = append(q.args, limit)
		fmt.Fprintf(&q.sb, " LIMIT $%d", len(q.args))
	}
	if offset > 0 {
		q.args = append(q.args, offset)
		fmt.Fprintf(&q.sb, " OFFSET $%d", len(q.args))
	}
}

func (q *queryBuilder) String() string { return q.sb.String() }

const priceColumns = `asset_pair, observed_at, buy_price, sell_price, buy_volume, sell_volume`

// windowQuery renders a WindowQuery. With a limit the newest rows are taken
// first and re-sorted oldest first.
func windowQuery(w domain.WindowQuery) (string, []any) {
	q := newQuery(`SELECT ` + priceColumns + ` FROM price_observations`)
	q.where("asset_pair =", w.AssetPair)
	if !w.After.IsZero() {
		q.where("observed_at >", w.After)
	}
	if w.Limit <= 0 {
		q.raw(" ORDER BY observed_at ASC, id ASC")
		return q.String(), q.args
	}
	q.raw(" ORDER BY observed_at DESC, id DESC")
	q.page(w.Limit, 0)
	return `SELECT ` + priceColumns + ` FROM (` + q.String() + `) newest ORDER BY observed_at ASC`, q.args
}

func beforeQuery(base, column string, before time.Time) (string, []any) {
	q := newQuery(base)
	q.where(column+" <", before)
	q.raw(" ORDER BY " + column + " ASC")
	return q.String(), q.args
}
