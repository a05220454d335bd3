package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PriceHistoryStore persists observations and executed orders. The trader
// issues one call at a time; implementations need not serialise callers.
type PriceHistoryStore interface {
	RecordPrice(ctx context.Context, obs PriceObservation) error
	PriceWindow(ctx context.Context, q WindowQuery) ([]PriceObservation, error)
	RecordOrder(ctx context.Context, rec OrderRecord) error
}

// OrderHistory is the read side of the order log used by the status API and
// the archiver.
type OrderHistory interface {
	ListOrders(ctx context.Context, assetPair string, opts ListOpts) ([]OrderRecord, error)
	OrdersBefore(ctx context.Context, before time.Time) ([]OrderRecord, error)
}

// PriceArchiveSource exposes old observations for archival.
type PriceArchiveSource interface {
	PricesBefore(ctx context.Context, before time.Time) ([]PriceObservation, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
