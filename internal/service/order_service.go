package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Notification event types.
const (
	EventOrderFilled = "order_filled"
	EventCycleError  = "cycle_error"
)

// Notifier delivers operator notifications filtered by event type.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OrderService reacts to executed orders and finished cycles: it publishes
// them on the event bus, appends orders to the durable stream, writes the
// audit log and notifies operators. Every collaborator is optional.
type OrderService struct {
	bus      domain.EventBus
	audit    domain.AuditStore
	notifier Notifier
	logger   *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(bus domain.EventBus, audit domain.AuditStore, notifier Notifier, logger *slog.Logger) *OrderService {
	return &OrderService{
		bus:      bus,
		audit:    audit,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "order_service")),
	}
}

// HandleOrder records side effects of an executed order.
func (s *OrderService) HandleOrder(ctx context.Context, rec domain.OrderRecord) {
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event": "order_placed",
			"order": rec,
		})
		if err := s.bus.Publish(ctx, domain.ChannelOrders, evt); err != nil {
			s.logger.WarnContext(ctx, "order_service: publish order event failed",
				slog.String("order_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
		payload, _ := json.Marshal(rec)
		if err := s.bus.StreamAppend(ctx, domain.StreamOrders, payload); err != nil {
			s.logger.WarnContext(ctx, "order_service: append order stream failed",
				slog.String("order_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, "order_placed", map[string]any{
			"order_id":       rec.ID,
			"asset_pair":     rec.AssetPair,
			"action":         string(rec.Action),
			"volume":         rec.Volume,
			"executed_price": rec.ExecutedPrice,
			"policy":         rec.Policy,
		}); err != nil {
			s.logger.WarnContext(ctx, "order_service: audit log failed",
				slog.String("order_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		title := fmt.Sprintf("%s %s filled", rec.Action, rec.AssetPair)
		msg := fmt.Sprintf("volume %g %s at %g (policy %s, order %s)",
			rec.Volume, rec.Asset, rec.ExecutedPrice, rec.Policy, rec.ID)
		if err := s.notifier.Notify(ctx, EventOrderFilled, title, msg); err != nil {
			s.logger.WarnContext(ctx, "order_service: notify failed",
				slog.String("order_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// HandleCycle publishes the cycle report and alerts on failed cycles.
func (s *OrderService) HandleCycle(ctx context.Context, report domain.CycleReport) {
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event": "cycle",
			"cycle": report,
		})
		if err := s.bus.Publish(ctx, domain.ChannelCycles, evt); err != nil {
			s.logger.WarnContext(ctx, "order_service: publish cycle event failed",
				slog.String("cycle_id", report.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if report.Failed() && s.notifier != nil {
		title := fmt.Sprintf("%s cycle failed in %s", report.AssetPair, report.Phase)
		if err := s.notifier.Notify(ctx, EventCycleError, title, report.Error); err != nil {
			s.logger.WarnContext(ctx, "order_service: notify failed",
				slog.String("cycle_id", report.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
