package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// FundsPredicate decides whether the account can cover an order of the given
// volume.
type FundsPredicate func(balances []domain.Balance, volume float64) bool

// AlwaysSufficient treats funds as available regardless of balances. The
// exchange rejects orders it cannot cover, so this is the default.
func AlwaysSufficient(_ []domain.Balance, _ float64) bool { return true }

// MinimumBalance requires the unreserved balance of asset to be at least
// max(floor, volume).
func MinimumBalance(asset string, floor float64) FundsPredicate {
	return func(balances []domain.Balance, volume float64) bool {
		need := max(floor, volume)
		for _, b := range balances {
			if b.Asset == asset {
				return b.Balance-b.Reserved >= need
			}
		}
		return false
	}
}

// AllBalancesAtLeast requires every reported wallet to hold at least floor.
// An empty wallet list passes.
func AllBalancesAtLeast(floor float64) FundsPredicate {
	return func(balances []domain.Balance, _ float64) bool {
		for _, b := range balances {
			if b.Balance < floor {
				return false
			}
		}
		return true
	}
}

// RiskConfig holds the tunable parameters for pre-trade risk checks.
type RiskConfig struct {
	Volume float64
	Funds  FundsPredicate
}

// RiskService checks the account before an order is placed: funds must be
// sufficient and no earlier order may still be pending.
type RiskService struct {
	gateway domain.ExchangeGateway
	cfg     RiskConfig
	logger  *slog.Logger
}

// NewRiskService creates a RiskService. A nil cfg.Funds means AlwaysSufficient.
func NewRiskService(gateway domain.ExchangeGateway, cfg RiskConfig, logger *slog.Logger) *RiskService {
	if cfg.Funds == nil {
		cfg.Funds = AlwaysSufficient
	}
	return &RiskService{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "risk_service")),
	}
}

// Assess queries balances and pending orders. Gateway errors are wrapped with
// %w so the caller can still classify them; nothing is retried.
func (s *RiskService) Assess(ctx context.Context, apiKey string) (domain.RiskAssessment, error) {
	balances, err := s.gateway.GetBalance(ctx, apiKey)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("risk_service: get balance: %w", err)
	}

	pending, err := s.gateway.GetPendingOrders(ctx, apiKey)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("risk_service: get pending orders: %w", err)
	}

	assessment := domain.RiskAssessment{
		FundsSufficient: s.cfg.Funds(balances, s.cfg.Volume),
		NoPendingOrders: len(pending) == 0,
		PendingOrders:   len(pending),
	}

	if !assessment.TradingAllowed() {
		s.logger.InfoContext(ctx, "trading not allowed",
			slog.Bool("funds_sufficient", assessment.FundsSufficient),
			slog.Int("pending_orders", assessment.PendingOrders),
		)
	}
	return assessment, nil
}
