package domain

import "time"

// OrderRecord is the append-only record of an executed market order.
type OrderRecord struct {
	ID            string    `json:"id"`
	ExecutedAt    time.Time `json:"executed_at"`
	AssetPair     string    `json:"asset_pair"`
	Asset         string    `json:"asset"`
	Action        Action    `json:"action"`
	Volume        float64   `json:"volume"`
	ExecutedPrice float64   `json:"executed_price"`
	Signal        Signal    `json:"signal"`
	Policy        string    `json:"policy"`
}

// MarketOrderRequest is what the trader hands to the exchange.
type MarketOrderRequest struct {
	APIKey    string
	AssetPair string
	Asset     string
	Action    Action
	Volume    float64
}

// Execution is the exchange's confirmation of a filled market order.
type Execution struct {
	Timestamp time.Time
	Price     float64
}

// Balance is the account balance for one asset.
type Balance struct {
	Asset    string  `json:"asset"`
	Balance  float64 `json:"balance"`
	Reserved float64 `json:"reserved"`
}

// PendingOrder is an order that has been accepted but is neither filled nor
// cancelled.
type PendingOrder struct {
	ID              string    `json:"id"`
	AssetPair       string    `json:"asset_pair"`
	Status          string    `json:"status"`
	Volume          float64   `json:"volume"`
	RemainingVolume float64   `json:"remaining_volume"`
	Price           float64   `json:"price"`
	CreatedAt       time.Time `json:"created_at"`
}

// RiskAssessment is recomputed every cycle and never persisted.
type RiskAssessment struct {
	FundsSufficient bool `json:"funds_sufficient"`
	NoPendingOrders bool `json:"no_pending_orders"`
	PendingOrders   int  `json:"pending_orders"`
}

// TradingAllowed reports whether a new order may be placed this cycle.
func (r RiskAssessment) TradingAllowed() bool {
	return r.FundsSufficient && r.NoPendingOrders
}
