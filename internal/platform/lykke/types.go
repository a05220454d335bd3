package lykke

import "github.com/shopspring/decimal"

// --------------------------------------------------------------------------
// Lykke HFT API DTOs
// --------------------------------------------------------------------------

// OrderBook is one side of an asset pair's book. The API returns the sell
// side and the buy side as two entries of the same array.
type OrderBook struct {
	AssetPair string       `json:"AssetPair"`
	IsBuy     bool         `json:"IsBuy"`
	Timestamp string       `json:"Timestamp"`
	Prices    []PriceLevel `json:"Prices"`
}

// PriceLevel is a single price and volume entry. Sell-side volumes are
// negative.
type PriceLevel struct {
	Price  decimal.Decimal `json:"Price"`
	Volume decimal.Decimal `json:"Volume"`
}

// Wallet is one asset balance of the API key's account.
type Wallet struct {
	AssetID  string          `json:"AssetId"`
	Balance  decimal.Decimal `json:"Balance"`
	Reserved decimal.Decimal `json:"Reserved"`
}

// LimitOrder is an order as returned by the orders endpoint.
type LimitOrder struct {
	ID              string          `json:"Id"`
	Status          string          `json:"Status"`
	AssetPairID     string          `json:"AssetPairId"`
	Volume          decimal.Decimal `json:"Volume"`
	Price           decimal.Decimal `json:"Price"`
	RemainingVolume decimal.Decimal `json:"RemainingVolume"`
	CreatedAt       string          `json:"CreatedAt"`
}

// MarketOrderRequest is the body of a v2 market order. Volume is already
// rounded to the asset's accuracy.
type MarketOrderRequest struct {
	AssetPairID string  `json:"AssetPairId"`
	Asset       string  `json:"Asset"`
	OrderAction string  `json:"OrderAction"` // "Buy" or "Sell"
	Volume      float64 `json:"Volume"`
}

// MarketOrderResponse carries the average execution price.
type MarketOrderResponse struct {
	Price decimal.Decimal `json:"Price"`
}

// AssetPair describes a tradable pair.
type AssetPair struct {
	ID               string `json:"Id"`
	Name             string `json:"Name"`
	Accuracy         int32  `json:"Accuracy"`
	InvertedAccuracy int32  `json:"InvertedAccuracy"`
	BaseAssetID      string `json:"BaseAssetId"`
	QuotingAssetID   string `json:"QuotingAssetId"`
}

// ErrorResponse is the error envelope returned on 4xx responses.
type ErrorResponse struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}
