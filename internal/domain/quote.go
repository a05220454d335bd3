package domain

import "time"

// Side selects one side of the order book.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Quote is the best price and size on one side of the book at a point in time.
type Quote struct {
	AssetPair string
	Side      Side
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// PriceObservation is one recorded bid/ask sample. It is never mutated after
// it has been written.
type PriceObservation struct {
	AssetPair  string    `json:"asset_pair"`
	Timestamp  time.Time `json:"timestamp"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	BuyVolume  float64   `json:"buy_volume,omitempty"`
	SellVolume float64   `json:"sell_volume,omitempty"`
}

// Midquote returns the mean of the buy and sell price.
func (o PriceObservation) Midquote() float64 {
	return (o.BuyPrice + o.SellPrice) / 2
}

// ObservationFromQuotes combines the two sides of the book into one
// observation. The buy quote's timestamp is used, falling back to the sell
// quote's when the exchange omitted it.
func ObservationFromQuotes(buy, sell Quote) PriceObservation {
	ts := buy.Timestamp
	if ts.IsZero() {
		ts = sell.Timestamp
	}
	return PriceObservation{
		AssetPair:  buy.AssetPair,
		Timestamp:  ts,
		BuyPrice:   buy.Price,
		SellPrice:  sell.Price,
		BuyVolume:  buy.Volume,
		SellVolume: sell.Volume,
	}
}

// WindowQuery selects a slice of price history. A zero After means no lower
// bound. Limit > 0 keeps only the newest Limit observations. Results are
// always ordered oldest first.
type WindowQuery struct {
	AssetPair string
	After     time.Time
	Limit     int
}
