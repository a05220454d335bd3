package domain

import "context"

// ExchangeGateway is the trader's view of the exchange. Implementations must
// return a *GatewayError for every failure.
type ExchangeGateway interface {
	GetPrice(ctx context.Context, assetPair string, side Side) (Quote, error)
	GetBalance(ctx context.Context, apiKey string) ([]Balance, error)
	GetPendingOrders(ctx context.Context, apiKey string) ([]PendingOrder, error)
	SendMarketOrder(ctx context.Context, req MarketOrderRequest) (Execution, error)
}

// QuoteSource is the read-only, unauthenticated subset of ExchangeGateway.
type QuoteSource interface {
	GetPrice(ctx context.Context, assetPair string, side Side) (Quote, error)
}
