package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) GetPrice(ctx context.Context, assetPair string, side domain.Side) (domain.Quote, error) {
	args := m.Called(ctx, assetPair, side)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func (m *GatewayMock) GetBalance(ctx context.Context, apiKey string) ([]domain.Balance, error) {
	args := m.Called(ctx, apiKey)
	return args.Get(0).([]domain.Balance), args.Error(1)
}

func (m *GatewayMock) GetPendingOrders(ctx context.Context, apiKey string) ([]domain.PendingOrder, error) {
	args := m.Called(ctx, apiKey)
	return args.Get(0).([]domain.PendingOrder), args.Error(1)
}

func (m *GatewayMock) SendMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.Execution, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Execution), args.Error(1)
}
