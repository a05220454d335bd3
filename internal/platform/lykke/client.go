// Package lykke implements the exchange gateway against the Lykke HFT REST
// API.
package lykke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Compile-time interface check.
var _ domain.ExchangeGateway = (*Client)(nil)

// Config holds client settings.
type Config struct {
	// BaseURL is the API root, e.g. "https://hft-api.lykke.com".
	BaseURL string
	Timeout time.Duration
	// VolumeAccuracy is the number of decimal places order volumes are
	// rounded to.
	VolumeAccuracy int32
}

// Client is the REST client for the Lykke HFT API.
type Client struct {
	baseURL        string
	volumeAccuracy int32
	httpClient     *http.Client
	now            func() time.Time
	logger         *slog.Logger
}

// NewClient creates a new Lykke REST client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		volumeAccuracy: cfg.VolumeAccuracy,
		httpClient:     &http.Client{Timeout: timeout},
		now:            time.Now,
		logger:         logger.With(slog.String("component", "lykke")),
	}
}

// IsAlive checks that the API is reachable.
func (c *Client) IsAlive(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/api/IsAlive", "", nil); err != nil {
		return &domain.GatewayError{Op: "is alive", Err: err}
	}
	return nil
}

// AssetPairs lists the tradable pairs.
func (c *Client) AssetPairs(ctx context.Context) ([]AssetPair, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/AssetPairs", "", nil)
	if err != nil {
		return nil, &domain.GatewayError{Op: "asset pairs", Err: err}
	}
	var pairs []AssetPair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, &domain.GatewayError{Op: "asset pairs", Err: fmt.Errorf("decode: %w", err)}
	}
	return pairs, nil
}

// GetPrice returns the best price on one side of the book: the highest bid
// for SideBuy and the lowest ask for SideSell.
func (c *Client) GetPrice(ctx context.Context, assetPair string, side domain.Side) (domain.Quote, error) {
	op := "get " + strings.ToLower(string(side)) + " price"

	path := "/api/OrderBooks/" + url.PathEscape(assetPair)
	body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return domain.Quote{}, &domain.GatewayError{Op: op, Err: err}
	}

	var books []OrderBook
	if err := json.Unmarshal(body, &books); err != nil {
		return domain.Quote{}, &domain.GatewayError{Op: op, Err: fmt.Errorf("decode order book: %w", err)}
	}

	wantBuy := side == domain.SideBuy
	for _, book := range books {
		if book.IsBuy != wantBuy {
			continue
		}
		level, ok := bestLevel(book.Prices, wantBuy)
		if !ok {
			break
		}
		return domain.Quote{
			AssetPair: assetPair,
			Side:      side,
			Price:     level.Price.InexactFloat64(),
			Volume:    level.Volume.Abs().InexactFloat64(),
			Timestamp: c.parseTime(book.Timestamp),
		}, nil
	}
	return domain.Quote{}, &domain.GatewayError{
		Op:  op,
		Err: fmt.Errorf("%s %s: %w", assetPair, side, domain.ErrEmptyOrderBook),
	}
}

// bestLevel picks the highest price for bids and the lowest for asks.
func bestLevel(levels []PriceLevel, highest bool) (PriceLevel, bool) {
	if len(levels) == 0 {
		return PriceLevel{}, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if highest && l.Price.GreaterThan(best.Price) || !highest && l.Price.LessThan(best.Price) {
			best = l
		}
	}
	return best, true
}

// GetBalance returns the wallets of the account behind apiKey.
func (c *Client) GetBalance(ctx context.Context, apiKey string) ([]domain.Balance, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/Wallets", apiKey, nil)
	if err != nil {
		return nil, &domain.GatewayError{Op: "get balance", Err: err}
	}

	var wallets []Wallet
	if err := json.Unmarshal(body, &wallets); err != nil {
		return nil, &domain.GatewayError{Op: "get balance", Err: fmt.Errorf("decode wallets: %w", err)}
	}

	out := make([]domain.Balance, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, domain.Balance{
			Asset:    w.AssetID,
			Balance:  w.Balance.InexactFloat64(),
			Reserved: w.Reserved.InexactFloat64(),
		})
	}
	return out, nil
}

// GetPendingOrders returns orders still resting in the book.
func (c *Client) GetPendingOrders(ctx context.Context, apiKey string) ([]domain.PendingOrder, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/Orders?status=InOrderBook", apiKey, nil)
	if err != nil {
		return nil, &domain.GatewayError{Op: "get pending orders", Err: err}
	}

	var orders []LimitOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, &domain.GatewayError{Op: "get pending orders", Err: fmt.Errorf("decode orders: %w", err)}
	}

	out := make([]domain.PendingOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, domain.PendingOrder{
			ID:              o.ID,
			AssetPair:       o.AssetPairID,
			Status:          o.Status,
			Volume:          o.Volume.InexactFloat64(),
			RemainingVolume: o.RemainingVolume.InexactFloat64(),
			Price:           o.Price.InexactFloat64(),
			CreatedAt:       c.parseTime(o.CreatedAt),
		})
	}
	return out, nil
}

// SendMarketOrder places a market order and returns the execution price.
func (c *Client) SendMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.Execution, error) {
	volume := decimal.NewFromFloat(req.Volume).Round(c.volumeAccuracy)
	if !volume.IsPositive() {
		return domain.Execution{}, &domain.GatewayError{
			Op:  "send market order",
			Err: fmt.Errorf("volume %v rounds to %s: %w", req.Volume, volume, domain.ErrInvalidOrder),
		}
	}

	var action string
	switch req.Action {
	case domain.ActionBuy:
		action = "Buy"
	case domain.ActionSell:
		action = "Sell"
	default:
		return domain.Execution{}, &domain.GatewayError{
			Op:  "send market order",
			Err: fmt.Errorf("action %q: %w", req.Action, domain.ErrInvalidOrder),
		}
	}

	payload := MarketOrderRequest{
		AssetPairID: req.AssetPair,
		Asset:       req.Asset,
		OrderAction: action,
		Volume:      volume.InexactFloat64(),
	}
	body, err := c.do(ctx, http.MethodPost, "/api/Orders/v2/market", req.APIKey, payload)
	if err != nil {
		return domain.Execution{}, &domain.GatewayError{Op: "send market order", Err: err}
	}

	var resp MarketOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Execution{}, &domain.GatewayError{Op: "send market order", Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.InfoContext(ctx, "market order filled",
		slog.String("asset_pair", req.AssetPair),
		slog.String("action", action),
		slog.String("volume", volume.String()),
		slog.String("price", resp.Price.String()),
	)
	return domain.Execution{Timestamp: c.now(), Price: resp.Price.InexactFloat64()}, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do builds, sends and reads a request. apiKey is sent in the api-key header
// when non-empty.
func (c *Client) do(ctx context.Context, method, path, apiKey string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("api-key", apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s (%s)", domain.ErrInvalidOrder, msg, apiErr.Code)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// parseTime reads the API's ISO-8601 timestamps, which may lack a zone.
func (c *Client) parseTime(s string) time.Time {
	if s == "" {
		return c.now()
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return c.now()
}
