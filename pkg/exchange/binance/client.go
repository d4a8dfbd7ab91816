// Package binance implements the exchange.Client interface against the
// Binance spot and USD-M futures REST APIs.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"execution-core/pkg/exchange"

	"golang.org/x/time/rate"
)

// Config holds venue credentials and connectivity options.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// Validate rejects configs that cannot authenticate.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("binance: api key is required")
	}
	if c.APISecret == "" {
		return errors.New("binance: api secret is required")
	}
	return nil
}

// Client talks to Binance over REST. Requests share one rate limiter sized
// under the venue's published request weight limit.
type Client struct {
	cfg        Config
	baseURL    string
	futuresURL string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.Mutex
	symbols map[string]string // order id -> symbol, required for status queries
}

// NewClient validates the config and builds a client; Testnet switches both
// base URLs.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := "https://api.binance.com"
	futures := "https://fapi.binance.com"
	if cfg.Testnet {
		base = "https://testnet.binance.vision"
		futures = "https://testnet.binancefuture.com"
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		futuresURL: futures,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(18), 36),
		symbols:    make(map[string]string),
	}, nil
}

var _ exchange.Client = (*Client)(nil)

// GetSymbolInfo reads trading constraints from the exchangeInfo endpoint.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (exchange.SymbolInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := c.public(ctx, "/api/v3/exchangeInfo", params, &resp); err != nil {
		return exchange.SymbolInfo{}, err
	}
	if len(resp.Symbols) == 0 {
		return exchange.SymbolInfo{}, fmt.Errorf("binance: unknown symbol %s", symbol)
	}

	info := exchange.SymbolInfo{Symbol: resp.Symbols[0].Symbol, ContractSize: 1}
	for _, f := range resp.Symbols[0].Filters {
		if f.FilterType == "LOT_SIZE" {
			info.MinQuantity = toFloat(f.MinQty)
			info.StepSize = toFloat(f.StepSize)
		}
	}
	return info, nil
}

// GetTickerPrice returns the latest trade price for a symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Price string `json:"price"`
	}
	if err := c.public(ctx, "/api/v3/ticker/price", params, &resp); err != nil {
		return 0, err
	}
	price := toFloat(resp.Price)
	if price <= 0 {
		return 0, fmt.Errorf("binance: no price for %s", symbol)
	}
	return price, nil
}

// PlaceOrder submits an order and returns its venue-assigned id.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (string, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("quantity", formatFloat(req.Qty))
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	switch req.Type {
	case exchange.OrderTypeLimit:
		params.Set("type", "LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("price", formatFloat(req.Price))
	case exchange.OrderTypeStopLoss:
		params.Set("type", "STOP_LOSS_LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("price", formatFloat(req.Price))
		params.Set("stopPrice", formatFloat(req.StopPrice))
	case exchange.OrderTypeTakeProfit:
		params.Set("type", "TAKE_PROFIT_LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("price", formatFloat(req.Price))
		params.Set("stopPrice", formatFloat(req.StopPrice))
	default:
		params.Set("type", "MARKET")
	}

	var resp struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
		Status        string `json:"status"`
	}
	if err := c.signed(ctx, http.MethodPost, c.baseURL, "/api/v3/order", params, &resp); err != nil {
		return "", err
	}

	id := strconv.FormatInt(resp.OrderID, 10)
	c.mu.Lock()
	c.symbols[id] = req.Symbol
	c.mu.Unlock()
	return id, nil
}

// CancelOrder cancels a resting order. A venue response saying the order is
// already gone counts as success for idempotency.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var resp struct {
		Status string `json:"status"`
	}
	err := c.signed(ctx, http.MethodDelete, c.baseURL, "/api/v3/order", params, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeUnknownOrder {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// GetOpenOrders lists resting orders, optionally filtered by symbol.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	var resp []struct {
		OrderID int64  `json:"orderId"`
		Symbol  string `json:"symbol"`
		Side    string `json:"side"`
		Type    string `json:"type"`
		OrigQty string `json:"origQty"`
		Price   string `json:"price"`
	}
	if err := c.signed(ctx, http.MethodGet, c.baseURL, "/api/v3/openOrders", params, &resp); err != nil {
		return nil, err
	}

	orders := make([]exchange.OpenOrder, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, exchange.OpenOrder{
			OrderID: strconv.FormatInt(o.OrderID, 10),
			Symbol:  o.Symbol,
			Side:    exchange.Side(o.Side),
			Type:    exchange.OrderType(o.Type),
			Qty:     toFloat(o.OrigQty),
			Price:   toFloat(o.Price),
		})
	}
	return orders, nil
}

// GetOrderStatus reports the venue's view of an order placed through this
// client. The symbol is recalled from the placement call; Binance requires it
// on status queries.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (exchange.StatusReport, error) {
	c.mu.Lock()
	symbol, ok := c.symbols[orderID]
	c.mu.Unlock()
	if !ok {
		return exchange.StatusReport{}, fmt.Errorf("binance: order %s not placed through this client", orderID)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		CumQuote    string `json:"cummulativeQuoteQty"`
	}
	if err := c.signed(ctx, http.MethodGet, c.baseURL, "/api/v3/order", params, &resp); err != nil {
		return exchange.StatusReport{}, err
	}

	filled := toFloat(resp.ExecutedQty)
	avg := 0.0
	if filled > 0 {
		avg = toFloat(resp.CumQuote) / filled
	}
	return exchange.StatusReport{
		OrderID:   orderID,
		State:     resp.Status,
		FilledQty: filled,
		AvgPrice:  avg,
	}, nil
}

// GetBalance returns free balances per asset, omitting zero entries.
func (c *Client) GetBalance(ctx context.Context) (map[string]float64, error) {
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := c.signed(ctx, http.MethodGet, c.baseURL, "/api/v3/account", nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(resp.Balances))
	for _, b := range resp.Balances {
		if free := toFloat(b.Free); free > 0 {
			out[b.Asset] = free
		}
	}
	return out, nil
}

// GetSpotBalances is GetBalance under the interface name the order manager
// syncs against.
func (c *Client) GetSpotBalances(ctx context.Context) (map[string]float64, error) {
	return c.GetBalance(ctx)
}

// GetPosition returns the open futures position for one symbol, or nil when
// flat.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*exchange.PositionInfo, error) {
	positions, err := c.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i], nil
		}
	}
	return nil, nil
}

// GetPositions lists all nonzero futures positions.
func (c *Client) GetPositions(ctx context.Context) ([]exchange.PositionInfo, error) {
	var resp []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
		Leverage    string `json:"leverage"`
		Margin      string `json:"isolatedMargin"`
	}
	if err := c.signed(ctx, http.MethodGet, c.futuresURL, "/fapi/v2/positionRisk", nil, &resp); err != nil {
		return nil, err
	}

	var positions []exchange.PositionInfo
	for _, p := range resp {
		qty := toFloat(p.PositionAmt)
		if qty == 0 {
			continue
		}
		positions = append(positions, exchange.PositionInfo{
			Symbol:     p.Symbol,
			Qty:        qty,
			EntryPrice: toFloat(p.EntryPrice),
			Leverage:   int(toFloat(p.Leverage)),
			Margin:     toFloat(p.Margin),
		})
	}
	return positions, nil
}

// Deposit is not exposed by the Binance API; crediting happens on-chain or
// via fiat rails outside this client.
func (c *Client) Deposit(ctx context.Context, asset string, amount float64) (bool, error) {
	return false, errors.New("binance: deposits cannot be initiated over the API")
}

// Withdraw requests an asset withdrawal.
func (c *Client) Withdraw(ctx context.Context, asset string, amount float64) (bool, error) {
	params := url.Values{}
	params.Set("coin", asset)
	params.Set("amount", formatFloat(amount))

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.signed(ctx, http.MethodPost, c.baseURL, "/sapi/v1/capital/withdraw/apply", params, &resp); err != nil {
		return false, err
	}
	return resp.ID != "", nil
}

func toFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decodeInto(body []byte, out any) error {
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
