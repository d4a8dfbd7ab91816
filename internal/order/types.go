package order

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type denotes the supported order types.
type Type string

const (
	TypeLimit      Type = "LIMIT"
	TypeMarket     Type = "MARKET"
	TypeStopLoss   Type = "STOP_LOSS"
	TypeTakeProfit Type = "TAKE_PROFIT"
)

// TradeType distinguishes spot from perpetual futures orders.
type TradeType string

const (
	TradeSpot      TradeType = "SPOT"
	TradePerpetual TradeType = "PERPETUAL"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCanceled        Status = "CANCELED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	case StatusNew, StatusPartiallyFilled:
		return false
	}
	return false
}

// Order represents a trading order and its fill state.
type Order struct {
	ID         string    `json:"order_id"`
	ExchangeID string    `json:"exchange_order_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Type       Type      `json:"order_type"`
	TradeType  TradeType `json:"trade_type"`
	Side       Side      `json:"side"`
	Qty        float64   `json:"quantity"`
	Price      float64   `json:"price,omitempty"`
	StopPrice  float64   `json:"stop_price,omitempty"`
	Leverage   int       `json:"leverage"`
	Margin     float64   `json:"margin,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	FilledQty  float64   `json:"filled_quantity"`
	AvgPrice   float64   `json:"avg_price"`
}

// Position tracks a perpetual position for one symbol. Positions are owned by
// the Manager and replaced wholesale on sync, never patched from elsewhere.
type Position struct {
	Symbol     string  `json:"symbol"`
	Qty        float64 `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
	Leverage   int     `json:"leverage"`
	Margin     float64 `json:"margin"`
}

// SpotBalance is the free quantity of one asset.
type SpotBalance struct {
	Asset string  `json:"asset"`
	Free  float64 `json:"free"`
}
