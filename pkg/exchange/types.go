package exchange

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes the order types the core places or tracks.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
)

// SymbolInfo describes trading constraints for a symbol.
type SymbolInfo struct {
	Symbol       string
	MinQuantity  float64
	StepSize     float64
	ContractSize float64
}

// OrderRequest captures an order intent to be sent to a venue.
type OrderRequest struct {
	Symbol    string
	Side      Side
	Type      OrderType
	Qty       float64
	Price     float64 // required for LIMIT
	StopPrice float64 // required for STOP_LOSS / TAKE_PROFIT
	ClientID  string  // optional client order id
}

// StatusReport is the venue's view of an order.
type StatusReport struct {
	OrderID   string
	State     string // NEW, PARTIALLY_FILLED, FILLED, CANCELED, REJECTED, EXPIRED
	FilledQty float64
	AvgPrice  float64
}

// OpenOrder is a resting order as reported by the venue.
type OpenOrder struct {
	OrderID string
	Symbol  string
	Side    Side
	Type    OrderType
	Qty     float64
	Price   float64
}

// PositionInfo is an open perpetual position as reported by the venue.
type PositionInfo struct {
	Symbol     string
	Qty        float64
	EntryPrice float64
	Leverage   int
	Margin     float64
}
