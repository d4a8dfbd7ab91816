package exchange

import "context"

// Client abstracts a trading venue. Every call crosses the network and may
// fail with a retryable error; callers must not assume success. Implementations
// are thin I/O wrappers and carry no execution logic of their own.
type Client interface {
	GetSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	GetOrderStatus(ctx context.Context, orderID string) (StatusReport, error)

	GetBalance(ctx context.Context) (map[string]float64, error)
	GetPosition(ctx context.Context, symbol string) (*PositionInfo, error)
	GetPositions(ctx context.Context) ([]PositionInfo, error)
	GetSpotBalances(ctx context.Context) (map[string]float64, error)

	Deposit(ctx context.Context, asset string, amount float64) (bool, error)
	Withdraw(ctx context.Context, asset string, amount float64) (bool, error)
}
