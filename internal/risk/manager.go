package risk

import (
	"log"
	"sync"

	"execution-core/internal/order"
)

// Config holds the limits the gate enforces. Zero values disable a limit.
type Config struct {
	MaxOrderNotional float64 // qty * price ceiling per order
	MinOrderNotional float64 // qty * price floor per order
	MaxOrderQty      float64 // raw quantity ceiling per order
	MaxLeverage      int     // leverage ceiling for perpetual orders
}

// DefaultConfig returns conservative limits for live trading.
func DefaultConfig() Config {
	return Config{
		MaxOrderNotional: 100000,
		MinOrderNotional: 10,
		MaxOrderQty:      1000,
		MaxLeverage:      20,
	}
}

// Manager is a pure boolean risk gate over per-order limits. It holds no
// references to the order book and never mutates the order it inspects.
type Manager struct {
	mu     sync.RWMutex
	config Config
}

// NewInMemory creates a gate with the given limits.
func NewInMemory(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// UpdateConfig swaps the active limits.
func (m *Manager) UpdateConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
}

// GetConfig returns a copy of the active limits.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// CheckOrderRisk reports whether the order passes every configured limit.
func (m *Manager) CheckOrderRisk(o order.Order) bool {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if o.Qty <= 0 {
		log.Printf("risk: order %s rejected: non-positive quantity %.6f", o.ID, o.Qty)
		return false
	}

	if cfg.MaxOrderQty > 0 && o.Qty > cfg.MaxOrderQty {
		log.Printf("risk: order %s rejected: qty %.6f > limit %.6f", o.ID, o.Qty, cfg.MaxOrderQty)
		return false
	}

	// Notional limits only apply when a price is known; market orders without
	// a reference price pass through to the margin check downstream.
	if o.Price > 0 {
		notional := o.Qty * o.Price
		if cfg.MinOrderNotional > 0 && notional < cfg.MinOrderNotional {
			log.Printf("risk: order %s rejected: notional %.2f < floor %.2f", o.ID, notional, cfg.MinOrderNotional)
			return false
		}
		if cfg.MaxOrderNotional > 0 && notional > cfg.MaxOrderNotional {
			log.Printf("risk: order %s rejected: notional %.2f > ceiling %.2f", o.ID, notional, cfg.MaxOrderNotional)
			return false
		}
	}

	if o.TradeType == order.TradePerpetual && cfg.MaxLeverage > 0 && o.Leverage > cfg.MaxLeverage {
		log.Printf("risk: order %s rejected: leverage %d > limit %d", o.ID, o.Leverage, cfg.MaxLeverage)
		return false
	}

	if (o.Type == order.TypeStopLoss || o.Type == order.TypeTakeProfit) && o.StopPrice <= 0 {
		log.Printf("risk: order %s rejected: stop order without stop price", o.ID)
		return false
	}

	return true
}
