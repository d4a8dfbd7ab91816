package backtest

import (
	"time"

	"execution-core/internal/order"
)

// Trade is one executed simulated order in the append-only trade ledger.
type Trade struct {
	Time       time.Time  `json:"timestamp"`
	Symbol     string     `json:"symbol"`
	Side       order.Side `json:"side"`
	Price      float64    `json:"price"`
	Qty        float64    `json:"quantity"`
	CashChange float64    `json:"cash_change"`
}

// Portfolio holds the simulated account. It is created once per run and
// mutated only by the order handler. Shorting and negative cash are permitted
// and unchecked; the engine models execution, not solvency.
type Portfolio struct {
	Cash      float64
	Positions map[string]float64
	Trades    []Trade
}

// NewPortfolio creates a portfolio with the given starting cash and no
// positions.
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		Cash:      initialCash,
		Positions: make(map[string]float64),
	}
}

// apply executes a fill against cash and positions and records the trade.
func (p *Portfolio) apply(t time.Time, symbol string, side order.Side, price, qty float64) {
	cost := price * qty
	change := cost
	if side == order.SideBuy {
		change = -cost
		p.Positions[symbol] += qty
	} else {
		p.Positions[symbol] -= qty
	}
	p.Cash += change

	p.Trades = append(p.Trades, Trade{
		Time:       t,
		Symbol:     symbol,
		Side:       side,
		Price:      price,
		Qty:        qty,
		CashChange: change,
	})
}
