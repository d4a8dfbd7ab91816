package backtest

import (
	"time"

	"execution-core/internal/order"
)

// Kind identifies the event variants flowing through the simulation. The
// numeric value doubles as the dispatch priority for events sharing a
// timestamp: market data first, then signals, then orders, then logs.
type Kind int

const (
	KindMarketData Kind = iota
	KindSignal
	KindOrder
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindMarketData:
		return "MARKET"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	case KindLog:
		return "LOG"
	}
	return "UNKNOWN"
}

// Event is a timed simulation event. Events are immutable once queued; the
// only exception is the engine attaching a resolved trade price to an order
// event before its handler runs.
type Event struct {
	Kind Kind
	Time time.Time

	// market data
	Symbol string
	Price  float64

	// signal
	Direction int // -1, 0, 1

	// order
	Side       order.Side
	Qty        float64
	TradePrice float64 // resolved by the engine for market orders

	// log
	Message string
}
