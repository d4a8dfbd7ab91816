package strategy

import (
	"fmt"
	"time"
)

// Signal directions emitted by strategies.
const (
	SignalSell = -1
	SignalHold = 0
	SignalBuy  = 1
)

// Bar is a single market data record handed to strategies.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Strategy generates trade directions from a bar stream. Implementations are
// stateful and not safe for concurrent use; each instance is driven from a
// single feed.
type Strategy interface {
	// Name returns the human-readable strategy name.
	Name() string
	// OnInit resets internal state before a run.
	OnInit() error
	// Signal consumes one bar and returns -1 (sell), 0 (hold) or 1 (buy).
	Signal(bar Bar) (int, error)
}

// ValidationError reports malformed strategy configuration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid strategy config: %s: %s", e.Field, e.Reason)
}
