// Package market supplies price data to the rest of the core, either as a
// finite bar series for simulation or as a live stream published on the
// event bus.
package market

import (
	"context"

	"execution-core/internal/strategy"
)

// Feed is a live source of price bars. Run blocks until the context is
// cancelled or the source fails.
type Feed interface {
	Run(ctx context.Context) error
}

// BarSource is a finite, ordered series of historical bars.
type BarSource interface {
	Load() ([]strategy.Bar, error)
}
