package market

import (
	"context"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/strategy"
)

// MockFeed replays a scripted bar series onto the bus at a fixed cadence.
// Used for dry runs and wiring tests where no venue connection exists.
type MockFeed struct {
	bus      *events.Bus
	bars     []strategy.Bar
	interval time.Duration
}

// NewMockFeed replays bars every interval; interval 0 means as fast as
// possible.
func NewMockFeed(bus *events.Bus, bars []strategy.Bar, interval time.Duration) *MockFeed {
	return &MockFeed{bus: bus, bars: bars, interval: interval}
}

// Run publishes the scripted bars, then returns nil.
func (f *MockFeed) Run(ctx context.Context) error {
	for _, b := range f.bars {
		if f.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.interval):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		f.bus.Publish(events.TopicPriceTick, b)
	}
	return nil
}
