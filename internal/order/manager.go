package order

import (
	"context"
	"log"
	"sync"
	"time"

	"execution-core/internal/events"
	"execution-core/pkg/exchange"
)

const (
	// maintenanceMarginRatio is the minimum margin/notional ratio below which
	// a perpetual position flags its resting orders for auto-cancellation.
	maintenanceMarginRatio = 0.05

	// marginBuffer keeps 10% headroom on top of the required margin.
	marginBuffer = 1.1

	// maxOrderAge is how long an order may rest unfilled before the
	// auto-cancel scan removes it.
	maxOrderAge = 30 * time.Second
)

// Gate decides whether an order may be created. Implementations must be pure:
// no side effects, no mutation of the order.
type Gate interface {
	CheckOrderRisk(o Order) bool
}

// Venue is the slice of the exchange client the manager needs for position
// sync and auto-cancellation.
type Venue interface {
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
	GetPositions(ctx context.Context) ([]exchange.PositionInfo, error)
	GetSpotBalances(ctx context.Context) (map[string]float64, error)
}

// Manager is the authoritative order and position state machine, shared
// between the live and simulated paths. A single mutex serializes every
// mutation; map entries are replaced as values, never mutated in place.
type Manager struct {
	mu           sync.RWMutex
	active       map[string]Order
	history      map[string]Order
	positions    map[string]Position
	spotBalances map[string]float64

	bus *events.Bus // optional
}

// NewManager creates a manager with all state maps initialized empty.
func NewManager(bus *events.Bus) *Manager {
	return &Manager{
		active:       make(map[string]Order),
		history:      make(map[string]Order),
		positions:    make(map[string]Position),
		spotBalances: make(map[string]float64),
		bus:          bus,
	}
}

// RequiredMargin returns the margin a perpetual order needs. Spot orders
// require none.
func RequiredMargin(o Order) float64 {
	if o.TradeType != TradePerpetual {
		return 0
	}
	lev := o.Leverage
	if lev < 1 {
		lev = 1
	}
	return o.Qty * o.Price / float64(lev)
}

// CreateOrder runs the risk gate and, for perpetual orders, the margin
// adequacy check, then records the order. Rejections are recorded in history
// with status REJECTED; accepted orders enter both the active set and history
// with status NEW. The whole decision is atomic with respect to every other
// manager operation.
func (m *Manager) CreateOrder(o Order, gate Gate) Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	if gate != nil && !gate.CheckOrderRisk(o) {
		o.Status = StatusRejected
		m.history[o.ID] = o
		m.publish(events.TopicOrderRejected, o)
		log.Printf("order %s rejected by risk gate (%s %s %s qty=%.6f)", o.ID, o.Side, o.Type, o.Symbol, o.Qty)
		return o
	}

	if o.TradeType == TradePerpetual {
		required := RequiredMargin(o)
		pos := m.positions[o.Symbol] // zero value when no position
		if pos.Margin < required*marginBuffer {
			o.Status = StatusRejected
			m.history[o.ID] = o
			m.publish(events.TopicOrderRejected, o)
			log.Printf("order %s rejected: insufficient margin %.4f < %.4f (incl. buffer)",
				o.ID, pos.Margin, required*marginBuffer)
			return o
		}
	}

	o.Status = StatusNew
	m.active[o.ID] = o
	m.history[o.ID] = o
	m.publish(events.TopicOrderCreated, o)
	return o
}

// UpdateStatus applies a status/fill update to an active order. Unknown ids
// are a no-op returning false. A terminal status evicts the order from the
// active set; its history entry keeps the values frozen at that update.
func (m *Manager) UpdateStatus(id string, status Status, filledQty, avgPrice float64) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.active[id]
	if !ok {
		return Order{}, false
	}

	o.Status = status
	o.FilledQty = filledQty
	o.AvgPrice = avgPrice
	o.UpdatedAt = time.Now()
	m.history[id] = o

	if status.IsTerminal() {
		delete(m.active, id)
	} else {
		m.active[id] = o
	}

	m.publish(events.TopicOrderUpdate, o)
	if status == StatusFilled {
		m.publish(events.TopicOrderFilled, o)
	}
	return o, true
}

// SetExchangeID records the venue-assigned id on an active order so the
// mapping survives in history and the audit trail. Unknown or already
// terminal ids are a no-op returning false.
func (m *Manager) SetExchangeID(id, exchangeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.active[id]
	if !ok {
		return false
	}
	o.ExchangeID = exchangeID
	o.UpdatedAt = time.Now()
	m.active[id] = o
	m.history[id] = o
	return true
}

// Cancel removes an order from the active set and marks it CANCELED.
// Unknown or already-terminal ids return false; the call never fails.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLocked(id)
}

func (m *Manager) cancelLocked(id string) bool {
	o, ok := m.active[id]
	if !ok {
		return false
	}
	delete(m.active, id)
	o.Status = StatusCanceled
	o.UpdatedAt = time.Now()
	m.history[id] = o
	m.publish(events.TopicOrderCanceled, o)
	return true
}

// Get looks an order up in the active set first, then in history.
func (m *Manager) Get(id string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.active[id]; ok {
		return o, true
	}
	o, ok := m.history[id]
	return o, ok
}

// ActiveOrders returns a snapshot of the active set.
func (m *Manager) ActiveOrders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.active))
	for _, o := range m.active {
		out = append(out, o)
	}
	return out
}

// History returns a snapshot of the append-only order history.
func (m *Manager) History() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.history))
	for _, o := range m.history {
		out = append(out, o)
	}
	return out
}

// Position returns the tracked perpetual position for a symbol.
func (m *Manager) Position(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	return p, ok
}

// Positions returns a snapshot of all tracked perpetual positions.
func (m *Manager) Positions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// SpotBalance returns the tracked free balance for an asset.
func (m *Manager) SpotBalance(asset string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spotBalances[asset]
}

// SyncPositions pulls the venue's authoritative perpetual positions and spot
// balances and replaces the local caches entirely. The exchange is the source
// of truth; this is a one-way overwrite, not a merge.
func (m *Manager) SyncPositions(ctx context.Context, venue Venue) error {
	positions, err := venue.GetPositions(ctx)
	if err != nil {
		return err
	}
	balances, err := venue.GetSpotBalances(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions = make(map[string]Position, len(positions))
	for _, p := range positions {
		m.positions[p.Symbol] = Position{
			Symbol:     p.Symbol,
			Qty:        p.Qty,
			EntryPrice: p.EntryPrice,
			Leverage:   p.Leverage,
			Margin:     p.Margin,
		}
	}

	m.spotBalances = make(map[string]float64, len(balances))
	for asset, free := range balances {
		m.spotBalances[asset] = free
	}
	return nil
}

// AutoCancel scans the active set and cancels every order matching the cancel
// predicate: unfilled past the age limit, resting on a perpetual position
// below maintenance margin, or a stop order whose trigger condition is met at
// the current mark price. The venue cancel happens first; the local cancel
// only follows a successful venue cancel so a failed call is retried on the
// next scan. Returns the number of orders canceled.
func (m *Manager) AutoCancel(ctx context.Context, venue Venue) int {
	m.mu.RLock()
	candidates := make([]Order, 0, len(m.active))
	for _, o := range m.active {
		candidates = append(candidates, o)
	}
	m.mu.RUnlock()

	marks := make(map[string]float64)
	markFor := func(symbol string) (float64, bool) {
		if p, ok := marks[symbol]; ok {
			return p, p > 0
		}
		p, err := venue.GetTickerPrice(ctx, symbol)
		if err != nil {
			log.Printf("auto-cancel: mark price for %s unavailable: %v", symbol, err)
			p = 0
		}
		marks[symbol] = p
		return p, p > 0
	}

	canceled := 0
	for _, o := range candidates {
		mark, haveMark := markFor(o.Symbol)
		if !m.shouldAutoCancel(o, mark, haveMark) {
			continue
		}
		if _, err := venue.CancelOrder(ctx, o.Symbol, o.ID); err != nil {
			log.Printf("auto-cancel: venue cancel %s failed: %v", o.ID, err)
			continue
		}
		m.mu.Lock()
		ok := m.cancelLocked(o.ID)
		m.mu.Unlock()
		if ok {
			canceled++
			log.Printf("auto-cancel: order %s canceled (%s %s %s)", o.ID, o.Side, o.Type, o.Symbol)
		}
	}
	return canceled
}

func (m *Manager) shouldAutoCancel(o Order, mark float64, haveMark bool) bool {
	if time.Since(o.CreatedAt) > maxOrderAge {
		return true
	}

	if o.TradeType == TradePerpetual {
		m.mu.RLock()
		pos, ok := m.positions[o.Symbol]
		m.mu.RUnlock()
		if ok && haveMark && pos.Qty != 0 {
			notional := abs(pos.Qty) * mark
			if notional > 0 && pos.Margin/notional < maintenanceMarginRatio {
				return true
			}
		}
	}

	if (o.Type == TypeStopLoss || o.Type == TypeTakeProfit) && o.StopPrice > 0 && haveMark {
		switch o.Side {
		case SideBuy:
			if mark <= o.StopPrice {
				return true
			}
		case SideSell:
			if mark >= o.StopPrice {
				return true
			}
		}
	}

	return false
}

func (m *Manager) publish(t events.Topic, o Order) {
	if m.bus != nil {
		m.bus.Publish(t, o)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
