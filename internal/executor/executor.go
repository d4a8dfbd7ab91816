// Package executor bridges live strategy signals to exchange order
// submission and asynchronous status monitoring.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/order"
	"execution-core/pkg/exchange"

	"github.com/google/uuid"
)

// ErrRiskRejected is returned when the risk gate turns a signal away before
// any order exists.
var ErrRiskRejected = errors.New("signal rejected by risk gate")

// ErrNoReferencePrice is returned when a signal needs a reference price the
// venue cannot supply right now. The signal is dropped; acting on a zero
// price would let the margin and notional checks pass vacuously.
var ErrNoReferencePrice = errors.New("reference price unavailable")

// TradeSignal is an ephemeral instruction from a strategy, consumed once.
type TradeSignal struct {
	Symbol     string
	Action     order.Side
	Qty        float64
	StrategyID string
	Timestamp  time.Time
}

// Config tunes the executor.
type Config struct {
	PollInterval   time.Duration // status poll cadence, defaults to 2s
	CallTimeout    time.Duration // per exchange call, defaults to 10s
	UseLimitOrders bool          // place LIMIT at the current ticker instead of MARKET
	TradeType      order.TradeType
	Leverage       int // applied to perpetual orders
}

// Executor turns trade signals into orders and tracks them to a terminal
// status. Submission and monitoring run as independent tasks; Stop cancels
// them cooperatively at their next suspension point.
type Executor struct {
	exchange exchange.Client
	orders   *order.Manager
	gate     order.Gate
	bus      *events.Bus
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
	wg    sync.WaitGroup
}

// New creates an executor. bus may be nil.
func New(ex exchange.Client, orders *order.Manager, gate order.Gate, bus *events.Bus, cfg Config) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.TradeType == "" {
		cfg.TradeType = order.TradeSpot
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		exchange: ex,
		orders:   orders,
		gate:     gate,
		bus:      bus,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[string]context.CancelFunc),
	}
}

// ProcessSignal risk-checks the signal, creates the order and spawns the
// asynchronous submission task. A gate rejection or a missing reference
// price aborts before any order exists; a margin rejection comes back as an
// order with status REJECTED and no submission happens.
func (e *Executor) ProcessSignal(sig TradeSignal) (*order.Order, error) {
	candidate, err := e.buildOrder(sig)
	if err != nil {
		log.Printf("executor: signal for %s dropped: %v", sig.Symbol, err)
		return nil, err
	}

	if e.gate != nil && !e.gate.CheckOrderRisk(candidate) {
		log.Printf("executor: signal for %s (%s qty=%.6f) rejected by risk gate", sig.Symbol, sig.Action, sig.Qty)
		return nil, ErrRiskRejected
	}

	created := e.orders.CreateOrder(candidate, e.gate)
	if created.Status == order.StatusRejected {
		log.Printf("executor: order %s rejected at creation", created.ID)
		return &created, nil
	}

	e.spawn(created.ID, func(ctx context.Context) {
		e.submit(ctx, created)
	})
	return &created, nil
}

// buildOrder constructs the order intent for a signal. Limit and perpetual
// orders require a reference price; an unreachable ticker fails the build so
// the margin and notional checks never run against a zero price. Plain spot
// market orders carry no price and resolve at the venue.
func (e *Executor) buildOrder(sig TradeSignal) (order.Order, error) {
	o := order.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		TradeType: e.cfg.TradeType,
		Side:      sig.Action,
		Qty:       sig.Qty,
		Type:      order.TypeMarket,
		Leverage:  1,
	}
	if e.cfg.UseLimitOrders {
		o.Type = order.TypeLimit
	}
	if e.cfg.TradeType == order.TradePerpetual && e.cfg.Leverage > 1 {
		o.Leverage = e.cfg.Leverage
	}

	if o.Type == order.TypeLimit || o.TradeType == order.TradePerpetual {
		ctx, cancel := context.WithTimeout(e.ctx, e.cfg.CallTimeout)
		defer cancel()
		price, err := e.exchange.GetTickerPrice(ctx, sig.Symbol)
		if err != nil {
			return order.Order{}, fmt.Errorf("%w for %s: %v", ErrNoReferencePrice, sig.Symbol, err)
		}
		if price <= 0 {
			return order.Order{}, fmt.Errorf("%w for %s: venue returned %.4f", ErrNoReferencePrice, sig.Symbol, price)
		}
		o.Price = price
	}
	return o, nil
}

// submit places the order at the venue. Success hands off to the monitor
// task; failure marks the order REJECTED without crashing the executor.
func (e *Executor) submit(ctx context.Context, o order.Order) {
	e.publish(events.TopicOrderSubmitted, o)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	exchangeID, err := e.exchange.PlaceOrder(callCtx, exchange.OrderRequest{
		Symbol:    o.Symbol,
		Side:      exchange.Side(o.Side),
		Type:      exchange.OrderType(o.Type),
		Qty:       o.Qty,
		Price:     o.Price,
		StopPrice: o.StopPrice,
		ClientID:  o.ID,
	})
	cancel()
	if err != nil {
		log.Printf("executor: submit %s failed: %v", o.ID, err)
		if updated, ok := e.orders.UpdateStatus(o.ID, order.StatusRejected, 0, 0); ok {
			e.publish(events.TopicOrderRejected, updated)
		}
		e.deregister(o.ID)
		return
	}

	e.orders.SetExchangeID(o.ID, exchangeID)
	log.Printf("executor: order %s placed (venue id %s)", o.ID, exchangeID)
	e.monitor(ctx, o.ID, exchangeID)
}

// monitor polls the venue until the order reaches a terminal status. A failed
// poll is retryable and simply waits for the next tick; cancellation is
// checked every iteration.
func (e *Executor) monitor(ctx context.Context, orderID, exchangeID string) {
	defer e.deregister(orderID)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		rep, err := e.exchange.GetOrderStatus(callCtx, exchangeID)
		cancel()
		if err != nil {
			log.Printf("executor: status poll for %s failed (will retry): %v", orderID, err)
			continue
		}

		status, ok := parseStatus(rep.State)
		if !ok {
			log.Printf("executor: order %s reported unknown state %q, ignoring", orderID, rep.State)
			continue
		}

		updated, ok := e.orders.UpdateStatus(orderID, status, rep.FilledQty, rep.AvgPrice)
		if !ok {
			// Canceled out from under us (e.g. by the auto-cancel scan).
			return
		}
		if status.IsTerminal() {
			log.Printf("executor: order %s terminal: %s filled=%.6f avg=%.4f",
				orderID, status, updated.FilledQty, updated.AvgPrice)
			return
		}
	}
}

// Stop cancels every outstanding submission and monitor task and waits for
// them to exit. Tasks stop at their next suspension point; in-flight network
// calls are not interrupted beyond their own timeout.
func (e *Executor) Stop() {
	e.cancel()
	e.mu.Lock()
	for _, cancel := range e.tasks {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
	log.Println("executor: stopped, no orphaned tasks")
}

// ActiveTasks reports how many submission/monitor tasks are live.
func (e *Executor) ActiveTasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

func (e *Executor) spawn(orderID string, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(e.ctx)
	e.mu.Lock()
	e.tasks[orderID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(ctx)
	}()
}

func (e *Executor) deregister(orderID string) {
	e.mu.Lock()
	if cancel, ok := e.tasks[orderID]; ok {
		cancel()
		delete(e.tasks, orderID)
	}
	e.mu.Unlock()
}

func (e *Executor) publish(t events.Topic, o order.Order) {
	if e.bus != nil {
		e.bus.Publish(t, o)
	}
}

// parseStatus maps a venue-reported state onto the order status enum.
func parseStatus(state string) (order.Status, bool) {
	switch order.Status(state) {
	case order.StatusNew:
		return order.StatusNew, true
	case order.StatusPartiallyFilled:
		return order.StatusPartiallyFilled, true
	case order.StatusFilled:
		return order.StatusFilled, true
	case order.StatusCanceled:
		return order.StatusCanceled, true
	case order.StatusRejected:
		return order.StatusRejected, true
	case order.StatusExpired:
		return order.StatusExpired, true
	}
	return "", false
}
