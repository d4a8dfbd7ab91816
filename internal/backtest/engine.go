package backtest

import (
	"fmt"
	"log"
	"time"

	"execution-core/internal/order"
	"execution-core/internal/strategy"
)

// DataError reports malformed simulation input: an order that cannot resolve
// a trade price, or a bar missing a required field. Deterministic replay
// assumes well-formed input, so a DataError is fatal for the run.
type DataError struct {
	Symbol string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("simulation data error: %s: %s", e.Symbol, e.Reason)
}

// Handler processes one dispatched event.
type Handler func(Event) error

// Config tunes an engine run.
type Config struct {
	InitialCash float64 // starting cash, defaults to 100000
	DefaultQty  float64 // market buy size for +1 signals, defaults to 100
	Strategy    strategy.Strategy
}

// Engine replays events in causal order against a simulated portfolio.
// Execution is strictly single-threaded and cooperative: Run dispatches one
// event at a time with no suspension points, so replaying a fixed event
// multiset is reproducible bit for bit.
type Engine struct {
	queue     *eventQueue
	handlers  map[Kind]Handler
	strategy  strategy.Strategy
	portfolio *Portfolio

	defaultQty  float64
	initialCash float64

	lastPrice map[string]float64
	lastTime  time.Time
}

// New builds an engine with the default handlers bound.
func New(cfg Config) *Engine {
	if cfg.InitialCash == 0 {
		cfg.InitialCash = 100000
	}
	if cfg.DefaultQty == 0 {
		cfg.DefaultQty = 100
	}
	e := &Engine{
		queue:       newEventQueue(),
		handlers:    make(map[Kind]Handler),
		strategy:    cfg.Strategy,
		portfolio:   NewPortfolio(cfg.InitialCash),
		defaultQty:  cfg.DefaultQty,
		initialCash: cfg.InitialCash,
		lastPrice:   make(map[string]float64),
	}
	e.Bind(KindMarketData, e.onMarketData)
	e.Bind(KindSignal, e.onSignal)
	e.Bind(KindOrder, e.onOrder)
	e.Bind(KindLog, e.onLog)
	return e
}

// Bind registers (or replaces) the handler for an event kind.
func (e *Engine) Bind(k Kind, h Handler) {
	e.handlers[k] = h
}

// Push inserts an event into the queue.
func (e *Engine) Push(ev Event) {
	e.queue.push(ev)
}

// LoadBars seeds the queue with market data events from an ordered, finite
// bar sequence.
func (e *Engine) LoadBars(bars []strategy.Bar) error {
	for _, b := range bars {
		if b.Close <= 0 {
			return &DataError{Symbol: b.Symbol, Reason: "bar without close price"}
		}
		e.Push(Event{Kind: KindMarketData, Time: b.Time, Symbol: b.Symbol, Price: b.Close})
	}
	return nil
}

// Portfolio exposes the simulated account, e.g. to seed positions before a
// run or to inspect them afterwards.
func (e *Engine) Portfolio() *Portfolio {
	return e.portfolio
}

// Run drains the queue, dispatching each event to its handler in
// (timestamp, kind priority, sequence) order. Events without a registered
// handler are logged and dropped. Handler errors abort the run.
func (e *Engine) Run() error {
	if e.strategy != nil {
		if err := e.strategy.OnInit(); err != nil {
			return fmt.Errorf("strategy init: %w", err)
		}
	}
	for {
		ev, ok := e.queue.pop()
		if !ok {
			return nil
		}
		e.lastTime = ev.Time

		h, ok := e.handlers[ev.Kind]
		if !ok {
			log.Printf("backtest: no handler for event kind %s, dropping", ev.Kind)
			continue
		}
		if err := h(ev); err != nil {
			return err
		}
	}
}

// onMarketData refreshes the price cache and consults the strategy. A
// non-hold signal is queued at the same timestamp; kind priority guarantees
// it dispatches after this event.
func (e *Engine) onMarketData(ev Event) error {
	e.lastPrice[ev.Symbol] = ev.Price

	if e.strategy == nil {
		return nil
	}
	sig, err := e.strategy.Signal(strategy.Bar{Symbol: ev.Symbol, Time: ev.Time, Close: ev.Price})
	if err != nil {
		return &DataError{Symbol: ev.Symbol, Reason: err.Error()}
	}
	if sig != strategy.SignalHold {
		e.Push(Event{Kind: KindSignal, Time: ev.Time, Symbol: ev.Symbol, Direction: sig})
	}
	return nil
}

// onSignal turns a direction into a market order. Buys use the configured
// default size; sells flatten the full current position and are skipped when
// there is nothing to sell.
func (e *Engine) onSignal(ev Event) error {
	switch ev.Direction {
	case strategy.SignalBuy:
		e.Push(Event{
			Kind: KindOrder, Time: ev.Time, Symbol: ev.Symbol,
			Side: order.SideBuy, Qty: e.defaultQty,
		})
	case strategy.SignalSell:
		pos := e.portfolio.Positions[ev.Symbol]
		if pos > 0 {
			e.Push(Event{
				Kind: KindOrder, Time: ev.Time, Symbol: ev.Symbol,
				Side: order.SideSell, Qty: pos,
			})
		}
	case strategy.SignalHold:
		// no-op
	}
	return nil
}

// onOrder resolves the trade price and applies the fill to the portfolio.
// The symbol comes from the event payload, never from surrounding state.
func (e *Engine) onOrder(ev Event) error {
	price := ev.TradePrice
	if price == 0 {
		p, ok := e.lastPrice[ev.Symbol]
		if !ok {
			return &DataError{Symbol: ev.Symbol, Reason: "order with no observed market price"}
		}
		price = p
	}

	e.portfolio.apply(ev.Time, ev.Symbol, ev.Side, price, ev.Qty)
	return nil
}

func (e *Engine) onLog(ev Event) error {
	log.Printf("[%s] %s", ev.Time.Format(time.RFC3339), ev.Message)
	return nil
}
