package backtest

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"execution-core/internal/order"
	"execution-core/internal/strategy"
)

func ts(sec int) time.Time {
	return time.Date(2024, 4, 2, 10, 0, sec, 0, time.UTC)
}

func TestRunDispatchesInCausalOrder(t *testing.T) {
	e := New(Config{})

	var got []Event
	record := func(ev Event) error {
		got = append(got, ev)
		return nil
	}
	for _, k := range []Kind{KindMarketData, KindSignal, KindOrder, KindLog} {
		e.Bind(k, record)
	}

	// A fixed event multiset pushed in random order must always come out
	// sorted by (timestamp, kind priority, insertion sequence).
	events := []Event{
		{Kind: KindOrder, Time: ts(1), Symbol: "A", Side: order.SideBuy, Qty: 1},
		{Kind: KindMarketData, Time: ts(1), Symbol: "A", Price: 10},
		{Kind: KindLog, Time: ts(1), Message: "first"},
		{Kind: KindSignal, Time: ts(1), Symbol: "A", Direction: 1},
		{Kind: KindMarketData, Time: ts(0), Symbol: "A", Price: 9},
		{Kind: KindLog, Time: ts(2), Message: "last"},
	}
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	for _, ev := range events {
		e.Push(ev)
	}

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("dispatched %d events, expected %d", len(got), len(events))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Time.Before(prev.Time) {
			t.Fatalf("event %d dispatched out of time order: %v before %v", i, cur.Time, prev.Time)
		}
		if cur.Time.Equal(prev.Time) && cur.Kind < prev.Kind {
			t.Fatalf("event %d violated kind priority at %v: %s after %s", i, cur.Time, cur.Kind, prev.Kind)
		}
	}
	if got[0].Price != 9 {
		t.Fatalf("earliest market data not dispatched first: %+v", got[0])
	}
	if got[len(got)-1].Message != "last" {
		t.Fatalf("latest log not dispatched last: %+v", got[len(got)-1])
	}
}

func TestSameTimestampFIFOWithinKind(t *testing.T) {
	e := New(Config{})
	var msgs []string
	e.Bind(KindLog, func(ev Event) error {
		msgs = append(msgs, ev.Message)
		return nil
	})

	for _, m := range []string{"a", "b", "c", "d"} {
		e.Push(Event{Kind: KindLog, Time: ts(5), Message: m})
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("insertion order not preserved at identical timestamps: %v", msgs)
		}
	}
}

func TestOrderWithoutObservedPriceIsFatal(t *testing.T) {
	e := New(Config{})
	e.Push(Event{Kind: KindOrder, Time: ts(0), Symbol: "GHOST", Side: order.SideBuy, Qty: 1})

	err := e.Run()
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestOrderHandlerAccounting(t *testing.T) {
	e := New(Config{InitialCash: 1000})
	e.Push(Event{Kind: KindMarketData, Time: ts(0), Symbol: "BTCUSDT", Price: 100})
	e.Push(Event{Kind: KindOrder, Time: ts(1), Symbol: "BTCUSDT", Side: order.SideBuy, Qty: 2})
	e.Push(Event{Kind: KindMarketData, Time: ts(2), Symbol: "BTCUSDT", Price: 110})
	e.Push(Event{Kind: KindOrder, Time: ts(3), Symbol: "BTCUSDT", Side: order.SideSell, Qty: 2})

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := e.Portfolio()
	if p.Positions["BTCUSDT"] != 0 {
		t.Fatalf("position=%v after round trip, expected flat", p.Positions["BTCUSDT"])
	}
	// -200 on the buy at 100, +220 on the sell at 110.
	if p.Cash != 1020 {
		t.Fatalf("cash=%v, expected 1020", p.Cash)
	}
	if len(p.Trades) != 2 {
		t.Fatalf("trade ledger has %d entries, expected 2", len(p.Trades))
	}
	if p.Trades[0].CashChange != -200 || p.Trades[1].CashChange != 220 {
		t.Fatalf("cash changes wrong: %+v", p.Trades)
	}
}

func TestShortSellingIsPermitted(t *testing.T) {
	e := New(Config{InitialCash: 100})
	e.Push(Event{Kind: KindMarketData, Time: ts(0), Symbol: "ETHUSDT", Price: 50})
	e.Push(Event{Kind: KindOrder, Time: ts(1), Symbol: "ETHUSDT", Side: order.SideSell, Qty: 10})

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Portfolio().Positions["ETHUSDT"] != -10 {
		t.Fatalf("position=%v, expected -10 (shorting is unchecked)", e.Portfolio().Positions["ETHUSDT"])
	}
	if e.Portfolio().Cash != 600 {
		t.Fatalf("cash=%v, expected 600", e.Portfolio().Cash)
	}
}

func TestSMACrossoverScenario(t *testing.T) {
	s, err := strategy.NewSMACross("AAPL", 2, 3)
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}

	e := New(Config{InitialCash: 100000, Strategy: s})
	e.Portfolio().Positions["AAPL"] = 100 // existing holding to liquidate

	closes := []float64{100, 100, 100, 90, 80}
	bars := make([]strategy.Bar, len(closes))
	for i, c := range closes {
		bars[i] = strategy.Bar{Symbol: "AAPL", Time: ts(i), Close: c}
	}
	if err := e.LoadBars(bars); err != nil {
		t.Fatalf("LoadBars: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := e.Portfolio()
	if len(p.Trades) != 1 {
		t.Fatalf("expected exactly one sell at the crossover, got %d trades: %+v", len(p.Trades), p.Trades)
	}
	tr := p.Trades[0]
	if tr.Side != order.SideSell || tr.Qty != 100 || tr.Price != 90 {
		t.Fatalf("crossover trade wrong: %+v", tr)
	}
	if p.Cash != 100000+9000 {
		t.Fatalf("cash=%v, expected 109000", p.Cash)
	}
	if p.Positions["AAPL"] != 0 {
		t.Fatalf("position=%v after liquidation, expected 0", p.Positions["AAPL"])
	}
}

func TestResultMetrics(t *testing.T) {
	e := New(Config{InitialCash: 100000})
	// Trades producing the equity curve [100000, 105000, 95000, 110000].
	e.Push(Event{Kind: KindMarketData, Time: ts(0), Symbol: "X", Price: 1})
	e.Push(Event{Kind: KindOrder, Time: ts(1), Symbol: "X", Side: order.SideSell, Qty: 5000})
	e.Push(Event{Kind: KindOrder, Time: ts(2), Symbol: "X", Side: order.SideBuy, Qty: 10000})
	e.Push(Event{Kind: KindOrder, Time: ts(3), Symbol: "X", Side: order.SideSell, Qty: 15000})

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := e.Result()

	if math.Abs(res.TotalReturn-0.10) > 1e-9 {
		t.Fatalf("total return=%v, expected 0.10", res.TotalReturn)
	}
	wantDD := 10000.0 / 105000.0
	if math.Abs(res.MaxDrawdown-wantDD) > 1e-9 {
		t.Fatalf("max drawdown=%v, expected %v", res.MaxDrawdown, wantDD)
	}
	if res.TradeCount != 3 {
		t.Fatalf("trade count=%d, expected 3", res.TradeCount)
	}
}

func TestMaxDrawdownRunningPeak(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{name: "reference curve", equity: []float64{100000, 105000, 95000, 110000}, want: 10000.0 / 105000.0},
		{name: "monotonic rise has no drawdown", equity: []float64{1, 2, 3, 4}, want: 0},
		{name: "empty curve", equity: nil, want: 0},
		{name: "full collapse", equity: []float64{100, 0}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxDrawdown(tt.equity); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("MaxDrawdown=%v, expected %v", got, tt.want)
			}
		})
	}
}
