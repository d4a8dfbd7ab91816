package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/order"
	"execution-core/pkg/db"
)

func TestRecorderPersistsLifecycle(t *testing.T) {
	d, err := db.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()
	queries := db.NewQueries(d.DB)

	bus := events.NewBus()
	rec := NewRecorder(queries, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()
	// Give the subscriber goroutines a moment to attach.
	time.Sleep(20 * time.Millisecond)

	now := time.Now().UTC().Truncate(time.Second)
	o := order.Order{
		ID: "ord-7", Symbol: "BTCUSDT", Type: order.TypeMarket,
		TradeType: order.TradeSpot, Side: order.SideBuy, Qty: 1,
		Status: order.StatusNew, Leverage: 1,
		CreatedAt: now, UpdatedAt: now,
	}
	bus.Publish(events.TopicOrderCreated, o)

	o.Status = order.StatusFilled
	o.FilledQty = 1
	o.AvgPrice = 50000
	o.UpdatedAt = now.Add(time.Second)
	bus.Publish(events.TopicOrderFilled, o)

	deadline := time.Now().Add(2 * time.Second)
	var row db.OrderRow
	for time.Now().Before(deadline) {
		row, err = queries.GetOrder(context.Background(), "ord-7")
		if err == nil && row.Status == "FILLED" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if row.Status != "FILLED" || row.AvgPrice != 50000 {
		t.Fatalf("lifecycle not persisted: %+v (err=%v)", row, err)
	}

	var trades int
	waitTrades := time.Now().Add(2 * time.Second)
	for time.Now().Before(waitTrades) {
		if err := d.DB.QueryRow(`SELECT COUNT(*) FROM trades WHERE order_id = 'ord-7'`).Scan(&trades); err != nil {
			t.Fatalf("count trades: %v", err)
		}
		if trades == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if trades != 1 {
		t.Fatalf("fill did not produce a trade row, count=%d", trades)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop on context cancel")
	}
}
