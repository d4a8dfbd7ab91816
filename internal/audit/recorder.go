// Package audit mirrors order lifecycle events into the SQLite history.
// Writes are best effort: a failed insert is logged, never propagated back
// into the trading path.
package audit

import (
	"context"
	"log"

	"execution-core/internal/events"
	"execution-core/internal/order"
	"execution-core/pkg/db"
)

// Recorder subscribes to order topics on the bus and persists each snapshot.
type Recorder struct {
	queries *db.Queries
	bus     *events.Bus
}

// NewRecorder wires a recorder to the bus and database.
func NewRecorder(queries *db.Queries, bus *events.Bus) *Recorder {
	return &Recorder{queries: queries, bus: bus}
}

// Run consumes order events until the context is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	topics := []events.Topic{
		events.TopicOrderCreated,
		events.TopicOrderSubmitted,
		events.TopicOrderRejected,
		events.TopicOrderFilled,
		events.TopicOrderCanceled,
		events.TopicOrderUpdate,
	}

	merged := make(chan any, 256)
	for _, t := range topics {
		ch, unsub := r.bus.Subscribe(t, 64)
		defer unsub()
		go func(in <-chan any) {
			for msg := range in {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-merged:
			o, ok := msg.(order.Order)
			if !ok {
				continue
			}
			r.record(ctx, o)
		}
	}
}

// record writes the order snapshot and, on a fill, the trade row.
func (r *Recorder) record(ctx context.Context, o order.Order) {
	if err := r.queries.UpsertOrder(ctx, toRow(o)); err != nil {
		log.Printf("audit: order %s not persisted: %v", o.ID, err)
		return
	}
	if o.Status == order.StatusFilled && o.FilledQty > 0 {
		tr := db.TradeRow{
			OrderID:   o.ID,
			Symbol:    o.Symbol,
			Side:      string(o.Side),
			Price:     o.AvgPrice,
			Qty:       o.FilledQty,
			CreatedAt: o.UpdatedAt,
		}
		if err := r.queries.InsertTrade(ctx, tr); err != nil {
			log.Printf("audit: trade for %s not persisted: %v", o.ID, err)
		}
	}
}

func toRow(o order.Order) db.OrderRow {
	return db.OrderRow{
		ID:         o.ID,
		ExchangeID: o.ExchangeID,
		Symbol:     o.Symbol,
		Type:       string(o.Type),
		TradeType:  string(o.TradeType),
		Side:       string(o.Side),
		Qty:        o.Qty,
		Price:      o.Price,
		StopPrice:  o.StopPrice,
		Leverage:   o.Leverage,
		Status:     string(o.Status),
		FilledQty:  o.FilledQty,
		AvgPrice:   o.AvgPrice,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
