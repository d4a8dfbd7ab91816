package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("record not found")

// OrderRow is an order snapshot as stored in the orders table.
type OrderRow struct {
	ID         string
	ExchangeID string
	Symbol     string
	Type       string
	TradeType  string
	Side       string
	Qty        float64
	Price      float64
	StopPrice  float64
	Leverage   int
	Status     string
	FilledQty  float64
	AvgPrice   float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TradeRow is one fill as stored in the trades table.
type TradeRow struct {
	OrderID   string
	Symbol    string
	Side      string
	Price     float64
	Qty       float64
	CreatedAt time.Time
}

// Queries bundles the statements the execution core needs.
type Queries struct {
	db *sql.DB
}

// NewQueries creates a Queries instance over an open handle.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// UpsertOrder writes the latest snapshot of an order, replacing any earlier
// one. Every lifecycle transition overwrites the same row.
func (q *Queries) UpsertOrder(ctx context.Context, o OrderRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, exchange_order_id, symbol, order_type,
		                    trade_type, side, quantity, price, stop_price,
		                    leverage, status, filled_quantity, avg_price,
		                    created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			exchange_order_id = excluded.exchange_order_id,
			status = excluded.status,
			filled_quantity = excluded.filled_quantity,
			avg_price = excluded.avg_price,
			updated_at = excluded.updated_at
	`, o.ID, o.ExchangeID, o.Symbol, o.Type,
		o.TradeType, o.Side, o.Qty, o.Price, o.StopPrice,
		o.Leverage, o.Status, o.FilledQty, o.AvgPrice,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// GetOrder loads one order snapshot by id.
func (q *Queries) GetOrder(ctx context.Context, id string) (OrderRow, error) {
	var o OrderRow
	err := q.db.QueryRowContext(ctx, `
		SELECT order_id, exchange_order_id, symbol, order_type, trade_type,
		       side, quantity, price, stop_price, leverage, status,
		       filled_quantity, avg_price, created_at, updated_at
		FROM orders WHERE order_id = ?
	`, id).Scan(&o.ID, &o.ExchangeID, &o.Symbol, &o.Type, &o.TradeType,
		&o.Side, &o.Qty, &o.Price, &o.StopPrice, &o.Leverage, &o.Status,
		&o.FilledQty, &o.AvgPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderRow{}, ErrNotFound
	}
	if err != nil {
		return OrderRow{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders returns the most recent order snapshots, newest first.
func (q *Queries) ListOrders(ctx context.Context, limit int) ([]OrderRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT order_id, exchange_order_id, symbol, order_type, trade_type,
		       side, quantity, price, stop_price, leverage, status,
		       filled_quantity, avg_price, created_at, updated_at
		FROM orders ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.ID, &o.ExchangeID, &o.Symbol, &o.Type, &o.TradeType,
			&o.Side, &o.Qty, &o.Price, &o.StopPrice, &o.Leverage, &o.Status,
			&o.FilledQty, &o.AvgPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertTrade appends one fill to the trade log.
func (q *Queries) InsertTrade(ctx context.Context, t TradeRow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO trades (order_id, symbol, side, price, qty, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.OrderID, t.Symbol, t.Side, t.Price, t.Qty, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}
