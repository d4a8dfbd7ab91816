package risk

import (
	"testing"

	"execution-core/internal/order"
)

func TestCheckOrderRisk(t *testing.T) {
	cfg := Config{
		MaxOrderNotional: 10000,
		MinOrderNotional: 10,
		MaxOrderQty:      100,
		MaxLeverage:      10,
	}

	tests := []struct {
		name string
		o    order.Order
		want bool
	}{
		{
			name: "plain spot order within limits",
			o:    order.Order{ID: "a", Type: order.TypeLimit, TradeType: order.TradeSpot, Qty: 1, Price: 2000},
			want: true,
		},
		{
			name: "zero quantity",
			o:    order.Order{ID: "b", Type: order.TypeMarket, TradeType: order.TradeSpot, Qty: 0},
			want: false,
		},
		{
			name: "quantity over limit",
			o:    order.Order{ID: "c", Type: order.TypeMarket, TradeType: order.TradeSpot, Qty: 101},
			want: false,
		},
		{
			name: "notional under floor",
			o:    order.Order{ID: "d", Type: order.TypeLimit, TradeType: order.TradeSpot, Qty: 1, Price: 5},
			want: false,
		},
		{
			name: "notional over ceiling",
			o:    order.Order{ID: "e", Type: order.TypeLimit, TradeType: order.TradeSpot, Qty: 10, Price: 2000},
			want: false,
		},
		{
			name: "market order without price skips notional checks",
			o:    order.Order{ID: "f", Type: order.TypeMarket, TradeType: order.TradeSpot, Qty: 1},
			want: true,
		},
		{
			name: "perpetual leverage over limit",
			o:    order.Order{ID: "g", Type: order.TypeLimit, TradeType: order.TradePerpetual, Qty: 1, Price: 100, Leverage: 25},
			want: false,
		},
		{
			name: "stop order without stop price",
			o:    order.Order{ID: "h", Type: order.TypeStopLoss, TradeType: order.TradeSpot, Qty: 1, Price: 100},
			want: false,
		},
		{
			name: "stop order with stop price",
			o:    order.Order{ID: "i", Type: order.TypeStopLoss, TradeType: order.TradeSpot, Qty: 1, Price: 100, StopPrice: 90},
			want: true,
		},
	}

	mgr := NewInMemory(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mgr.CheckOrderRisk(tt.o); got != tt.want {
				t.Fatalf("CheckOrderRisk=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestZeroConfigAllowsEverything(t *testing.T) {
	mgr := NewInMemory(Config{})
	o := order.Order{ID: "x", Type: order.TypeMarket, TradeType: order.TradeSpot, Qty: 999999, Price: 999999}
	if !mgr.CheckOrderRisk(o) {
		t.Fatal("zero config must disable all limits")
	}
}
