package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/strategy"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCSVSourceLoad(t *testing.T) {
	path := writeCSV(t, `timestamp,symbol,open,high,low,close,volume
2024-04-01T10:00:00Z,BTCUSDT,100,105,99,104,12.5
1711965660,BTCUSDT,104,106,103,105,8
`)
	bars, err := NewCSVSource(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("loaded %d bars, expected 2", len(bars))
	}
	if bars[0].Close != 104 || bars[0].Symbol != "BTCUSDT" {
		t.Fatalf("first bar wrong: %+v", bars[0])
	}
	if !bars[1].Time.After(bars[0].Time) {
		t.Fatalf("unix timestamp row parsed wrong: %v then %v", bars[0].Time, bars[1].Time)
	}
}

func TestCSVSourceRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "out of order rows",
			content: `2024-04-01T10:01:00Z,BTCUSDT,1,1,1,1,1
2024-04-01T10:00:00Z,BTCUSDT,1,1,1,1,1
`,
		},
		{
			name:    "zero close price",
			content: "2024-04-01T10:00:00Z,BTCUSDT,1,1,1,0,1\n",
		},
		{
			name:    "missing columns",
			content: "2024-04-01T10:00:00Z,BTCUSDT,1\n",
		},
		{
			name:    "garbage timestamp",
			content: "yesterday,BTCUSDT,1,1,1,1,1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			if _, err := NewCSVSource(path).Load(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseKline(t *testing.T) {
	msg := []byte(`{"e":"kline","s":"BTCUSDT","k":{
		"T":1712052059999,"s":"BTCUSDT","i":"1m",
		"o":"69000.1","c":"69100.5","h":"69200.0","l":"68900.0","v":"42.7","x":true}}`)

	bar, closed, err := parseKline(msg)
	if err != nil {
		t.Fatalf("parseKline: %v", err)
	}
	if !closed {
		t.Fatal("closed flag not propagated")
	}
	if bar.Symbol != "BTCUSDT" || bar.Close != 69100.5 || bar.Volume != 42.7 {
		t.Fatalf("bar fields wrong: %+v", bar)
	}

	_, closed, err = parseKline([]byte(`{"k":{"s":"BTCUSDT","o":"1","c":"1","h":"1","l":"1","v":"1","x":false}}`))
	if err != nil {
		t.Fatalf("open candle parse: %v", err)
	}
	if closed {
		t.Fatal("open candle reported as closed")
	}
}

func TestMockFeedPublishesBars(t *testing.T) {
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(events.TopicPriceTick, 8)
	defer cancel()

	bars := []strategy.Bar{
		{Symbol: "ETHUSDT", Time: time.Now(), Close: 3000},
		{Symbol: "ETHUSDT", Time: time.Now(), Close: 3010},
	}
	if err := NewMockFeed(bus, bars, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range bars {
		select {
		case got := <-ch:
			b, ok := got.(strategy.Bar)
			if !ok || b.Close != bars[i].Close {
				t.Fatalf("published payload %d wrong: %#v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("bar %d never published", i)
		}
	}
}
