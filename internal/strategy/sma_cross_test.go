package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSMACrossValidation(t *testing.T) {
	tests := []struct {
		name    string
		short   int
		long    int
		wantErr bool
	}{
		{name: "valid windows", short: 5, long: 20, wantErr: false},
		{name: "short equals long", short: 10, long: 10, wantErr: true},
		{name: "short above long", short: 30, long: 10, wantErr: true},
		{name: "zero short window", short: 0, long: 10, wantErr: true},
		{name: "negative long window", short: 2, long: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMACross("BTCUSDT", tt.short, tt.long)
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSMACrossSignals(t *testing.T) {
	s, err := NewSMACross("AAPL", 2, 3)
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}
	if err := s.OnInit(); err != nil {
		t.Fatalf("OnInit: %v", err)
	}

	closes := []float64{100, 100, 100, 90, 80}
	want := []int{
		SignalHold, // warming up
		SignalHold, // warming up
		SignalHold, // short avg == long avg
		SignalSell, // 95 < 96.67
		SignalSell, // 85 < 90
	}

	base := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		got, err := s.Signal(Bar{Symbol: "AAPL", Time: base.Add(time.Duration(i) * time.Minute), Close: c})
		if err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("bar %d (close=%.0f): signal=%d, expected %d", i, c, got, want[i])
		}
	}
}

func TestSMACrossBullishSignal(t *testing.T) {
	s, _ := NewSMACross("", 2, 3)
	closes := []float64{100, 100, 100, 110, 120}
	var last int
	for _, c := range closes {
		sig, err := s.Signal(Bar{Close: c})
		if err != nil {
			t.Fatalf("Signal: %v", err)
		}
		last = sig
	}
	if last != SignalBuy {
		t.Fatalf("signal=%d on rising closes, expected buy", last)
	}
}

func TestSMACrossIgnoresOtherSymbols(t *testing.T) {
	s, _ := NewSMACross("BTCUSDT", 2, 3)
	for _, c := range []float64{100, 90, 80, 70} {
		sig, err := s.Signal(Bar{Symbol: "ETHUSDT", Close: c})
		if err != nil {
			t.Fatalf("Signal: %v", err)
		}
		if sig != SignalHold {
			t.Fatalf("foreign symbol produced signal %d", sig)
		}
	}
}

func TestSMACrossRejectsBarWithoutClose(t *testing.T) {
	s, _ := NewSMACross("", 2, 3)
	if _, err := s.Signal(Bar{}); err == nil {
		t.Fatal("expected error for bar without close price")
	}
}

func TestLoadConfigAndBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategies.yaml")
	doc := `strategies:
  - name: btc-sma
    type: sma_cross
    symbol: BTCUSDT
    parameters:
      short_window: 3
      long_window: 9
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configs, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("loaded %d configs, expected 1", len(configs))
	}

	s, err := Build(configs[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Name() != "SMA_Cross_3_9" {
		t.Fatalf("built strategy %q", s.Name())
	}

	if _, err := Build(Config{Type: "martingale"}); err == nil {
		t.Fatal("unknown strategy type must fail")
	}
}
