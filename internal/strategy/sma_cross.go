package strategy

import "fmt"

// SMACross compares a short and a long simple moving average of close prices.
// Short above long reads bullish (+1), short below long bearish (-1); equal
// averages or a window that is not warm yet hold (0).
type SMACross struct {
	symbol      string
	shortWindow int
	longWindow  int

	prices []float64
}

// NewSMACross validates the windows and builds the strategy. Both windows
// must be positive and the short window strictly smaller than the long one.
func NewSMACross(symbol string, shortWindow, longWindow int) (*SMACross, error) {
	if shortWindow <= 0 {
		return nil, &ValidationError{Field: "short_window", Reason: "must be positive"}
	}
	if longWindow <= 0 {
		return nil, &ValidationError{Field: "long_window", Reason: "must be positive"}
	}
	if shortWindow >= longWindow {
		return nil, &ValidationError{
			Field:  "short_window",
			Reason: fmt.Sprintf("must be smaller than long_window (%d >= %d)", shortWindow, longWindow),
		}
	}
	return &SMACross{
		symbol:      symbol,
		shortWindow: shortWindow,
		longWindow:  longWindow,
		prices:      make([]float64, 0, longWindow),
	}, nil
}

func (s *SMACross) Name() string {
	return fmt.Sprintf("SMA_Cross_%d_%d", s.shortWindow, s.longWindow)
}

// OnInit drops accumulated price history.
func (s *SMACross) OnInit() error {
	s.prices = s.prices[:0]
	return nil
}

// Signal ingests the bar's close and compares the two averages.
func (s *SMACross) Signal(bar Bar) (int, error) {
	if bar.Close <= 0 {
		return SignalHold, fmt.Errorf("%s: bar without close price", s.Name())
	}
	if bar.Symbol != "" && s.symbol != "" && bar.Symbol != s.symbol {
		return SignalHold, nil
	}

	s.prices = append(s.prices, bar.Close)
	if len(s.prices) > s.longWindow {
		s.prices = s.prices[1:]
	}
	if len(s.prices) < s.longWindow {
		return SignalHold, nil
	}

	short := sma(s.prices, s.shortWindow)
	long := sma(s.prices, s.longWindow)

	switch {
	case short > long:
		return SignalBuy, nil
	case short < long:
		return SignalSell, nil
	}
	return SignalHold, nil
}

// sma averages the trailing n entries of prices. Callers guarantee
// len(prices) >= n.
func sma(prices []float64, n int) float64 {
	sum := 0.0
	for _, p := range prices[len(prices)-n:] {
		sum += p
	}
	return sum / float64(n)
}
