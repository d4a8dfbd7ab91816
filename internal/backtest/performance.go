package backtest

// Result summarizes a finished run.
type Result struct {
	InitialCash float64   `json:"initial_cash"`
	FinalCash   float64   `json:"final_cash"`
	TotalReturn float64   `json:"total_return"`
	MaxDrawdown float64   `json:"max_drawdown"`
	EquityCurve []float64 `json:"equity_curve"`
	TradeCount  int       `json:"trade_count"`
}

// Result computes performance over the trade ledger. Call it after Run has
// drained the queue.
func (e *Engine) Result() Result {
	equity := make([]float64, 0, len(e.portfolio.Trades)+1)
	equity = append(equity, e.initialCash)
	running := e.initialCash
	for _, t := range e.portfolio.Trades {
		running += t.CashChange
		equity = append(equity, running)
	}

	totalReturn := 0.0
	if e.initialCash != 0 {
		totalReturn = (e.portfolio.Cash - e.initialCash) / e.initialCash
	}

	return Result{
		InitialCash: e.initialCash,
		FinalCash:   e.portfolio.Cash,
		TotalReturn: totalReturn,
		MaxDrawdown: MaxDrawdown(equity),
		EquityCurve: equity,
		TradeCount:  len(e.portfolio.Trades),
	}
}

// MaxDrawdown returns the largest peak-to-trough decline over an equity
// curve, as a fraction of the running peak.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
