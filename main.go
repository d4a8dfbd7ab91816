package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execution-core/internal/api"
	"execution-core/internal/audit"
	"execution-core/internal/backtest"
	"execution-core/internal/events"
	"execution-core/internal/executor"
	"execution-core/internal/market"
	"execution-core/internal/order"
	"execution-core/internal/risk"
	"execution-core/internal/strategy"
	"execution-core/pkg/config"
	"execution-core/pkg/db"
	"execution-core/pkg/exchange"
	"execution-core/pkg/exchange/binance"
)

const (
	positionSyncInterval = 30 * time.Second
	autoCancelInterval   = 5 * time.Second
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("execution core starting in %s mode", cfg.Mode)

	switch cfg.Mode {
	case "backtest":
		runBacktest(cfg)
	default:
		runLive(cfg)
	}
}

// runBacktest replays a CSV bar series through the configured strategy and
// prints the performance summary.
func runBacktest(cfg *config.Config) {
	strat, err := loadStrategy(cfg)
	if err != nil {
		log.Fatalf("strategy setup failed: %v", err)
	}

	bars, err := market.NewCSVSource(cfg.BarsCSVPath).Load()
	if err != nil {
		log.Fatalf("bar load failed: %v", err)
	}
	log.Printf("loaded %d bars from %s", len(bars), cfg.BarsCSVPath)

	engine := backtest.New(backtest.Config{
		InitialCash: cfg.InitialCash,
		DefaultQty:  cfg.DefaultQty,
		Strategy:    strat,
	})
	if err := engine.LoadBars(bars); err != nil {
		log.Fatalf("bar replay setup failed: %v", err)
	}
	if err := engine.Run(); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	res := engine.Result()
	log.Printf("backtest complete: %d trades", res.TradeCount)
	log.Printf("  initial cash:  %.2f", res.InitialCash)
	log.Printf("  final cash:    %.2f", res.FinalCash)
	log.Printf("  total return:  %.2f%%", res.TotalReturn*100)
	log.Printf("  max drawdown:  %.2f%%", res.MaxDrawdown*100)
}

// runLive wires the feed, strategy, executor, auto-cancel scan and the ops
// API and runs until SIGINT/SIGTERM.
func runLive(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	orders := order.NewManager(bus)
	gate := risk.NewInMemory(risk.Config{
		MaxOrderNotional: cfg.MaxOrderNotional,
		MinOrderNotional: cfg.MinOrderNotional,
		MaxOrderQty:      cfg.MaxOrderQty,
		MaxLeverage:      cfg.MaxLeverage,
	})

	strat, err := loadStrategy(cfg)
	if err != nil {
		log.Fatalf("strategy setup failed: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer database.Close()
	queries := db.NewQueries(database.DB)

	recorder := audit.NewRecorder(queries, bus)
	go recorder.Run(ctx)

	// Venue client; absent credentials the core runs signal-only.
	var venue exchange.Client
	var exec *executor.Executor
	if cfg.BinanceAPIKey != "" && cfg.BinanceAPISecret != "" {
		client, err := binance.NewClient(binance.Config{
			APIKey:    cfg.BinanceAPIKey,
			APISecret: cfg.BinanceAPISecret,
			Testnet:   cfg.BinanceTestnet,
		})
		if err != nil {
			log.Fatalf("venue client init failed: %v", err)
		}
		venue = client

		tradeType := order.TradeSpot
		if cfg.TradePerpetual {
			tradeType = order.TradePerpetual
		}
		exec = executor.New(venue, orders, gate, bus, executor.Config{
			PollInterval:   cfg.PollInterval,
			UseLimitOrders: cfg.UseLimitOrders,
			TradeType:      tradeType,
			Leverage:       cfg.Leverage,
		})
		defer exec.Stop()

		go syncLoop(ctx, orders, venue)
		go autoCancelLoop(ctx, orders, venue)
	} else {
		log.Println("no venue credentials: running signal-only, orders will not be placed")
	}

	// Price feed.
	var feed market.Feed
	if cfg.UseMockFeed {
		feed = market.NewMockFeed(bus, syntheticBars(cfg.Symbols[0], 500), time.Second)
		log.Println("using mock price feed")
	} else {
		feed = market.NewStreamFeed(bus, cfg.Symbols[0], cfg.KlineInterval, cfg.BinanceTestnet)
	}
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("price feed stopped: %v", err)
		}
	}()

	go consumeBars(ctx, bus, strat, exec, cfg.DefaultQty)

	server := api.NewServer(orders, queries, api.SystemMeta{
		Mode:        cfg.Mode,
		Venue:       "binance",
		Symbols:     cfg.Symbols,
		UseMockFeed: cfg.UseMockFeed,
		StartedAt:   time.Now(),
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server failed: %v", err)
		}
	}()
	log.Printf("ops api listening on :%s", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutdown signal received, stopping")
	cancel()
}

// consumeBars feeds price bars to the strategy and forwards non-hold signals
// to the executor.
func consumeBars(ctx context.Context, bus *events.Bus, strat strategy.Strategy, exec *executor.Executor, qty float64) {
	if err := strat.OnInit(); err != nil {
		log.Printf("strategy init failed: %v", err)
		return
	}

	ch, unsub := bus.Subscribe(events.TopicPriceTick, 256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			bar, ok := msg.(strategy.Bar)
			if !ok {
				continue
			}
			sig, err := strat.Signal(bar)
			if err != nil {
				log.Printf("strategy error on %s bar: %v", bar.Symbol, err)
				continue
			}
			if sig == strategy.SignalHold {
				continue
			}

			side := order.SideBuy
			if sig == strategy.SignalSell {
				side = order.SideSell
			}
			log.Printf("signal: %s %s at %.4f", side, bar.Symbol, bar.Close)
			if exec == nil {
				continue
			}
			if _, err := exec.ProcessSignal(executor.TradeSignal{
				Symbol:     bar.Symbol,
				Action:     side,
				Qty:        qty,
				StrategyID: strat.Name(),
				Timestamp:  bar.Time,
			}); err != nil {
				log.Printf("signal not executed: %v", err)
			}
		}
	}
}

// syncLoop periodically replaces local positions and balances with the
// venue's view.
func syncLoop(ctx context.Context, orders *order.Manager, venue order.Venue) {
	ticker := time.NewTicker(positionSyncInterval)
	defer ticker.Stop()
	for {
		if err := orders.SyncPositions(ctx, venue); err != nil {
			log.Printf("position sync failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// autoCancelLoop runs the stale/undermargined/stop-triggered order scan.
func autoCancelLoop(ctx context.Context, orders *order.Manager, venue order.Venue) {
	ticker := time.NewTicker(autoCancelInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if n := orders.AutoCancel(ctx, venue); n > 0 {
			log.Printf("auto-cancel scan removed %d orders", n)
		}
	}
}

// syntheticBars generates a random-walk bar series for mock-feed runs.
func syntheticBars(symbol string, n int) []strategy.Bar {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bars := make([]strategy.Bar, 0, n)
	price := 100.0
	now := time.Now()
	for i := 0; i < n; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.01
		bars = append(bars, strategy.Bar{
			Symbol: symbol,
			Time:   now.Add(time.Duration(i) * time.Second),
			Open:   price, High: price, Low: price, Close: price,
		})
	}
	return bars
}

// loadStrategy builds the first strategy from the YAML config, falling back
// to an SMA cross over the first configured symbol.
func loadStrategy(cfg *config.Config) (strategy.Strategy, error) {
	if _, err := os.Stat(cfg.StrategyConfigPath); err == nil {
		configs, err := strategy.LoadConfig(cfg.StrategyConfigPath)
		if err != nil {
			return nil, err
		}
		if len(configs) > 0 {
			return strategy.Build(configs[0])
		}
	}
	return strategy.NewSMACross(cfg.Symbols[0], 5, 20)
}
