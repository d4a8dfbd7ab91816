// Package config reads environment-driven settings, optionally from a .env
// file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the execution core.
type Config struct {
	Mode string // "live" or "backtest"
	Port string

	// Binance
	BinanceTestnet   bool
	BinanceAPIKey    string
	BinanceAPISecret string
	Symbols          []string
	UseMockFeed      bool
	KlineInterval    string

	// Execution
	PollInterval   time.Duration
	UseLimitOrders bool
	TradePerpetual bool
	Leverage       int

	// Risk limits
	MaxOrderNotional float64
	MinOrderNotional float64
	MaxOrderQty      float64
	MaxLeverage      int

	// Backtest
	BarsCSVPath string
	InitialCash float64
	DefaultQty  float64

	// Strategy
	StrategyConfigPath string

	// Database
	DBPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Mode:               strings.ToLower(getEnv("MODE", "backtest")),
		Port:               getEnv("PORT", "8080"),
		BinanceTestnet:     getEnv("BINANCE_TESTNET", "true") == "true",
		BinanceAPIKey:      os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:   os.Getenv("BINANCE_API_SECRET"),
		Symbols:            splitAndTrim(getEnv("SYMBOLS", "BTCUSDT")),
		UseMockFeed:        getEnv("USE_MOCK_FEED", "false") == "true",
		KlineInterval:      getEnv("KLINE_INTERVAL", "1m"),
		PollInterval:       time.Duration(getEnvInt("ORDER_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		UseLimitOrders:     getEnv("USE_LIMIT_ORDERS", "false") == "true",
		TradePerpetual:     getEnv("TRADE_PERPETUAL", "false") == "true",
		Leverage:           getEnvInt("LEVERAGE", 1),
		MaxOrderNotional:   getEnvFloat("MAX_ORDER_NOTIONAL", 0),
		MinOrderNotional:   getEnvFloat("MIN_ORDER_NOTIONAL", 0),
		MaxOrderQty:        getEnvFloat("MAX_ORDER_QTY", 0),
		MaxLeverage:        getEnvInt("MAX_LEVERAGE", 20),
		BarsCSVPath:        getEnv("BARS_CSV_PATH", "./data/bars.csv"),
		InitialCash:        getEnvFloat("INITIAL_CASH", 100000),
		DefaultQty:         getEnvFloat("DEFAULT_QTY", 100),
		StrategyConfigPath: getEnv("STRATEGY_CONFIG_PATH", "./strategies.yaml"),
		DBPath:             getEnv("DB_PATH", "./data/execution.db"),
	}

	if cfg.Mode != "live" && cfg.Mode != "backtest" {
		return nil, fmt.Errorf("config: MODE must be live or backtest, got %q", cfg.Mode)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("config: SYMBOLS must name at least one symbol")
	}
	if cfg.Mode == "live" && !cfg.UseMockFeed {
		if cfg.BinanceAPIKey == "" || cfg.BinanceAPISecret == "" {
			return nil, fmt.Errorf("config: live mode requires BINANCE_API_KEY and BINANCE_API_SECRET")
		}
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
