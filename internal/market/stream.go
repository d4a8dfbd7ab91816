package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/strategy"

	"github.com/gorilla/websocket"
)

// StreamFeed consumes a Binance public kline websocket stream and publishes a
// bar on the event bus whenever a candle closes. Only closed candles are
// published so downstream indicators see each interval exactly once.
type StreamFeed struct {
	streamURL string
	symbol    string
	interval  string
	bus       *events.Bus
	dialer    *websocket.Dialer
}

// NewStreamFeed builds a feed for one symbol and kline interval; testnet
// toggles the host.
func NewStreamFeed(bus *events.Bus, symbol, interval string, testnet bool) *StreamFeed {
	host := "stream.binance.com:9443"
	if testnet {
		host = "testnet.binance.vision"
	}
	return &StreamFeed{
		streamURL: (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		symbol:    symbol,
		interval:  interval,
		bus:       bus,
		dialer:    websocket.DefaultDialer,
	}
}

// Run connects and pumps closed klines onto the bus until the context is
// cancelled or the connection drops.
func (f *StreamFeed) Run(ctx context.Context) error {
	// Binance requires lowercase symbols for websocket streams.
	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(f.symbol), f.interval)
	u := fmt.Sprintf("%s/%s", f.streamURL, stream)

	conn, _, err := f.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial kline stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	log.Printf("market: streaming %s klines (%s)", f.symbol, f.interval)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return ctx.Err()
			}
			return fmt.Errorf("kline stream read: %w", err)
		}

		bar, closed, err := parseKline(msg)
		if err != nil {
			log.Printf("market: kline parse error: %v", err)
			continue
		}
		if !closed {
			continue
		}
		f.bus.Publish(events.TopicPriceTick, bar)
	}
}

// parseKline decodes only the fields we need.
func parseKline(msg []byte) (strategy.Bar, bool, error) {
	var raw struct {
		Kline struct {
			CloseTime int64  `json:"T"`
			Symbol    string `json:"s"`
			Open      string `json:"o"`
			Close     string `json:"c"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return strategy.Bar{}, false, err
	}
	k := raw.Kline
	b := strategy.Bar{
		Symbol: k.Symbol,
		Time:   time.UnixMilli(k.CloseTime).UTC(),
	}
	for _, f := range []struct {
		src string
		dst *float64
	}{
		{k.Open, &b.Open}, {k.High, &b.High}, {k.Low, &b.Low},
		{k.Close, &b.Close}, {k.Volume, &b.Volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return strategy.Bar{}, false, fmt.Errorf("bad kline field %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return b, k.Closed, nil
}
