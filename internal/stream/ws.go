package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
)

// WSConfig configures the feed WebSocket client.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the keepalive ping cadence.
	PingInterval time.Duration
	// ReadTimeout bounds a single read.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// Buffer is the per-stream channel buffer size.
	Buffer int
}

// DefaultWSConfig returns the default feed client configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1024,
	}
}

// WSFeed is a WebSocket client for the event feed. One connection carries
// both channels; a subscribe message selects them. The client reconnects
// with exponential backoff and resubscribes after a drop.
type WSFeed struct {
	endpoint string
	apiKey   string
	config   WSConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	listings chan domain.TokenListing
	prices   chan domain.PriceUpdate

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSFeed connects to the feed endpoint and subscribes to both channels.
func NewWSFeed(ctx context.Context, endpoint, apiKey string, config *WSConfig, log zerolog.Logger) (*WSFeed, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	f := &WSFeed{
		endpoint: endpoint,
		apiKey:   apiKey,
		config:   cfg,
		log:      log.With().Str("component", "feed").Logger(),
		listings: make(chan domain.TokenListing, cfg.Buffer),
		prices:   make(chan domain.PriceUpdate, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}
	if err := f.subscribe(); err != nil {
		f.conn.Close()
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// Listings returns the listing stream view of the feed.
func (f *WSFeed) Listings() ListingStream { return listingView{f} }

// Prices returns the price stream view of the feed.
func (f *WSFeed) Prices() PriceStream { return priceView{f} }

type listingView struct{ f *WSFeed }

func (v listingView) Next(ctx context.Context) (domain.TokenListing, error) {
	return next(ctx, v.f.listings)
}

type priceView struct{ f *WSFeed }

func (v priceView) Next(ctx context.Context) (domain.PriceUpdate, error) {
	return next(ctx, v.f.prices)
}

func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	var header http.Header
	if f.apiKey != "" {
		header = http.Header{"Authorization": []string{"Bearer " + f.apiKey}}
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, header)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

type wsSubscribe struct {
	Method   string   `json:"method"`
	Channels []string `json:"channels"`
}

// subscribe requests both feed channels on the current connection.
func (f *WSFeed) subscribe() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("not connected")
	}

	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := f.conn.WriteJSON(wsSubscribe{
		Method:   "subscribe",
		Channels: []string{"listings", "prices"},
	}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close shuts the feed down and closes both stream channels.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()

	close(f.listings)
	close(f.prices)
	return nil
}

func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

func (f *WSFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.log.Warn().Err(err).Msg("reconnect failed")
		return
	}
	if err := f.subscribe(); err != nil {
		f.log.Warn().Err(err).Msg("resubscribe failed")
		return
	}
	f.log.Info().Msg("feed reconnected")
}

// Feed wire envelope and payloads.

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsListing struct {
	TokenAddress     string  `json:"token_address"`
	TokenSymbol      string  `json:"token_symbol"`
	TokenName        string  `json:"token_name"`
	Creator          string  `json:"creator"`
	PoolAddress      string  `json:"pool_address"`
	InitialLiquidity float64 `json:"initial_liquidity"` // SOL
	Timestamp        int64   `json:"timestamp"`
}

type wsPrice struct {
	TokenAddress string  `json:"token_address"`
	PriceSOL     float64 `json:"price_sol"`
	PriceUSD     float64 `json:"price_usd"`
	Liquidity    float64 `json:"liquidity"` // SOL
	Volume1h     float64 `json:"volume_1h"` // USD
	Direction    string  `json:"direction"`
	Timestamp    int64   `json:"timestamp"`
}

func (f *WSFeed) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.log.Debug().Err(err).Msg("unparseable feed message")
		return
	}

	switch env.Channel {
	case "listings":
		var raw wsListing
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			f.log.Debug().Err(err).Msg("bad listing payload")
			return
		}
		listing := domain.TokenListing{
			TokenAddress:     raw.TokenAddress,
			TokenSymbol:      raw.TokenSymbol,
			TokenName:        raw.TokenName,
			Creator:          raw.Creator,
			PoolAddress:      raw.PoolAddress,
			InitialLiquidity: uint64(raw.InitialLiquidity * 1e9),
			CreatedAt:        raw.Timestamp,
		}
		select {
		case f.listings <- listing:
		case <-f.done:
		}
	case "prices":
		var raw wsPrice
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			f.log.Debug().Err(err).Msg("bad price payload")
			return
		}
		update := domain.PriceUpdate{
			TokenAddress: raw.TokenAddress,
			PriceSOL:     raw.PriceSOL,
			PriceUSD:     raw.PriceUSD,
			Liquidity:    uint64(raw.Liquidity * 1e9),
			Volume1h:     raw.Volume1h,
			Timestamp:    raw.Timestamp,
			Direction:    parseDirection(raw.Direction),
		}
		select {
		case f.prices <- update:
		case <-f.done:
		}
	}
}

func parseDirection(s string) domain.PriceDirection {
	switch s {
	case "up":
		return domain.DirectionUp
	case "down":
		return domain.DirectionDown
	}
	return domain.DirectionFlat
}

func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A failed ping surfaces as a read error; the reader reconnects.
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
