package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MacroPriceStream is a non-blocking, read-last-price-only WS client
// for the macro symbol's trade stream. It sits in front of the REST
// klines poll: callers prefer LastPrice when fresh, and fall back to
// the REST candle close transparently when the stream is down or
// stale. It never retries trades, never replays history, and never
// blocks a caller — Run owns the only goroutine that touches the
// connection.
type MacroPriceStream struct {
	url    string
	symbol string

	mu        sync.RWMutex
	lastPrice float64
	updatedAt time.Time
}

// NewMacroPriceStream builds a stream for symbol against baseURL
// (e.g. "wss://stream.binance.com:9443/ws"). Nothing connects until
// Run is called.
func NewMacroPriceStream(baseURL, symbol string) *MacroPriceStream {
	return &MacroPriceStream{url: streamURL(baseURL, symbol), symbol: symbol}
}

func streamURL(baseURL, symbol string) string {
	return fmt.Sprintf("%s/%s@trade", strings.TrimRight(baseURL, "/"), strings.ToLower(symbol))
}

// LastPrice returns the most recently observed trade price and how
// long ago it was seen. ok is false until the first message arrives.
func (s *MacroPriceStream) LastPrice(now time.Time) (price float64, age time.Duration, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updatedAt.IsZero() {
		return 0, 0, false
	}
	return s.lastPrice, now.Sub(s.updatedAt), true
}

// Run connects and reconnects with jittered backoff until ctx is
// done. Safe to run as a long-lived background goroutine; a dropped
// connection never surfaces as an error to callers of LastPrice, it
// just stops refreshing until reconnected.
func (s *MacroPriceStream) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.connectAndRead(ctx); err != nil {
			log.Printf("⚠️  [fetch] macro price stream for %s disconnected: %v", s.symbol, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff/2+1)))):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *MacroPriceStream) connectAndRead(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Printf("✅ [fetch] macro price stream connected: %s", s.symbol)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleTrade(data)
	}
}

type tradeMessage struct {
	Price string `json:"p"`
}

func (s *MacroPriceStream) handleTrade(data []byte) {
	var msg tradeMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Price == "" {
		return
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.lastPrice = price
	s.updatedAt = time.Now()
	s.mu.Unlock()
}
