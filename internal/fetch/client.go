// Package fetch implements C1: resilient, rate-limited HTTP clients
// for the prediction exchange and the macro price source, each
// fronted by a per-source circuit breaker and health metrics.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"scanner-go/internal/config"
	"scanner-go/internal/indicator"
	"scanner-go/internal/model"
)

// ErrCircuitOpen is returned when a source's circuit breaker is open
// and no cached fallback is available.
var ErrCircuitOpen = fmt.Errorf("circuit_open")

// terminalError marks a 404/401-style response as non-retryable.
type terminalError struct {
	status int
	body   string
}

func (e *terminalError) Error() string {
	return fmt.Sprintf("terminal status %d: %s", e.status, e.body)
}

func isTerminal(err error) bool {
	_, ok := err.(*terminalError)
	return ok
}

const latencyWindowSize = 20

// SourceHealth is the per-source health snapshot spec.md §4.1 requires.
type SourceHealth struct {
	TotalCalls        int
	ErrorCount        int
	ConsecutiveErrors int
	RecentLatencies   []time.Duration
	LastError         time.Time
	CircuitState      gobreaker.State
}

type sourceState struct {
	mu       sync.Mutex
	health   SourceHealth
	breaker  *gobreaker.CircuitBreaker
	lastGood any // cached fallback payload for the open-circuit path
}

// Client wraps one base URL with named-source rate limiting, retry,
// and circuit breaking.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cfg     *config.Config

	mu      sync.Mutex
	sources map[string]*sourceState
}

// New builds a client against baseURL using cfg's retry/timeout/circuit settings.
func New(baseURL string, cfg *config.Config) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: cfg.FetchTimeout},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		cfg:     cfg,
		sources: make(map[string]*sourceState),
	}
}

func (c *Client) sourceFor(name string) *sourceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sources[name]
	if ok {
		return s
	}
	s = &sourceState{}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: c.cfg.CircuitOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > uint32(c.cfg.CircuitFailures)
		},
	})
	c.sources[name] = s
	return s
}

// Health returns the current health snapshot for a named source.
func (c *Client) Health(name string) SourceHealth {
	s := c.sourceFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.health
	h.CircuitState = s.breaker.State()
	return h
}

func (s *sourceState) recordCall(latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health.TotalCalls++
	s.health.RecentLatencies = append(s.health.RecentLatencies, latency)
	if len(s.health.RecentLatencies) > latencyWindowSize {
		s.health.RecentLatencies = s.health.RecentLatencies[len(s.health.RecentLatencies)-latencyWindowSize:]
	}
	if err != nil {
		s.health.ErrorCount++
		s.health.ConsecutiveErrors++
		s.health.LastError = time.Now()
	} else {
		s.health.ConsecutiveErrors = 0
	}
}

// doJSON performs one GET with retry/backoff/circuit-breaking and
// decodes the JSON body into out. sourceName groups rate limiting,
// the circuit breaker, and health metrics.
func (c *Client) doJSON(ctx context.Context, sourceName, url string, out any) error {
	state := c.sourceFor(sourceName)

	result, err := state.breaker.Execute(func() (any, error) {
		return c.retryingGet(ctx, state, url)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			if state.lastGood != nil {
				log.Printf("⚠️  [fetch] circuit open for %s, serving cached fallback", sourceName)
				return assign(out, state.lastGood)
			}
			return ErrCircuitOpen
		}
		return err
	}

	body := result.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", sourceName, err)
	}
	state.lastGood = out
	return nil
}

func assign(out, cached any) error {
	b, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// retryingGet issues the GET with exponential backoff + jitter,
// extending the backoff 3x on rate-limit responses and terminating
// immediately on 404/401.
func (c *Client) retryingGet(ctx context.Context, state *sourceState, url string) ([]byte, error) {
	backoff := c.cfg.FetchBackoffBase

	var lastErr error
	for attempt := 0; attempt <= c.cfg.FetchMaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		body, rateLimited, err := c.get(ctx, url)
		state.recordCall(time.Since(start), err)

		if err == nil {
			return body, nil
		}
		if isTerminal(err) {
			return nil, err
		}

		lastErr = err
		if rateLimited {
			backoff *= 3
		} else {
			backoff *= 2
		}
		if backoff > c.cfg.FetchBackoffCap {
			backoff = c.cfg.FetchBackoffCap
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) get(ctx context.Context, url string) (body []byte, rateLimited bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return respBody, false, nil
	case http.StatusNotFound, http.StatusUnauthorized:
		return nil, false, &terminalError{status: resp.StatusCode, body: string(respBody)}
	case http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited: %s", resp.Status)
	default:
		return nil, false, fmt.Errorf("upstream error %s: %s", resp.Status, string(respBody))
	}
}

// --- Prediction exchange contract (spec.md §6) ---

type marketsResponse []struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Category  string   `json:"category"`
	YesToken  string   `json:"yes_token_id"`
	NoToken   string   `json:"no_token_id"`
	YesPrice  float64  `json:"yes_price"`
	NoPrice   float64  `json:"no_price"`
	Liquidity float64  `json:"liquidity"`
	SettlesAt int64    `json:"settlement_ts"`
	Closed    bool     `json:"closed"`
	Tags      []string `json:"tags"`
}

// FetchMarketCatalog fetches a series' event/market list.
func (c *Client) FetchMarketCatalog(ctx context.Context, seriesID string, limit int) ([]model.Market, error) {
	url := fmt.Sprintf("%s/markets?seriesId=%s&limit=%d", c.baseURL, seriesID, limit)

	var resp marketsResponse
	if err := c.doJSON(ctx, "markets", url, &resp); err != nil {
		return nil, err
	}

	markets := make([]model.Market, 0, len(resp))
	for _, m := range resp {
		markets = append(markets, model.Market{
			ID:           m.ID,
			Question:     m.Question,
			Category:     m.Category,
			YesTokenID:   m.YesToken,
			NoTokenID:    m.NoToken,
			YesPrice:     m.YesPrice,
			NoPrice:      m.NoPrice,
			Liquidity:    m.Liquidity,
			SettlesAt:    time.Unix(m.SettlesAt, 0),
			Closed:       m.Closed,
			Tags:         m.Tags,
			DiscoveredAt: time.Now(),
		})
	}
	return markets, nil
}

// FetchBestPrice fetches the best bid (side="sell") or ask (side="buy")
// scalar for a token.
func (c *Client) FetchBestPrice(ctx context.Context, tokenID, side string) (float64, error) {
	url := fmt.Sprintf("%s/price?market=%s&side=%s", c.baseURL, tokenID, side)

	var raw json.RawMessage
	if err := c.doJSON(ctx, "price", url, &raw); err != nil {
		return 0, err
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return asFloat, nil
	}

	var wrapped struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	d, err := decimal.NewFromString(wrapped.Price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", wrapped.Price, err)
	}
	f, _ := d.Float64()
	return f, nil
}

type bookResponse struct {
	Bids []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"bids"`
	Asks []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"asks"`
}

// FetchOrderbook fetches the full summarized orderbook for a token,
// parsing price/size strings via shopspring/decimal to avoid the
// precision loss a direct float64 parse of exchange JSON can introduce.
func (c *Client) FetchOrderbook(ctx context.Context, tokenID string) (bids, asks []indicator.BookLevel, err error) {
	url := fmt.Sprintf("%s/book?market=%s", c.baseURL, tokenID)

	var resp bookResponse
	if err := c.doJSON(ctx, "book", url, &resp); err != nil {
		return nil, nil, err
	}

	parseLevels := func(raw []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	}) []indicator.BookLevel {
		levels := make([]indicator.BookLevel, 0, len(raw))
		for _, l := range raw {
			price, err1 := decimal.NewFromString(l.Price)
			size, err2 := decimal.NewFromString(l.Size)
			if err1 != nil || err2 != nil {
				continue
			}
			p, _ := price.Float64()
			s, _ := size.Float64()
			levels = append(levels, indicator.BookLevel{Price: p, Size: s})
		}
		return levels
	}

	return parseLevels(resp.Bids), parseLevels(resp.Asks), nil
}

type priceHistoryResponse struct {
	History []struct {
		T int64   `json:"t"`
		P float64 `json:"p"`
	} `json:"history"`
}

// FetchPriceHistory fetches a tick-price history for a token and lets
// the caller bucket it into synthetic candles (non-crypto markets).
func (c *Client) FetchPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) ([]model.Candle, error) {
	url := fmt.Sprintf("%s/prices-history?market=%s&interval=%s&fidelity=%d", c.baseURL, tokenID, interval, fidelity)

	var resp priceHistoryResponse
	if err := c.doJSON(ctx, "history", url, &resp); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(resp.History))
	for _, pt := range resp.History {
		candles = append(candles, model.Candle{
			Start:  time.Unix(pt.T, 0),
			Open:   pt.P,
			High:   pt.P,
			Low:    pt.P,
			Close:  pt.P,
			Volume: 1, // synthetic candles count ticks, not USD (spec.md §3)
		})
	}
	return candles, nil
}

// --- Macro price source (spec.md §6) ---

// parseKline mirrors the teacher's defensive per-field parsing of
// the Binance-style kline array shape.
func parseKline(raw []any) (model.Candle, bool) {
	if len(raw) < 6 {
		return model.Candle{}, false
	}

	openTime, ok := raw[0].(float64)
	if !ok {
		return model.Candle{}, false
	}

	toFloat := func(v any) (float64, bool) {
		s, ok := v.(string)
		if !ok {
			return 0, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	}

	open, ok1 := toFloat(raw[1])
	high, ok2 := toFloat(raw[2])
	low, ok3 := toFloat(raw[3])
	close_, ok4 := toFloat(raw[4])
	volume, ok5 := toFloat(raw[5])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return model.Candle{}, false
	}
	if high < low || high < open || high < close_ || low > open || low > close_ {
		return model.Candle{}, false
	}

	return model.Candle{
		Start:  time.UnixMilli(int64(openTime)),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close_,
		Volume: volume,
	}, true
}

// FetchKlines fetches the macro symbol's OHLCV series. Any kline that
// fails validation is skipped rather than failing the whole call —
// the all-or-nothing decode only ever fails the batch on a malformed
// JSON envelope, never on one bad row.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", c.baseURL, symbol, interval, limit)

	var raw [][]any
	if err := c.doJSON(ctx, "macro", url, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for idx, k := range raw {
		candle, ok := parseKline(k)
		if !ok {
			log.Printf("⚠️  [fetch] skipping invalid macro kline at index %d", idx)
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}
