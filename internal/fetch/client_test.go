package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanner-go/internal/config"
)

func testCfg() *config.Config {
	return &config.Config{
		FetchMaxRetries:  2,
		FetchTimeout:     2 * time.Second,
		FetchBackoffBase: 5 * time.Millisecond,
		FetchBackoffCap:  20 * time.Millisecond,
		CircuitFailures:  3,
		CircuitOpenFor:   50 * time.Millisecond,
	}
}

func TestFetchMarketCatalogDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m1","question":"Will it?","category":"crypto","yes_token_id":"y1","no_token_id":"n1","yes_price":0.4,"no_price":0.6,"liquidity":5000,"settlement_ts":1700000000,"closed":false,"tags":["btc"]}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	markets, err := c.FetchMarketCatalog(t.Context(), "series1", 10)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].ID)
	assert.Equal(t, 0.4, markets[0].YesPrice)
	assert.Equal(t, []string{"btc"}, markets[0].Tags)
}

func TestFetchBestPriceParsesBareFloat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`0.57`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	price, err := c.FetchBestPrice(t.Context(), "tok1", "buy")
	require.NoError(t, err)
	assert.Equal(t, 0.57, price)
}

func TestFetchBestPriceParsesWrappedDecimalString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"0.6321"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	price, err := c.FetchBestPrice(t.Context(), "tok1", "sell")
	require.NoError(t, err)
	assert.Equal(t, 0.6321, price)
}

func TestFetchOrderbookParsesLevelsAndSkipsBadRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bids":[{"price":"0.49","size":"100"},{"price":"bad","size":"10"}],"asks":[{"price":"0.51","size":"80"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	bids, asks, err := c.FetchOrderbook(t.Context(), "tok1")
	require.NoError(t, err)
	require.Len(t, bids, 1, "the malformed row must be skipped, not fail the whole call")
	assert.Equal(t, 0.49, bids[0].Price)
	require.Len(t, asks, 1)
	assert.Equal(t, 0.51, asks[0].Price)
}

func TestDoJSONTerminalErrorNeverRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	_, err := c.FetchBestPrice(t.Context(), "tok1", "buy")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 404 is terminal and must not be retried")
}

func TestDoJSONRetriesTransientErrorsThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`0.5`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	price, err := c.FetchBestPrice(t.Context(), "tok1", "buy")
	require.NoError(t, err)
	assert.Equal(t, 0.5, price)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestCircuitOpensAfterConsecutiveFailuresAndServesFallback(t *testing.T) {
	cfg := testCfg()
	cfg.FetchMaxRetries = 0 // one attempt per call, no in-call retry noise
	cfg.CircuitFailures = 1

	failing := false
	srv :=httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`0.42`))
	}))
	defer srv.Close()

	c := New(srv.URL, cfg)

	// First succeeds, seeding the fallback cache.
	_, err := c.FetchBestPrice(t.Context(), "tok1", "buy")
	require.NoError(t, err)

	failing = true
	// Enough consecutive failures to trip the breaker (CircuitFailures=1 means >1 consecutive failure trips it).
	for i := 0; i < 3; i++ {
		c.FetchBestPrice(t.Context(), "tok1", "buy")
	}

	price, err := c.FetchBestPrice(t.Context(), "tok1", "buy")
	require.NoError(t, err, "an open circuit with a cached fallback must not surface an error")
	assert.Equal(t, 0.42, price)
}

func TestHealthReflectsCallCountsAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`0.5`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	c.FetchBestPrice(t.Context(), "tok1", "buy")
	c.FetchBestPrice(t.Context(), "tok1", "buy")

	h := c.Health("price")
	assert.Equal(t, 2, h.TotalCalls)
	assert.Equal(t, 0, h.ErrorCount)
}

func TestParseKlineRejectsShortArray(t *testing.T) {
	_, ok := parseKline([]any{1.0, "2"})
	assert.False(t, ok)
}

func TestParseKlineRejectsInconsistentHighLow(t *testing.T) {
	raw := []any{1700000000000.0, "100", "90", "110", "100", "5"} // high < low
	_, ok := parseKline(raw)
	assert.False(t, ok)
}

func TestParseKlineParsesValidRow(t *testing.T) {
	raw := []any{1700000000000.0, "100", "110", "95", "105", "12.5"}
	candle, ok := parseKline(raw)
	require.True(t, ok)
	assert.Equal(t, 100.0, candle.Open)
	assert.Equal(t, 110.0, candle.High)
	assert.Equal(t, 95.0, candle.Low)
	assert.Equal(t, 105.0, candle.Close)
	assert.Equal(t, 12.5, candle.Volume)
}

func TestFetchKlinesSkipsInvalidRowsWithoutFailingBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"100","110","95","105","12.5"],[1.0]]`))
	}))
	defer srv.Close()

	c := New(srv.URL, testCfg())
	candles, err := c.FetchKlines(t.Context(), "BTCUSDT", "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 105.0, candles[0].Close)
}
