package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURLLowercasesSymbolAndTrimsSlash(t *testing.T) {
	assert.Equal(t, "wss://host/ws/btcusdt@trade", streamURL("wss://host/ws/", "BTCUSDT"))
	assert.Equal(t, "wss://host/ws/btcusdt@trade", streamURL("wss://host/ws", "BTCUSDT"))
}

func TestLastPriceBeforeFirstMessageIsNotOK(t *testing.T) {
	s := NewMacroPriceStream("wss://unused", "BTCUSDT")
	_, _, ok := s.LastPrice(time.Now())
	assert.False(t, ok)
}

func TestHandleTradeUpdatesLastPriceAndAge(t *testing.T) {
	s := NewMacroPriceStream("wss://unused", "BTCUSDT")
	s.handleTrade([]byte(`{"p":"101.5"}`))

	price, age, ok := s.LastPrice(time.Now())
	require.True(t, ok)
	assert.Equal(t, 101.5, price)
	assert.Less(t, age, time.Second)
}

func TestHandleTradeIgnoresMalformedPayload(t *testing.T) {
	s := NewMacroPriceStream("wss://unused", "BTCUSDT")
	s.handleTrade([]byte(`not json`))
	_, _, ok := s.LastPrice(time.Now())
	assert.False(t, ok)

	s.handleTrade([]byte(`{"p":""}`))
	_, _, ok = s.LastPrice(time.Now())
	assert.False(t, ok)

	s.handleTrade([]byte(`{"p":"not-a-number"}`))
	_, _, ok = s.LastPrice(time.Now())
	assert.False(t, ok)
}

func TestRunConnectsAndTracksTradesUntilContextCancelled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"p":"99.9"}`))
		<-r.Context().Done()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewMacroPriceStream(wsURL, "BTCUSDT")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, _, ok := s.LastPrice(time.Now())
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	price, _, ok := s.LastPrice(time.Now())
	require.True(t, ok)
	assert.Equal(t, 99.9, price)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after context cancellation")
	}
}
