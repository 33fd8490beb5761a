package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceBook_MaxAge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewPriceBook()
	b.now = func() time.Time { return now }

	b.Set("BTC-USDT-SWAP", 50000, now.Add(-2*time.Second))

	px, ok := b.Mark("BTC/USDT", 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, 50000.0, px)

	_, ok = b.Mark("BTC/USDT", 2*time.Second)
	assert.False(t, ok, "age equal to maxAge is stale")

	_, ok = b.Mark("ETH/USDT", time.Minute)
	assert.False(t, ok)
}

func TestPriceBook_OlderFrameIgnored(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewPriceBook()
	b.now = func() time.Time { return now }

	b.Set("BTC/USDT", 50100, now)
	b.Set("BTC/USDT", 49900, now.Add(-time.Second))
	b.Set("BTC/USDT", -1, now)

	px, ok := b.Mark("BTC/USDT", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 50100.0, px)
}

func TestStream_Handle(t *testing.T) {
	s := NewStream("", NewPriceBook())

	s.handle([]byte("pong"))
	s.handle([]byte(`{"event":"subscribe","arg":{"channel":"mark-price","instId":"BTC-USDT-SWAP"}}`))
	s.handle([]byte(`{"arg":{"channel":"tickers","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","markPx":"1"}]}`))
	assert.Equal(t, 0, s.Book().Len())

	ts := time.Now().UnixMilli()
	s.handle([]byte(`{"arg":{"channel":"mark-price","instId":"ETH-USDT-SWAP"},"data":[{"instId":"ETH-USDT-SWAP","markPx":"3000.5","ts":"` +
		strconv.FormatInt(ts, 10) + `"}]}`))

	px, ok := s.Book().Mark("ETH/USDT", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 3000.5, px)
}

func TestStream_SubscribesAndReconnects(t *testing.T) {
	var (
		mu   sync.Mutex
		subs []string
	)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		mu.Lock()
		subs = append(subs, string(msg))
		mu.Unlock()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"arg":{"channel":"mark-price","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","markPx":"50000"}]}`))
		// закрываем: клиент должен переподключиться и подписаться снова
	}))
	defer srv.Close()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), NewPriceBook())
	s.Watch("BTC/USDT")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(subs) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	px, ok := s.Book().Mark("BTC/USDT", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 50000.0, px)

	mu.Lock()
	assert.Contains(t, subs[0], `"op":"subscribe"`)
	assert.Contains(t, subs[0], `"instId":"BTC-USDT-SWAP"`)
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop")
	}
	assert.False(t, s.Connected())
}
