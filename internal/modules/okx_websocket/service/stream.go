package service

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"trade_executor/internal/exchange"
	"trade_executor/pkg/logger"
)

const (
	channelMarkPrice = "mark-price"

	DefaultURL = "wss://ws.okx.com:8443/ws/v5/public"
	TestnetURL = "wss://wspap.okx.com:8443/ws/v5/public"

	// без ping OKX рвёт соединение через 30s тишины
	pingEvery      = 20 * time.Second
	reconnectDelay = time.Second
)

type frame struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		MarkPx string `json:"markPx"`
		Ts     string `json:"ts"`
	} `json:"data"`
}

// Stream: публичный WebSocket OKX на канал mark-price, пишет цены в PriceBook.
type Stream struct {
	url    string
	dialer *websocket.Dialer
	book   *PriceBook

	mu      sync.Mutex
	watched map[string]struct{} // instId
	conn    *websocket.Conn
	writeMu sync.Mutex

	connected atomic.Bool
	onState   func(bool)
}

func NewStream(url string, book *PriceBook) *Stream {
	if url == "" {
		url = DefaultURL
	}
	return &Stream{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		book:    book,
		watched: make(map[string]struct{}),
	}
}

// OnState: колбэк на подключение/обрыв.
func (s *Stream) OnState(fn func(connected bool)) { s.onState = fn }

func (s *Stream) Connected() bool { return s.connected.Load() }

func (s *Stream) Book() *PriceBook { return s.book }

// Mark: последняя mark price из стрима, если она не старше maxAge.
func (s *Stream) Mark(symbol string, maxAge time.Duration) (float64, bool) {
	return s.book.Mark(symbol, maxAge)
}

// Watch добавляет символы в подписку. На живом соединении подписывает сразу.
func (s *Stream) Watch(symbols ...string) {
	fresh := make([]string, 0, len(symbols))

	s.mu.Lock()
	for _, sym := range symbols {
		id := instID(sym)
		if _, ok := s.watched[id]; ok {
			continue
		}
		s.watched[id] = struct{}{}
		fresh = append(fresh, id)
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil || len(fresh) == 0 {
		return
	}
	if err := s.write(conn, subscribeMsg(fresh)); err != nil {
		logger.Warn("[WS] subscribe %v: %v", fresh, err)
	}
}

func (s *Stream) watchList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watched))
	for id := range s.watched {
		out = append(out, id)
	}
	return out
}

// Run держит соединение до отмены ctx, после обрыва переподключается.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.session(ctx); err != nil {
			logger.Warn("[WS] %s: %v", s.url, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	logger.Info("[WS] connect %s", s.url)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setConnected(true)

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.setConnected(false)
		_ = conn.Close()
	}()

	if ids := s.watchList(); len(ids) > 0 {
		if err := s.write(conn, subscribeMsg(ids)); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				// разбудить ReadMessage
				_ = conn.Close()
				return
			case <-done:
				return
			case <-t.C:
				s.writeMu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				s.writeMu.Unlock()
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handle(msg)
	}
}

// handle разбирает кадр; pong и служебные события пропускаются.
func (s *Stream) handle(msg []byte) {
	if string(msg) == "pong" {
		return
	}

	var f frame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		logger.Debug("[WS] bad frame: %v", err)
		return
	}
	switch f.Event {
	case "":
	case "error":
		logger.Warn("[WS] error event: %s", f.Msg)
		return
	default:
		return
	}
	if f.Arg.Channel != channelMarkPrice {
		return
	}

	for _, d := range f.Data {
		px, err := strconv.ParseFloat(d.MarkPx, 64)
		if err != nil || px <= 0 {
			continue
		}
		var at time.Time
		if ms, err := strconv.ParseInt(d.Ts, 10, 64); err == nil && ms > 0 {
			at = time.UnixMilli(ms)
		}
		id := d.InstID
		if id == "" {
			id = f.Arg.InstID
		}
		s.book.Set(exchange.Unified(id), px, at)
	}
}

func (s *Stream) write(conn *websocket.Conn, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Stream) setConnected(v bool) {
	s.connected.Store(v)
	if s.onState != nil {
		s.onState(v)
	}
}

func subscribeMsg(ids []string) map[string]any {
	args := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, map[string]string{"channel": channelMarkPrice, "instId": id})
	}
	return map[string]any{"op": "subscribe", "args": args}
}

// instID: BTC/USDT -> BTC-USDT-SWAP
func instID(symbol string) string {
	base, quote := exchange.SplitSymbol(symbol)
	return base + "-" + quote + "-SWAP"
}
