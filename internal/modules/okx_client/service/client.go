package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"trade_executor/internal/cache"
	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/internal/ratelimit"
	"trade_executor/pkg/logger"
)

const (
	Name = "okx"

	defaultBaseURL  = "https://www.okx.com"
	defaultCacheTTL = 5 * time.Second
	bracketsTTL     = 10 * time.Minute
)

type PosMode string

const (
	PosModeLongShort PosMode = "long_short"
	PosModeNet       PosMode = "net"
)

// Client: OKX USDT-swap через подписанный REST.
type Client struct {
	apiKey    string
	apiSecret string
	passph    string
	testnet   bool

	baseURL  string
	http     *http.Client
	limiter  *ratelimit.Interval
	now      func() time.Time
	cacheTTL time.Duration

	ready atomic.Bool

	mu          sync.RWMutex
	instruments map[string]Instrument // instId -> meta
	posMode     PosMode

	markets   *cache.TTL[string, models.MarketInfo]
	balances  *cache.TTL[string, models.AccountBalance]
	positions *cache.TTL[string, []models.PositionInfo]
	brackets  *cache.TTL[string, []models.LeverageBracket]
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithProxy: пустая строка ничего не меняет.
func WithProxy(raw string) Option {
	return func(c *Client) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil {
			logger.Warn("[OKX] bad proxy url %q: %v", raw, err)
			return
		}
		c.http.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
}

func WithRateInterval(d time.Duration) Option {
	return func(c *Client) { c.limiter = ratelimit.NewInterval(d) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

// WithPosMode: режим позиций без запроса /account/config.
func WithPosMode(m PosMode) Option {
	return func(c *Client) { c.posMode = m }
}

func NewClient(creds models.Credentials, opts ...Option) *Client {
	c := &Client{
		apiKey:      creds.APIKey,
		apiSecret:   creds.APISecret,
		passph:      creds.Passphrase,
		testnet:     creds.Testnet,
		baseURL:     defaultBaseURL,
		http:        &http.Client{Timeout: 10 * time.Second},
		limiter:     ratelimit.NewInterval(ratelimit.OKXInterval),
		now:         time.Now,
		cacheTTL:    defaultCacheTTL,
		instruments: make(map[string]Instrument),
		posMode:     PosModeNet,
	}
	for _, o := range opts {
		o(c)
	}

	c.markets = cache.New(cache.WithClock[string, models.MarketInfo](c.now))
	c.balances = cache.New(cache.WithClock[string, models.AccountBalance](c.now))
	c.positions = cache.New(cache.WithClock[string, []models.PositionInfo](c.now))
	c.brackets = cache.New(cache.WithClock[string, []models.LeverageBracket](c.now))
	return c
}

func (c *Client) Name() string { return Name }

// Initialize: проверка ключей, загрузка SWAP инструментов, режим позиций. Повторный вызов — no-op.
func (c *Client) Initialize(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	if c.apiKey == "" || c.apiSecret == "" {
		return errors.Wrap(exchange.ErrExchangeNotConfigured, "okx: empty api key/secret")
	}

	logger.Info("[OKX] initializing, testnet=%v", c.testnet)

	if _, err := fetch[balanceRow](ctx, c, http.MethodGet, "/api/v5/account/balance", nil, nil, true); err != nil {
		return errors.Wrap(err, "okx: credentials check")
	}
	if err := c.loadInstruments(ctx); err != nil {
		return errors.Wrap(err, "okx: load instruments")
	}
	c.detectPosMode(ctx)

	c.ready.Store(true)
	logger.Info("[OKX] ready: instruments=%d posMode=%s", c.instrumentCount(), c.PosMode())
	return nil
}

func (c *Client) Close() error {
	c.ready.Store(false)
	c.markets.Clear()
	c.Invalidate()
	c.http.CloseIdleConnections()
	return nil
}

// Invalidate: следующее чтение позиций/баланса пойдёт на биржу.
func (c *Client) Invalidate() {
	c.positions.Clear()
	c.balances.Clear()
}

// NormalizeSymbol: BTC/USDT -> BTC-USDT-SWAP.
func (c *Client) NormalizeSymbol(symbol string) string {
	base, quote := exchange.SplitSymbol(symbol)
	return base + "-" + quote + "-SWAP"
}

func (c *Client) PosMode() PosMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.posMode
}

func (c *Client) detectPosMode(ctx context.Context) {
	rows, err := fetch[accountConfigRow](ctx, c, http.MethodGet, "/api/v5/account/config", nil, nil, true)
	if err != nil || len(rows) == 0 {
		logger.Warn("[OKX] unable to fetch position mode, keep %s: %v", c.PosMode(), err)
		return
	}

	pm := strings.ToLower(rows[0].PosMode)
	c.mu.Lock()
	switch {
	case strings.HasPrefix(pm, "long"):
		c.posMode = PosModeLongShort
	case strings.HasPrefix(pm, "net"):
		c.posMode = PosModeNet
	}
	c.mu.Unlock()
}

func (c *Client) instrumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instruments)
}

var (
	_ exchange.Client      = (*Client)(nil)
	_ exchange.Invalidator = (*Client)(nil)
)
