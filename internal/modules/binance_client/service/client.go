package service

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"

	"trade_executor/internal/cache"
	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/internal/ratelimit"
	"trade_executor/pkg/logger"
)

const (
	Name = "binance"

	testnetURL      = "https://testnet.binancefuture.com"
	defaultCacheTTL = 5 * time.Second
	bracketsTTL     = 10 * time.Minute
)

// Client: Binance USDT-M futures через go-binance.
type Client struct {
	api     *futures.Client
	testnet bool

	limiter  *ratelimit.Interval
	now      func() time.Time
	cacheTTL time.Duration

	ready atomic.Bool

	mu        sync.RWMutex
	symbols   map[string]futures.Symbol // BTCUSDT -> exchange info
	dualSide  bool

	markets   *cache.TTL[string, models.MarketInfo]
	balances  *cache.TTL[string, models.AccountBalance]
	positions *cache.TTL[string, []models.PositionInfo]
	brackets  *cache.TTL[string, []models.LeverageBracket]
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.api.BaseURL = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.api.HTTPClient.Timeout = d
		}
	}
}

func WithProxy(raw string) Option {
	return func(c *Client) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil {
			logger.Warn("[BINANCE] bad proxy url %q: %v", raw, err)
			return
		}
		c.api.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
}

func WithRateInterval(d time.Duration) Option {
	return func(c *Client) { c.limiter = ratelimit.NewInterval(d) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(creds models.Credentials, opts ...Option) *Client {
	api := futures.NewClient(creds.APIKey, creds.APISecret)
	// UseTestnet у go-binance глобальный, поэтому адрес задаём клиенту напрямую
	if creds.Testnet {
		api.BaseURL = testnetURL
	}
	api.HTTPClient = &http.Client{Timeout: 10 * time.Second}

	c := &Client{
		api:      api,
		testnet:  creds.Testnet,
		limiter:  ratelimit.NewInterval(ratelimit.BinanceInterval),
		now:      time.Now,
		cacheTTL: defaultCacheTTL,
		symbols:  make(map[string]futures.Symbol),
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

// Initialize: exchange info, проверка ключей балансом, режим позиций.
func (c *Client) Initialize(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	if c.api.APIKey == "" || c.api.SecretKey == "" {
		return errors.Wrap(exchange.ErrExchangeNotConfigured, "binance: empty api key/secret")
	}

	logger.Info("[BINANCE] initializing, testnet=%v", c.testnet)

	if err := c.loadExchangeInfo(ctx); err != nil {
		return errors.Wrap(err, "binance: exchange info")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.NewGetBalanceService().Do(ctx); err != nil {
		return errors.Wrap(err, "binance: credentials check")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if mode, err := c.api.NewGetPositionModeService().Do(ctx); err != nil {
		logger.Warn("[BINANCE] position mode: %v", err)
	} else {
		c.mu.Lock()
		c.dualSide = mode.DualSidePosition
		c.mu.Unlock()
	}

	c.ready.Store(true)
	logger.Info("[BINANCE] ready: symbols=%d dualSide=%v", c.symbolCount(), c.DualSide())
	return nil
}

func (c *Client) Close() error {
	c.ready.Store(false)
	c.markets.Clear()
	c.Invalidate()
	c.api.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *Client) Invalidate() {
	c.positions.Clear()
	c.balances.Clear()
}

// NormalizeSymbol: BTC/USDT -> BTCUSDT.
func (c *Client) NormalizeSymbol(symbol string) string {
	base, quote := exchange.SplitSymbol(symbol)
	return base + quote
}

// DualSide: hedge mode (LONG/SHORT позиции раздельно).
func (c *Client) DualSide() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dualSide
}

func (c *Client) symbolCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.symbols)
}

var (
	_ exchange.Client           = (*Client)(nil)
	_ exchange.Invalidator      = (*Client)(nil)
	_ exchange.MarginTransferer = (*Client)(nil)
)
