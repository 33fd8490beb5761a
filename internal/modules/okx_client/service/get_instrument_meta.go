package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) loadInstruments(ctx context.Context) error {
	rows, err := fetch[Instrument](ctx, c, http.MethodGet, "/api/v5/public/instruments",
		url.Values{"instType": {"SWAP"}}, nil, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, r := range rows {
		c.instruments[r.InstID] = r
	}
	c.mu.Unlock()
	return nil
}

// instrument: из загруженного списка, иначе точечный запрос.
func (c *Client) instrument(ctx context.Context, instID string) (Instrument, error) {
	c.mu.RLock()
	inst, ok := c.instruments[instID]
	c.mu.RUnlock()
	if ok {
		return inst, nil
	}

	rows, err := fetch[Instrument](ctx, c, http.MethodGet, "/api/v5/public/instruments",
		url.Values{"instType": {"SWAP"}, "instId": {instID}}, nil, false)
	if err != nil {
		return Instrument{}, err
	}
	if len(rows) == 0 {
		return Instrument{}, fmt.Errorf("instrument %s not found", instID)
	}

	c.mu.Lock()
	c.instruments[instID] = rows[0]
	c.mu.Unlock()
	return rows[0], nil
}

func (c *Client) GetMarketInfo(ctx context.Context, symbol string) (*models.MarketInfo, bool) {
	key := exchange.Unified(symbol)
	if m, ok := c.markets.Get(key, c.cacheTTL); ok {
		metrics.CacheHit(Name, "market", true)
		return &m, true
	}
	metrics.CacheHit(Name, "market", false)

	m, err := c.loadMarket(ctx, symbol)
	if err != nil {
		logger.Error("[OKX] market info %s: %v", symbol, err)
		return nil, false
	}
	c.markets.Set(key, m)
	return &m, true
}

func (c *Client) loadMarket(ctx context.Context, symbol string) (models.MarketInfo, error) {
	instID := c.NormalizeSymbol(symbol)

	inst, err := c.instrument(ctx, instID)
	if err != nil {
		return models.MarketInfo{}, err
	}
	if inst.State != "" && inst.State != "live" {
		return models.MarketInfo{}, fmt.Errorf("instrument %s not live: state=%s", instID, inst.State)
	}

	parsePos := func(name, s string) (float64, error) {
		if s == "" {
			return 0, fmt.Errorf("%s empty", name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%s parse: %v (%q)", name, err, s)
		}
		return v, nil
	}

	lotSz, err := parsePos("lotSz", inst.LotSz)
	if err != nil {
		return models.MarketInfo{}, err
	}
	minSz, err := parsePos("minSz", inst.MinSz)
	if err != nil {
		return models.MarketInfo{}, err
	}
	tickSz, err := parsePos("tickSz", inst.TickSz)
	if err != nil {
		return models.MarketInfo{}, err
	}
	ctValBase, err := parsePos("ctVal", inst.CtVal)
	if err != nil {
		return models.MarketInfo{}, err
	}

	ctMult := 1.0
	if v := pf(inst.CtMult); v > 0 {
		ctMult = v
	}

	lastPx, err := c.getLastPrice(ctx, instID)
	if err != nil {
		return models.MarketInfo{}, fmt.Errorf("ticker: %w", err)
	}
	if lastPx <= 0 {
		return models.MarketInfo{}, fmt.Errorf("lastPx <= 0: %.10f", lastPx)
	}

	markPx, err := c.getMarkPrice(ctx, instID)
	if err != nil {
		logger.Debug("[OKX] mark price %s: %v", instID, err)
	}

	amountPrecision := int32(0)
	if lotSz < 1 {
		amountPrecision = decimals(lotSz)
	}

	base, quote := exchange.SplitSymbol(instID)
	return models.MarketInfo{
		Symbol:          base + "/" + quote,
		NativeSymbol:    instID,
		Base:            base,
		Quote:           quote,
		Type:            models.MarketSwap,
		PricePrecision:  decimals(tickSz),
		AmountPrecision: amountPrecision,
		TickSize:        tickSz,
		StepSize:        lotSz,
		MinAmount:       minSz,
		ContractSize:    ctValBase * ctMult,
		MaxMarketAmount: pf(inst.MaxMktSz),
		MaxLeverage:     c.maxLeverage(ctx, instID, inst),
		LastPrice:       lastPx,
		MarkPrice:       markPx,
		UpdatedAt:       c.now(),
	}, nil
}

func (c *Client) getLastPrice(ctx context.Context, instID string) (float64, error) {
	rows, err := fetch[tickerRow](ctx, c, http.MethodGet, "/api/v5/market/ticker",
		url.Values{"instId": {instID}}, nil, false)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("ticker %s: empty data", instID)
	}
	return pf(rows[0].Last), nil
}

func (c *Client) getMarkPrice(ctx context.Context, instID string) (float64, error) {
	rows, err := fetch[markPriceRow](ctx, c, http.MethodGet, "/api/v5/public/mark-price",
		url.Values{"instType": {"SWAP"}, "instId": {instID}}, nil, false)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("mark price %s: empty data", instID)
	}
	return pf(rows[0].MarkPx), nil
}

// priceLimit: коридор цен лимитных ордеров (buyLmt сверху, sellLmt снизу).
func (c *Client) priceLimit(ctx context.Context, instID string) (buyLmt, sellLmt float64, err error) {
	rows, err := fetch[priceLimitRow](ctx, c, http.MethodGet, "/api/v5/public/price-limit",
		url.Values{"instId": {instID}}, nil, false)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("price limit %s: empty data", instID)
	}
	return pf(rows[0].BuyLmt), pf(rows[0].SellLmt), nil
}

// clampLimitPrice: buy выше buyLmt -> buyLmt, sell ниже sellLmt -> sellLmt.
func (c *Client) clampLimitPrice(ctx context.Context, m models.MarketInfo, side models.Side, px float64) float64 {
	buyLmt, sellLmt, err := c.priceLimit(ctx, m.NativeSymbol)
	if err != nil {
		logger.Warn("[OKX] price limit %s: %v", m.NativeSymbol, err)
		return px
	}
	switch {
	case side == models.SideBuy && buyLmt > 0 && px > buyLmt:
		logger.Warn("[OKX] %s limit price %v exceeds max buy %v, clamping", m.NativeSymbol, px, buyLmt)
		return buyLmt
	case side == models.SideSell && sellLmt > 0 && px < sellLmt:
		logger.Warn("[OKX] %s limit price %v below min sell %v, clamping", m.NativeSymbol, px, sellLmt)
		return sellLmt
	}
	return px
}

// decimals: 0.01 -> 2, 1 -> 0.
func decimals(step float64) int32 {
	exp := decimal.NewFromFloat(step).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}
