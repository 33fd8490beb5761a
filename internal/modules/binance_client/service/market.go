package service

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) loadExchangeInfo(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, s := range info.Symbols {
		if s.ContractType != "" && s.ContractType != "PERPETUAL" {
			continue
		}
		c.symbols[s.Symbol] = s
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) symbol(ctx context.Context, native string) (futures.Symbol, error) {
	c.mu.RLock()
	s, ok := c.symbols[native]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	if err := c.loadExchangeInfo(ctx); err != nil {
		return futures.Symbol{}, err
	}
	c.mu.RLock()
	s, ok = c.symbols[native]
	c.mu.RUnlock()
	if !ok {
		return futures.Symbol{}, fmt.Errorf("symbol %s not found", native)
	}
	return s, nil
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
		logger.Error("[BINANCE] market info %s: %v", symbol, err)
		return nil, false
	}
	c.markets.Set(key, m)
	return &m, true
}

func (c *Client) loadMarket(ctx context.Context, symbol string) (models.MarketInfo, error) {
	native := c.NormalizeSymbol(symbol)
	s, err := c.symbol(ctx, native)
	if err != nil {
		return models.MarketInfo{}, err
	}
	if s.Status != "" && s.Status != "TRADING" {
		return models.MarketInfo{}, fmt.Errorf("symbol %s not trading: status=%s", native, s.Status)
	}

	m := marketFromSymbol(s)

	if err := c.limiter.Wait(ctx); err != nil {
		return models.MarketInfo{}, err
	}
	idx, err := c.api.NewPremiumIndexService().Symbol(native).Do(ctx)
	if err != nil {
		return models.MarketInfo{}, fmt.Errorf("premium index: %w", err)
	}
	if len(idx) > 0 {
		m.MarkPrice = pf(idx[0].MarkPrice)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.MarketInfo{}, err
	}
	prices, err := c.api.NewListPricesService().Symbol(native).Do(ctx)
	if err != nil {
		return models.MarketInfo{}, fmt.Errorf("ticker: %w", err)
	}
	if len(prices) > 0 {
		m.LastPrice = pf(prices[0].Price)
	}
	if m.LastPrice <= 0 {
		m.LastPrice = m.MarkPrice
	}
	if m.LastPrice <= 0 {
		return models.MarketInfo{}, fmt.Errorf("no price for %s", native)
	}

	m.MaxLeverage = c.maxLeverage(ctx, native)
	m.UpdatedAt = c.now()
	return m, nil
}
