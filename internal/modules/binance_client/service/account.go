package service

import (
	"context"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

const allKey = "all"

func (c *Client) GetBalance(ctx context.Context) (models.AccountBalance, bool) {
	if b, ok := c.balances.Get(allKey, c.cacheTTL); ok {
		metrics.CacheHit(Name, "balance", true)
		return b, true
	}
	metrics.CacheHit(Name, "balance", false)

	if err := c.limiter.Wait(ctx); err != nil {
		return models.AccountBalance{}, false
	}
	acc, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] balance: %v", err)
		return models.AccountBalance{}, false
	}

	b := balanceFromAccount(acc, c.now())
	c.balances.Set(allKey, b)
	return b, true
}

// GetPositions; symbol == "" — все позиции. Нулевые отбрасываются.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]models.PositionInfo, bool) {
	key := allKey
	svc := c.api.NewGetPositionRiskService()
	if symbol != "" {
		key = exchange.Unified(symbol)
		svc = svc.Symbol(c.NormalizeSymbol(symbol))
	}

	if ps, ok := c.positions.Get(key, c.cacheTTL); ok {
		metrics.CacheHit(Name, "positions", true)
		return ps, true
	}
	metrics.CacheHit(Name, "positions", false)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	rows, err := svc.Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] positions: %v", err)
		return nil, false
	}

	out := make([]models.PositionInfo, 0, len(rows))
	for _, r := range rows {
		p, ok := positionFromRisk(r)
		if !ok {
			continue
		}
		p.Timestamp = c.now()
		out = append(out, p)
	}
	c.positions.Set(key, out)
	return out, true
}
