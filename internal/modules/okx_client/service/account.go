package service

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

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

	rows, err := fetch[balanceRow](ctx, c, http.MethodGet, "/api/v5/account/balance",
		url.Values{"ccy": {"USDT"}}, nil, true)
	if err != nil {
		logger.Error("[OKX] balance: %v", err)
		return models.AccountBalance{}, false
	}
	if len(rows) == 0 {
		logger.Error("[OKX] balance: empty data")
		return models.AccountBalance{}, false
	}

	b := balanceFromRow(rows[0])
	if b.Timestamp.IsZero() {
		b.Timestamp = c.now()
	}
	c.balances.Set(allKey, b)
	return b, true
}

// balanceFromRow: по USDT детали; если её нет, по сводке аккаунта.
func balanceFromRow(r balanceRow) models.AccountBalance {
	total := pf(r.TotalEq)
	used := pf(r.Imr)
	upl := pf(r.Upl)
	free := total - used

	for _, d := range r.Details {
		if !strings.EqualFold(d.Ccy, "USDT") {
			continue
		}
		total = pf(d.Eq)
		free = pf(d.AvailEq)
		if free == 0 {
			free = pf(d.AvailBal)
		}
		used = pf(d.FrozenBal)
		if used == 0 {
			used = pf(d.Imr)
		}
		upl = pf(d.Upl)
		break
	}

	return models.NewAccountBalance(total, used, free, upl, 0, msTime(r.UTime))
}

// GetPositions; symbol == "" — все SWAP позиции. Нулевые позиции отбрасываются.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]models.PositionInfo, bool) {
	key := allKey
	q := url.Values{"instType": {"SWAP"}}
	if symbol != "" {
		key = exchange.Unified(symbol)
		q.Set("instId", c.NormalizeSymbol(symbol))
	}

	if ps, ok := c.positions.Get(key, c.cacheTTL); ok {
		metrics.CacheHit(Name, "positions", true)
		return ps, true
	}
	metrics.CacheHit(Name, "positions", false)

	rows, err := fetch[positionRow](ctx, c, http.MethodGet, "/api/v5/account/positions", q, nil, true)
	if err != nil {
		logger.Error("[OKX] positions: %v", err)
		return nil, false
	}

	out := make([]models.PositionInfo, 0, len(rows))
	for _, r := range rows {
		p, ok := positionFromRow(r)
		if !ok {
			continue
		}
		out = append(out, p)
	}

	c.positions.Set(key, out)
	return out, true
}

func positionFromRow(r positionRow) (models.PositionInfo, bool) {
	pos := pf(r.Pos)
	if pos == 0 {
		return models.PositionInfo{}, false
	}

	var side models.PositionSide
	switch strings.ToLower(r.PosSide) {
	case "long":
		side = models.PositionLong
	case "short":
		side = models.PositionShort
	default:
		// net: знак pos задаёт направление
		side = models.PositionLong
		if pos < 0 {
			side = models.PositionShort
		}
	}

	lev, _ := strconv.Atoi(r.Lever)
	mode := models.NormalizeMarginMode(models.MarginMode(r.MgnMode))
	margin := pf(r.Margin)

	// mgnRatio у OKX — во сколько раз эквити больше поддерживающей маржи; переводим в проценты mmr/equity
	var ratio float64
	if mr := pf(r.MgnRatio); mr > 0 {
		ratio = 100 / mr
	}

	markPx := pf(r.MarkPx)
	if markPx == 0 {
		markPx = pf(r.Last)
	}

	p := models.PositionInfo{
		Symbol:            exchange.Unified(r.InstId),
		Side:              side,
		Size:              math.Abs(pos),
		EntryPrice:        pf(r.AvgPx),
		MarginMode:        mode,
		Leverage:          lev,
		LiquidationPrice:  pf(r.LiqPx),
		MarkPrice:         markPx,
		BreakEvenPrice:    pf(r.BePx),
		InitialMargin:     pf(r.Imr),
		MaintenanceMargin: pf(r.Mmr),
		PositionMargin:    margin,
		MarginRatio:       ratio,
		RealizedPnL:       pf(r.RealizedPnl),
		UnrealizedPnL:     pf(r.Upl),
		PnLPercent:        pf(r.UplRatio) * 100,
		Notional:          math.Abs(pf(r.NotionalUsd)),
		Timestamp:         msTime(r.UTime),
	}
	if mode == models.MarginIsolated {
		p.IsolatedMargin = margin
	}
	return p, true
}
