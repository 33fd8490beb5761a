package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"trade_executor/internal/helper"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) GetFundingRate(ctx context.Context, symbol string) (float64, bool) {
	rows, err := fetch[fundingRow](ctx, c, http.MethodGet, "/api/v5/public/funding-rate",
		url.Values{"instId": {c.NormalizeSymbol(symbol)}}, nil, false)
	if err != nil {
		logger.Error("[OKX] funding rate %s: %v", symbol, err)
		return 0, false
	}
	if len(rows) == 0 {
		return 0, false
	}
	return pf(rows[0].FundingRate), true
}

// GetMarkPriceHistory: свечи mark price, от старых к новым.
func (c *Client) GetMarkPriceHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, bool) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := url.Values{
		"instId": {c.NormalizeSymbol(symbol)},
		"bar":    {helper.OKXBar(timeframe)},
		"limit":  {strconv.Itoa(limit)},
	}

	rows, err := fetch[[]string](ctx, c, http.MethodGet, "/api/v5/market/mark-price-candles", q, nil, false)
	if err != nil {
		logger.Error("[OKX] mark price candles %s: %v", symbol, err)
		return nil, false
	}

	// OKX отдаёт от новых к старым
	out := make([]models.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if len(r) < 5 {
			continue
		}
		out = append(out, models.Candle{
			Time:  msTime(r[0]),
			Open:  pf(r[1]),
			High:  pf(r[2]),
			Low:   pf(r[3]),
			Close: pf(r[4]),
		})
	}
	return out, true
}
