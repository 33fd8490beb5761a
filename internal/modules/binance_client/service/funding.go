package service

import (
	"context"
	"strconv"
	"time"

	"trade_executor/internal/exchange"
	"trade_executor/internal/helper"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) GetFundingRate(ctx context.Context, symbol string) (float64, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false
	}
	idx, err := c.api.NewPremiumIndexService().Symbol(c.NormalizeSymbol(symbol)).Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] funding rate %s: %v", symbol, err)
		return 0, false
	}
	if len(idx) == 0 {
		return 0, false
	}
	return pf(idx[0].LastFundingRate), true
}

// GetMarkPriceHistory: свечи по возрастанию времени.
func (c *Client) GetMarkPriceHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, bool) {
	if limit <= 0 || limit > 1500 {
		limit = 100
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	rows, err := c.api.NewKlinesService().
		Symbol(c.NormalizeSymbol(symbol)).
		Interval(helper.NormTF(timeframe)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] klines %s: %v", symbol, err)
		return nil, false
	}

	out := make([]models.Candle, 0, len(rows))
	for _, k := range rows {
		out = append(out, models.Candle{
			Time:   time.UnixMilli(k.OpenTime),
			Open:   pf(k.Open),
			High:   pf(k.High),
			Low:    pf(k.Low),
			Close:  pf(k.Close),
			Volume: pf(k.Volume),
		})
	}
	return out, true
}

// TransferMargin: изолированная маржа: add=true добавить (type 1), иначе снять (type 2).
func (c *Client) TransferMargin(ctx context.Context, symbol string, amount float64, add bool) (bool, error) {
	kind := 2
	if add {
		kind = 1
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	err := c.api.NewUpdatePositionMarginService().
		Symbol(c.NormalizeSymbol(symbol)).
		Amount(strconv.FormatFloat(amount, 'f', -1, 64)).
		Type(kind).
		Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] transfer margin %s %v add=%v: %v", symbol, amount, add, err)
		return false, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "transfer_margin", Code: apiCode(err), Err: err}
	}
	c.Invalidate()
	return true, nil
}
