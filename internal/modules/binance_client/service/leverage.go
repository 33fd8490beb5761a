package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/common"
	"github.com/opentracing/opentracing-go"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// codeNoNeedToChangeMargin: маржа уже в нужном режиме.
const codeNoNeedToChangeMargin = "-4046"

func apiCode(err error) string {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return strconv.FormatInt(apiErr.Code, 10)
	}
	return ""
}

func (c *Client) GetLeverageBrackets(ctx context.Context, symbol string) ([]models.LeverageBracket, bool) {
	out, err := c.leverageBrackets(ctx, c.NormalizeSymbol(symbol))
	if err != nil {
		logger.Error("[BINANCE] leverage brackets %s: %v", symbol, err)
		return nil, false
	}
	return out, true
}

func (c *Client) leverageBrackets(ctx context.Context, native string) ([]models.LeverageBracket, error) {
	if b, ok := c.brackets.Get(native, bracketsTTL); ok {
		return b, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	list, err := c.api.NewGetLeverageBracketService().Symbol(native).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := bracketsFrom(list)
	c.brackets.Set(native, out)
	return out, nil
}

// maxLeverage: InitialLeverage первого брекета; 0 — неизвестно.
func (c *Client) maxLeverage(ctx context.Context, native string) int {
	b, err := c.leverageBrackets(ctx, native)
	if err != nil {
		logger.Warn("[BINANCE] leverage brackets %s: %v", native, err)
		return 0
	}
	if len(b) == 0 {
		return 0
	}
	return b[0].MaxLeverage
}

// SetLeverage: режим маржи, затем плечо, ограниченное максимумом символа.
func (c *Client) SetLeverage(ctx context.Context, symbol string, requested int, mode models.MarginMode) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.SetLeverage")
	defer span.Finish()

	native := c.NormalizeSymbol(symbol)
	lev := exchange.ClampLeverage(requested, c.maxLeverage(ctx, native))

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	err := c.api.NewChangeMarginTypeService().Symbol(native).MarginType(marginType(mode)).Do(ctx)
	if err != nil && apiCode(err) != codeNoNeedToChangeMargin {
		span.SetTag("error", true)
		return 0, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "set_margin_mode", Code: apiCode(err), Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	if _, err := c.api.NewChangeLeverageService().Symbol(native).Leverage(lev).Do(ctx); err != nil {
		span.SetTag("error", true)
		return 0, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "set_leverage", Code: apiCode(err), Err: err}
	}

	logger.Info("[BINANCE] set %s leverage %s: requested=%d actual=%d", models.NormalizeMarginMode(mode), native, requested, lev)
	return lev, nil
}

func (c *Client) ConvertAmountToContracts(ctx context.Context, symbol string, usdt, price float64, leverage int) (float64, models.ConversionTrace, error) {
	m, ok := c.GetMarketInfo(ctx, symbol)
	if !ok {
		return 0, models.ConversionTrace{}, fmt.Errorf("%w: binance %s", exchange.ErrMarketUnavailable, symbol)
	}
	if price <= 0 {
		price = m.LastPrice
	}
	return exchange.ConvertAmount(*m, usdt, price, leverage, m.MaxLeverage)
}
