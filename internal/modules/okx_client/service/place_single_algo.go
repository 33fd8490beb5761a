package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/opentracing/opentracing-go"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// placeAlgoOrder: STOP/STOP_MARKET/TAKE_PROFIT/TAKE_PROFIT_MARKET как conditional algo.
func (c *Client) placeAlgoOrder(
	ctx context.Context,
	m models.MarketInfo,
	p models.OrderParams,
	sz float64,
	trace *models.ConversionTrace,
) (models.OrderResult, error) {
	body := map[string]any{
		"instId":      m.NativeSymbol,
		"tdMode":      string(p.MarginMode),
		"side":        string(p.Side),
		"ordType":     "conditional",
		"sz":          exchange.AmountString(m, sz),
		"algoClOrdId": p.ClientOrderID,
	}
	if p.ReduceOnly {
		body["reduceOnly"] = true
	}
	if ps := c.posSideFor(p); ps != "" {
		body["posSide"] = ps
	}

	ordPx := "-1"
	if (p.Type == models.OrderStop || p.Type == models.OrderTakeProfit) && p.Price > 0 {
		ordPx = exchange.PriceString(m, p.Price)
	}
	prefix := "sl"
	if p.Type.IsTakeProfit() {
		prefix = "tp"
	}
	setTrigger(body, prefix, exchange.PriceString(m, p.StopPrice), ordPx)

	logger.Info("[OKX] algo order %s %s %s sz=%s trigger=%v", m.NativeSymbol, p.Side, p.Type, body["sz"], p.StopPrice)

	ack, attempts, raw, err := c.submitWithFallback(ctx, "/api/v5/trade/order-algo", p.Symbol, body)
	metrics.OrdersTotal.WithLabelValues(Name, string(p.Type), metrics.Result(err == nil)).Inc()

	res := models.OrderResult{
		ClientOrderID: p.ClientOrderID,
		Extra: models.OrderExtra{
			RawResponse: raw,
			Conversion:  trace,
			Attempts:    attempts,
		},
	}
	if err != nil {
		logger.Error("[OKX] algo order %s: %v", m.NativeSymbol, err)
		res.Error = err.Error()
		return res, err
	}

	res.Success = true
	res.OrderID = ack.ID()
	res.ExecutedPrice = p.StopPrice
	res.ExecutedAmount = sz
	return res, nil
}

// AttachTPSL вешает TP/SL на открытую позицию: oco если есть обе цены, conditional если одна.
// Без цен — ничего не делает и считается успехом.
func (c *Client) AttachTPSL(
	ctx context.Context,
	symbol string,
	openSide models.Side,
	executed float64,
	mode models.MarginMode,
	takeProfit, stopLoss float64,
) (bool, error) {
	if takeProfit <= 0 && stopLoss <= 0 {
		return true, nil
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "okx.AttachTPSL")
	defer span.Finish()

	m, ok := c.GetMarketInfo(ctx, symbol)
	if !ok {
		return false, fmt.Errorf("%w: okx %s", exchange.ErrMarketUnavailable, symbol)
	}

	// контракты: целые, либо вниз до lotSz на дробных лотах
	sz := exchange.AmountString(*m, executed)

	body := map[string]any{
		"instId": m.NativeSymbol,
		"side":   string(openSide.Opposite()),
		"tdMode": string(models.NormalizeMarginMode(mode)),
		"sz":     sz,
	}
	if c.PosMode() == PosModeLongShort {
		body["posSide"] = string(models.PositionSideFor(openSide))
	}

	switch {
	case takeProfit > 0 && stopLoss > 0:
		body["ordType"] = "oco"
		setTrigger(body, "tp", exchange.PriceString(*m, takeProfit), "-1")
		setTrigger(body, "sl", exchange.PriceString(*m, stopLoss), "-1")
	case takeProfit > 0:
		body["ordType"] = "conditional"
		setTrigger(body, "tp", exchange.PriceString(*m, takeProfit), "-1")
	default:
		body["ordType"] = "conditional"
		setTrigger(body, "sl", exchange.PriceString(*m, stopLoss), "-1")
	}

	rows, err := fetch[orderAck](ctx, c, http.MethodPost, "/api/v5/trade/order-algo", nil, body, true)
	if err == nil && len(rows) > 0 && rows[0].SCode != "" && rows[0].SCode != "0" {
		err = fmt.Errorf("okx attach tp/sl rejected: sCode=%s sMsg=%s", rows[0].SCode, rows[0].SMsg)
	}
	metrics.OrdersTotal.WithLabelValues(Name, "tpsl", metrics.Result(err == nil)).Inc()
	if err != nil {
		span.SetTag("error", true)
		logger.Warn("[OKX] attach TP/SL %s failed: %v", m.NativeSymbol, err)
		return false, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "attach_tpsl", Err: err}
	}

	logger.Info("[OKX] TP/SL attached %s %s sz=%s tp=%v sl=%v", m.NativeSymbol, body["ordType"], body["sz"], takeProfit, stopLoss)
	return true, nil
}
