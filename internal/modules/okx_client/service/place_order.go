package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// batchKeys в Extra уводят запрос в пакетный эндпоинт, их выкидываем.
var batchKeys = []string{"orders", "algoOrders", "batch", "list"}

func stripBatchKeys(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, k := range batchKeys {
		delete(out, k)
	}
	return out
}

// CreateOrder: MARKET/LIMIT -> /trade/order, стоп/тейк варианты -> /trade/order-algo.
func (c *Client) CreateOrder(ctx context.Context, params models.OrderParams) (models.OrderResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "okx.CreateOrder")
	defer span.Finish()
	span.SetTag("symbol", params.Symbol)

	p, err := exchange.PrepareOrder(params)
	if err != nil {
		return models.Failed("%v", err), err
	}
	p.Extra = stripBatchKeys(p.Extra)
	span.SetTag("type", string(p.Type))

	m, ok := c.GetMarketInfo(ctx, p.Symbol)
	if !ok {
		err := fmt.Errorf("%w: okx %s", exchange.ErrMarketUnavailable, p.Symbol)
		return models.Failed("%v", err), err
	}

	sz, trace, err := c.orderSize(ctx, *m, p)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(Name, string(p.Type), "error").Inc()
		return models.Failed("%v", err), err
	}

	if p.Type.IsTrigger() {
		return c.placeAlgoOrder(ctx, *m, p, sz, trace)
	}

	body := map[string]any{
		"instId":  m.NativeSymbol,
		"tdMode":  string(p.MarginMode),
		"side":    string(p.Side),
		"ordType": strings.ToLower(string(p.Type)),
		"sz":      exchange.AmountString(*m, sz),
		"clOrdId": p.ClientOrderID,
	}

	execPx := m.LastPrice
	if p.Type == models.OrderLimit {
		px := c.clampLimitPrice(ctx, *m, p.Side, exchange.FormatPrice(*m, p.Price))
		body["px"] = exchange.PriceString(*m, px)
		execPx = px
	}
	if p.ReduceOnly {
		body["reduceOnly"] = true
	}
	if ps := c.posSideFor(p); ps != "" {
		body["posSide"] = ps
	}
	applyInlineTPSL(body, *m, p)

	logger.Info("[OKX] create order %s %s %s sz=%s lev=%d mode=%s reduceOnly=%v clOrdId=%s",
		m.NativeSymbol, p.Side, p.Type, body["sz"], p.Leverage, p.MarginMode, p.ReduceOnly, p.ClientOrderID)

	ack, attempts, raw, err := c.submitWithFallback(ctx, "/api/v5/trade/order", p.Symbol, body)
	metrics.OrdersTotal.WithLabelValues(Name, string(p.Type), metrics.Result(err == nil)).Inc()
	c.Invalidate()

	res := models.OrderResult{
		ClientOrderID: p.ClientOrderID,
		Extra: models.OrderExtra{
			RawResponse: raw,
			Conversion:  trace,
			Attempts:    attempts,
		},
	}
	if err != nil {
		span.SetTag("error", true)
		logger.Error("[OKX] create order %s: %v", m.NativeSymbol, err)
		res.Error = err.Error()
		return res, err
	}

	res.Success = true
	res.OrderID = ack.ID()
	res.ExecutedPrice = execPx
	res.ExecutedAmount = sz
	return res, nil
}

// orderSize: готовое Quantity как есть, иначе плечо + пересчёт USDT в контракты.
func (c *Client) orderSize(ctx context.Context, m models.MarketInfo, p models.OrderParams) (float64, *models.ConversionTrace, error) {
	if p.Quantity > 0 {
		return exchange.FormatAmount(m, p.Quantity), nil, nil
	}

	lev, err := c.SetLeverage(ctx, p.Symbol, p.Leverage, p.MarginMode)
	if err != nil {
		return 0, nil, err
	}

	price := p.Price
	if price <= 0 {
		price = m.LastPrice
	}
	q, trace, err := exchange.ConvertAmount(m, p.Amount, price, lev, m.MaxLeverage)
	if err != nil {
		return 0, &trace, err
	}
	return q, &trace, nil
}

// posSideFor: posSide только в long_short режиме; для reduceOnly это сторона закрываемой позиции.
func (c *Client) posSideFor(p models.OrderParams) string {
	if v := p.Extra["posSide"]; v != "" {
		return strings.ToLower(v)
	}
	if c.PosMode() != PosModeLongShort {
		return ""
	}
	if p.ReduceOnly {
		return string(models.PositionSideFor(p.Side.Opposite()))
	}
	return string(models.PositionSideFor(p.Side))
}

// applyInlineTPSL: TP/SL прямо в ордере входа.
func applyInlineTPSL(body map[string]any, m models.MarketInfo, p models.OrderParams) {
	tp := p.ExtraPrice(models.ExtraTPTriggerPx, models.ExtraTakeProfitPrice)
	sl := p.ExtraPrice(models.ExtraSLTriggerPx, models.ExtraStopLossPrice)
	if sl <= 0 && p.StopPrice > 0 {
		sl = p.StopPrice
	}
	if tp > 0 {
		setTrigger(body, "tp", exchange.PriceString(m, tp), "-1")
	}
	if sl > 0 {
		setTrigger(body, "sl", exchange.PriceString(m, sl), "-1")
	}
}

// setTrigger: prefix tp|sl, ordPx "-1" — исполнение по рынку.
func setTrigger(body map[string]any, prefix, triggerPx, ordPx string) {
	body[prefix+"TriggerPx"] = triggerPx
	body[prefix+"OrdPx"] = ordPx
	body[prefix+"TriggerPxType"] = "last"
}
