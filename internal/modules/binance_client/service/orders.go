package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/opentracing/opentracing-go"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// CreateOrder: один POST /fapi/v1/order, без цепочки повторов.
func (c *Client) CreateOrder(ctx context.Context, params models.OrderParams) (models.OrderResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.CreateOrder")
	defer span.Finish()
	span.SetTag("symbol", params.Symbol)

	p, err := exchange.PrepareOrder(params)
	if err != nil {
		return models.Failed("%v", err), err
	}
	span.SetTag("type", string(p.Type))

	m, ok := c.GetMarketInfo(ctx, p.Symbol)
	if !ok {
		err := fmt.Errorf("%w: binance %s", exchange.ErrMarketUnavailable, p.Symbol)
		return models.Failed("%v", err), err
	}

	qty, trace, err := c.orderSize(ctx, *m, p)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(Name, string(p.Type), "error").Inc()
		return models.Failed("%v", err), err
	}

	svc := c.api.NewCreateOrderService().
		Symbol(m.NativeSymbol).
		Side(sideType(p.Side)).
		Type(orderType(p.Type)).
		Quantity(exchange.AmountString(*m, qty)).
		NewClientOrderID(p.ClientOrderID)

	dual := c.DualSide()
	if dual {
		svc = svc.PositionSide(positionSide(true, p.Side, p.ReduceOnly))
	} else if p.ReduceOnly {
		// в hedge mode reduceOnly не принимается, закрытие задаёт positionSide
		svc = svc.ReduceOnly(true)
	}

	switch p.Type {
	case models.OrderLimit:
		svc = svc.TimeInForce(futures.TimeInForceTypeGTC).Price(exchange.PriceString(*m, p.Price))
	case models.OrderStop, models.OrderTakeProfit:
		svc = svc.TimeInForce(futures.TimeInForceTypeGTC).
			Price(exchange.PriceString(*m, p.Price)).
			StopPrice(exchange.PriceString(*m, p.StopPrice))
	case models.OrderStopMarket, models.OrderTakeProfitMarket:
		svc = svc.StopPrice(exchange.PriceString(*m, p.StopPrice)).WorkingType(futures.WorkingTypeMarkPrice)
	}

	logger.Info("[BINANCE] create order %s %s %s qty=%v lev=%d reduceOnly=%v clientId=%s",
		m.NativeSymbol, p.Side, p.Type, qty, p.Leverage, p.ReduceOnly, p.ClientOrderID)

	if err := c.limiter.Wait(ctx); err != nil {
		return models.Failed("%v", err), err
	}
	resp, err := svc.Do(ctx)
	metrics.OrdersTotal.WithLabelValues(Name, string(p.Type), metrics.Result(err == nil)).Inc()
	c.Invalidate()

	res := models.OrderResult{
		ClientOrderID: p.ClientOrderID,
		Extra: models.OrderExtra{
			Conversion: trace,
			Attempts:   []models.FallbackAttempt{{Name: "as_is", Code: apiCode(err), OK: err == nil}},
		},
	}
	if err != nil {
		span.SetTag("error", true)
		logger.Error("[BINANCE] create order %s: %v", m.NativeSymbol, err)
		oe := &exchange.OrderError{Exchange: Name, Symbol: p.Symbol, Op: "create_order", Code: apiCode(err), Err: err}
		res.Error = oe.Error()
		res.Extra.Attempts[0].Message = err.Error()
		return res, oe
	}

	res.Success = true
	res.OrderID = strconv.FormatInt(resp.OrderID, 10)
	res.ExecutedAmount = qty
	res.ExecutedPrice = executedPrice(resp, *m, p)
	return res, nil
}

func executedPrice(resp *futures.CreateOrderResponse, m models.MarketInfo, p models.OrderParams) float64 {
	if v := pf(resp.AvgPrice); v > 0 {
		return v
	}
	if p.Type.IsTrigger() {
		return p.StopPrice
	}
	if v := pf(resp.Price); v > 0 {
		return v
	}
	return m.LastPrice
}

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
	return q, &trace, err
}

// AttachTPSL: отдельные reduce-only STOP_MARKET и TAKE_PROFIT_MARKET. Успех, если прошли все выставленные.
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

	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.AttachTPSL")
	defer span.Finish()

	closeSide := openSide.Opposite()
	place := func(t models.OrderType, trigger float64) error {
		_, err := c.CreateOrder(ctx, models.OrderParams{
			Symbol:     symbol,
			Side:       closeSide,
			Type:       t,
			Quantity:   executed,
			StopPrice:  trigger,
			ReduceOnly: true,
			MarginMode: mode,
		})
		return err
	}

	var firstErr error
	if stopLoss > 0 {
		if err := place(models.OrderStopMarket, stopLoss); err != nil {
			firstErr = err
		}
	}
	if takeProfit > 0 {
		if err := place(models.OrderTakeProfitMarket, takeProfit); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		span.SetTag("error", true)
		logger.Warn("[BINANCE] attach TP/SL %s failed: %v", symbol, firstErr)
		return false, firstErr
	}
	logger.Info("[BINANCE] TP/SL attached %s qty=%v tp=%v sl=%v", symbol, executed, takeProfit, stopLoss)
	return true, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	native := c.NormalizeSymbol(symbol)
	svc := c.api.NewCancelOrderService().Symbol(native)
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(id)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if _, err := svc.Do(ctx); err != nil {
		logger.Error("[BINANCE] cancel %s %s: %v", native, orderID, err)
		return false, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "cancel_order", Code: apiCode(err), Err: err}
	}
	c.Invalidate()
	return true, nil
}

func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*models.OrderInfo, bool) {
	native := c.NormalizeSymbol(symbol)
	svc := c.api.NewGetOrderService().Symbol(native)
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(id)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	o, err := svc.Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] get order %s %s: %v", native, orderID, err)
		return nil, false
	}
	info := orderFromBinance(o)
	return &info, true
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]models.OrderInfo, bool) {
	svc := c.api.NewListOpenOrdersService()
	if symbol != "" {
		svc = svc.Symbol(c.NormalizeSymbol(symbol))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	rows, err := svc.Do(ctx)
	if err != nil {
		logger.Error("[BINANCE] open orders %s: %v", symbol, err)
		return nil, false
	}
	out := make([]models.OrderInfo, 0, len(rows))
	for _, o := range rows {
		out = append(out, orderFromBinance(o))
	}
	return out, true
}
