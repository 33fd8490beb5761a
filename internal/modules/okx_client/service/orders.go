package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (*models.OrderInfo, bool) {
	rows, err := fetch[orderRow](ctx, c, http.MethodGet, "/api/v5/trade/order",
		url.Values{"instId": {c.NormalizeSymbol(symbol)}, "ordId": {orderID}}, nil, true)
	if err != nil {
		logger.Error("[OKX] get order %s %s: %v", symbol, orderID, err)
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}
	o := orderFromRow(rows[0])
	return &o, true
}

// GetOpenOrders; symbol == "" — по всем SWAP.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]models.OrderInfo, bool) {
	q := url.Values{"instType": {"SWAP"}}
	if symbol != "" {
		q.Set("instId", c.NormalizeSymbol(symbol))
	}

	rows, err := fetch[orderRow](ctx, c, http.MethodGet, "/api/v5/trade/orders-pending", q, nil, true)
	if err != nil {
		logger.Error("[OKX] open orders %s: %v", symbol, err)
		return nil, false
	}

	out := make([]models.OrderInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, orderFromRow(r))
	}
	return out, true
}

func orderFromRow(r orderRow) models.OrderInfo {
	amount := pf(r.Sz)
	filled := pf(r.AccFillSz)
	price := pf(r.Px)
	if price == 0 {
		price = pf(r.AvgPx)
	}

	return models.OrderInfo{
		ID:        r.OrdID,
		ClientID:  r.ClOrdID,
		Symbol:    exchange.Unified(r.InstID),
		Side:      models.Side(strings.ToLower(r.Side)),
		Type:      orderTypeFromOKX(r.OrdType),
		Price:     price,
		Amount:    amount,
		Filled:    filled,
		Remaining: amount - filled,
		Status:    r.State,
		Timestamp: msTime(r.CTime),
	}
}

func orderTypeFromOKX(t string) models.OrderType {
	switch strings.ToLower(t) {
	case "market", "optimal_limit_ioc":
		return models.OrderMarket
	case "conditional", "trigger":
		return models.OrderStopMarket
	default:
		// limit, post_only, fok, ioc
		return models.OrderLimit
	}
}
