package service

import (
	"context"
	"fmt"
	"net/http"

	"trade_executor/internal/exchange"
	"trade_executor/pkg/logger"
)

func (c *Client) CancelAlgo(ctx context.Context, instID, algoID string) error {
	body := []map[string]string{{"instId": instID, "algoId": algoID}}

	rows, err := fetch[orderAck](ctx, c, http.MethodPost, "/api/v5/trade/cancel-algos", nil, body, true)
	if err != nil {
		return fmt.Errorf("CancelAlgo: %w", err)
	}
	if len(rows) == 0 || rows[0].SCode != "0" {
		return fmt.Errorf("CancelAlgo reject: %+v", rows)
	}
	return nil
}

// CancelOrder: сначала как обычный ордер, если биржа его не знает — как algo.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	instID := c.NormalizeSymbol(symbol)
	body := map[string]string{"instId": instID, "ordId": orderID}

	rows, err := fetch[orderAck](ctx, c, http.MethodPost, "/api/v5/trade/cancel-order", nil, body, true)
	if err == nil && len(rows) > 0 && rows[0].SCode == "0" {
		c.Invalidate()
		return true, nil
	}

	if algoErr := c.CancelAlgo(ctx, instID, orderID); algoErr == nil {
		c.Invalidate()
		return true, nil
	}

	if err == nil {
		err = fmt.Errorf("cancel-order reject: %+v", rows)
	}
	logger.Error("[OKX] cancel %s %s: %v", instID, orderID, err)
	return false, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "cancel_order", Err: err}
}
