package service

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// sCode OKX: режим позиций аккаунта не совпал с параметрами ордера.
const codeAccountModeMismatch = "51010"

type paramTransform struct {
	name  string
	apply func(body map[string]any)
}

// Повторы идут по порядку только после отказа 51010. Преобразования накапливаются.
// clOrdId во всех попытках один и тот же.
var fallbackChain = []paramTransform{
	{name: "as_is", apply: func(map[string]any) {}},
	{name: "cross_without_pos_side", apply: func(b map[string]any) {
		delete(b, "posSide")
		b["tdMode"] = string(models.MarginCross)
	}},
	{name: "net_pos_side", apply: func(b map[string]any) {
		b["posSide"] = "net"
	}},
}

// submitWithFallback: POST ордера через цепочку fallbackChain.
func (c *Client) submitWithFallback(
	ctx context.Context,
	path string,
	symbol string,
	body map[string]any,
) (orderAck, []models.FallbackAttempt, string, error) {
	req := maps.Clone(body)
	attempts := make([]models.FallbackAttempt, 0, len(fallbackChain))

	var (
		raw     string
		lastErr error
	)
	for _, t := range fallbackChain {
		t.apply(req)

		env, data, err := call[orderAck](ctx, c, http.MethodPost, path, nil, req, true)
		raw = string(data)
		if err != nil {
			// сеть/HTTP: неизвестно, дошёл ли ордер, не повторяем
			attempts = append(attempts, models.FallbackAttempt{Name: t.name, Message: err.Error()})
			metrics.FallbackAttempts.WithLabelValues(Name, t.name, "error").Inc()
			return orderAck{}, attempts, raw, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "create_order", Err: err}
		}

		ack, code, msg := firstAck(env)
		ok := env.Code == "0" && code == "0"
		attempts = append(attempts, models.FallbackAttempt{Name: t.name, Code: code, Message: msg, OK: ok})
		metrics.FallbackAttempts.WithLabelValues(Name, t.name, metrics.Result(ok)).Inc()
		if ok {
			return ack, attempts, raw, nil
		}

		lastErr = &exchange.OrderError{
			Exchange: Name,
			Symbol:   symbol,
			Op:       "create_order",
			Code:     code,
			Err:      fmt.Errorf("okx order rejected: code=%s msg=%s sMsg=%s", env.Code, env.Msg, msg),
		}
		if code != codeAccountModeMismatch {
			break
		}
		logger.Warn("[OKX] %s rejected with %s on %s, trying next params", symbol, code, t.name)
	}

	return orderAck{}, attempts, raw, lastErr
}

// firstAck: sCode первой строки, либо общий code, если data пустая.
func firstAck(env envelope[orderAck]) (orderAck, string, string) {
	if len(env.Data) == 0 {
		return orderAck{}, env.Code, env.Msg
	}
	d := env.Data[0]
	if d.SCode == "" {
		return d, env.Code, env.Msg
	}
	return d, d.SCode, d.SMsg
}
