package manager

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"trade_executor/internal/exchange"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// ExecuteSignal превращает сигнал в ордера на нужной бирже.
// Ошибки не возвращаются: результат всегда OrderResult, провал — Success=false + Error.
func (m *Manager) ExecuteSignal(ctx context.Context, sig models.TradingSignal) models.OrderResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "manager.ExecuteSignal")
	defer span.Finish()
	span.SetTag("exchange", sig.Exchange)
	span.SetTag("symbol", sig.Symbol)
	span.SetTag("action", string(sig.Action))

	c, ok := m.Client(sig.Exchange)
	if !ok {
		return models.Failed("exchange %q is not available", sig.Exchange)
	}
	sig = sig.Clone()
	if sig.Action == models.ActionOpenLong || sig.Action == models.ActionOpenShort {
		if sig.Leverage <= 0 {
			sig.Leverage = m.defaults.Leverage
		}
		if sig.PositionSize <= 0 {
			sig.PositionSize = m.defaults.PositionSize
		}
		sig.MarginMode = models.NormalizeMarginMode(sig.MarginMode)
	}
	if !sig.Valid() {
		return models.Failed("invalid signal %s %s %s", sig.Exchange, sig.Symbol, sig.Action)
	}
	sig.Symbol = exchange.Unified(sig.Symbol)

	switch sig.Action {
	case models.ActionClose:
		return m.ClosePosition(ctx, sig.Exchange, sig.Symbol)
	case models.ActionUpdate:
		ok, err := m.ModifyPosition(ctx, sig.Exchange, sig.Symbol, sig.StopLoss, sig.FirstTakeProfit())
		if err != nil {
			return models.Failed("%v", err)
		}
		if active, tracked := m.ActiveSignal(sig.Exchange, sig.Symbol); tracked && ok {
			if sig.StopLoss > 0 {
				active.StopLoss = sig.StopLoss
			}
			if len(sig.TakeProfitLevels) > 0 {
				active.TakeProfitLevels = sig.TakeProfitLevels
			} else if sig.TakeProfit > 0 {
				active.TakeProfit = sig.TakeProfit
			}
			m.Track(ctx, active)
		}
		return models.OrderResult{Success: ok}
	}

	tp, sl := exitPrices(sig)

	withStop := sig
	withStop.StopLoss = sl
	rr := withStop.RiskRewardRatio()
	span.SetTag("risk_reward", rr)
	logger.Info("[MANAGER] open %s %s %s size=%.2f lev=%d tp=%v sl=%v rr=%.2f",
		sig.Exchange, sig.Symbol, sig.Action, sig.PositionSize, sig.Leverage, tp, sl, rr)

	var res models.OrderResult
	if len(sig.EntryZones) > 0 {
		res = m.openZones(ctx, c, &sig, tp, sl)
	} else {
		res = m.openSingle(ctx, c, sig, tp, sl)
	}

	if res.Success {
		if sig.ID == "" {
			sig.ID = exchange.NewClientOrderID()
		}
		if sig.CreatedAt.IsZero() {
			sig.CreatedAt = m.now()
		}
		sig.StopLoss = sl
		m.Track(ctx, sig)
	} else {
		span.SetTag("error", true)
	}
	return res
}

// exitPrices: цены из additional_info важнее полей сигнала.
func exitPrices(sig models.TradingSignal) (tp, sl float64) {
	tp = sig.ExtraPrice(models.ExtraTPTriggerPx, models.ExtraTakeProfitPrice)
	if tp <= 0 {
		tp = sig.FirstTakeProfit()
	}
	sl = sig.ExtraPrice(models.ExtraSLTriggerPx, models.ExtraStopLossPrice)
	if sl <= 0 {
		sl = sig.StopLoss
	}
	return tp, sl
}

// entryExtra: Extra сигнала без цен выхода: их ставит AttachTPSL, а не входной ордер.
func entryExtra(sig models.TradingSignal) map[string]string {
	out := make(map[string]string, len(sig.Extra))
	for k, v := range sig.Extra {
		switch k {
		case models.ExtraTPTriggerPx, models.ExtraTakeProfitPrice, models.ExtraSLTriggerPx, models.ExtraStopLossPrice:
			continue
		}
		out[k] = v
	}
	return out
}

func (m *Manager) openSingle(ctx context.Context, c exchange.Client, sig models.TradingSignal, tp, sl float64) models.OrderResult {
	typ := models.OrderMarket
	if sig.EntryPrice > 0 {
		typ = models.OrderLimit
	}

	params := models.OrderParams{
		Symbol:     sig.Symbol,
		Side:       sig.OpenSide(),
		Type:       typ,
		Amount:     sig.PositionSize,
		Price:      sig.EntryPrice,
		Leverage:   sig.Leverage,
		MarginMode: sig.MarginMode,
		Extra:      entryExtra(sig),
	}

	res, err := c.CreateOrder(ctx, params)
	if err != nil || !res.Success {
		logger.Error("[MANAGER] %s %s open failed: %v", c.Name(), sig.Symbol, firstErr(err, res.Error))
		if res.Error == "" && err != nil {
			res.Error = err.Error()
		}
		res.Success = false
		return res
	}

	m.attach(ctx, c, sig, res.ExecutedAmount, tp, sl)
	return res
}

// openZones: по лимитке на зону. Провал одной зоны не останавливает остальные.
func (m *Manager) openZones(ctx context.Context, c exchange.Client, sig *models.TradingSignal, tp, sl float64) models.OrderResult {
	var (
		first models.OrderResult
		zones = make([]models.ZoneResult, 0, len(sig.EntryZones))
	)

	for i := range sig.EntryZones {
		z := &sig.EntryZones[i]
		amount := sig.PositionSize * z.Fraction

		params := models.OrderParams{
			Symbol:     sig.Symbol,
			Side:       sig.OpenSide(),
			Type:       models.OrderLimit,
			Amount:     amount,
			Price:      z.Price,
			Leverage:   sig.Leverage,
			MarginMode: sig.MarginMode,
			Extra:      entryExtra(*sig),
		}

		res, err := c.CreateOrder(ctx, params)
		zr := models.ZoneResult{Price: z.Price, Amount: amount, OrderID: res.OrderID, Success: err == nil && res.Success}
		if !zr.Success {
			zr.Error = firstErr(err, res.Error).Error()
			logger.Error("[MANAGER] %s %s zone %d @ %v failed: %s", c.Name(), sig.Symbol, i+1, z.Price, zr.Error)
		} else {
			z.Status = models.ZonePlaced
			z.OrderID = res.OrderID
			m.attach(ctx, c, *sig, res.ExecutedAmount, tp, sl)
		}

		if i == 0 {
			first = res
			if !zr.Success {
				first.Success = false
				first.Error = zr.Error
			}
		}
		zones = append(zones, zr)
	}

	first.Extra.Zones = zones
	return first
}

func (m *Manager) attach(ctx context.Context, c exchange.Client, sig models.TradingSignal, executed, tp, sl float64) {
	if tp <= 0 && sl <= 0 {
		return
	}
	if executed <= 0 {
		logger.Warn("[MANAGER] %s %s nothing executed, tp/sl skipped", c.Name(), sig.Symbol)
		return
	}
	ok, err := c.AttachTPSL(ctx, sig.Symbol, sig.OpenSide(), executed, sig.MarginMode, tp, sl)
	if err != nil || !ok {
		logger.Error("[MANAGER] %s %s attach tp=%v sl=%v failed: %v", c.Name(), sig.Symbol, tp, sl, err)
	}
}

// ClosePosition: reduce-only MARKET в обратную сторону на весь объём.
func (m *Manager) ClosePosition(ctx context.Context, exchangeName, symbol string) models.OrderResult {
	c, ok := m.Client(exchangeName)
	if !ok {
		return models.Failed("exchange %q is not available", exchangeName)
	}

	exchange.Fresh(c)
	positions, known := c.GetPositions(ctx, symbol)
	if !known {
		return models.Failed("%v: %s %s", exchange.ErrPositionsUnavailable, exchangeName, symbol)
	}
	open := openPositions(positions)
	if len(open) == 0 {
		return models.Failed("%v: %s %s", exchange.ErrNoPosition, exchangeName, symbol)
	}

	var res models.OrderResult
	for _, p := range open {
		r, err := c.CreateOrder(ctx, models.OrderParams{
			Symbol:     symbol,
			Side:       p.CloseSide(),
			Type:       models.OrderMarket,
			Quantity:   p.Size,
			ReduceOnly: true,
			MarginMode: p.MarginMode,
		})
		if err != nil || !r.Success {
			logger.Error("[MANAGER] %s close %s %s failed: %v", exchangeName, symbol, p.Side, firstErr(err, r.Error))
			if r.Error == "" && err != nil {
				r.Error = err.Error()
			}
			r.Success = false
			return r
		}
		res = r
	}

	logger.Info("[MANAGER] %s %s closed", exchangeName, symbol)
	m.Forget(ctx, exchangeName, symbol)
	return res
}

// ModifyPosition ставит новый стоп и/или тейк на весь объём позиции.
// Успех — если прошёл каждый запрошенный ордер. Предыдущий защитный ордер того же вида снимается.
func (m *Manager) ModifyPosition(ctx context.Context, exchangeName, symbol string, stopLoss, takeProfit float64) (bool, error) {
	c, ok := m.Client(exchangeName)
	if !ok {
		return false, fmt.Errorf("%w: %s", exchange.ErrExchangeNotConfigured, exchangeName)
	}
	if stopLoss <= 0 && takeProfit <= 0 {
		return false, fmt.Errorf("%w: nothing to modify", exchange.ErrValidation)
	}

	exchange.Fresh(c)
	positions, known := c.GetPositions(ctx, symbol)
	if !known {
		return false, fmt.Errorf("%w: %s %s", exchange.ErrPositionsUnavailable, exchangeName, symbol)
	}
	open := openPositions(positions)
	if len(open) == 0 {
		return false, fmt.Errorf("%w: %s %s", exchange.ErrNoPosition, exchangeName, symbol)
	}
	p := open[0]

	type leg struct {
		kind  string
		typ   models.OrderType
		price float64
	}
	legs := []leg{
		{"sl", models.OrderStopMarket, stopLoss},
		{"tp", models.OrderTakeProfitMarket, takeProfit},
	}

	success := true
	var errs []error
	for _, l := range legs {
		if l.price <= 0 {
			continue
		}
		res, err := c.CreateOrder(ctx, models.OrderParams{
			Symbol:     symbol,
			Side:       p.CloseSide(),
			Type:       l.typ,
			Quantity:   p.Size,
			StopPrice:  l.price,
			ReduceOnly: true,
			MarginMode: p.MarginMode,
		})
		if err != nil || !res.Success {
			success = false
			errs = append(errs, errors.Wrapf(firstErr(err, res.Error), "%s %s", l.typ, symbol))
			continue
		}
		metrics.OrdersTotal.WithLabelValues(exchangeName, "modify_"+l.kind, "ok").Inc()

		key := signalKey(exchangeName, symbol) + ":" + l.kind
		if prev := m.swapStop(key, res.OrderID); prev != "" && prev != res.OrderID {
			if _, err := c.CancelOrder(ctx, symbol, prev); err != nil {
				logger.Warn("[MANAGER] %s cancel previous %s %s: %v", exchangeName, l.kind, prev, err)
			}
		}
	}

	if len(errs) > 0 {
		return success, errs[0]
	}
	return success, nil
}

// TransferMargin добавляет (add) или снимает изолированную маржу открытой позиции.
func (m *Manager) TransferMargin(ctx context.Context, exchangeName, symbol string, amount float64, add bool) (bool, error) {
	c, ok := m.Client(exchangeName)
	if !ok {
		return false, fmt.Errorf("%w: %s", exchange.ErrExchangeNotConfigured, exchangeName)
	}
	if amount <= 0 {
		return false, fmt.Errorf("%w: amount must be positive", exchange.ErrValidation)
	}
	mt, ok := c.(exchange.MarginTransferer)
	if !ok {
		return false, fmt.Errorf("%w: transfer margin on %s", exchange.ErrNotSupported, c.Name())
	}

	done, err := mt.TransferMargin(ctx, c.NormalizeSymbol(symbol), amount, add)
	metrics.OrdersTotal.WithLabelValues(c.Name(), "transfer_margin", metrics.Result(done && err == nil)).Inc()
	if err != nil {
		return false, errors.Wrapf(err, "transfer margin %s %s", c.Name(), symbol)
	}
	return done, nil
}

func openPositions(list []models.PositionInfo) []models.PositionInfo {
	out := make([]models.PositionInfo, 0, len(list))
	for _, p := range list {
		if p.Size > 0 {
			out = append(out, p)
		}
	}
	return out
}

func firstErr(err error, msg string) error {
	if err != nil {
		return err
	}
	if msg != "" {
		return errors.New(msg)
	}
	return errors.New("unknown error")
}
