package exchange

import (
	"fmt"

	"trade_executor/internal/models"
	"trade_executor/pkg/logger"

	"github.com/shopspring/decimal"
)

// ClampLeverage: плечо не меньше 1 и не выше максимального для инструмента (max <= 0 — без ограничения).
func ClampLeverage(requested, max int) int {
	if requested < 1 {
		requested = 1
	}
	if max > 0 && requested > max {
		return max
	}
	return requested
}

// ConvertAmount переводит бюджет в USDT в количество в единицах биржи.
//
// Целые контракты (AmountPrecision == 0):
//
//	raw = usdt*lev / (price*ct), q = max(1, floor(raw)), q < min => q = max(1, floor(min))
//
// Дробное количество: q = floor(usdt*lev/(price*ct)) до шага лота, q < min => ErrBelowMinimum.
// Для свопов количество всегда в контрактах (OKX sz), поэтому ct делит и дробные лоты; у спота ct = 1.
//
// Если маржа выходит больше бюджета (минимальный лот дороже), это предупреждение, а не ошибка:
// в trace ставится OverBudget.
func ConvertAmount(m models.MarketInfo, usdt, price float64, leverage, maxLeverage int) (float64, models.ConversionTrace, error) {
	trace := models.ConversionTrace{
		Price:           price,
		MaxLeverage:     maxLeverage,
		MinAmount:       m.MinAmount,
		AmountPrecision: m.AmountPrecision,
		ContractSize:    m.ContractSize,
	}
	if usdt <= 0 {
		return 0, trace, fmt.Errorf("%w: usdt amount must be positive, got %v", ErrValidation, usdt)
	}
	if price <= 0 {
		return 0, trace, fmt.Errorf("%w: price must be positive, got %v", ErrValidation, price)
	}

	lev := ClampLeverage(leverage, maxLeverage)
	trace.Leverage = lev

	dUSDT := decimal.NewFromFloat(usdt)
	dPrice := decimal.NewFromFloat(price)
	dLev := decimal.NewFromInt(int64(lev))
	budget := dUSDT.Mul(dLev)

	var qty, notional decimal.Decimal

	if m.IntegerContracts() {
		ct := contractSize(m)
		raw := budget.Div(dPrice.Mul(ct))
		trace.RawQuantity = raw.InexactFloat64()

		qty = decimal.Max(raw.Floor(), decimal.NewFromInt(1))
		minAmt := decimal.NewFromFloat(m.MinAmount)
		if qty.LessThan(minAmt) {
			qty = decimal.Max(minAmt.Floor(), decimal.NewFromInt(1))
		}
		notional = qty.Mul(dPrice).Mul(ct)
	} else {
		ct := contractSize(m)
		raw := budget.Div(dPrice.Mul(ct))
		trace.RawQuantity = raw.InexactFloat64()

		qty = floorAmount(raw, m)
		if qty.IsZero() || qty.LessThan(decimal.NewFromFloat(m.MinAmount)) {
			trace.Quantity = qty.InexactFloat64()
			return 0, trace, fmt.Errorf("%w: %s qty %s < min %v", ErrBelowMinimum, m.Symbol, qty.String(), m.MinAmount)
		}
		notional = qty.Mul(dPrice).Mul(ct)
	}

	margin := notional.Div(dLev)

	trace.Quantity = qty.InexactFloat64()
	trace.Notional = notional.InexactFloat64()
	trace.InitialMargin = margin.InexactFloat64()

	if margin.GreaterThan(dUSDT) {
		trace.OverBudget = true
		logger.Warn("[SIZING] %s margin %s exceeds budget %v USDT (qty=%s lev=%d)", m.Symbol, margin.StringFixed(4), usdt, qty.String(), lev)
	}

	return trace.Quantity, trace, nil
}

func contractSize(m models.MarketInfo) decimal.Decimal {
	if m.Type == models.MarketSwap && m.ContractSize > 0 {
		return decimal.NewFromFloat(m.ContractSize)
	}
	return decimal.NewFromInt(1)
}

// floorAmount: вниз до шага лота и точности.
func floorAmount(q decimal.Decimal, m models.MarketInfo) decimal.Decimal {
	if m.StepSize > 0 {
		step := decimal.NewFromFloat(m.StepSize)
		q = q.Div(step).Floor().Mul(step)
	}
	if m.AmountPrecision > 0 {
		q = q.RoundFloor(m.AmountPrecision)
	} else if m.IntegerContracts() {
		q = q.Floor()
	}
	return q
}
