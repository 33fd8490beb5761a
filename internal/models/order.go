package models

import (
	"errors"
	"fmt"
	"strings"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite: закрывающая сторона.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// PositionSideFor: какую позицию открывает ордер стороны s.
func PositionSideFor(s Side) PositionSide {
	if s == SideSell {
		return PositionShort
	}
	return PositionLong
}

type OrderType string

const (
	OrderMarket           OrderType = "MARKET"
	OrderLimit            OrderType = "LIMIT"
	OrderStop             OrderType = "STOP"
	OrderStopMarket       OrderType = "STOP_MARKET"
	OrderTakeProfit       OrderType = "TAKE_PROFIT"
	OrderTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// IsTrigger: стоп/тейк варианты, требуют StopPrice.
func (t OrderType) IsTrigger() bool {
	switch t {
	case OrderStop, OrderStopMarket, OrderTakeProfit, OrderTakeProfitMarket:
		return true
	}
	return false
}

func (t OrderType) IsTakeProfit() bool {
	return t == OrderTakeProfit || t == OrderTakeProfitMarket
}

type MarginMode string

const (
	MarginCross    MarginMode = "cross"
	MarginIsolated MarginMode = "isolated"
)

// NormalizeMarginMode: пустое и неизвестное трактуем как cross.
func NormalizeMarginMode(m MarginMode) MarginMode {
	if strings.EqualFold(string(m), string(MarginIsolated)) {
		return MarginIsolated
	}
	return MarginCross
}

// Ключи Extra, которые понимают клиенты бирж.
const (
	ExtraTPTriggerPx     = "tpTriggerPx"
	ExtraTakeProfitPrice = "takeProfitPrice"
	ExtraSLTriggerPx     = "slTriggerPx"
	ExtraStopLossPrice   = "stopLossPrice"
)

var ErrInvalidOrder = errors.New("invalid order parameters")

type OrderParams struct {
	Symbol string
	Side   Side
	Type   OrderType

	// Amount: бюджет в валюте котировки (USDT) до пересчёта в контракты.
	Amount float64
	// Quantity: уже готовое количество в единицах биржи (закрытие позиции), пересчёт не делается.
	Quantity float64

	Price      float64
	StopPrice  float64
	ReduceOnly bool
	Leverage   int
	MarginMode MarginMode

	ClientOrderID string
	Extra         map[string]string
}

// Validate проверяет параметры до любого запроса на биржу.
func (p OrderParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Symbol) == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	case p.Side != SideBuy && p.Side != SideSell:
		return fmt.Errorf("%w: side=%q", ErrInvalidOrder, p.Side)
	case p.Type == "":
		return fmt.Errorf("%w: empty order type", ErrInvalidOrder)
	case p.Amount <= 0 && p.Quantity <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	case p.Type == OrderLimit && p.Price <= 0:
		return fmt.Errorf("%w: limit order requires price", ErrInvalidOrder)
	case p.Type.IsTrigger() && p.StopPrice <= 0:
		return fmt.Errorf("%w: %s requires trigger price", ErrInvalidOrder, p.Type)
	}
	return nil
}

// ExtraPrice достаёт первую валидную цену из Extra по списку ключей.
func (p OrderParams) ExtraPrice(keys ...string) float64 {
	return extraPrice(p.Extra, keys...)
}

// ConversionTrace: как бюджет превратился в количество.
type ConversionTrace struct {
	RawQuantity     float64
	Quantity        float64
	InitialMargin   float64
	Notional        float64
	Price           float64
	Leverage        int
	MaxLeverage     int
	MinAmount       float64
	AmountPrecision int32
	ContractSize    float64
	OverBudget      bool
}

// FallbackAttempt: одна попытка из цепочки повторов.
type FallbackAttempt struct {
	Name    string
	Code    string
	Message string
	OK      bool
}

type ZoneResult struct {
	Price   float64
	Amount  float64
	OrderID string
	Success bool
	Error   string
}

type OrderExtra struct {
	RawResponse string
	Conversion  *ConversionTrace
	Attempts    []FallbackAttempt
	Zones       []ZoneResult
}

type OrderResult struct {
	Success        bool
	OrderID        string
	ClientOrderID  string
	ExecutedPrice  float64
	ExecutedAmount float64
	Error          string
	Extra          OrderExtra
}

// Failed: результат для ошибки, которую нужно показать пользователю.
func Failed(format string, args ...any) OrderResult {
	return OrderResult{Error: fmt.Sprintf(format, args...)}
}
