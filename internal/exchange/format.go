package exchange

import (
	"github.com/shopspring/decimal"

	"trade_executor/internal/models"
)

// FormatPrice: к ближайшему тику (или к PricePrecision). Идемпотентно.
func FormatPrice(m models.MarketInfo, price float64) float64 {
	return priceDecimal(m, price).InexactFloat64()
}

// FormatAmount: вниз до шага лота; для целых контрактов не меньше 1. Идемпотентно.
func FormatAmount(m models.MarketInfo, amount float64) float64 {
	return amountDecimal(m, amount).InexactFloat64()
}

// PriceString: цена в виде для тела запроса.
func PriceString(m models.MarketInfo, price float64) string {
	return priceDecimal(m, price).String()
}

func AmountString(m models.MarketInfo, amount float64) string {
	return amountDecimal(m, amount).String()
}

func priceDecimal(m models.MarketInfo, price float64) decimal.Decimal {
	d := decimal.NewFromFloat(price)
	if m.TickSize > 0 {
		tick := decimal.NewFromFloat(m.TickSize)
		return d.Div(tick).Round(0).Mul(tick)
	}
	if m.PricePrecision > 0 {
		return d.Round(m.PricePrecision)
	}
	return d
}

func amountDecimal(m models.MarketInfo, amount float64) decimal.Decimal {
	d := floorAmount(decimal.NewFromFloat(amount), m)
	if m.IntegerContracts() && d.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}
