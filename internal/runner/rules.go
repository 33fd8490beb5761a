package runner

import (
	"math"

	"trade_executor/internal/helper"
	"trade_executor/internal/models"
)

// dynamicStopFactor: доля пройденного в плюс пути, которую стоп забирает себе.
const dynamicStopFactor = 0.5

// dynamicStop: новый стоп entry ± 0.5*excursion, только если он строго лучше текущего.
// current == 0 значит стопа нет.
func dynamicStop(side models.PositionSide, entry, price, current, tick float64) (float64, bool) {
	if entry <= 0 || price <= 0 {
		return 0, false
	}

	var cand float64
	switch side {
	case models.PositionLong:
		if price <= entry {
			return 0, false
		}
		cand = helper.RoundDownToTick(entry+dynamicStopFactor*(price-entry), tick)
		if cand <= entry || (current > 0 && cand <= current) {
			return 0, false
		}
	case models.PositionShort:
		if price >= entry {
			return 0, false
		}
		cand = helper.RoundUpToTick(entry-dynamicStopFactor*(entry-price), tick)
		if cand >= entry || (current > 0 && cand >= current) {
			return 0, false
		}
	default:
		return 0, false
	}
	return cand, true
}

// levelHit: long — цена дошла до уровня снизу, short — сверху.
func levelHit(side models.PositionSide, price, level float64) bool {
	if level <= 0 || price <= 0 {
		return false
	}
	if side == models.PositionShort {
		return price <= level
	}
	return price >= level
}

// profitPct: результат позиции в % от входа с учётом направления.
func profitPct(side models.PositionSide, entry, price float64) float64 {
	pct := helper.PctChange(entry, price)
	if side == models.PositionShort {
		return -pct
	}
	return pct
}

// lossPct: нереализованный убыток в % от номинала, 0 если позиция в плюсе.
func lossPct(upl, notional float64) float64 {
	if upl >= 0 || notional <= 0 {
		return 0
	}
	return math.Abs(upl) / notional * 100
}
