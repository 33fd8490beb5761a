package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
)

func pf(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// filterValue: поле фильтра exchange info ("PRICE_FILTER", "tickSize").
func filterValue(s futures.Symbol, filterType, key string) float64 {
	for _, f := range s.Filters {
		if f["filterType"] != filterType {
			continue
		}
		switch v := f[key].(type) {
		case string:
			return pf(v)
		case float64:
			return v
		}
	}
	return 0
}

// marketFromSymbol: метаданные без цен.
func marketFromSymbol(s futures.Symbol) models.MarketInfo {
	return models.MarketInfo{
		Symbol:          s.BaseAsset + "/" + s.QuoteAsset,
		NativeSymbol:    s.Symbol,
		Base:            s.BaseAsset,
		Quote:           s.QuoteAsset,
		Type:            models.MarketSwap,
		PricePrecision:  int32(s.PricePrecision),
		AmountPrecision: int32(s.QuantityPrecision),
		TickSize:        filterValue(s, "PRICE_FILTER", "tickSize"),
		StepSize:        filterValue(s, "LOT_SIZE", "stepSize"),
		MinAmount:       filterValue(s, "LOT_SIZE", "minQty"),
		MinCost:         filterValue(s, "MIN_NOTIONAL", "notional"),
		MaxMarketAmount: filterValue(s, "MARKET_LOT_SIZE", "maxQty"),
		ContractSize:    1,
	}
}

// positionFromRisk; нулевые позиции отбрасываются.
func positionFromRisk(r *futures.PositionRisk) (models.PositionInfo, bool) {
	amt := pf(r.PositionAmt)
	if amt == 0 {
		return models.PositionInfo{}, false
	}

	var side models.PositionSide
	switch strings.ToUpper(r.PositionSide) {
	case string(futures.PositionSideTypeLong):
		side = models.PositionLong
	case string(futures.PositionSideTypeShort):
		side = models.PositionShort
	default:
		// BOTH: знак количества
		side = models.PositionLong
		if amt < 0 {
			side = models.PositionShort
		}
	}

	lev, _ := strconv.Atoi(r.Leverage)
	mode := models.NormalizeMarginMode(models.MarginMode(r.MarginType))
	entry := pf(r.EntryPrice)
	mark := pf(r.MarkPrice)
	upl := pf(r.UnRealizedProfit)
	notional := math.Abs(pf(r.Notional))
	if notional == 0 {
		notional = math.Abs(amt) * mark
	}

	var initial float64
	if lev > 0 {
		initial = notional / float64(lev)
	}
	var pnlPct float64
	if initial > 0 {
		pnlPct = upl / initial * 100
	}

	p := models.PositionInfo{
		Symbol:           exchange.Unified(r.Symbol),
		Side:             side,
		Size:             math.Abs(amt),
		EntryPrice:       entry,
		MarginMode:       mode,
		Leverage:         lev,
		LiquidationPrice: pf(r.LiquidationPrice),
		MarkPrice:        mark,
		BreakEvenPrice:   pf(r.BreakEvenPrice),
		InitialMargin:    initial,
		UnrealizedPnL:    upl,
		PnLPercent:       pnlPct,
		Notional:         notional,
		Timestamp:        time.Now(),
	}
	if mode == models.MarginIsolated {
		p.IsolatedMargin = pf(r.IsolatedMargin)
		p.PositionMargin = p.IsolatedMargin
	} else {
		p.PositionMargin = initial
	}
	return p, true
}

// balanceFromAccount: суммарные поля аккаунта в USDT.
func balanceFromAccount(a *futures.Account, ts time.Time) models.AccountBalance {
	total := pf(a.TotalMarginBalance)
	if total == 0 {
		total = pf(a.TotalWalletBalance)
	}
	used := pf(a.TotalInitialMargin)
	free := pf(a.AvailableBalance)
	return models.NewAccountBalance(total, used, free, pf(a.TotalUnrealizedProfit), 0, ts)
}

func orderFromBinance(o *futures.Order) models.OrderInfo {
	amount := pf(o.OrigQuantity)
	filled := pf(o.ExecutedQuantity)
	price := pf(o.Price)
	if price == 0 {
		price = pf(o.AvgPrice)
	}
	return models.OrderInfo{
		ID:        strconv.FormatInt(o.OrderID, 10),
		ClientID:  o.ClientOrderID,
		Symbol:    exchange.Unified(o.Symbol),
		Side:      models.Side(strings.ToLower(string(o.Side))),
		Type:      models.OrderType(o.Type),
		Price:     price,
		Amount:    amount,
		Filled:    filled,
		Remaining: amount - filled,
		Status:    string(o.Status),
		Timestamp: time.UnixMilli(o.Time),
	}
}

func sideType(s models.Side) futures.SideType {
	if s == models.SideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func orderType(t models.OrderType) futures.OrderType {
	switch t {
	case models.OrderLimit:
		return futures.OrderTypeLimit
	case models.OrderStop:
		return futures.OrderTypeStop
	case models.OrderStopMarket:
		return futures.OrderTypeStopMarket
	case models.OrderTakeProfit:
		return futures.OrderTypeTakeProfit
	case models.OrderTakeProfitMarket:
		return futures.OrderTypeTakeProfitMarket
	default:
		return futures.OrderTypeMarket
	}
}

func marginType(m models.MarginMode) futures.MarginType {
	if models.NormalizeMarginMode(m) == models.MarginIsolated {
		return futures.MarginTypeIsolated
	}
	return futures.MarginTypeCrossed
}

// positionSide: в hedge mode сторона позиции, в one-way BOTH.
func positionSide(dualSide bool, side models.Side, reduceOnly bool) futures.PositionSideType {
	if !dualSide {
		return futures.PositionSideTypeBoth
	}
	if reduceOnly {
		side = side.Opposite()
	}
	if side == models.SideSell {
		return futures.PositionSideTypeShort
	}
	return futures.PositionSideTypeLong
}

func bracketsFrom(list []*futures.LeverageBracket) []models.LeverageBracket {
	var out []models.LeverageBracket
	for _, lb := range list {
		for _, b := range lb.Brackets {
			out = append(out, models.LeverageBracket{
				Bracket:          b.Bracket,
				MaxLeverage:      b.InitialLeverage,
				NotionalFloor:    b.NotionalFloor,
				NotionalCap:      b.NotionalCap,
				MaintMarginRatio: b.MaintMarginRatio,
			})
		}
	}
	return out
}
