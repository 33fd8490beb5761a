package service

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
)

func btcSymbol() futures.Symbol {
	return futures.Symbol{
		Symbol:            "BTCUSDT",
		BaseAsset:         "BTC",
		QuoteAsset:        "USDT",
		ContractType:      "PERPETUAL",
		Status:            "TRADING",
		PricePrecision:    2,
		QuantityPrecision: 3,
		Filters: []map[string]interface{}{
			{"filterType": "PRICE_FILTER", "tickSize": "0.10", "minPrice": "556.80"},
			{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "1000"},
			{"filterType": "MARKET_LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "120"},
			{"filterType": "MIN_NOTIONAL", "notional": "100"},
		},
	}
}

func TestMarketFromSymbol(t *testing.T) {
	m := marketFromSymbol(btcSymbol())

	assert.Equal(t, "BTC/USDT", m.Symbol)
	assert.Equal(t, "BTCUSDT", m.NativeSymbol)
	assert.Equal(t, 0.1, m.TickSize)
	assert.Equal(t, 0.001, m.StepSize)
	assert.Equal(t, 0.001, m.MinAmount)
	assert.Equal(t, 100.0, m.MinCost)
	assert.Equal(t, 120.0, m.MaxMarketAmount)
	assert.Equal(t, 1.0, m.ContractSize)
	assert.Equal(t, int32(3), m.AmountPrecision)
	assert.False(t, m.IntegerContracts())
}

func TestMarketFromSymbol_Sizing(t *testing.T) {
	m := marketFromSymbol(btcSymbol())
	m.LastPrice = 50000

	q, trace, err := exchange.ConvertAmount(m, 100, 50000, 10, 125)
	require.NoError(t, err)
	assert.Equal(t, 0.02, q)
	assert.InDelta(t, 1000.0, trace.Notional, 1e-9)
	assert.Equal(t, "0.02", exchange.AmountString(m, q))
}

func TestPositionFromRisk(t *testing.T) {
	tests := []struct {
		name   string
		row    futures.PositionRisk
		ok     bool
		side   models.PositionSide
		size   float64
		isoMgn float64
	}{
		{
			name: "zero dropped",
			row:  futures.PositionRisk{Symbol: "BTCUSDT", PositionAmt: "0", PositionSide: "BOTH"},
		},
		{
			name: "one-way short by sign",
			row: futures.PositionRisk{Symbol: "ETHUSDT", PositionAmt: "-1.5", PositionSide: "BOTH", EntryPrice: "3000",
				MarkPrice: "2900", Leverage: "10", MarginType: "cross", UnRealizedProfit: "150", Notional: "-4350"},
			ok: true, side: models.PositionShort, size: 1.5,
		},
		{
			name: "hedge long isolated",
			row: futures.PositionRisk{Symbol: "BTCUSDT", PositionAmt: "0.01", PositionSide: "LONG", EntryPrice: "50000",
				MarkPrice: "51000", Leverage: "5", MarginType: "isolated", IsolatedMargin: "101", UnRealizedProfit: "10"},
			ok: true, side: models.PositionLong, size: 0.01, isoMgn: 101,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.row
			p, ok := positionFromRisk(&row)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.side, p.Side)
			assert.Equal(t, tt.size, p.Size)
			assert.Equal(t, tt.isoMgn, p.IsolatedMargin)
			assert.Greater(t, p.Notional, 0.0)
		})
	}
}

func TestPositionFromRisk_PnLPercent(t *testing.T) {
	p, ok := positionFromRisk(&futures.PositionRisk{
		Symbol: "ETHUSDT", PositionAmt: "1", PositionSide: "BOTH", EntryPrice: "3000", MarkPrice: "3000",
		Leverage: "10", MarginType: "cross", UnRealizedProfit: "30", Notional: "3000",
	})
	require.True(t, ok)
	assert.Equal(t, "ETH/USDT", p.Symbol)
	assert.InDelta(t, 300.0, p.InitialMargin, 1e-9)
	assert.InDelta(t, 10.0, p.PnLPercent, 1e-9)
}

func TestBalanceFromAccount(t *testing.T) {
	b := balanceFromAccount(&futures.Account{
		TotalMarginBalance:    "1000",
		TotalWalletBalance:    "990",
		TotalInitialMargin:    "650",
		AvailableBalance:      "350",
		TotalUnrealizedProfit: "10",
	}, time.Time{})

	assert.Equal(t, 1000.0, b.Total)
	assert.Equal(t, 650.0, b.Used)
	assert.Equal(t, 350.0, b.Free)
	assert.InDelta(t, 65.0, b.MarginRatio, 1e-9)
	assert.Equal(t, models.HealthWarning, models.ClassifyHealth(b.MarginRatio))
}

func TestOrderMapping(t *testing.T) {
	o := orderFromBinance(&futures.Order{
		Symbol:           "BTCUSDT",
		OrderID:          12345,
		ClientOrderID:    "abc",
		Side:             futures.SideTypeSell,
		Type:             futures.OrderTypeStopMarket,
		OrigQuantity:     "0.010",
		ExecutedQuantity: "0.004",
		AvgPrice:         "49000",
		Status:           futures.OrderStatusTypePartiallyFilled,
		Time:             1_700_000_000_000,
	})

	assert.Equal(t, "12345", o.ID)
	assert.Equal(t, "BTC/USDT", o.Symbol)
	assert.Equal(t, models.SideSell, o.Side)
	assert.Equal(t, models.OrderStopMarket, o.Type)
	assert.Equal(t, 49000.0, o.Price)
	assert.InDelta(t, 0.006, o.Remaining, 1e-12)

	assert.Equal(t, futures.OrderTypeTakeProfitMarket, orderType(models.OrderTakeProfitMarket))
	assert.Equal(t, futures.OrderTypeMarket, orderType(models.OrderMarket))
	assert.Equal(t, futures.MarginTypeIsolated, marginType("ISOLATED"))
	assert.Equal(t, futures.MarginTypeCrossed, marginType(""))
}

func TestPositionSide(t *testing.T) {
	assert.Equal(t, futures.PositionSideTypeBoth, positionSide(false, models.SideBuy, false))
	assert.Equal(t, futures.PositionSideTypeLong, positionSide(true, models.SideBuy, false))
	assert.Equal(t, futures.PositionSideTypeShort, positionSide(true, models.SideSell, false))
	// закрытие лонга — sell с positionSide LONG
	assert.Equal(t, futures.PositionSideTypeLong, positionSide(true, models.SideSell, true))
}

func TestBracketsFrom(t *testing.T) {
	b := bracketsFrom([]*futures.LeverageBracket{{
		Symbol: "BTCUSDT",
		Brackets: []futures.Bracket{
			{Bracket: 1, InitialLeverage: 125, NotionalCap: 50000, NotionalFloor: 0, MaintMarginRatio: 0.004},
			{Bracket: 2, InitialLeverage: 100, NotionalCap: 250000, NotionalFloor: 50000, MaintMarginRatio: 0.005},
		},
	}})
	require.Len(t, b, 2)
	assert.Equal(t, 125, b[0].MaxLeverage)
	assert.Equal(t, 50000.0, b[1].NotionalFloor)
}

func TestInitialize_EmptyKeys(t *testing.T) {
	c := NewClient(models.Credentials{})
	assert.ErrorIs(t, c.Initialize(context.Background()), exchange.ErrExchangeNotConfigured)
}

func TestNormalizeSymbol(t *testing.T) {
	c := NewClient(models.Credentials{})
	assert.Equal(t, "BTCUSDT", c.NormalizeSymbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", c.NormalizeSymbol("ETH-USDT-SWAP"))
	assert.Equal(t, testnetURL, NewClient(models.Credentials{Testnet: true}).api.BaseURL)
}
