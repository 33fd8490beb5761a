package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/models"
)

func swapMarket() models.MarketInfo {
	return models.MarketInfo{
		Symbol:          "BTC/USDT",
		NativeSymbol:    "BTC-USDT-SWAP",
		Type:            models.MarketSwap,
		AmountPrecision: 0,
		TickSize:        0.1,
		StepSize:        1,
		MinAmount:       1,
		ContractSize:    0.01,
	}
}

func linearMarket() models.MarketInfo {
	return models.MarketInfo{
		Symbol:          "BTC/USDT",
		NativeSymbol:    "BTCUSDT",
		Type:            models.MarketSwap,
		AmountPrecision: 3,
		PricePrecision:  1,
		TickSize:        0.1,
		StepSize:        0.001,
		MinAmount:       0.001,
		ContractSize:    1,
	}
}

func TestConvertAmount_IntegerContracts(t *testing.T) {
	qty, trace, err := ConvertAmount(swapMarket(), 100, 50000, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, 2.0, qty)
	assert.InDelta(t, 1000.0, trace.Notional, 1e-9)
	assert.InDelta(t, 100.0, trace.InitialMargin, 1e-9)
	assert.Equal(t, 10, trace.Leverage)
	assert.False(t, trace.OverBudget)
}

func TestConvertAmount_IntegerContractsAtLeastOne(t *testing.T) {
	qty, trace, err := ConvertAmount(swapMarket(), 10, 50000, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, qty)
	assert.InDelta(t, 0.02, trace.RawQuantity, 1e-12)
	assert.InDelta(t, 500.0, trace.InitialMargin, 1e-9)
	assert.True(t, trace.OverBudget, "margin above budget is a warning, not an error")
}

func TestConvertAmount_IntegerContractsBumpedToMinimum(t *testing.T) {
	m := swapMarket()
	m.MinAmount = 5

	qty, trace, err := ConvertAmount(m, 100, 50000, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, 5.0, qty)
	assert.InDelta(t, 2500.0, trace.Notional, 1e-9)
	assert.True(t, trace.OverBudget)
}

func TestConvertAmount_LeverageClamped(t *testing.T) {
	qty, trace, err := ConvertAmount(swapMarket(), 100, 50000, 100, 50)
	require.NoError(t, err)

	assert.Equal(t, 50, trace.Leverage)
	assert.Equal(t, 50, trace.MaxLeverage)
	assert.Equal(t, 10.0, qty)
}

func TestConvertAmount_Divisible(t *testing.T) {
	qty, trace, err := ConvertAmount(linearMarket(), 100, 50000, 10, 125)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, qty, 1e-12)
	assert.InDelta(t, 1000.0, trace.Notional, 1e-9)
	assert.InDelta(t, 100.0, trace.InitialMargin, 1e-9)
}

func TestConvertAmount_FractionalLotContracts(t *testing.T) {
	m := swapMarket()
	m.AmountPrecision = 2
	m.StepSize = 0.01
	m.MinAmount = 0.01

	qty, trace, err := ConvertAmount(m, 100, 50000, 10, 0)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, qty, 1e-12)
	assert.InDelta(t, 1000.0, trace.Notional, 1e-9)
	assert.InDelta(t, 100.0, trace.InitialMargin, 1e-9)

	qty, trace, err = ConvertAmount(m, 7, 50000, 10, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.14, qty, 1e-12)
	assert.InDelta(t, 70.0, trace.Notional, 1e-9)
}

func TestConvertAmount_DivisibleBelowMinimum(t *testing.T) {
	_, _, err := ConvertAmount(linearMarket(), 1, 50000, 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestConvertAmount_Validation(t *testing.T) {
	_, _, err := ConvertAmount(swapMarket(), 0, 50000, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = ConvertAmount(swapMarket(), 100, 0, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClampLeverage(t *testing.T) {
	assert.Equal(t, 50, ClampLeverage(100, 50))
	assert.Equal(t, 20, ClampLeverage(20, 50))
	assert.Equal(t, 1, ClampLeverage(0, 50))
	assert.Equal(t, 75, ClampLeverage(75, 0))
}
