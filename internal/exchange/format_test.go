package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/models"
)

func TestFormatPrice(t *testing.T) {
	m := swapMarket()

	p := FormatPrice(m, 50000.17)
	assert.InDelta(t, 50000.2, p, 1e-9)
	assert.Equal(t, p, FormatPrice(m, p))
	assert.Equal(t, "50000.2", PriceString(m, 50000.17))

	m.TickSize = 0
	m.PricePrecision = 2
	assert.InDelta(t, 1.23, FormatPrice(m, 1.2349), 1e-12)
}

func TestFormatAmount(t *testing.T) {
	m := swapMarket()
	assert.Equal(t, 1.0, FormatAmount(m, 0.3))
	assert.Equal(t, 3.0, FormatAmount(m, 3.7))
	assert.Equal(t, "3", AmountString(m, 3.7))

	lm := linearMarket()
	a := FormatAmount(lm, 1.23456)
	assert.InDelta(t, 1.234, a, 1e-12)
	assert.Equal(t, a, FormatAmount(lm, a))
}

func TestSplitSymbol(t *testing.T) {
	cases := []struct {
		in, base, quote string
	}{
		{"BTC/USDT", "BTC", "USDT"},
		{"btc/usdt:usdt", "BTC", "USDT"},
		{"ETH-USDT", "ETH", "USDT"},
		{"ETH-USDT-SWAP", "ETH", "USDT"},
		{"SOLUSDT", "SOL", "USDT"},
		{" doge ", "DOGE", "USDT"},
		{"BTC-USD-SWAP", "BTC", "USD"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			b, q := SplitSymbol(tc.in)
			assert.Equal(t, tc.base, b)
			assert.Equal(t, tc.quote, q)

			// повторный разбор унифицированной формы даёт то же самое
			b2, q2 := SplitSymbol(Unified(tc.in))
			assert.Equal(t, b, b2)
			assert.Equal(t, q, q2)
		})
	}
}

func TestPrepareOrder(t *testing.T) {
	p, err := PrepareOrder(models.OrderParams{
		Symbol: "BTC/USDT",
		Side:   models.SideBuy,
		Type:   models.OrderLimit,
		Amount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderMarket, p.Type)
	assert.Equal(t, models.MarginCross, p.MarginMode)
	assert.Len(t, p.ClientOrderID, 32)

	_, err = PrepareOrder(models.OrderParams{
		Symbol: "BTC/USDT",
		Side:   models.SideSell,
		Type:   models.OrderStopMarket,
		Amount: 100,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = PrepareOrder(models.OrderParams{Symbol: "BTC/USDT", Type: models.OrderMarket, Amount: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderError(t *testing.T) {
	err := &OrderError{Exchange: "okx", Symbol: "BTC/USDT", Op: "create", Code: "51008", Err: ErrBelowMinimum}
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Contains(t, err.Error(), "code=51008")
}
