package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/models"
)

func TestMemory_Signals(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	t0 := time.Unix(1_700_000_000, 0)

	require.NoError(t, m.SaveSignal(ctx, models.TradingSignal{ID: "b", Exchange: "okx", Symbol: "ETH/USDT", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, m.SaveSignal(ctx, models.TradingSignal{ID: "a", Exchange: "okx", Symbol: "BTC/USDT", CreatedAt: t0}))
	// повтор по тому же символу заменяет сигнал
	require.NoError(t, m.SaveSignal(ctx, models.TradingSignal{ID: "c", Exchange: "okx", Symbol: "ETH/USDT", CreatedAt: t0.Add(2 * time.Minute)}))

	list, err := m.LoadSignals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	require.NoError(t, m.DeleteSignal(ctx, "okx", "BTC/USDT"))
	_, ok := m.Signal("okx", "BTC/USDT")
	assert.False(t, ok)
}

func TestMemory_StatsAndAccounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SavePositionStats(ctx, models.PositionStats{Exchange: "okx", Symbol: "BTC/USDT", Side: models.PositionLong, MaxProfitPct: 3}))
	require.NoError(t, m.SavePositionStats(ctx, models.PositionStats{Exchange: "okx", Symbol: "BTC/USDT", Side: models.PositionLong, MaxProfitPct: 5}))

	s, ok := m.Stats("okx", "BTC/USDT", models.PositionLong)
	require.True(t, ok)
	assert.Equal(t, 5.0, s.MaxProfitPct)

	_, ok = m.Stats("okx", "BTC/USDT", models.PositionShort)
	assert.False(t, ok)

	require.NoError(t, m.SaveAccountStatus(ctx, models.AccountOverview{Exchange: "binance", Health: models.HealthWarning}))
	o, ok := m.Account("binance")
	require.True(t, ok)
	assert.Equal(t, models.HealthWarning, o.Health)
}

func TestMemory_EventsCapped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < maxEvents+10; i++ {
		require.NoError(t, m.SaveEvent(ctx, models.Event{Kind: models.EventRiskWarning, Message: "x"}))
	}
	assert.Len(t, m.Events(), maxEvents)
}
