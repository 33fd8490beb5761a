package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trade_executor/internal/models"
)

func TestDynamicStop(t *testing.T) {
	tests := []struct {
		name    string
		side    models.PositionSide
		entry   float64
		price   float64
		current float64
		tick    float64
		want    float64
		ok      bool
	}{
		{"long in profit no stop", models.PositionLong, 100, 110, 0, 0, 105, true},
		{"long improves stop", models.PositionLong, 100, 110, 95, 0, 105, true},
		{"long would loosen", models.PositionLong, 100, 110, 106, 0, 0, false},
		{"long equal is not better", models.PositionLong, 100, 110, 105, 0, 0, false},
		{"long under water", models.PositionLong, 100, 98, 95, 0, 0, false},
		{"long rounded to tick", models.PositionLong, 100, 110.37, 0, 0.1, 105.1, true},
		{"short in profit", models.PositionShort, 100, 90, 0, 0, 95, true},
		{"short improves stop", models.PositionShort, 100, 90, 104, 0, 95, true},
		{"short would loosen", models.PositionShort, 100, 90, 94, 0, 0, false},
		{"short under water", models.PositionShort, 100, 101, 104, 0, 0, false},
		{"no entry", models.PositionLong, 0, 110, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dynamicStop(tt.side, tt.entry, tt.price, tt.current, tt.tick)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestLevelHit(t *testing.T) {
	assert.True(t, levelHit(models.PositionLong, 51000, 51000))
	assert.False(t, levelHit(models.PositionLong, 50999, 51000))
	assert.True(t, levelHit(models.PositionShort, 2900, 2900))
	assert.False(t, levelHit(models.PositionShort, 2901, 2900))
	assert.False(t, levelHit(models.PositionLong, 51000, 0))
}

func TestProfitAndLoss(t *testing.T) {
	assert.InDelta(t, 2.0, profitPct(models.PositionLong, 50000, 51000), 1e-9)
	assert.InDelta(t, -2.0, profitPct(models.PositionShort, 50000, 51000), 1e-9)

	assert.InDelta(t, 25.0, lossPct(-250, 1000), 1e-9)
	assert.Zero(t, lossPct(100, 1000))
	assert.Zero(t, lossPct(-100, 0))
}
