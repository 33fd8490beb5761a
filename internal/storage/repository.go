package storage

import (
	"context"

	"trade_executor/internal/models"
)

// Repository: журнал сигналов, статистики позиций и состояния аккаунтов.
// На торговые решения не влияет: ошибки записи только логируются вызывающим.
type Repository interface {
	SaveSignal(ctx context.Context, s models.TradingSignal) error
	LoadSignals(ctx context.Context) ([]models.TradingSignal, error)
	DeleteSignal(ctx context.Context, exchange, symbol string) error
	SavePositionStats(ctx context.Context, s models.PositionStats) error
	SaveAccountStatus(ctx context.Context, o models.AccountOverview) error
	SaveEvent(ctx context.Context, e models.Event) error
}
