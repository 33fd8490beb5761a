package storage

import (
	"context"
	"time"

	"go.uber.org/fx"

	"trade_executor/pkg/db"
	"trade_executor/pkg/logger"
)

// NewRepository: есть пул Postgres — PG, иначе память.
func NewRepository(txm *db.PgTxManager) (Repository, error) {
	if txm == nil {
		logger.Info("[STORAGE] no database configured, using in-memory repository")
		return NewMemory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg := NewPG(txm)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(NewRepository),
	)
}
