package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"trade_executor/internal/modules/config"
	"trade_executor/pkg/db"
	"trade_executor/pkg/logger"
)

const connectTimeout = 10 * time.Second

// NewTxManager: nil без ошибки, если db_dsn пустой.
func NewTxManager(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
	if cfg.DB == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	if err := poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("[DB] postgres connected")

	txm := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			txm.Close()
			return nil
		},
	})
	return txm, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewTxManager),
	)
}
