package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"trade_executor/internal/manager"
	"trade_executor/internal/modules/binance_client"
	"trade_executor/internal/modules/bootstrap"
	"trade_executor/internal/modules/config"
	"trade_executor/internal/modules/health"
	"trade_executor/internal/modules/okx_client"
	"trade_executor/internal/modules/okx_websocket"
	"trade_executor/internal/modules/postgres"
	"trade_executor/internal/notify"
	"trade_executor/internal/runner"
	"trade_executor/internal/storage"
	"trade_executor/pkg/logger"
	"trade_executor/pkg/tracing"
)

// observability поднимает логгер и трейсер до остальных модулей.
func observability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	if err := logger.Init(cfg.Service.LogLevel, cfg.Service.Dev); err != nil {
		return err
	}

	if !cfg.Tracing.Enabled {
		return nil
	}
	tracing.SetServiceName(cfg.Service.Name)
	_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
	if err != nil {
		logger.Warn("tracing disabled: %v", err)
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		fx.NopLogger,
		config.Module(),
		fx.Module("observability", fx.Invoke(observability)),
		postgres.Module(),
		storage.Module(),
		health.Module(),
		notify.Module(),
		okx_client.Module(),
		binance_client.Module(),
		okx_websocket.Module(),
		manager.Module(),
		bootstrap.Module(),
		runner.Module(),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}
	logger.Info("executor started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("stop: %v", err)
	}
}
