package runner

import (
	"context"

	"go.uber.org/fx"

	"trade_executor/internal/manager"
	"trade_executor/internal/modules/config"
	hs "trade_executor/internal/modules/health/service"
	ws "trade_executor/internal/modules/okx_websocket/service"
	okx "trade_executor/internal/modules/okx_client/service"
	"trade_executor/internal/notify"
	"trade_executor/internal/storage"
)

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:         cfg.Monitor.Interval,
		AccountInterval:  cfg.Monitor.AccountInterval,
		PriceMaxAge:      cfg.Monitor.PriceMaxAge,
		DynamicSL:        cfg.Trading.EnableDynamicSL,
		RiskMarginRatio:  cfg.Monitor.RiskMarginRatio,
		RiskLossPct:      cfg.Monitor.RiskLossPct,
		RiskHoldingHours: cfg.Monitor.RiskHoldingHours,
	}
}

type Params struct {
	fx.In

	Config   *config.Config
	Manager  *manager.Manager
	Repo     storage.Repository
	Notifier notify.Notifier
	State    *hs.State
	Stream   *ws.Stream `optional:"true"`
}

func NewMonitorFx(p Params) *Monitor {
	m := NewMonitor(p.Manager, p.Repo, p.Notifier, OptionsFromConfig(p.Config)).WithHeartbeat(p.State)
	if p.Stream != nil && p.Config.Stream.Enabled {
		m.WithPriceFeed(okx.Name, p.Stream)
	}
	return m
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(NewMonitorFx),
		fx.Invoke(func(lc fx.Lifecycle, m *Monitor) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					m.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					m.Stop()
					return nil
				},
			})
		}),
	)
}
