package manager

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"trade_executor/internal/exchange"
	"trade_executor/internal/modules/config"
	hs "trade_executor/internal/modules/health/service"
	"trade_executor/internal/storage"
)

type Params struct {
	fx.In

	Config   *config.Config
	Builders []exchange.Builder `group:"exchange_builders"`
	Repo     storage.Repository
	State    *hs.State
}

func NewManager(p Params) *Manager {
	return New(p.Builders, p.Config.UseTestnet, Defaults{
		Leverage:     p.Config.Trading.DefaultLeverage,
		PositionSize: p.Config.Trading.DefaultPositionSize,
	}, p.Repo)
}

func Module() fx.Option {
	return fx.Module("manager",
		fx.Provide(NewManager),
		fx.Invoke(func(mux *http.ServeMux, m *Manager, cfg *config.Config) {
			RegisterHTTP(mux, m, cfg.Service.APIToken)
		}),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager, state *hs.State) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := m.Initialize(ctx); err != nil {
						return err
					}
					state.SetExchanges(m.Exchanges())
					state.SetReady(true)
					return nil
				},
				OnStop: func(context.Context) error {
					state.SetReady(false)
					return m.Close()
				},
			})
		}),
	)
}
