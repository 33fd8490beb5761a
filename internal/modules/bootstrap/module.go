package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"trade_executor/internal/manager"
	bootstrap "trade_executor/internal/modules/bootstrap/service"
	"trade_executor/internal/modules/config"
	ws "trade_executor/internal/modules/okx_websocket/service"
	okx "trade_executor/internal/modules/okx_client/service"
	"trade_executor/pkg/logger"
)

func NewWarmuper(cfg *config.Config, m *manager.Manager, stream *ws.Stream) *bootstrap.Warmuper {
	watchers := map[string]bootstrap.Watcher{}
	if cfg.Stream.Enabled {
		watchers[okx.Name] = stream
	}
	return bootstrap.NewWarmuper(m, watchers)
}

// Module: прогрев после инициализации менеджера. Подключать после manager.Module.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(NewWarmuper),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						n := wu.Warmup(ctx)
						logger.Info("[BOOT] warmup done: %d symbols", n)
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
