package okx_websocket

import (
	"context"

	"go.uber.org/fx"

	"trade_executor/internal/modules/config"
	health "trade_executor/internal/modules/health/service"
	"trade_executor/internal/modules/okx_websocket/service"
	"trade_executor/pkg/logger"
)

func NewStream(cfg *config.Config, book *service.PriceBook) *service.Stream {
	url := cfg.Stream.URL
	if cfg.UseTestnet && (url == "" || url == service.DefaultURL) {
		url = service.TestnetURL
	}
	return service.NewStream(url, book)
}

// Module поднимает стрим mark price OKX.
func Module() fx.Option {
	return fx.Module("okx_websocket",
		fx.Provide(
			service.NewPriceBook,
			NewStream,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Stream, state *health.State) {
			s.OnState(state.SetWSConnected)
			if !cfg.Stream.Enabled {
				logger.Info("[WS] mark price stream disabled")
				return
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						s.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
