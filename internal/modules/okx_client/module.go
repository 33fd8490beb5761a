package okx_client

import (
	"go.uber.org/fx"

	"trade_executor/internal/exchange"
	"trade_executor/internal/modules/config"
	"trade_executor/internal/modules/okx_client/service"
)

func NewBuilder(cfg *config.Config) exchange.Builder {
	ec := cfg.Exchanges.OKX
	return exchange.Builder{
		Name:    service.Name,
		Enabled: ec.Enabled,
		New: func(testnet bool) exchange.Client {
			opts := []service.Option{
				service.WithTimeout(cfg.HTTP.Timeout),
				service.WithProxy(cfg.ProxyURL()),
			}
			if ec.RateInterval > 0 {
				opts = append(opts, service.WithRateInterval(ec.RateInterval))
			}
			if ec.BaseURL != "" {
				opts = append(opts, service.WithBaseURL(ec.BaseURL))
			}
			return service.NewClient(ec.Credentials(testnet), opts...)
		},
	}
}

func Module() fx.Option {
	return fx.Module("okx_client",
		fx.Provide(
			fx.Annotate(NewBuilder, fx.ResultTags(`group:"exchange_builders"`)),
		),
	)
}
