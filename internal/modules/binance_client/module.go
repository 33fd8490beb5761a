package binance_client

import (
	"go.uber.org/fx"

	"trade_executor/internal/exchange"
	"trade_executor/internal/modules/binance_client/service"
	"trade_executor/internal/modules/config"
)

func NewBuilder(cfg *config.Config) exchange.Builder {
	ec := cfg.Exchanges.Binance
	return exchange.Builder{
		Name:    service.Name,
		Enabled: ec.Enabled,
		New: func(testnet bool) exchange.Client {
			opts := []service.Option{
				service.WithTimeout(cfg.HTTP.Timeout),
				service.WithProxy(cfg.ProxyURL()),
				service.WithBaseURL(ec.BaseURL),
			}
			if ec.RateInterval > 0 {
				opts = append(opts, service.WithRateInterval(ec.RateInterval))
			}
			return service.NewClient(ec.Credentials(testnet), opts...)
		},
	}
}

func Module() fx.Option {
	return fx.Module("binance_client",
		fx.Provide(
			fx.Annotate(NewBuilder, fx.ResultTags(`group:"exchange_builders"`)),
		),
	)
}
