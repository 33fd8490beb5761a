package manager

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
)

// fanOut вызывает fn для каждого клиента параллельно и собирает результаты с known=true.
func fanOut[T any](ctx context.Context, clients map[string]exchange.Client, fn func(ctx context.Context, c exchange.Client) (T, bool)) map[string]T {
	var (
		mu  sync.Mutex
		out = make(map[string]T, len(clients))
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range clients {
		name, c := name, c
		g.Go(func() error {
			v, ok := fn(gctx, c)
			if !ok {
				return nil
			}
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (m *Manager) GetPositions(ctx context.Context) map[string][]models.PositionInfo {
	return fanOut(ctx, m.snapshot(), func(ctx context.Context, c exchange.Client) ([]models.PositionInfo, bool) {
		return c.GetPositions(ctx, "")
	})
}

func (m *Manager) GetOpenOrders(ctx context.Context, symbol string) map[string][]models.OrderInfo {
	return fanOut(ctx, m.snapshot(), func(ctx context.Context, c exchange.Client) ([]models.OrderInfo, bool) {
		return c.GetOpenOrders(ctx, symbol)
	})
}

func (m *Manager) GetBalances(ctx context.Context) map[string]models.AccountBalance {
	return fanOut(ctx, m.snapshot(), func(ctx context.Context, c exchange.Client) (models.AccountBalance, bool) {
		return c.GetBalance(ctx)
	})
}

// GetFundingRates: ставки только по символам активных сигналов.
func (m *Manager) GetFundingRates(ctx context.Context) map[string]map[string]float64 {
	active := m.ActiveSymbols()
	return fanOut(ctx, m.snapshot(), func(ctx context.Context, c exchange.Client) (map[string]float64, bool) {
		symbols := active[c.Name()]
		if len(symbols) == 0 {
			return nil, false
		}
		rates := make(map[string]float64, len(symbols))
		for _, s := range symbols {
			if r, ok := c.GetFundingRate(ctx, s); ok {
				rates[s] = r
			}
		}
		return rates, len(rates) > 0
	})
}

func (m *Manager) GetLeverageBrackets(ctx context.Context, exchangeName, symbol string) ([]models.LeverageBracket, bool) {
	c, ok := m.Client(exchangeName)
	if !ok {
		return nil, false
	}
	return c.GetLeverageBrackets(ctx, symbol)
}

func (m *Manager) GetMarketInfo(ctx context.Context, exchangeName, symbol string) (*models.MarketInfo, bool) {
	c, ok := m.Client(exchangeName)
	if !ok {
		return nil, false
	}
	return c.GetMarketInfo(ctx, symbol)
}

// GetAccountOverview: сводка по каждой бирже с классификацией здоровья.
func (m *Manager) GetAccountOverview(ctx context.Context) map[string]models.AccountOverview {
	return fanOut(ctx, m.snapshot(), func(ctx context.Context, c exchange.Client) (models.AccountOverview, bool) {
		return m.overview(ctx, c)
	})
}

// AccountOverview: сводка по одной бирже.
func (m *Manager) AccountOverview(ctx context.Context, exchangeName string) (models.AccountOverview, bool) {
	c, ok := m.Client(exchangeName)
	if !ok {
		return models.AccountOverview{}, false
	}
	return m.overview(ctx, c)
}

func (m *Manager) overview(ctx context.Context, c exchange.Client) (models.AccountOverview, bool) {
	bal, ok := c.GetBalance(ctx)
	if !ok {
		return models.AccountOverview{}, false
	}
	positions, _ := c.GetPositions(ctx, "")

	return models.AccountOverview{
		Exchange:       c.Name(),
		TotalEquity:    bal.Total,
		UsedMargin:     bal.Used,
		FreeMargin:     bal.Free,
		MarginRatio:    bal.MarginRatio,
		UnrealizedPnL:  bal.UnrealizedPnL,
		RealizedPnL:    bal.RealizedPnL,
		Health:         models.ClassifyHealth(bal.MarginRatio),
		TotalPositions: len(openPositions(positions)),
		UpdatedAt:      m.now(),
	}, true
}

// CalculatePositionValue: номинал позиции; если биржа его не дала, size * mark.
func CalculatePositionValue(p models.PositionInfo) float64 {
	if p.Notional != 0 {
		return math.Abs(p.Notional)
	}
	price := p.MarkPrice
	if price <= 0 {
		price = p.EntryPrice
	}
	return p.Size * price
}

// CalculateRiskMetrics: риск позиции относительно баланса счёта.
func CalculateRiskMetrics(p models.PositionInfo, bal models.AccountBalance) models.RiskMetrics {
	value := CalculatePositionValue(p)

	rm := models.RiskMetrics{
		PositionValue: value,
		MarginRatio:   p.MarginRatio,
	}
	if rm.MarginRatio == 0 {
		rm.MarginRatio = bal.MarginRatio
	}
	if bal.Total > 0 {
		rm.LeverageUsed = value / bal.Total
	}
	if p.EntryPrice > 0 && p.LiquidationPrice > 0 {
		rm.LiquidationDistance = math.Abs(p.EntryPrice-p.LiquidationPrice) / p.EntryPrice * 100
	}
	return rm
}
