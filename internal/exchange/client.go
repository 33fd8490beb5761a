package exchange

import (
	"context"

	"trade_executor/internal/models"
)

// Client: всё, что движок умеет делать с одной биржей.
// Методы чтения возвращают (значение, known): при ошибке сети/биржи ошибка уходит в лог,
// а вызывающий получает пустой результат. Ордера и плечо возвращают error.
type Client interface {
	Name() string
	Initialize(ctx context.Context) error
	Close() error

	NormalizeSymbol(symbol string) string

	GetMarketInfo(ctx context.Context, symbol string) (*models.MarketInfo, bool)
	GetBalance(ctx context.Context) (models.AccountBalance, bool)
	// symbol == "" — все позиции аккаунта
	GetPositions(ctx context.Context, symbol string) ([]models.PositionInfo, bool)

	SetLeverage(ctx context.Context, symbol string, requested int, mode models.MarginMode) (int, error)
	ConvertAmountToContracts(ctx context.Context, symbol string, usdt, price float64, leverage int) (float64, models.ConversionTrace, error)

	CreateOrder(ctx context.Context, params models.OrderParams) (models.OrderResult, error)
	AttachTPSL(ctx context.Context, symbol string, openSide models.Side, executed float64, mode models.MarginMode, takeProfit, stopLoss float64) (bool, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)

	GetOrder(ctx context.Context, symbol, orderID string) (*models.OrderInfo, bool)
	GetOpenOrders(ctx context.Context, symbol string) ([]models.OrderInfo, bool)
	GetFundingRate(ctx context.Context, symbol string) (float64, bool)
	GetMarkPriceHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, bool)
	GetLeverageBrackets(ctx context.Context, symbol string) ([]models.LeverageBracket, bool)
}

// MarginTransferer: добавить/снять маржу изолированной позиции.
type MarginTransferer interface {
	TransferMargin(ctx context.Context, symbol string, amount float64, add bool) (bool, error)
}

// Invalidator: сбросить кеш позиций и баланса, чтобы следующее чтение пошло на биржу.
type Invalidator interface {
	Invalidate()
}

// Fresh сбрасывает кеши клиента, если он это умеет.
func Fresh(c Client) {
	if inv, ok := c.(Invalidator); ok {
		inv.Invalidate()
	}
}

// Builder: как собрать клиента биржи под выбранную сеть. Провайдеры кладут их в fx группу.
type Builder struct {
	Name    string
	Enabled bool
	New     func(testnet bool) Client
}
