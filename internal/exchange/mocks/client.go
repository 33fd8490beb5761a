package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
)

// Client: testify мок exchange.Client для тестов менеджера и монитора.
type Client struct {
	mock.Mock
	name string
}

func NewClient(name string) *Client { return &Client{name: name} }

func (m *Client) Name() string { return m.name }

func (m *Client) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Client) Close() error {
	return m.Called().Error(0)
}

func (m *Client) NormalizeSymbol(symbol string) string {
	return exchange.Unified(symbol)
}

func (m *Client) GetMarketInfo(ctx context.Context, symbol string) (*models.MarketInfo, bool) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.MarketInfo), args.Bool(1)
}

func (m *Client) GetBalance(ctx context.Context) (models.AccountBalance, bool) {
	args := m.Called(ctx)
	return args.Get(0).(models.AccountBalance), args.Bool(1)
}

func (m *Client) GetPositions(ctx context.Context, symbol string) ([]models.PositionInfo, bool) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.PositionInfo), args.Bool(1)
}

func (m *Client) SetLeverage(ctx context.Context, symbol string, requested int, mode models.MarginMode) (int, error) {
	args := m.Called(ctx, symbol, requested, mode)
	return args.Int(0), args.Error(1)
}

func (m *Client) ConvertAmountToContracts(ctx context.Context, symbol string, usdt, price float64, leverage int) (float64, models.ConversionTrace, error) {
	args := m.Called(ctx, symbol, usdt, price, leverage)
	return args.Get(0).(float64), args.Get(1).(models.ConversionTrace), args.Error(2)
}

func (m *Client) CreateOrder(ctx context.Context, params models.OrderParams) (models.OrderResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(models.OrderResult), args.Error(1)
}

func (m *Client) AttachTPSL(ctx context.Context, symbol string, openSide models.Side, executed float64, mode models.MarginMode, takeProfit, stopLoss float64) (bool, error) {
	args := m.Called(ctx, symbol, openSide, executed, mode, takeProfit, stopLoss)
	return args.Bool(0), args.Error(1)
}

func (m *Client) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *Client) GetOrder(ctx context.Context, symbol, orderID string) (*models.OrderInfo, bool) {
	args := m.Called(ctx, symbol, orderID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.OrderInfo), args.Bool(1)
}

func (m *Client) GetOpenOrders(ctx context.Context, symbol string) ([]models.OrderInfo, bool) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.OrderInfo), args.Bool(1)
}

func (m *Client) GetFundingRate(ctx context.Context, symbol string) (float64, bool) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Bool(1)
}

func (m *Client) GetMarkPriceHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, bool) {
	args := m.Called(ctx, symbol, timeframe, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.Candle), args.Bool(1)
}

func (m *Client) GetLeverageBrackets(ctx context.Context, symbol string) ([]models.LeverageBracket, bool) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]models.LeverageBracket), args.Bool(1)
}

// Invalidate: мок тоже умеет сбрасывать кеш, монитор это дергает каждую итерацию.
func (m *Client) Invalidate() {}

// MarginClient: мок биржи с переводом изолированной маржи.
type MarginClient struct {
	*Client
}

func NewMarginClient(name string) *MarginClient {
	return &MarginClient{Client: NewClient(name)}
}

func (m *MarginClient) TransferMargin(ctx context.Context, symbol string, amount float64, add bool) (bool, error) {
	args := m.Called(ctx, symbol, amount, add)
	return args.Bool(0), args.Error(1)
}

var (
	_ exchange.Client           = (*Client)(nil)
	_ exchange.Invalidator      = (*Client)(nil)
	_ exchange.MarginTransferer = (*MarginClient)(nil)
)
