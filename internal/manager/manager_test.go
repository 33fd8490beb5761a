package manager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/exchange"
	"trade_executor/internal/exchange/mocks"
	"trade_executor/internal/models"
	"trade_executor/internal/storage"
)

var (
	defaults = Defaults{Leverage: 10, PositionSize: 100}
	timeZero time.Time
)

func newTestManager(clients ...exchange.Client) (*Manager, *storage.Memory) {
	repo := storage.NewMemory()
	return NewWithClients(clients, defaults, repo), repo
}

func ok(id string, amount float64) models.OrderResult {
	return models.OrderResult{Success: true, OrderID: id, ExecutedAmount: amount, ExecutedPrice: 50000}
}

func orderOf(typ models.OrderType) any {
	return mock.MatchedBy(func(p models.OrderParams) bool { return p.Type == typ })
}

func TestInitialize(t *testing.T) {
	t.Run("one failing exchange is skipped", func(t *testing.T) {
		good := mocks.NewClient("okx")
		good.On("Initialize", mock.Anything).Return(nil)
		bad := mocks.NewClient("binance")
		bad.On("Initialize", mock.Anything).Return(errors.New("bad keys"))
		bad.On("Close").Return(nil)

		var gotTestnet []bool
		builders := []exchange.Builder{
			{Name: "okx", Enabled: true, New: func(tn bool) exchange.Client { gotTestnet = append(gotTestnet, tn); return good }},
			{Name: "binance", Enabled: true, New: func(tn bool) exchange.Client { gotTestnet = append(gotTestnet, tn); return bad }},
			{Name: "bybit", Enabled: false, New: func(bool) exchange.Client { t.Fatal("disabled builder called"); return nil }},
		}

		m := New(builders, true, defaults, storage.NewMemory())
		require.NoError(t, m.Initialize(context.Background()))
		assert.Equal(t, []string{"okx"}, m.Exchanges())
		assert.Equal(t, []bool{true, true}, gotTestnet)
		bad.AssertCalled(t, "Close")
	})

	t.Run("all failing", func(t *testing.T) {
		bad := mocks.NewClient("okx")
		bad.On("Initialize", mock.Anything).Return(exchange.ErrExchangeNotConfigured)
		bad.On("Close").Return(nil)

		m := New([]exchange.Builder{{Name: "okx", Enabled: true, New: func(bool) exchange.Client { return bad }}}, false, defaults, nil)
		assert.ErrorIs(t, m.Initialize(context.Background()), ErrNoExchanges)
	})

	t.Run("restores active signals", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("Initialize", mock.Anything).Return(nil)
		repo := storage.NewMemory()
		require.NoError(t, repo.SaveSignal(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenLong}))
		require.NoError(t, repo.SaveSignal(context.Background(), models.TradingSignal{Exchange: "kraken", Symbol: "ETH/USDT", Action: models.ActionOpenLong}))

		m := New([]exchange.Builder{{Name: "okx", Enabled: true, New: func(bool) exchange.Client { return c }}}, false, defaults, repo)
		require.NoError(t, m.Initialize(context.Background()))

		_, found := m.ActiveSignal("okx", "BTC-USDT-SWAP")
		assert.True(t, found)
		assert.Len(t, m.ActiveSignals(), 1)
	})
}

func TestExecuteSignal_Rejects(t *testing.T) {
	m, _ := newTestManager(mocks.NewClient("okx"))

	res := m.ExecuteSignal(context.Background(), models.TradingSignal{Exchange: "kraken", Symbol: "BTC/USDT", Action: models.ActionOpenLong, PositionSize: 10})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "kraken")

	res = m.ExecuteSignal(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "", Action: models.ActionOpenLong})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid signal")
}

func TestExecuteSignal_MarketWithTPSL(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
		return p.Type == models.OrderMarket && p.Side == models.SideBuy && p.Amount == 100 && p.Leverage == 10 &&
			p.MarginMode == models.MarginCross && p.Extra[models.ExtraTPTriggerPx] == ""
	})).Return(ok("1", 2), nil).Once()
	// цены из additional_info важнее полей сигнала
	c.On("AttachTPSL", mock.Anything, "BTC/USDT", models.SideBuy, 2.0, models.MarginCross, 53000.0, 47000.0).Return(true, nil).Once()

	m, repo := newTestManager(c)
	res := m.ExecuteSignal(context.Background(), models.TradingSignal{
		Exchange:   "OKX",
		Symbol:     "BTCUSDT",
		Action:     models.ActionOpenLong,
		TakeProfit: 52000,
		StopLoss:   48000,
		Extra:      map[string]string{models.ExtraTPTriggerPx: "53000", models.ExtraStopLossPrice: "47000"},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "1", res.OrderID)
	c.AssertExpectations(t)

	active, found := m.ActiveSignal("okx", "BTC/USDT")
	require.True(t, found)
	assert.Equal(t, 47000.0, active.StopLoss)
	assert.NotEmpty(t, active.ID)
	assert.False(t, active.CreatedAt.IsZero())

	_, persisted := repo.Signal("okx", "BTC/USDT")
	assert.True(t, persisted)
}

func TestExecuteSignal_LimitUsesFirstTPLevel(t *testing.T) {
	c := mocks.NewClient("binance")
	c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
		return p.Type == models.OrderLimit && p.Side == models.SideSell && p.Price == 3000 && p.Amount == 50 && p.Leverage == 5
	})).Return(ok("9", 0.5), nil).Once()
	c.On("AttachTPSL", mock.Anything, "ETH/USDT", models.SideSell, 0.5, models.MarginIsolated, 2900.0, 3100.0).Return(true, nil).Once()

	m, _ := newTestManager(c)
	res := m.ExecuteSignal(context.Background(), models.TradingSignal{
		Exchange:         "binance",
		Symbol:           "ETH/USDT",
		Action:           models.ActionOpenShort,
		EntryPrice:       3000,
		TakeProfit:       2500,
		TakeProfitLevels: []models.TakeProfitLevel{{Price: 2900, Fraction: 0.5}, {Price: 2800, Fraction: 0.5}},
		StopLoss:         3100,
		Leverage:         5,
		MarginMode:       "ISOLATED",
		PositionSize:     50,
	})

	require.True(t, res.Success)
	c.AssertExpectations(t)
}

func TestExecuteSignal_FailedOrderNotTracked(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("CreateOrder", mock.Anything, mock.Anything).Return(models.OrderResult{Error: "51008 insufficient"}, errors.New("51008 insufficient")).Once()

	m, _ := newTestManager(c)
	res := m.ExecuteSignal(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenLong, StopLoss: 48000})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient")
	c.AssertNotCalled(t, "AttachTPSL", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, m.ActiveSignals())
}

func TestExecuteSignal_EntryZones(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
		return p.Type == models.OrderLimit && p.Price == 50000 && p.Amount == 60
	})).Return(ok("z1", 1), nil).Once()
	c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
		return p.Type == models.OrderLimit && p.Price == 49000 && p.Amount == 40
	})).Return(models.OrderResult{Error: "price limit"}, errors.New("price limit")).Once()
	c.On("AttachTPSL", mock.Anything, "BTC/USDT", models.SideBuy, 1.0, models.MarginCross, 55000.0, 0.0).Return(true, nil).Once()

	m, _ := newTestManager(c)
	res := m.ExecuteSignal(context.Background(), models.TradingSignal{
		Exchange:     "okx",
		Symbol:       "BTC/USDT",
		Action:       models.ActionOpenLong,
		EntryZones:   []models.EntryZone{{Price: 50000, Fraction: 0.6}, {Price: 49000, Fraction: 0.4}},
		TakeProfit:   55000,
		PositionSize: 100,
	})

	require.True(t, res.Success)
	assert.Equal(t, "z1", res.OrderID)
	require.Len(t, res.Extra.Zones, 2)
	assert.True(t, res.Extra.Zones[0].Success)
	assert.False(t, res.Extra.Zones[1].Success)
	assert.Equal(t, "price limit", res.Extra.Zones[1].Error)
	c.AssertExpectations(t)

	active, found := m.ActiveSignal("okx", "BTC/USDT")
	require.True(t, found)
	assert.Equal(t, models.ZonePlaced, active.EntryZones[0].Status)
	assert.Equal(t, "z1", active.EntryZones[0].OrderID)
	assert.Equal(t, models.ZoneStatus(""), active.EntryZones[1].Status)
}

func TestClosePosition(t *testing.T) {
	t.Run("reduce only for full size", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return([]models.PositionInfo{
			{Symbol: "BTC/USDT", Side: models.PositionShort, Size: 3, MarginMode: models.MarginIsolated},
		}, true)
		c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
			return p.Type == models.OrderMarket && p.Side == models.SideBuy && p.Quantity == 3 && p.ReduceOnly &&
				p.MarginMode == models.MarginIsolated
		})).Return(ok("c1", 3), nil).Once()

		m, repo := newTestManager(c)
		m.Track(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenShort})

		res := m.ExecuteSignal(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionClose})
		require.True(t, res.Success)
		c.AssertExpectations(t)

		_, tracked := m.ActiveSignal("okx", "BTC/USDT")
		assert.False(t, tracked)
		_, persisted := repo.Signal("okx", "BTC/USDT")
		assert.False(t, persisted)
	})

	t.Run("no position", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return([]models.PositionInfo{{Symbol: "BTC/USDT", Size: 0}}, true)

		m, _ := newTestManager(c)
		res := m.ClosePosition(context.Background(), "okx", "BTC/USDT")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, exchange.ErrNoPosition.Error())
	})

	t.Run("positions unknown", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return([]models.PositionInfo(nil), false)

		m, _ := newTestManager(c)
		m.Track(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenLong})

		res := m.ClosePosition(context.Background(), "okx", "BTC/USDT")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, exchange.ErrPositionsUnavailable.Error())
		assert.NotContains(t, res.Error, exchange.ErrNoPosition.Error())

		// сигнал остаётся, пока позиция не подтверждена закрытой
		_, tracked := m.ActiveSignal("okx", "BTC/USDT")
		assert.True(t, tracked)
		c.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})
}

func TestModifyPosition(t *testing.T) {
	long := []models.PositionInfo{{Symbol: "BTC/USDT", Side: models.PositionLong, Size: 2, MarginMode: models.MarginCross}}

	t.Run("both legs and previous stop cancelled", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return(long, true)
		c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
			return p.Type == models.OrderStopMarket && p.StopPrice == 49000 && p.Side == models.SideSell && p.Quantity == 2 && p.ReduceOnly
		})).Return(ok("sl1", 2), nil).Once()
		c.On("CreateOrder", mock.Anything, orderOf(models.OrderTakeProfitMarket)).Return(ok("tp1", 2), nil).Once()
		c.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p models.OrderParams) bool {
			return p.Type == models.OrderStopMarket && p.StopPrice == 49500
		})).Return(ok("sl2", 2), nil).Once()
		c.On("CancelOrder", mock.Anything, "BTC/USDT", "sl1").Return(true, nil).Once()

		m, _ := newTestManager(c)
		done, err := m.ModifyPosition(context.Background(), "okx", "BTC/USDT", 49000, 53000)
		require.NoError(t, err)
		assert.True(t, done)

		done, err = m.ModifyPosition(context.Background(), "okx", "BTC/USDT", 49500, 0)
		require.NoError(t, err)
		assert.True(t, done)
		c.AssertExpectations(t)
	})

	t.Run("one failing leg fails the call", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return(long, true)
		c.On("CreateOrder", mock.Anything, orderOf(models.OrderStopMarket)).Return(ok("sl1", 2), nil).Once()
		c.On("CreateOrder", mock.Anything, orderOf(models.OrderTakeProfitMarket)).Return(models.OrderResult{}, errors.New("tp rejected")).Once()

		m, _ := newTestManager(c)
		done, err := m.ModifyPosition(context.Background(), "okx", "BTC/USDT", 49000, 53000)
		assert.Error(t, err)
		assert.False(t, done)
	})

	t.Run("positions unknown", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return([]models.PositionInfo(nil), false)

		m, _ := newTestManager(c)
		done, err := m.ModifyPosition(context.Background(), "okx", "BTC/USDT", 49000, 0)
		assert.ErrorIs(t, err, exchange.ErrPositionsUnavailable)
		assert.NotErrorIs(t, err, exchange.ErrNoPosition)
		assert.False(t, done)
		c.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("nothing to modify", func(t *testing.T) {
		m, _ := newTestManager(mocks.NewClient("okx"))
		_, err := m.ModifyPosition(context.Background(), "okx", "BTC/USDT", 0, 0)
		assert.ErrorIs(t, err, exchange.ErrValidation)
	})

	t.Run("update signal moves tracked stop", func(t *testing.T) {
		c := mocks.NewClient("okx")
		c.On("GetPositions", mock.Anything, "BTC/USDT").Return(long, true)
		c.On("CreateOrder", mock.Anything, orderOf(models.OrderStopMarket)).Return(ok("sl1", 2), nil).Once()

		m, _ := newTestManager(c)
		m.Track(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenLong, StopLoss: 48000})

		res := m.ExecuteSignal(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionUpdate, StopLoss: 49000})
		require.True(t, res.Success)

		active, _ := m.ActiveSignal("okx", "BTC/USDT")
		assert.Equal(t, 49000.0, active.StopLoss)
	})
}

func TestGetAccountOverview(t *testing.T) {
	okx := mocks.NewClient("okx")
	okx.On("GetBalance", mock.Anything).Return(models.NewAccountBalance(1000, 850, 150, -12, 3, timeZero), true)
	okx.On("GetPositions", mock.Anything, "").Return([]models.PositionInfo{{Size: 1}, {Size: 0}, {Size: 2}}, true)

	bin := mocks.NewClient("binance")
	bin.On("GetBalance", mock.Anything).Return(models.NewAccountBalance(1000, 650, 350, 0, 0, timeZero), true)
	bin.On("GetPositions", mock.Anything, "").Return([]models.PositionInfo(nil), true)

	down := mocks.NewClient("bybit")
	down.On("GetBalance", mock.Anything).Return(models.AccountBalance{}, false)

	m, _ := newTestManager(okx, bin, down)
	got := m.GetAccountOverview(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, models.HealthCritical, got["okx"].Health)
	assert.Equal(t, 2, got["okx"].TotalPositions)
	assert.InDelta(t, 85.0, got["okx"].MarginRatio, 1e-9)
	assert.Equal(t, models.HealthWarning, got["binance"].Health)
	assert.Equal(t, 0, got["binance"].TotalPositions)
}

func TestGetFundingRates_ActiveSymbolsOnly(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("GetFundingRate", mock.Anything, "BTC/USDT").Return(0.0001, true).Once()

	idle := mocks.NewClient("binance")

	m, _ := newTestManager(c, idle)
	m.Track(context.Background(), models.TradingSignal{Exchange: "okx", Symbol: "BTC/USDT", Action: models.ActionOpenLong})

	rates := m.GetFundingRates(context.Background())
	assert.Equal(t, map[string]map[string]float64{"okx": {"BTC/USDT": 0.0001}}, rates)
	idle.AssertNotCalled(t, "GetFundingRate", mock.Anything, mock.Anything)
}

func TestRiskMetrics(t *testing.T) {
	p := models.PositionInfo{Size: 0.1, EntryPrice: 50000, MarkPrice: 51000, LiquidationPrice: 45000}
	bal := models.NewAccountBalance(1000, 200, 800, 0, 0, timeZero)

	assert.InDelta(t, 5100.0, CalculatePositionValue(p), 1e-9)

	rm := CalculateRiskMetrics(p, bal)
	assert.InDelta(t, 5100.0, rm.PositionValue, 1e-9)
	assert.InDelta(t, 20.0, rm.MarginRatio, 1e-9)
	assert.InDelta(t, 5.1, rm.LeverageUsed, 1e-9)
	assert.InDelta(t, 10.0, rm.LiquidationDistance, 1e-9)

	p.Notional = -4000
	assert.InDelta(t, 4000.0, CalculatePositionValue(p), 1e-9)
}

func TestClose(t *testing.T) {
	a := mocks.NewClient("okx")
	a.On("Close").Return(nil).Once()
	b := mocks.NewClient("binance")
	b.On("Close").Return(errors.New("boom")).Once()

	m, _ := newTestManager(a, b)
	assert.Error(t, m.Close())
	assert.Empty(t, m.Exchanges())
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestHTTP_Signal(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("CreateOrder", mock.Anything, orderOf(models.OrderMarket)).Return(ok("h1", 1), nil).Once()

	m, _ := newTestManager(c)
	mux := http.NewServeMux()
	RegisterHTTP(mux, m, "")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body := `{"exchange":"okx","symbol":"BTC/USDT","action":"OPEN_LONG","position_size":50,"leverage":3}`
	resp, err := http.Post(srv.URL+"/v1/signals", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/v1/signals", "application/json", strings.NewReader(`{"exchange":"kraken","symbol":"BTC/USDT","action":"CLOSE"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)

	resp3, err := http.Post(srv.URL+"/v1/signals", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)

	_, tracked := m.ActiveSignal("okx", "BTC/USDT")
	assert.True(t, tracked)
	c.AssertExpectations(t)
}

func TestTransferMargin(t *testing.T) {
	b := mocks.NewMarginClient("binance")
	b.On("TransferMargin", mock.Anything, "BTC/USDT", 25.0, true).Return(true, nil).Once()
	o := mocks.NewClient("okx")

	m, _ := newTestManager(b, o)

	done, err := m.TransferMargin(context.Background(), "binance", "btcusdt", 25, true)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = m.TransferMargin(context.Background(), "okx", "BTC/USDT", 25, true)
	assert.ErrorIs(t, err, exchange.ErrNotSupported)

	_, err = m.TransferMargin(context.Background(), "binance", "BTC/USDT", 0, false)
	assert.ErrorIs(t, err, exchange.ErrValidation)

	_, err = m.TransferMargin(context.Background(), "kraken", "BTC/USDT", 10, true)
	assert.ErrorIs(t, err, exchange.ErrExchangeNotConfigured)

	b.AssertExpectations(t)
}

func TestHTTP_Margin(t *testing.T) {
	b := mocks.NewMarginClient("binance")
	b.On("TransferMargin", mock.Anything, "ETH/USDT", 10.0, false).Return(true, nil).Once()

	m, _ := newTestManager(b)
	mux := http.NewServeMux()
	RegisterHTTP(mux, m, "")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/margin", "application/json",
		strings.NewReader(`{"exchange":"binance","symbol":"ETH/USDT","amount":10,"add":false}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/v1/margin", "application/json",
		strings.NewReader(`{"exchange":"binance","symbol":"ETH/USDT","amount":-1}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	b.AssertExpectations(t)
}

func TestHTTP_TokenRequired(t *testing.T) {
	c := mocks.NewClient("okx")
	c.On("CreateOrder", mock.Anything, orderOf(models.OrderMarket)).Return(ok("t1", 1), nil).Once()

	m, _ := newTestManager(c)
	mux := http.NewServeMux()
	RegisterHTTP(mux, m, "s3cret")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body := `{"exchange":"okx","symbol":"BTC/USDT","action":"OPEN_LONG","position_size":50,"leverage":3}`
	post := func(path, token, body string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("X-API-Token", token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, post("/v1/signals", "", body))
	assert.Equal(t, http.StatusUnauthorized, post("/v1/signals", "wrong", body))
	assert.Equal(t, http.StatusUnauthorized, post("/v1/margin", "", `{"exchange":"okx","symbol":"BTC/USDT","amount":1,"add":true}`))

	_, tracked := m.ActiveSignal("okx", "BTC/USDT")
	assert.False(t, tracked)

	assert.Equal(t, http.StatusOK, post("/v1/signals", "s3cret", body))

	// чтение сводки токен не требует
	resp, err := http.Get(srv.URL + "/v1/signals")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c.AssertExpectations(t)
}

func TestHTTP_BodyTooLarge(t *testing.T) {
	c := mocks.NewClient("okx")

	m, _ := newTestManager(c)
	mux := http.NewServeMux()
	RegisterHTTP(mux, m, "")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	big := `{"exchange":"okx","symbol":"BTC/USDT","action":"CLOSE","note":"` + strings.Repeat("x", maxSignalBody) + `"}`
	for _, path := range []string{"/v1/signals", "/v1/margin"} {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(big))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, path)
	}
	c.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}
