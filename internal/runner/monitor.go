package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"trade_executor/internal/exchange"
	"trade_executor/internal/helper"
	"trade_executor/internal/manager"
	"trade_executor/internal/metrics"
	"trade_executor/internal/models"
	"trade_executor/internal/notify"
	"trade_executor/internal/storage"
	"trade_executor/pkg/logger"
)

// Executor: то, что монитору нужно от менеджера бирж.
type Executor interface {
	Clients() map[string]exchange.Client
	ActiveSignal(exchange, symbol string) (models.TradingSignal, bool)
	Track(ctx context.Context, s models.TradingSignal)
	Forget(ctx context.Context, exchange, symbol string)
	ModifyPosition(ctx context.Context, exchange, symbol string, stopLoss, takeProfit float64) (bool, error)
	AccountOverview(ctx context.Context, exchange string) (models.AccountOverview, bool)
}

// PriceFeed: потоковая mark price (OKX websocket).
type PriceFeed interface {
	Mark(symbol string, maxAge time.Duration) (float64, bool)
	Watch(symbols ...string)
}

type Heartbeat interface {
	TouchTick(t time.Time)
}

type Options struct {
	Interval        time.Duration
	AccountInterval time.Duration
	PriceMaxAge     time.Duration
	DynamicSL       bool

	RiskMarginRatio  float64 // %
	RiskLossPct      float64 // % от номинала
	RiskHoldingHours float64
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.AccountInterval <= 0 {
		o.AccountInterval = time.Minute
	}
	if o.PriceMaxAge <= 0 {
		o.PriceMaxAge = 5 * time.Second
	}
	if o.RiskMarginRatio <= 0 {
		o.RiskMarginRatio = 80
	}
	if o.RiskLossPct <= 0 {
		o.RiskLossPct = 20
	}
	if o.RiskHoldingHours <= 0 {
		o.RiskHoldingHours = 48
	}
	return o
}

// tracked: состояние одной позиции между итерациями.
type tracked struct {
	firstSeen    time.Time
	originalSize float64
	maxProfit    float64
	maxDrawdown  float64
	warned       map[string]bool
}

// Monitor ведёт открытые позиции: динамический стоп, лестница TP, статистика и риск.
type Monitor struct {
	exec     Executor
	repo     storage.Repository
	notifier notify.Notifier
	opts     Options
	now      func() time.Time

	feeds     map[string]PriceFeed // exchange -> feed
	heartbeat Heartbeat

	mu     sync.Mutex
	states map[string]*tracked // exchange:symbol:side

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(exec Executor, repo storage.Repository, n notify.Notifier, opts Options) *Monitor {
	if repo == nil {
		repo = storage.NewMemory()
	}
	if n == nil {
		n = notify.NewLog()
	}
	return &Monitor{
		exec:     exec,
		repo:     repo,
		notifier: n,
		opts:     opts.withDefaults(),
		now:      time.Now,
		feeds:    make(map[string]PriceFeed),
		states:   make(map[string]*tracked),
	}
}

// WithPriceFeed: источник mark price для конкретной биржи. Вызывать до Start.
func (m *Monitor) WithPriceFeed(exchangeName string, f PriceFeed) *Monitor {
	m.feeds[exchangeName] = f
	return m
}

func (m *Monitor) WithHeartbeat(h Heartbeat) *Monitor {
	m.heartbeat = h
	return m
}

// Start запускает цикл позиций и цикл здоровья аккаунтов. Повторный Start без Stop — no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.every(ctx, m.opts.Interval, m.Tick)
	}()
	go func() {
		defer wg.Done()
		m.every(ctx, m.opts.AccountInterval, m.AccountHealth)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	logger.Info("[MONITOR] started: interval=%s account=%s dynamicSL=%v", m.opts.Interval, m.opts.AccountInterval, m.opts.DynamicSL)
}

// Stop отменяет контекст циклов, прерывая текущие запросы к биржам, и ждёт их выхода.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Info("[MONITOR] stopped")
}

func (m *Monitor) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

// Tick: одна итерация по всем биржам параллельно. Ошибки одной биржи не трогают другие.
func (m *Monitor) Tick(ctx context.Context) {
	if m.heartbeat != nil {
		m.heartbeat.TouchTick(m.now())
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range m.exec.Clients() {
		name, c := name, c
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("[MONITOR] %s panic: %v", name, r)
					metrics.MonitorIterations.WithLabelValues(name, "panic").Inc()
				}
			}()
			m.checkExchange(gctx, name, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) checkExchange(ctx context.Context, name string, c exchange.Client) {
	exchange.Fresh(c)
	positions, ok := c.GetPositions(ctx, "")
	if !ok {
		metrics.MonitorIterations.WithLabelValues(name, "error").Inc()
		return
	}

	seen := make(map[string]bool, len(positions))
	var symbols []string
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		p.Symbol = exchange.Unified(p.Symbol)
		key := helper.PosKey(name, p.Symbol, string(p.Side))
		seen[key] = true
		symbols = append(symbols, p.Symbol)

		m.checkPosition(ctx, name, c, key, p)
	}

	if f, ok := m.feeds[name]; ok && len(symbols) > 0 {
		f.Watch(symbols...)
	}

	m.dropGone(ctx, name, seen)
	metrics.TrackedPositions.WithLabelValues(name).Set(float64(len(seen)))
	metrics.MonitorIterations.WithLabelValues(name, "ok").Inc()
}

func (m *Monitor) state(key string, p models.PositionInfo) *tracked {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	if !ok {
		st = &tracked{
			firstSeen:    m.now(),
			originalSize: p.Size,
			warned:       make(map[string]bool),
		}
		m.states[key] = st
		logger.Info("[MONITOR] tracking %s size=%v entry=%v", key, p.Size, p.EntryPrice)
	}
	return st
}

// dropGone: позиции биржи, которых больше нет, уходят из мониторинга вместе с сигналом.
func (m *Monitor) dropGone(ctx context.Context, name string, seen map[string]bool) {
	var gone []string
	m.mu.Lock()
	for key := range m.states {
		ex, _, _, ok := helper.SplitPosKey(key)
		if !ok || ex != name || seen[key] {
			continue
		}
		delete(m.states, key)
		gone = append(gone, key)
	}
	m.mu.Unlock()

	sort.Strings(gone)
	for _, key := range gone {
		_, symbol, side, _ := helper.SplitPosKey(key)
		if !m.hasSide(seen, name, symbol) {
			m.exec.Forget(ctx, name, symbol)
		}
		m.emit(ctx, models.Event{
			Kind:     models.EventPositionGone,
			Exchange: name,
			Symbol:   symbol,
			Key:      side,
			Message:  fmt.Sprintf("%s position closed", side),
		})
	}
}

// hasSide: у символа ещё осталась позиция другой стороны (hedge режим).
func (m *Monitor) hasSide(seen map[string]bool, name, symbol string) bool {
	return seen[helper.PosKey(name, symbol, string(models.PositionLong))] ||
		seen[helper.PosKey(name, symbol, string(models.PositionShort))]
}

func (m *Monitor) checkPosition(ctx context.Context, name string, c exchange.Client, key string, p models.PositionInfo) {
	st := m.state(key, p)
	price := m.markPrice(ctx, name, c, p)
	if price <= 0 {
		logger.Warn("[MONITOR] %s no price, skip", key)
		return
	}

	sig, has := m.exec.ActiveSignal(name, p.Symbol)
	if has && sig.IsLong() == p.IsLong() {
		changed := false
		if m.opts.DynamicSL && sig.DynamicSL && m.moveStop(ctx, name, c, &sig, p, price) {
			changed = true
		}
		if m.takeProfits(ctx, name, c, &sig, st, p, price) {
			changed = true
		}
		if changed {
			m.exec.Track(ctx, sig)
		}
	}

	opened := st.firstSeen
	if has && !sig.CreatedAt.IsZero() && sig.CreatedAt.Before(opened) {
		opened = sig.CreatedAt
	}
	m.updateStats(ctx, name, st, p, price, opened)
}

// markPrice: стрим, если свежий; иначе mark из позиции; иначе last из market info.
func (m *Monitor) markPrice(ctx context.Context, name string, c exchange.Client, p models.PositionInfo) float64 {
	if f, ok := m.feeds[name]; ok {
		if px, fresh := f.Mark(p.Symbol, m.opts.PriceMaxAge); fresh {
			return px
		}
	}
	if p.MarkPrice > 0 {
		return p.MarkPrice
	}
	if mi, ok := c.GetMarketInfo(ctx, p.Symbol); ok && mi != nil {
		return mi.LastPrice
	}
	return 0
}

func (m *Monitor) moveStop(ctx context.Context, name string, c exchange.Client, sig *models.TradingSignal, p models.PositionInfo, price float64) bool {
	entry := p.EntryPrice
	if entry <= 0 {
		entry = sig.EntryPrice
	}

	var tick float64
	if mi, ok := c.GetMarketInfo(ctx, p.Symbol); ok && mi != nil {
		tick = mi.TickSize
	}

	cand, ok := dynamicStop(p.Side, entry, price, sig.StopLoss, tick)
	if !ok {
		return false
	}

	done, err := m.exec.ModifyPosition(ctx, name, p.Symbol, cand, 0)
	if err != nil || !done {
		logger.Error("[MONITOR] %s %s move stop -> %v: %v", name, p.Symbol, cand, err)
		return false
	}

	prev := sig.StopLoss
	sig.StopLoss = cand
	m.emit(ctx, models.Event{
		Kind:     models.EventStopMoved,
		Exchange: name,
		Symbol:   p.Symbol,
		Key:      string(p.Side),
		Message:  fmt.Sprintf("stop %v -> %v (price %v)", prev, cand, price),
	})
	return true
}

// takeProfits закрывает долю исходного объёма на каждом достигнутом уровне. Уровень срабатывает один раз.
func (m *Monitor) takeProfits(ctx context.Context, name string, c exchange.Client, sig *models.TradingSignal, st *tracked, p models.PositionInfo, price float64) bool {
	changed := false
	for i := range sig.TakeProfitLevels {
		lvl := &sig.TakeProfitLevels[i]
		if lvl.Hit || !levelHit(p.Side, price, lvl.Price) {
			continue
		}

		qty := st.originalSize * lvl.Fraction
		if qty > p.Size {
			qty = p.Size
		}
		if qty <= 0 {
			continue
		}

		res, err := c.CreateOrder(ctx, models.OrderParams{
			Symbol:     p.Symbol,
			Side:       p.CloseSide(),
			Type:       models.OrderMarket,
			Quantity:   qty,
			ReduceOnly: true,
			MarginMode: p.MarginMode,
		})
		if err != nil || !res.Success {
			logger.Error("[MONITOR] %s %s tp%d @ %v close %v failed: %v %s", name, p.Symbol, i+1, lvl.Price, qty, err, res.Error)
			// следующий тик попробует снова
			break
		}

		lvl.Hit = true
		lvl.HitAt = m.now()
		lvl.OrderID = res.OrderID
		changed = true

		m.emit(ctx, models.Event{
			Kind:     models.EventTakeProfitHit,
			Exchange: name,
			Symbol:   p.Symbol,
			Key:      fmt.Sprintf("%s:tp%d", p.Side, i+1),
			Message:  fmt.Sprintf("TP%d %v hit at %v, closed %v", i+1, lvl.Price, price, qty),
		})
	}
	return changed
}

func (m *Monitor) updateStats(ctx context.Context, name string, st *tracked, p models.PositionInfo, price float64, opened time.Time) {
	now := m.now()
	profit := profitPct(p.Side, p.EntryPrice, price)
	if profit > st.maxProfit {
		st.maxProfit = profit
	}
	if -profit > st.maxDrawdown {
		st.maxDrawdown = -profit
	}
	hours := helper.HoursSince(opened, now)

	stats := models.PositionStats{
		Exchange:         name,
		Symbol:           p.Symbol,
		Side:             p.Side,
		Size:             p.Size,
		EntryPrice:       p.EntryPrice,
		CurrentPrice:     price,
		UnrealizedPnL:    p.UnrealizedPnL,
		MarginRatio:      p.MarginRatio,
		Leverage:         p.Leverage,
		LiquidationPrice: p.LiquidationPrice,
		ProfitPct:        profit,
		MaxProfitPct:     st.maxProfit,
		MaxDrawdownPct:   st.maxDrawdown,
		HoldingHours:     hours,
		UpdatedAt:        now,
	}
	if err := m.repo.SavePositionStats(ctx, stats); err != nil {
		logger.Warn("[MONITOR] save stats %s %s: %v", name, p.Symbol, err)
	}

	loss := lossPct(p.UnrealizedPnL, manager.CalculatePositionValue(p))
	m.warn(ctx, st, name, p, "margin", p.MarginRatio > m.opts.RiskMarginRatio,
		"margin ratio %.2f%% above %.0f%%", p.MarginRatio, m.opts.RiskMarginRatio)
	m.warn(ctx, st, name, p, "loss", loss > m.opts.RiskLossPct,
		"unrealized loss %.2f%% of notional above %.0f%%", loss, m.opts.RiskLossPct)
	m.warn(ctx, st, name, p, "holding", hours > m.opts.RiskHoldingHours,
		"held %.1fh, limit %.0fh", hours, m.opts.RiskHoldingHours)
}

// warn шлёт предупреждение при входе в опасную зону; повтор — только после выхода из неё.
func (m *Monitor) warn(ctx context.Context, st *tracked, name string, p models.PositionInfo, kind string, active bool, format string, args ...any) {
	if !active {
		st.warned[kind] = false
		return
	}
	if st.warned[kind] {
		return
	}
	st.warned[kind] = true
	m.emit(ctx, models.Event{
		Kind:     models.EventRiskWarning,
		Exchange: name,
		Symbol:   p.Symbol,
		Key:      string(p.Side) + ":" + kind,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AccountHealth: баланс каждой биржи, классификация и предупреждение при WARNING/CRITICAL.
func (m *Monitor) AccountHealth(ctx context.Context) {
	for name := range m.exec.Clients() {
		ov, ok := m.exec.AccountOverview(ctx, name)
		if !ok {
			logger.Warn("[MONITOR] %s account overview unavailable", name)
			continue
		}
		if err := m.repo.SaveAccountStatus(ctx, ov); err != nil {
			logger.Warn("[MONITOR] save account %s: %v", name, err)
		}
		if ov.Health == models.HealthHealthy {
			continue
		}
		m.emit(ctx, models.Event{
			Kind:     models.EventAccountHealth,
			Exchange: name,
			Message: fmt.Sprintf("%s: margin ratio %.2f%%, equity %.2f, upl %.2f",
				ov.Health, ov.MarginRatio, ov.TotalEquity, ov.UnrealizedPnL),
		})
	}
}

func (m *Monitor) emit(ctx context.Context, e models.Event) {
	if e.At.IsZero() {
		e.At = m.now()
	}
	metrics.MonitorEvents.WithLabelValues(string(e.Kind)).Inc()
	logger.Info("[MONITOR] %s %s %s: %s", e.Kind, e.Exchange, e.Symbol, e.Message)

	if err := m.repo.SaveEvent(ctx, e); err != nil {
		logger.Warn("[MONITOR] save event: %v", err)
	}
	m.notifier.Notify(ctx, e)
}

// Tracked: ключи позиций под наблюдением.
func (m *Monitor) Tracked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.states))
	for k := range m.states {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
