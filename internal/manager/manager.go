package manager

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/internal/storage"
	"trade_executor/pkg/logger"
)

var ErrNoExchanges = errors.New("no exchange initialized")

// Defaults: что подставить, если сигнал не задал плечо/размер.
type Defaults struct {
	Leverage     int
	PositionSize float64
}

// Manager управляет клиентами бирж и активными сигналами.
type Manager struct {
	builders []exchange.Builder
	testnet  bool
	defaults Defaults
	repo     storage.Repository
	now      func() time.Time

	mu      sync.RWMutex
	clients map[string]exchange.Client
	signals map[string]models.TradingSignal // exchange:symbol
	stops   map[string]string               // exchange:symbol:kind -> id защитного ордера
}

func New(builders []exchange.Builder, testnet bool, defaults Defaults, repo storage.Repository) *Manager {
	if repo == nil {
		repo = storage.NewMemory()
	}
	return &Manager{
		builders: builders,
		testnet:  testnet,
		defaults: defaults,
		repo:     repo,
		now:      time.Now,
		clients:  make(map[string]exchange.Client),
		signals:  make(map[string]models.TradingSignal),
		stops:    make(map[string]string),
	}
}

// NewWithClients: менеджер поверх уже собранных клиентов, Initialize их не пересоздаёт.
func NewWithClients(clients []exchange.Client, defaults Defaults, repo storage.Repository) *Manager {
	m := New(nil, false, defaults, repo)
	for _, c := range clients {
		m.clients[strings.ToLower(c.Name())] = c
	}
	return m
}

// Initialize собирает по клиенту на включённую биржу и инициализирует их.
// Достаточно одной живой биржи; остальные пишутся в лог и пропускаются.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, b := range m.builders {
		if !b.Enabled {
			logger.Info("[MANAGER] %s disabled in config", b.Name)
			continue
		}
		m.mu.Lock()
		if _, ok := m.clients[b.Name]; !ok {
			m.clients[b.Name] = b.New(m.testnet)
		}
		m.mu.Unlock()
	}

	var ready []string
	for name, c := range m.snapshot() {
		if err := c.Initialize(ctx); err != nil {
			logger.Error("[MANAGER] %s init failed: %v", name, err)
			_ = c.Close()
			m.mu.Lock()
			delete(m.clients, name)
			m.mu.Unlock()
			continue
		}
		ready = append(ready, name)
	}

	if len(ready) == 0 {
		return ErrNoExchanges
	}
	sort.Strings(ready)
	logger.Info("[MANAGER] ready exchanges: %s (testnet=%v)", strings.Join(ready, ","), m.testnet)

	m.restore(ctx)
	return nil
}

// restore поднимает активные сигналы из хранилища после рестарта.
func (m *Manager) restore(ctx context.Context) {
	list, err := m.repo.LoadSignals(ctx)
	if err != nil {
		logger.Warn("[MANAGER] load active signals: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range list {
		ex := strings.ToLower(s.Exchange)
		if _, ok := m.clients[ex]; !ok {
			continue
		}
		m.signals[signalKey(ex, s.Symbol)] = s.Clone()
	}
	logger.Info("[MANAGER] restored %d active signals", len(m.signals))
}

func (m *Manager) Exchanges() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.clients))
	for name := range m.clients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Client(name string) (exchange.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Clients: копия реестра для обхода без блокировки.
func (m *Manager) Clients() map[string]exchange.Client {
	return m.snapshot()
}

func (m *Manager) snapshot() map[string]exchange.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]exchange.Client, len(m.clients))
	for k, v := range m.clients {
		out[k] = v
	}
	return out
}

// Close закрывает всех клиентов.
func (m *Manager) Close() error {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]exchange.Client)
	m.mu.Unlock()

	var firstErr error
	for name, c := range clients {
		if err := c.Close(); err != nil {
			logger.Warn("[MANAGER] close %s: %v", name, err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "close %s", name)
			}
		}
	}
	return firstErr
}

// ===== реестр активных сигналов =====

func signalKey(exchangeName, symbol string) string {
	return strings.ToLower(exchangeName) + ":" + exchange.Unified(symbol)
}

func (m *Manager) ActiveSignal(exchangeName, symbol string) (models.TradingSignal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signals[signalKey(exchangeName, symbol)]
	if !ok {
		return models.TradingSignal{}, false
	}
	return s.Clone(), true
}

// ActiveSignals: копии, отсортированы по времени создания.
func (m *Manager) ActiveSignals() []models.TradingSignal {
	m.mu.RLock()
	out := make([]models.TradingSignal, 0, len(m.signals))
	for _, s := range m.signals {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Track сохраняет (или обновляет) активный сигнал и пишет его в хранилище.
func (m *Manager) Track(ctx context.Context, s models.TradingSignal) {
	s.Exchange = strings.ToLower(s.Exchange)
	s.Symbol = exchange.Unified(s.Symbol)

	m.mu.Lock()
	m.signals[signalKey(s.Exchange, s.Symbol)] = s.Clone()
	m.mu.Unlock()

	if err := m.repo.SaveSignal(ctx, s); err != nil {
		logger.Warn("[MANAGER] persist signal %s:%s: %v", s.Exchange, s.Symbol, err)
	}
}

// Forget убирает сигнал из мониторинга.
func (m *Manager) Forget(ctx context.Context, exchangeName, symbol string) {
	key := signalKey(exchangeName, symbol)
	m.mu.Lock()
	delete(m.signals, key)
	delete(m.stops, key+":sl")
	delete(m.stops, key+":tp")
	m.mu.Unlock()

	if err := m.repo.DeleteSignal(ctx, strings.ToLower(exchangeName), exchange.Unified(symbol)); err != nil {
		logger.Warn("[MANAGER] delete signal %s: %v", key, err)
	}
}

// ActiveSymbols: символы активных сигналов по биржам.
func (m *Manager) ActiveSymbols() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string)
	for _, s := range m.signals {
		out[s.Exchange] = append(out[s.Exchange], s.Symbol)
	}
	for _, list := range out {
		sort.Strings(list)
	}
	return out
}

// swapStop запоминает новый защитный ордер и отдаёт id предыдущего.
func (m *Manager) swapStop(key, orderID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.stops[key]
	m.stops[key] = orderID
	return prev
}
