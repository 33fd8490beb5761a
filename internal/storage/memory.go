package storage

import (
	"context"
	"sort"
	"sync"

	"trade_executor/internal/helper"
	"trade_executor/internal/models"
)

const maxEvents = 1000

// Memory: Repository без базы, последнее состояние по ключу.
type Memory struct {
	mu       sync.RWMutex
	signals  map[string]models.TradingSignal // exchange:symbol
	stats    map[string]models.PositionStats // exchange:symbol:side
	accounts map[string]models.AccountOverview
	events   []models.Event
}

func NewMemory() *Memory {
	return &Memory{
		signals:  make(map[string]models.TradingSignal),
		stats:    make(map[string]models.PositionStats),
		accounts: make(map[string]models.AccountOverview),
	}
}

func (m *Memory) SaveSignal(_ context.Context, s models.TradingSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[signalKey(s.Exchange, s.Symbol)] = s
	return nil
}

func (m *Memory) LoadSignals(context.Context) ([]models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TradingSignal, 0, len(m.signals))
	for _, s := range m.signals {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteSignal(_ context.Context, exchange, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signals, signalKey(exchange, symbol))
	return nil
}

func (m *Memory) SavePositionStats(_ context.Context, s models.PositionStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[helper.PosKey(s.Exchange, s.Symbol, string(s.Side))] = s
	return nil
}

func (m *Memory) SaveAccountStatus(_ context.Context, o models.AccountOverview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[o.Exchange] = o
	return nil
}

func (m *Memory) SaveEvent(_ context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
	return nil
}

func (m *Memory) Signal(exchange, symbol string) (models.TradingSignal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signals[signalKey(exchange, symbol)]
	return s, ok
}

func (m *Memory) Stats(exchange, symbol string, side models.PositionSide) (models.PositionStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[helper.PosKey(exchange, symbol, string(side))]
	return s, ok
}

func (m *Memory) Account(exchange string) (models.AccountOverview, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.accounts[exchange]
	return o, ok
}

func (m *Memory) Events() []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Event(nil), m.events...)
}

func signalKey(exchange, symbol string) string {
	return exchange + ":" + symbol
}

var _ Repository = (*Memory)(nil)
