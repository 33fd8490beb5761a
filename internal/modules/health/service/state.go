package service

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds

	mu        sync.RWMutex
	exchanges []string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// TouchTick: heartbeat цикла мониторинга.
func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// SetExchanges: биржи, прошедшие инициализацию.
func (s *State) SetExchanges(names []string) {
	cp := append([]string(nil), names...)
	sort.Strings(cp)
	s.mu.Lock()
	s.exchanges = cp
	s.mu.Unlock()
}

func (s *State) Exchanges() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.exchanges...)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
