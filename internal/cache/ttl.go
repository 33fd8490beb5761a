package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value V
	at    time.Time
}

// TTL: кеш key -> (value, insertedAt). Возраст проверяет читатель: Get(key, maxAge).
// Два параллельных промаха по одному ключу оба пойдут на биржу, это нормально.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	now   func() time.Time
}

type Option[K comparable, V any] func(*TTL[K, V])

// WithClock: подмена часов для тестов.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *TTL[K, V]) { c.now = now }
}

func New[K comparable, V any](opts ...Option[K, V]) *TTL[K, V] {
	c := &TTL[K, V]{
		items: make(map[K]entry[V]),
		now:   time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get возвращает значение, только если оно моложе maxAge.
func (c *TTL[K, V]) Get(key K, maxAge time.Duration) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.at) >= maxAge {
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, at: c.now()}
	c.mu.Unlock()
}

func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
