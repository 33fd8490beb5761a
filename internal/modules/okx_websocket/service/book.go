package service

import (
	"sync"
	"time"

	"trade_executor/internal/exchange"
)

type quote struct {
	price float64
	at    time.Time
}

// PriceBook: последние mark price из стрима по символу BASE/QUOTE.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]quote
	now    func() time.Time
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]quote), now: time.Now}
}

func (b *PriceBook) Set(symbol string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	if at.IsZero() {
		at = b.now()
	}
	key := exchange.Unified(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()
	// более старый кадр не перетирает свежий
	if q, ok := b.prices[key]; ok && q.at.After(at) {
		return
	}
	b.prices[key] = quote{price: price, at: at}
}

// Mark: цена, если она моложе maxAge.
func (b *PriceBook) Mark(symbol string, maxAge time.Duration) (float64, bool) {
	b.mu.RLock()
	q, ok := b.prices[exchange.Unified(symbol)]
	b.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if b.now().Sub(q.at) >= maxAge {
		return 0, false
	}
	return q.price, true
}

func (b *PriceBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}
