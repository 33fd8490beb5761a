package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultInterval = 100 * time.Millisecond
	BinanceInterval = 50 * time.Millisecond
	OKXInterval     = 20 * time.Millisecond
)

// Interval: минимальный промежуток между запросами одного клиента (token bucket с burst 1).
// Конкурентность не ограничивает: вызывающие выстраиваются в очередь по слотам.
type Interval struct {
	every   time.Duration
	limiter *rate.Limiter
}

func NewInterval(every time.Duration) *Interval {
	if every <= 0 {
		every = DefaultInterval
	}
	return &Interval{every: every, limiter: rate.NewLimiter(rate.Every(every), 1)}
}

func (l *Interval) Every() time.Duration { return l.every }

// Wait ждёт свой слот. При отмене контекста слот не расходуется.
func (l *Interval) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
