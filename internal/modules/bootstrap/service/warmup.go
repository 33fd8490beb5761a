package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"trade_executor/internal/exchange"
	"trade_executor/pkg/logger"
)

// Source: клиенты бирж и символы активных сигналов.
type Source interface {
	Clients() map[string]exchange.Client
	ActiveSymbols() map[string][]string
}

// Watcher: подписка стрима на символы биржи.
type Watcher interface {
	Watch(symbols ...string)
}

// Warmuper прогревает кеши клиентов по активным сигналам после рестарта,
// чтобы первая итерация монитора не упиралась в холодный REST.
type Warmuper struct {
	src      Source
	watchers map[string]Watcher

	// ограничитель параллелизма, чтобы не словить rate limit
	limit int
}

func NewWarmuper(src Source, watchers map[string]Watcher) *Warmuper {
	if watchers == nil {
		watchers = map[string]Watcher{}
	}
	return &Warmuper{
		src:      src,
		watchers: watchers,
		limit:    8,
	}
}

// Warmup возвращает число символов, для которых удалось загрузить market info.
func (w *Warmuper) Warmup(ctx context.Context) int {
	clients := w.src.Clients()
	var cnt atomic.Int64

	var g errgroup.Group
	g.SetLimit(w.limit)

	for name, symbols := range w.src.ActiveSymbols() {
		c, ok := clients[name]
		if !ok || len(symbols) == 0 {
			continue
		}
		if wt, ok := w.watchers[name]; ok {
			wt.Watch(symbols...)
		}

		for _, sym := range symbols {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				if _, ok := c.GetMarketInfo(ctx, sym); !ok {
					logger.Warn("[BOOT] %s %s market info unavailable", name, sym)
					return nil
				}
				if _, ok := c.GetLeverageBrackets(ctx, sym); !ok {
					logger.Debug("[BOOT] %s %s no leverage brackets", name, sym)
				}
				cnt.Add(1)
				return nil
			})
		}
	}

	_ = g.Wait()
	return int(cnt.Load())
}
