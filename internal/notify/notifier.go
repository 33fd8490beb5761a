package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// Notifier: куда монитор отправляет события.
type Notifier interface {
	Notify(ctx context.Context, e models.Event)
}

// sender: часть *tgbot.BotAPI, которая нам нужна.
type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram: пассивный нотифайер в один чат.
type Telegram struct {
	bot    sender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Notify(_ context.Context, e models.Event) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, Format(e))); err != nil {
		logger.Warn("[NOTIFY] telegram send: %v", err)
	}
}

// Format: текст события для человека.
func Format(e models.Event) string {
	var icon string
	switch e.Kind {
	case models.EventTakeProfitHit:
		icon = "🎯"
	case models.EventStopMoved:
		icon = "🛡"
	case models.EventRiskWarning:
		icon = "⚠️"
	case models.EventAccountHealth:
		icon = "🏦"
	case models.EventPositionGone:
		icon = "📭"
	default:
		icon = "ℹ️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", icon, strings.ToUpper(e.Exchange))
	if e.Symbol != "" {
		fmt.Fprintf(&b, " %s", e.Symbol)
	}
	fmt.Fprintf(&b, "\n%s", e.Message)
	return b.String()
}

// Log: событие только в лог.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (Log) Notify(_ context.Context, e models.Event) {
	logger.Info("[EVENT] %s %s %s: %s", e.Kind, e.Exchange, e.Symbol, e.Message)
}

// Throttled глушит повтор события с тем же ключом (kind:exchange:symbol:key) в пределах cooldown.
// Разовые факты (TP, перенос стопа, закрытие позиции) проходят всегда.
type Throttled struct {
	next     Notifier
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewThrottled(next Notifier, cooldown time.Duration) *Throttled {
	return &Throttled{
		next:     next,
		cooldown: cooldown,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

func (t *Throttled) Notify(ctx context.Context, e models.Event) {
	if !throttled(e.Kind) {
		t.next.Notify(ctx, e)
		return
	}

	key := string(e.Kind) + ":" + e.Exchange + ":" + e.Symbol + ":" + e.Key
	now := t.now()

	t.mu.Lock()
	if at, ok := t.last[key]; ok && now.Sub(at) < t.cooldown {
		t.mu.Unlock()
		return
	}
	t.last[key] = now
	t.mu.Unlock()

	t.next.Notify(ctx, e)
}

func throttled(k models.EventKind) bool {
	return k == models.EventRiskWarning || k == models.EventAccountHealth
}
