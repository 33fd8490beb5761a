package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_executor/internal/models"
)

type recorder struct{ got []models.Event }

func (r *recorder) Notify(_ context.Context, e models.Event) { r.got = append(r.got, e) }

type fakeBot struct {
	sent []tgbot.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	f.sent = append(f.sent, c)
	return tgbot.Message{}, f.err
}

func TestThrottled_Cooldown(t *testing.T) {
	rec := &recorder{}
	now := time.Unix(1_700_000_000, 0)
	th := NewThrottled(rec, time.Minute)
	th.now = func() time.Time { return now }

	warn := models.Event{Kind: models.EventRiskWarning, Exchange: "okx", Symbol: "BTC/USDT"}
	ctx := context.Background()

	th.Notify(ctx, warn)
	th.Notify(ctx, warn)
	// другой символ — свой ключ
	th.Notify(ctx, models.Event{Kind: models.EventRiskWarning, Exchange: "okx", Symbol: "ETH/USDT"})
	assert.Len(t, rec.got, 2)

	now = now.Add(time.Minute)
	th.Notify(ctx, warn)
	assert.Len(t, rec.got, 3)
}

func TestThrottled_DistinctEventsPass(t *testing.T) {
	rec := &recorder{}
	now := time.Unix(1_700_000_000, 0)
	th := NewThrottled(rec, 5*time.Minute)
	th.now = func() time.Time { return now }
	ctx := context.Background()

	events := []models.Event{
		{Kind: models.EventTakeProfitHit, Exchange: "okx", Symbol: "BTC/USDT", Key: "long:tp1"},
		{Kind: models.EventTakeProfitHit, Exchange: "okx", Symbol: "BTC/USDT", Key: "long:tp2"},
		{Kind: models.EventRiskWarning, Exchange: "okx", Symbol: "BTC/USDT", Key: "long:margin"},
		{Kind: models.EventRiskWarning, Exchange: "okx", Symbol: "BTC/USDT", Key: "long:loss"},
		{Kind: models.EventPositionGone, Exchange: "okx", Symbol: "BTC/USDT", Key: "long"},
		{Kind: models.EventPositionGone, Exchange: "okx", Symbol: "BTC/USDT", Key: "short"},
	}
	for _, e := range events {
		th.Notify(ctx, e)
	}
	assert.Len(t, rec.got, len(events))

	// тот же риск повторно в пределах cooldown глушится, разовые факты нет
	th.Notify(ctx, events[2])
	th.Notify(ctx, events[0])
	assert.Len(t, rec.got, len(events)+1)
}

func TestTelegram_Notify(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot, chatID: 42}

	tg.Notify(context.Background(), models.Event{
		Kind:     models.EventTakeProfitHit,
		Exchange: "okx",
		Symbol:   "BTC/USDT",
		Message:  "TP1 50500 closed 1",
	})

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbot.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "🎯 [OKX] BTC/USDT\nTP1 50500 closed 1", msg.Text)
}

func TestTelegram_SendErrorIsSwallowed(t *testing.T) {
	bot := &fakeBot{err: errors.New("blocked")}
	tg := &Telegram{bot: bot, chatID: 42}

	assert.NotPanics(t, func() {
		tg.Notify(context.Background(), models.Event{Kind: models.EventAccountHealth, Exchange: "binance", Message: "WARNING"})
	})
	assert.Len(t, bot.sent, 1)
}

func TestTelegram_NoChat(t *testing.T) {
	bot := &fakeBot{}
	(&Telegram{bot: bot}).Notify(context.Background(), models.Event{})
	assert.Empty(t, bot.sent)
}
