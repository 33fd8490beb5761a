package notify

import (
	"go.uber.org/fx"

	"trade_executor/internal/modules/config"
	"trade_executor/pkg/logger"
)

// NewNotifier: Telegram при наличии токена и чата, иначе лог; поверх — cooldown.
func NewNotifier(cfg *config.Config) Notifier {
	var base Notifier = NewLog()
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			logger.Warn("[NOTIFY] telegram disabled: %v", err)
		} else {
			base = tg
		}
	}
	return NewThrottled(base, cfg.Monitor.EventCooldown)
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewNotifier),
	)
}
