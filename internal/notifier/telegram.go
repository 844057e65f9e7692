// Package notifier содержит реализации каналов доставки алертов.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tradebot/internal/models"
	"tradebot/internal/monitoring"
)

// Эмодзи по уровню риска для заголовка сообщения
var levelEmoji = map[models.RiskLevel]string{
	models.RiskLow:      "ℹ️",
	models.RiskMedium:   "⚠️",
	models.RiskHigh:     "🚨",
	models.RiskCritical: "💥",
}

// Telegram доставляет алерты в чат через Bot API
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

var _ monitoring.AlertSink = (*Telegram)(nil)

// NewTelegram создаёт канал доставки в telegram-чат
func NewTelegram(token string, chatID int64, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Send отправляет алерт в чат
func (t *Telegram) Send(alert models.Alert) error {
	emoji := levelEmoji[alert.Level]
	if emoji == "" {
		emoji = "ℹ️"
	}

	text := fmt.Sprintf("%s *%s* [%s]\n%s\n_%s_",
		emoji, alert.Level, alert.Type, alert.Message,
		alert.Timestamp.Format("2006-01-02 15:04:05 UTC"))

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}

	t.logger.Debug().Str("type", alert.Type).Msg("alert delivered to telegram")
	return nil
}
