package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"DipScreener/internal/logger"
)

// CommandHandler answers a chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

// ListenForCommands long-polls for updates and answers text messages from
// the configured chat through handler. Blocks until ctx is cancelled.
func (t *TelegramNotifier) ListenForCommands(ctx context.Context, handler CommandHandler) {
	if t.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)
	logger.Info("telegram command listener started")

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			logger.Info("telegram command listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.Chat.ID != t.chatID {
		logger.Warn("ignoring command from unauthorized chat %d", msg.Chat.ID)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	logger.Info("received command: %s", text)

	reply := handler(ctx, text)
	if reply == "" {
		return
	}
	for _, part := range split(reply, maxMessageLen) {
		if err := t.sendTo(ctx, msg.Chat.ID, part); err != nil {
			logger.Error("send reply: %v", err)
			return
		}
	}
}
