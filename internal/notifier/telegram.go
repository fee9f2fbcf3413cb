package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"DipScreener/internal/logger"
)

// maxMessageLen is the Bot API limit for one text message.
const maxMessageLen = 4096

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends HTML messages to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	bot        botAPI
	api        *tgbotapi.BotAPI
	chatID     int64
	maxRetries int
	retryDelay time.Duration
}

// NewTelegramNotifier connects to the Bot API, optionally through a proxy.
func NewTelegramNotifier(botToken, chatID, proxyURL string, maxRetries int, retryDelay time.Duration) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	// Long polling holds a request open for up to 60s.
	client := &http.Client{Timeout: 90 * time.Second, Transport: transport}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	n := newNotifier(api, id, maxRetries, retryDelay)
	n.api = api
	logger.Info("telegram bot authorized as %s", api.Self.UserName)
	return n, nil
}

func newNotifier(bot botAPI, chatID int64, maxRetries int, retryDelay time.Duration) *TelegramNotifier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Send delivers text to the configured chat, splitting it at line
// boundaries when it exceeds the message limit.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range split(text, maxMessageLen) {
		if err := t.sendTo(ctx, t.chatID, part); err != nil {
			return err
		}
	}
	return nil
}

// sendTo sends one HTML message with linear-backoff retry.
func (t *TelegramNotifier) sendTo(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == t.maxRetries-1 {
			break
		}
		backoff := t.retryDelay * time.Duration(i+1)
		logger.Warn("telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, t.maxRetries, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", t.maxRetries, lastErr)
}

// split cuts text into chunks of at most limit bytes, preferring newlines.
func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if b.Len() > 0 {
				parts = append(parts, b.String())
				b.Reset()
			}
			cut := cutPoint(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if b.Len()+len(line) > limit {
			parts = append(parts, b.String())
			b.Reset()
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

// cutPoint returns the largest offset <= limit that falls on a rune boundary
// and outside an HTML tag. It is always > 0 so splitting makes progress.
func cutPoint(line string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if open := strings.LastIndexByte(line[:cut], '<'); open > 0 && open > strings.LastIndexByte(line[:cut], '>') {
		cut = open
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(line)
		cut = size
	}
	return cut
}
