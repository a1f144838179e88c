// internal/delivery/telegram/app/bot/message_sender/sender.go
package message_sender

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/delivery/telegram"
	"london-hotel-monitor-bot/internal/delivery/telegram/app/http_client"
	"london-hotel-monitor-bot/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	// Telegram допускает ~30 сообщений в секунду на бота
	globalRate  = 30
	maxAttempts = 3

	maxMessageLength = 4096
)

// API методы Bot API, нужные отправителю
type API interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) error
	AnswerCallbackQuery(ctx context.Context, params telegram.AnswerCallbackParams) error
}

// Stats счетчики отправки
type Stats struct {
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Fallbacks int64 `json:"markdown_fallbacks"`
	Retries   int64 `json:"rate_limit_retries"`
}

// MessageSender отправляет ответы бота в Telegram
type MessageSender struct {
	api      API
	limiter  *rate.Limiter
	testMode bool

	sent      atomic.Int64
	failed    atomic.Int64
	fallbacks atomic.Int64
	retries   atomic.Int64
}

// NewMessageSender создает отправителя с общим лимитом частоты
func NewMessageSender(api API) *MessageSender {
	return &MessageSender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(globalRate), globalRate),
	}
}

// SetTestMode включает/выключает тестовый режим: сообщения только логируются
func (ms *MessageSender) SetTestMode(enabled bool) {
	ms.testMode = enabled
}

// Send отправляет ответ. Если Telegram не разобрал Markdown, отправляет тот же текст без разметки.
func (ms *MessageSender) Send(ctx context.Context, chatID int64, reply conversation.Reply) error {
	if ms.testMode {
		logger.Info("[TEST] Send to %d: %s", chatID, preview(reply.Text))
		return nil
	}

	params := telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        truncate(reply.Text),
		ParseMode:   telegram.ParseModeMarkdown,
		ReplyMarkup: Keyboard(reply.Buttons),
	}

	err := ms.sendWithRetry(ctx, params)
	if apiErr, ok := http_client.AsAPIError(err); ok && apiErr.IsParseError() {
		ms.fallbacks.Add(1)
		logger.Warn("⚠️ [Sender] Markdown rejected for chat %d, sending plain text", chatID)
		params.ParseMode = ""
		params.Text = truncate(PlainText(reply.Text))
		err = ms.sendWithRetry(ctx, params)
	}

	if err != nil {
		ms.failed.Add(1)
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	ms.sent.Add(1)
	return nil
}

// SendAll отправляет ответы по порядку, останавливаясь на первой ошибке
func (ms *MessageSender) SendAll(ctx context.Context, chatID int64, replies []conversation.Reply) error {
	for _, r := range replies {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		if err := ms.Send(ctx, chatID, r); err != nil {
			return err
		}
	}
	return nil
}

// AnswerCallback отвечает на нажатие кнопки
func (ms *MessageSender) AnswerCallback(ctx context.Context, callbackID string) error {
	if ms.testMode || callbackID == "" {
		return nil
	}
	return ms.api.AnswerCallbackQuery(ctx, telegram.AnswerCallbackParams{CallbackQueryID: callbackID})
}

// Stats снимок счетчиков
func (ms *MessageSender) Stats() Stats {
	return Stats{
		Sent:      ms.sent.Load(),
		Failed:    ms.failed.Load(),
		Fallbacks: ms.fallbacks.Load(),
		Retries:   ms.retries.Load(),
	}
}

// sendWithRetry повторяет отправку после 429 не более maxAttempts раз
func (ms *MessageSender) sendWithRetry(ctx context.Context, params telegram.SendMessageParams) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = ms.limiter.Wait(ctx); err != nil {
			return err
		}

		err = ms.api.SendMessage(ctx, params)
		apiErr, ok := http_client.AsAPIError(err)
		if !ok || !apiErr.IsRateLimited() || attempt == maxAttempts {
			return err
		}

		ms.retries.Add(1)
		logger.Warn("⚠️ [Sender] Rate limited by Telegram, retry in %v (attempt %d/%d)", apiErr.RetryAfter, attempt, maxAttempts)
		timer := time.NewTimer(apiErr.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// Keyboard переводит кнопки ответа в inline клавиатуру
func Keyboard(rows [][]conversation.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

// PlainText убирает символы legacy Markdown
func PlainText(text string) string {
	return markdownStripper.Replace(text)
}

var markdownStripper = strings.NewReplacer("*", "", "_", "", "`", "")

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxMessageLength {
		return text
	}
	return string(r[:maxMessageLength-1]) + "…"
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return text
}
