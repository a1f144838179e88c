// internal/delivery/telegram/app/bot/bot.go
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/delivery/telegram"
	"london-hotel-monitor-bot/internal/delivery/telegram/app/bot/message_sender"
	telegram_http "london-hotel-monitor-bot/internal/delivery/telegram/app/http_client"
	"london-hotel-monitor-bot/internal/delivery/telegram/queue"
	"london-hotel-monitor-bot/pkg/logger"
)

// Dispatcher точка входа в диалоговую логику
type Dispatcher interface {
	Dispatch(ctx context.Context, in conversation.Inbound) conversation.Outcome
}

// API методы Bot API, которые использует бот
type API interface {
	message_sender.API
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error
	SetWebhook(ctx context.Context, params telegram.SetWebhookParams) error
	DeleteWebhook(ctx context.Context) error
}

// Commands меню команд Telegram
var Commands = []telegram.BotCommand{
	{Command: "start", Description: "Main menu"},
	{Command: "search", Description: "Search hotels"},
	{Command: "alert", Description: "Create a price alert"},
	{Command: "myalerts", Description: "Your active alerts"},
	{Command: "delete", Description: "Delete an alert"},
	{Command: "areas", Description: "London areas"},
	{Command: "chat", Description: "Chat with the AI assistant"},
	{Command: "suggest", Description: "Area suggestions for your interests"},
	{Command: "cancel", Description: "Cancel the current dialog"},
	{Command: "help", Description: "How to use the bot"},
}

// TelegramBot принимает обновления и отвечает через очередь чата
type TelegramBot struct {
	api        API
	sender     *message_sender.MessageSender
	queue      *queue.ChatQueue
	dispatcher Dispatcher

	startupTime time.Time
	received    atomic.Int64
	ignored     atomic.Int64
	rejected    atomic.Int64
}

// NewTelegramBot создает бота
func NewTelegramBot(api API, dispatcher Dispatcher, q *queue.ChatQueue) *TelegramBot {
	return &TelegramBot{
		api:         api,
		sender:      message_sender.NewMessageSender(api),
		queue:       q,
		dispatcher:  dispatcher,
		startupTime: time.Now(),
	}
}

// NewAPI создает HTTP клиент Bot API
func NewAPI(apiBase, token string) *telegram_http.TelegramClient {
	return telegram_http.NewTelegramClient(telegram_http.BotURL(apiBase, token))
}

// Sender возвращает отправителя сообщений
func (b *TelegramBot) Sender() *message_sender.MessageSender {
	return b.sender
}

// HandleUpdate разбирает обновление и ставит его обработку в очередь чата
func (b *TelegramBot) HandleUpdate(_ context.Context, update telegram.Update) error {
	b.received.Add(1)

	in, callbackID, ok := ToInbound(update)
	if !ok {
		b.ignored.Add(1)
		return nil
	}

	err := b.queue.Submit(in.ChatID, func(ctx context.Context) {
		b.process(ctx, in, callbackID)
	})
	if err != nil {
		b.rejected.Add(1)
		return fmt.Errorf("update %d: %w", update.UpdateID, err)
	}
	return nil
}

func (b *TelegramBot) process(ctx context.Context, in conversation.Inbound, callbackID string) {
	if callbackID != "" {
		if err := b.sender.AnswerCallback(ctx, callbackID); err != nil {
			logger.Debug("⚠️ [Bot] answerCallbackQuery: %v", err)
		}
	}

	outcome := b.dispatcher.Dispatch(ctx, in)
	if outcome.Err != nil {
		logger.Debug("🔎 [Bot] chat %d: %s (%s/%s): %v", in.ChatID, outcome.Kind, outcome.Flow, outcome.Step, outcome.Err)
	}

	if err := b.sender.SendAll(ctx, in.ChatID, outcome.Replies); err != nil {
		logger.Error("❌ [Bot] reply to chat %d: %v", in.ChatID, err)
	}
}

// Notify отправляет сообщение вне цикла запрос-ответ (таймауты, алерты)
func (b *TelegramBot) Notify(ctx context.Context, chatID int64, reply conversation.Reply) error {
	return b.sender.Send(ctx, chatID, reply)
}

// SetMyCommands устанавливает меню команд в Telegram
func (b *TelegramBot) SetMyCommands(ctx context.Context) error {
	if err := b.api.SetMyCommands(ctx, Commands); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	logger.Info("✅ [Bot] Registered %d menu commands", len(Commands))
	return nil
}

// RegisterWebhook регистрирует webhook с секретом
func (b *TelegramBot) RegisterWebhook(ctx context.Context, url, secret string) error {
	err := b.api.SetWebhook(ctx, telegram.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: telegram.AllowedUpdates,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	logger.Info("✅ [Bot] Webhook registered: %s", url)
	return nil
}

// ClearWebhook снимает webhook перед polling
func (b *TelegramBot) ClearWebhook(ctx context.Context) error {
	if err := b.api.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// Stop дожидается обработки уже принятых обновлений
func (b *TelegramBot) Stop(ctx context.Context) error {
	return b.queue.Stop(ctx)
}

// Stats счетчики для /stats
func (b *TelegramBot) Stats() map[string]interface{} {
	return map[string]interface{}{
		"uptime":   time.Since(b.startupTime).Round(time.Second).String(),
		"received": b.received.Load(),
		"ignored":  b.ignored.Load(),
		"rejected": b.rejected.Load(),
		"queue":    b.queue.Stats(),
		"sender":   b.sender.Stats(),
	}
}

// ToInbound переводит обновление Telegram во входящее сообщение.
// Второе значение: id callback запроса, на который нужно ответить.
func ToInbound(update telegram.Update) (conversation.Inbound, string, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From.IsBot || cq.Data == "" {
			return conversation.Inbound{}, cq.ID, false
		}
		chatID := cq.From.ID
		if cq.Message != nil && cq.Message.Chat.ID != 0 {
			chatID = cq.Message.Chat.ID
		}
		return conversation.Inbound{
			UserID:    cq.From.ID,
			ChatID:    chatID,
			Username:  cq.From.Username,
			FirstName: cq.From.FirstName,
			Text:      cq.Data,
			Callback:  true,
		}, cq.ID, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.From.IsBot || strings.TrimSpace(msg.Text) == "" {
			return conversation.Inbound{}, "", false
		}
		return conversation.Inbound{
			UserID:    msg.From.ID,
			ChatID:    msg.Chat.ID,
			Username:  msg.From.Username,
			FirstName: msg.From.FirstName,
			Text:      msg.Text,
		}, "", true
	}
	return conversation.Inbound{}, "", false
}
