package http_client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler func(method string, body map[string]any) (int, string)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		status, resp := handler(r.URL.Path, body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return BotURL(srv.URL, "TOKEN")
}

func TestSendMessage(t *testing.T) {
	var got map[string]any
	base := newServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/botTOKEN/sendMessage", path)
		got = body
		return http.StatusOK, `{"ok":true,"result":{"message_id":1}}`
	})

	c := NewTelegramClient(base)
	err := c.SendMessage(context.Background(), telegram.SendMessageParams{
		ChatID:    42,
		Text:      "*hi*",
		ParseMode: telegram.ParseModeMarkdown,
		ReplyMarkup: &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "Search", CallbackData: "action_search"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(42), got["chat_id"])
	assert.Equal(t, "Markdown", got["parse_mode"])
	assert.NotNil(t, got["reply_markup"])
}

func TestAPIErrors(t *testing.T) {
	base := newServer(t, func(path string, _ map[string]any) (int, string) {
		if path == "/botTOKEN/sendMessage" {
			return http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`
		}
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: unclosed bold"}`
	})
	c := NewTelegramClient(base)

	err := c.SendMessage(context.Background(), telegram.SendMessageParams{ChatID: 1, Text: "x"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)

	err = c.AnswerCallbackQuery(context.Background(), telegram.AnswerCallbackParams{CallbackQueryID: "1"})
	apiErr, ok = AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsParseError())
	assert.False(t, apiErr.IsRateLimited())
}

func TestGetUpdates(t *testing.T) {
	base := newServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/botTOKEN/getUpdates", path)
		assert.Equal(t, float64(7), body["offset"])
		assert.Equal(t, float64(1), body["timeout"])
		return http.StatusOK, `{"ok":true,"result":[
			{"update_id":7,"message":{"message_id":1,"from":{"id":42,"first_name":"Ann"},"chat":{"id":42,"type":"private"},"text":"/start"}},
			{"update_id":8,"callback_query":{"id":"cb","from":{"id":42,"first_name":"Ann"},"message":{"message_id":2,"chat":{"id":42,"type":"private"}},"data":"action_search"}}
		]}`
	})

	c := NewPollingClient(base, 1)
	updates, err := c.GetUpdates(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.From.ID)
	assert.Equal(t, "action_search", updates[1].CallbackQuery.Data)
	assert.Equal(t, int64(42), updates[1].CallbackQuery.Message.Chat.ID)
}
