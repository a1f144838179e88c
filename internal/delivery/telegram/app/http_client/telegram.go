// internal/delivery/telegram/app/http_client/telegram.go
package http_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"
)

const maxResponseSize = 2 << 20

// APIError ошибка Bot API (ok=false)
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: error %d: %s", e.Method, e.Code, e.Description)
}

// IsRateLimited ошибка 429 от Telegram
func (e *APIError) IsRateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// IsParseError Telegram не смог разобрать разметку
func (e *APIError) IsParseError() bool {
	return e.Code == http.StatusBadRequest && strings.Contains(e.Description, "can't parse entities")
}

// AsAPIError достает *APIError из цепочки
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// TelegramClient клиент для работы с Telegram API
type TelegramClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewTelegramClient создает клиент. baseURL вида https://api.telegram.org/bot<token>/
func NewTelegramClient(baseURL string) *TelegramClient {
	return &TelegramClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// BotURL собирает базовый URL метода для токена
func BotURL(apiBase, token string) string {
	return strings.TrimRight(apiBase, "/") + "/bot" + token + "/"
}

// Call вызывает метод Bot API и разбирает result в out (если out != nil)
func (c *TelegramClient) Call(ctx context.Context, method string, payload, out interface{}) error {
	return call(ctx, c.httpClient, c.baseURL, method, payload, out)
}

// SendMessage отправляет сообщение
func (c *TelegramClient) SendMessage(ctx context.Context, params telegram.SendMessageParams) error {
	return c.Call(ctx, "sendMessage", params, nil)
}

// AnswerCallbackQuery убирает "часики" с кнопки
func (c *TelegramClient) AnswerCallbackQuery(ctx context.Context, params telegram.AnswerCallbackParams) error {
	return c.Call(ctx, "answerCallbackQuery", params, nil)
}

// SetWebhook регистрирует webhook
func (c *TelegramClient) SetWebhook(ctx context.Context, params telegram.SetWebhookParams) error {
	return c.Call(ctx, "setWebhook", params, nil)
}

// DeleteWebhook снимает webhook, иначе getUpdates вернет 409
func (c *TelegramClient) DeleteWebhook(ctx context.Context) error {
	return c.Call(ctx, "deleteWebhook", map[string]bool{"drop_pending_updates": false}, nil)
}

// SetMyCommands устанавливает меню команд
func (c *TelegramClient) SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error {
	return c.Call(ctx, "setMyCommands", telegram.SetMyCommandsParams{Commands: commands}, nil)
}

// SetTimeout устанавливает таймаут для клиента
func (c *TelegramClient) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// GetBaseURL возвращает базовый URL
func (c *TelegramClient) GetBaseURL() string {
	return c.baseURL
}

func call(ctx context.Context, httpClient *http.Client, baseURL, method string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: http post: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	var tgResp apiResponse
	if err := json.Unmarshal(raw, &tgResp); err != nil {
		return fmt.Errorf("telegram %s: parse response (status %d): %w", method, resp.StatusCode, err)
	}

	if !tgResp.OK {
		apiErr := &APIError{Method: method, Code: tgResp.ErrorCode, Description: tgResp.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiErr.IsRateLimited() {
			apiErr.RetryAfter = time.Duration(tgResp.Parameters.RetryAfter) * time.Second
			if apiErr.RetryAfter == 0 {
				apiErr.RetryAfter = 5 * time.Second
			}
		}
		return apiErr
	}

	if out != nil && len(tgResp.Result) > 0 {
		if err := json.Unmarshal(tgResp.Result, out); err != nil {
			return fmt.Errorf("telegram %s: parse result: %w", method, err)
		}
	}
	return nil
}
