// internal/delivery/telegram/app/http_client/polling.go
package http_client

import (
	"context"
	"net/http"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"
)

// PollingClient клиент для long-polling с увеличенным таймаутом
type PollingClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewPollingClient создает клиент для polling. Таймаут HTTP должен быть больше таймаута getUpdates.
func NewPollingClient(baseURL string, pollTimeout int) *PollingClient {
	return &PollingClient{
		httpClient: &http.Client{
			Timeout: time.Duration(pollTimeout+5) * time.Second,
		},
		baseURL: baseURL,
	}
}

type getUpdatesParams struct {
	Offset         int64    `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetUpdates забирает обновления начиная с offset
func (c *PollingClient) GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error) {
	var updates []telegram.Update
	err := call(ctx, c.httpClient, c.baseURL, "getUpdates", getUpdatesParams{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: telegram.AllowedUpdates,
	}, &updates)
	return updates, err
}
