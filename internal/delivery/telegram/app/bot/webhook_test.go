package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedUpdates struct {
	mu      sync.Mutex
	updates []telegram.Update
	err     error
}

func (r *recordedUpdates) handle(_ context.Context, u telegram.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return r.err
}

func newTestServer(rec *recordedUpdates, health HealthFunc) *WebhookServer {
	return NewWebhookServer(ServerConfig{
		Port:        0,
		WebhookPath: "/webhook",
		SecretToken: "s3cret",
		MaxBodySize: 1024,
	}, rec.handle, health, func() map[string]interface{} {
		return map[string]interface{}{"live_sessions": 2}
	})
}

func serve(ws *WebhookServer, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ws.Echo().ServeHTTP(rec, req)
	return rec
}

const updateJSON = `{"update_id":10,"message":{"message_id":1,"from":{"id":42,"first_name":"Ann"},"chat":{"id":42,"type":"private"},"text":"/start"}}`

func TestWebhook_AcceptsSignedUpdate(t *testing.T) {
	rec := &recordedUpdates{}
	ws := newTestServer(rec, nil)

	resp := serve(ws, http.MethodPost, "/webhook", updateJSON, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, rec.updates, 1)
	assert.Equal(t, int64(10), rec.updates[0].UpdateID)
	assert.Equal(t, "/start", rec.updates[0].Message.Text)
}

func TestWebhook_RejectsBadSecret(t *testing.T) {
	rec := &recordedUpdates{}
	ws := newTestServer(rec, nil)

	for _, headers := range []map[string]string{nil, {SecretHeader: "wrong"}} {
		resp := serve(ws, http.MethodPost, "/webhook", updateJSON, headers)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}
	assert.Empty(t, rec.updates)
}

func TestWebhook_BadBodies(t *testing.T) {
	rec := &recordedUpdates{}
	ws := newTestServer(rec, nil)
	signed := map[string]string{SecretHeader: "s3cret"}

	resp := serve(ws, http.MethodPost, "/webhook", `{not json`, signed)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	big := `{"update_id":1,"message":{"text":"` + strings.Repeat("a", 2048) + `"}}`
	resp = serve(ws, http.MethodPost, "/webhook", big, signed)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Empty(t, rec.updates)
}

func TestWebhook_HandlerErrorStillAcknowledged(t *testing.T) {
	rec := &recordedUpdates{err: errors.New("queue full")}
	ws := newTestServer(rec, nil)

	resp := serve(ws, http.MethodPost, "/webhook", updateJSON, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthAndStats(t *testing.T) {
	healthy := true
	ws := newTestServer(&recordedUpdates{}, func(context.Context) HealthReport {
		status := "ok"
		if !healthy {
			status = "degraded"
		}
		return HealthReport{
			Status:       status,
			Mode:         "webhook",
			LiveSessions: 3,
			Components:   map[string]string{"database": "ok", "redis": "disabled"},
			Time:         time.Now().Format(time.RFC3339),
		}
	})

	resp := serve(ws, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Equal(t, 3, report.LiveSessions)
	assert.Equal(t, "ok", report.Components["database"])

	healthy = false
	resp = serve(ws, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = serve(ws, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"live_sessions":2`)
}

func TestPollingModeServerHasNoWebhookRoute(t *testing.T) {
	ws := NewWebhookServer(ServerConfig{Port: 0}, nil, nil, nil)

	resp := serve(ws, http.MethodPost, "/webhook", updateJSON, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = serve(ws, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}
