package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Beyllin/link/internal/api"
	"github.com/Beyllin/link/internal/config"
	"github.com/Beyllin/link/internal/events"
	"github.com/Beyllin/link/internal/resolver"
	"github.com/Beyllin/link/internal/service/auth"
	"github.com/Beyllin/link/internal/task"
)

const adminPassword = "correct-horse-battery"

// syncBuffer lets workers log while the test reads
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	hash, err := auth.HashPassword(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "debug"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-that-is-long-enough-for-testing",
			AdminPasswordHash:    hash,
			TokenLifetimeMinutes: 60,
		},
		Task: config.TaskConfig{
			WorkerCount:     2,
			PollInterval:    10 * time.Millisecond,
			ShutdownTimeout: 2 * time.Second,
		},
		Restart: config.RestartConfig{
			ScriptPath:     "/nonexistent/manage_bot.sh",
			ScriptTimeout:  time.Second,
			ProcessNames:   []string{"chrome"},
			CmdlineMarkers: []string{"headless"},
		},
	}
}

func fakeMediaFire(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("quickkey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"result":"Success","links":[{"quickkey":"` + key +
			`","direct_download":"https://download.mediafire.com/` + key + `/app.apk"}]}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

type testApp struct {
	app    *application
	server *httptest.Server
	logs   *syncBuffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logs := &syncBuffer{}
	l := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mediaFire := fakeMediaFire(t)
	app, err := newApplication(testConfig(t), l,
		resolver.MediaFireRoute(resolver.NewMediaFire(mediaFire.Client(), mediaFire.URL)))
	require.NoError(t, err)

	server := httptest.NewServer(app.setupRouter())
	t.Cleanup(func() {
		server.Close()
		app.cleanup()
	})

	return &testApp{app: app, server: server, logs: logs}
}

func (a *testApp) request(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testApp) token(t *testing.T) string {
	t.Helper()

	resp := a.request(t, http.MethodPost, "/api/auth/token", "", `{"password":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok api.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	return tok.Token
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)

	resp := a.request(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestTokenRequiredForAPI(t *testing.T) {
	a := newTestApp(t)

	resp := a.request(t, http.MethodGet, "/api/queue", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	resp = a.request(t, http.MethodPost, "/api/auth/token", "", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLinkResolvedEndToEnd(t *testing.T) {
	a := newTestApp(t)
	token := a.token(t)

	resp := a.request(t, http.MethodPost, "/api/links", token,
		`{"url":"https://www.mediafire.com/file/abc123/app.apk/file","owner":"tg:7"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	submitted := decode[api.SubmitResponse](t, resp)

	resp = a.request(t, http.MethodGet, "/api/tasks/"+submitted.TaskID+"?wait=5s", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.TaskResponse](t, resp)

	assert.Equal(t, task.TaskStatusCompleted, got.Status)
	assert.Equal(t, "https://download.mediafire.com/abc123/app.apk", got.Result)
	assert.Equal(t, "tg:7", got.Owner)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
}

func TestUnsupportedLinkRejected(t *testing.T) {
	a := newTestApp(t)
	token := a.token(t)

	resp := a.request(t, http.MethodPost, "/api/links", token, `{"url":"https://example.com/file.zip"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, a.app.queue.Status().Pending)
}

func TestCommandRendered(t *testing.T) {
	a := newTestApp(t)
	token := a.token(t)

	resp := a.request(t, http.MethodPost, "/api/commands", token, `{"command":"support"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	submitted := decode[api.SubmitResponse](t, resp)

	resp = a.request(t, http.MethodGet, "/api/tasks/"+submitted.TaskID+"?wait=5s", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.TaskResponse](t, resp)

	assert.Equal(t, task.TaskStatusCompleted, got.Status)
	assert.Contains(t, got.Result, "MediaFire")
}

func TestQueueStatusReportsWorkers(t *testing.T) {
	a := newTestApp(t)

	resp := a.request(t, http.MethodGet, "/api/queue", a.token(t), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[task.QueueStatus](t, resp)
	assert.Equal(t, 2, status.Workers)
}

func TestTaskTransitionsAudited(t *testing.T) {
	a := newTestApp(t)
	token := a.token(t)

	resp := a.request(t, http.MethodPost, "/api/commands", token, `{"command":"help"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[api.SubmitResponse](t, resp).TaskID

	require.Eventually(t, func() bool {
		return strings.Contains(a.logs.String(), `"event_type":"task.completed"`)
	}, 3*time.Second, 10*time.Millisecond)

	logs := a.logs.String()
	assert.Contains(t, logs, `"event_type":"task.submitted"`)
	assert.Contains(t, logs, `"event_type":"task.started"`)
	assert.Contains(t, logs, `"task_id":"`+id+`"`)
}

func TestTaskAuditEventHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &TaskAuditEventHandler{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	event := events.NewTaskEvent(events.TaskFailed, "abcd1234", "tg:1", "download")
	event.Error = "MediaFire: no download link"
	require.NoError(t, h.HandleEvent(context.Background(), event))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "task.failed", entry["event_type"])
	assert.Equal(t, "abcd1234", entry["task_id"])
	assert.Equal(t, "MediaFire: no download link", entry["error"])
}

func TestNewApplication_InvalidAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	_, err := newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
