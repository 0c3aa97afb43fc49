package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuickKey(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.mediafire.com/file/abc123xyz/app.apk/file", "abc123xyz", true},
		{"https://www.mediafire.com/file/abc123xyz", "abc123xyz", true},
		{"https://www.mediafire.com/?q1w2e3", "q1w2e3", true},
		{"https://www.mediafire.com/folder/abc123/stuff", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			key, ok := ExtractQuickKey(tc.url)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, key)
		})
	}
}

func newMediaFireServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	var captured http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestMediaFire_Resolve(t *testing.T) {
	server, req := newMediaFireServer(t, http.StatusOK, `{
		"response": {
			"action": "file/get_links",
			"links": [{"quickkey": "abc123", "direct_download": "https://download1.mediafire.com/abc123/app.apk"}],
			"result": "Success"
		}
	}`)

	m := NewMediaFire(server.Client(), server.URL)
	link, err := m.Resolve(context.Background(), "https://www.mediafire.com/file/abc123/app.apk/file")
	require.NoError(t, err)
	assert.Equal(t, "https://download1.mediafire.com/abc123/app.apk", link)

	assert.Equal(t, mediaFireLinksPath, req.URL.Path)
	assert.Equal(t, "abc123", req.URL.Query().Get("quickkey"))
	assert.Equal(t, "direct_download", req.URL.Query().Get("link_type"))
}

func TestMediaFire_Resolve_APIError(t *testing.T) {
	server, _ := newMediaFireServer(t, http.StatusOK, `{
		"response": {"result": "Error", "message": "Unknown or invalid QuickKey"}
	}`)

	m := NewMediaFire(server.Client(), server.URL)
	_, err := m.Resolve(context.Background(), "https://www.mediafire.com/file/abc123")
	assert.ErrorIs(t, err, ErrNoLink)
	assert.Contains(t, err.Error(), "invalid QuickKey")
}

func TestMediaFire_Resolve_NoLinks(t *testing.T) {
	server, _ := newMediaFireServer(t, http.StatusOK, `{"response": {"result": "Success", "links": [{"quickkey": "abc123"}]}}`)

	m := NewMediaFire(server.Client(), server.URL)
	_, err := m.Resolve(context.Background(), "https://www.mediafire.com/file/abc123")
	assert.ErrorIs(t, err, ErrNoLink)
}

func TestMediaFire_Resolve_BadStatus(t *testing.T) {
	server, _ := newMediaFireServer(t, http.StatusServiceUnavailable, `oops`)

	m := NewMediaFire(server.Client(), server.URL)
	_, err := m.Resolve(context.Background(), "https://www.mediafire.com/file/abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestMediaFire_Resolve_BadJSON(t *testing.T) {
	server, _ := newMediaFireServer(t, http.StatusOK, `{not json`)

	m := NewMediaFire(server.Client(), server.URL)
	_, err := m.Resolve(context.Background(), "https://www.mediafire.com/file/abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestMediaFire_Resolve_NoKey(t *testing.T) {
	m := NewMediaFire(nil, "")
	_, err := m.Resolve(context.Background(), "https://www.mediafire.com/folder/abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file key")
}

func TestMediaFire_Resolve_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m := NewMediaFire(server.Client(), server.URL)
	_, err := m.Resolve(ctx, "https://www.mediafire.com/file/abc123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewMediaFire_Defaults(t *testing.T) {
	m := NewMediaFire(nil, "")
	assert.Equal(t, DefaultMediaFireBaseURL, m.baseURL)
	assert.Equal(t, 30*time.Second, m.client.Timeout)

	m = NewMediaFire(nil, "http://localhost:9999/")
	assert.Equal(t, "http://localhost:9999", m.baseURL)
}

func TestMediaFireRoute(t *testing.T) {
	route := MediaFireRoute(NewMediaFire(nil, ""))
	assert.Equal(t, "MediaFire", route.Name)
	assert.True(t, route.matches("www.mediafire.com"))
	assert.False(t, route.matches("example.com"))
}
