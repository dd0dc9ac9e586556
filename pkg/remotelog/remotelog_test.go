package remotelog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(enabled bool, buf *bytes.Buffer) http.Handler {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := chi.NewRouter()
	Routes(r, NewHandle(enabled, logger))
	return r
}

func TestGetRemoteLog(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		var buf bytes.Buffer
		rr := httptest.NewRecorder()
		newRouter(enabled, &buf).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/getremotelog", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]bool
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, map[string]bool{"remote_log": enabled}, resp)
	}
}

func TestPostLog(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		body       string
		wantStatus int
		wantLog    string
	}{
		{name: "written", enabled: true, body: `{"level":"warn","message":"page failed","source":"login.mjs"}`, wantStatus: http.StatusNoContent, wantLog: "level=WARN msg=\"page failed\""},
		{name: "unknown level", enabled: true, body: `{"level":"trace","message":"hi"}`, wantStatus: http.StatusNoContent, wantLog: "level=INFO msg=hi"},
		{name: "disabled", enabled: false, body: `{"message":"hi"}`, wantStatus: http.StatusNoContent},
		{name: "empty message", enabled: true, body: `{"level":"info"}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", enabled: true, body: `not json`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			req := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			newRouter(tt.enabled, &buf).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
				assert.Contains(t, buf.String(), "component=client")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
	// "é" is two bytes, "日" is three
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "ab", truncate("ab日", 4))
	assert.Equal(t, "ab日", truncate("ab日x", 5))
	assert.Equal(t, "", truncate("日", 2))
}

func TestPostLogTruncatesOnRuneBoundary(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	Routes(r, NewHandle(true, slog.New(slog.NewJSONHandler(&buf, nil))))

	prefix := strings.Repeat("a", maxMessageLen-1)
	body, err := json.Marshal(map[string]string{"message": prefix + "é and more"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/log", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	msg, _ := line["msg"].(string)
	assert.True(t, utf8.ValidString(msg))
	assert.NotContains(t, msg, string(utf8.RuneError))
	assert.Equal(t, prefix, msg)
}
