package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/alert-dashboard/internal/auth"
	"github.com/sakif/alert-dashboard/internal/config"
)

const testBotToken = "123456:TEST-token"

func newTestServer(t *testing.T, burst int) *Server {
	t.Helper()
	cfg := config.Config{
		HTTP:     config.HTTPConfig{Port: 0, ShutdownTimeout: time.Second},
		Telegram: config.TelegramConfig{BotToken: testBotToken},
		Storage:  config.StorageConfig{DBPath: filepath.Join(t.TempDir(), "nested", "dashboard.db")},
		RateLimit: config.RateLimitConfig{
			RPS:   0.001,
			Burst: burst,
		},
	}

	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(s.close)
	return s
}

func signed(userID string) string {
	values := url.Values{}
	values.Set("user", `{"id":`+userID+`}`)
	return auth.Sign(testBotToken, values)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, 10)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestServer_APIRequiresInitData(t *testing.T) {
	s := newTestServer(t, 10)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me?initData="+url.QueryEscape(signed("42")), nil)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"userId":42`)
}

func TestServer_RateLimitPerUser(t *testing.T) {
	s := newTestServer(t, 2)

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPut, "/api/priority", strings.NewReader(`{"order":"nvda"}`))
		req.Header.Set(auth.InitDataHeader, signed(user))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("1"))
	assert.Equal(t, http.StatusOK, call("1"))
	assert.Equal(t, http.StatusTooManyRequests, call("1"))
	assert.Equal(t, http.StatusOK, call("2"), "other users keep their own budget")
}
