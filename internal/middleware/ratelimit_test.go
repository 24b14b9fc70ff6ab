package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petromanage/internal/model"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func send(h http.Handler, method string, target string, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: 0, AuthRPM: 1}).Handler(okHandler)

	for i := 0; i < 10; i++ {
		rec := send(handler, http.MethodGet, "/assets/42", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(RateLimitOptions{AuthRPM: 1}).Handler(okHandler)

	// Burst of one: the first call spends the only token.
	rec := send(handler, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(handler, http.MethodPost, "/auth/login", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Equal(t, "Too Many Requests", body.Error)

	// Paths that merely share the prefix text are not auth traffic.
	rec = send(handler, http.MethodGet, "/authors", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: 1}).Handler(okHandler)

	assert.Equal(t, http.StatusOK, send(handler, http.MethodGet, "/x", "10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(handler, http.MethodGet, "/x", "10.0.0.1:2222").Code)
	assert.Equal(t, http.StatusOK, send(handler, http.MethodGet, "/x", "10.0.0.2:1111").Code)
}

func TestRateLimitMiddleware_ForwardedFor(t *testing.T) {
	t.Parallel()

	spoofed := func(h http.Handler, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	untrusted := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: 1}).Handler(okHandler)
	assert.Equal(t, http.StatusOK, spoofed(untrusted, "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, spoofed(untrusted, "2.2.2.2"))

	trusted := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: 1, TrustForwardedFor: true}).Handler(okHandler)
	assert.Equal(t, http.StatusOK, spoofed(trusted, "9.9.9.9, 1.1.1.1"))
	assert.Equal(t, http.StatusOK, spoofed(trusted, "9.9.9.9, 2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, spoofed(trusted, "8.8.8.8, 2.2.2.2"))
}

func TestRateLimitMiddleware_Configuration(t *testing.T) {
	t.Parallel()

	mw := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: -1, AuthPrefix: "/Identity/"})
	assert.Equal(t, -1, mw.generalRPM)
	assert.Equal(t, "/identity", mw.authPrefix)

	assert.Equal(t, "/auth", NewRateLimitMiddleware(RateLimitOptions{}).authPrefix)
}

func TestRateLimitMiddleware_SweepsIdleClients(t *testing.T) {
	t.Parallel()

	mw := NewRateLimitMiddleware(RateLimitOptions{GeneralRPM: 10})
	start := time.Now()

	mw.budgetsFor("10.0.0.1", start)
	mw.budgetsFor("10.0.0.2", start.Add(limiterIdleTTL))
	require.Len(t, mw.clients, 2)

	mw.budgetsFor("10.0.0.2", start.Add(limiterIdleTTL+limiterSweepPeriod+time.Second))
	assert.Len(t, mw.clients, 1)
	assert.Contains(t, mw.clients, "10.0.0.2")
}
