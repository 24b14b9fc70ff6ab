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

func TestRecovery(t *testing.T) {
	t.Parallel()

	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
}

func TestLoggingPropagatesRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusAccepted)
	}))

	t.Run("generates one", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("keeps the caller's", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestStatusRecorderCapturesErrorBodyHead(t *testing.T) {
	t.Parallel()

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusBadRequest)
	big := make([]byte, maxCapturedBody*2)
	_, err := rec.Write(big)
	require.NoError(t, err)

	assert.Equal(t, maxCapturedBody, rec.errBody.Len())
	assert.Equal(t, int64(len(big)), rec.written)
	assert.Nil(t, rec.rejection())

	ok := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, err = ok.Write([]byte("fine"))
	require.NoError(t, err)
	assert.Zero(t, ok.errBody.Len())
}

func TestStatusRecorderRejection(t *testing.T) {
	t.Parallel()

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	writeJSONError(rec, http.StatusUnauthorized, "EXPIRED_TOKEN", "Token has expired")

	attrs := rec.rejection()
	require.Len(t, attrs, 2)
	assert.Equal(t, "EXPIRED_TOKEN", attrs[0].Value.String())
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})

	rec := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REQUEST_TIMEOUT", body.Code)
}

func TestUpstreamTimeoutCancelsIdleExchange(t *testing.T) {
	t.Parallel()

	cancelled := make(chan struct{})
	stalled := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(2 * time.Second):
		}
	})

	rec := httptest.NewRecorder()
	UpstreamTimeout(time.Minute, 20*time.Millisecond)(stalled).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	select {
	case <-cancelled:
	default:
		t.Fatal("idle exchange was not cancelled")
	}
}

func TestUpstreamTimeoutKeepsActiveStreams(t *testing.T) {
	t.Parallel()

	streaming := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 5; i++ {
			if r.Context().Err() != nil {
				return
			}
			_, _ = w.Write([]byte("chunk"))
			w.(http.Flusher).Flush()
			time.Sleep(10 * time.Millisecond)
		}
	})

	rec := httptest.NewRecorder()
	UpstreamTimeout(time.Minute, 200*time.Millisecond)(streaming).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "chunkchunkchunkchunkchunk", rec.Body.String())
}
