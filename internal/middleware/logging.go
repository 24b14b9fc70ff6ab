package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"petromanage/pkg/identity"
)

const RequestIDHeader = "X-Request-ID"

const maxCapturedBody = 4 << 10

// Logging tags each request with an id, propagates it to the next hop and
// logs one line per request at a level derived from the status. Rejection
// codes are read back from the JSON error body.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(RequestIDHeader, requestID)
		}
		w.Header().Set(RequestIDHeader, requestID)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int64("bytes", rec.written),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()),
			slog.String("client_ip", r.RemoteAddr),
		}
		// Set by the gateway auth filter on the way in.
		if userID := r.Header.Get(identity.HeaderUserID); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		attrs = append(attrs, rec.rejection()...)

		slog.LogAttrs(r.Context(), levelFor(rec.status), "request", attrs...)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
	errBody     bytes.Buffer
}

func (rec *statusRecorder) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.status = status
	rec.wroteHeader = true
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	if rec.status >= 400 && rec.errBody.Len() < maxCapturedBody {
		rec.errBody.Write(b[:min(len(b), maxCapturedBody-rec.errBody.Len())])
	}

	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// rejection extracts code and message from a captured ErrorResponse body.
func (rec *statusRecorder) rejection() []slog.Attr {
	if rec.errBody.Len() == 0 {
		return nil
	}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(rec.errBody.Bytes(), &body); err != nil || body.Code == "" {
		return nil
	}

	attrs := []slog.Attr{slog.String("error_code", body.Code), slog.String("error_message", body.Message)}
	if body.Details != "" {
		attrs = append(attrs, slog.String("error_details", body.Details))
	}
	return attrs
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
