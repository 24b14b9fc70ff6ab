package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"petromanage/internal/model"
)

// Timeout answers 503 REQUEST_TIMEOUT when a handler runs past timeout. The
// response is buffered, so it is only used on the auth service's own routes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(model.ErrorResponse{
		Error:   http.StatusText(http.StatusServiceUnavailable),
		Message: "request timed out",
		Code:    "REQUEST_TIMEOUT",
	})

	return func(next http.Handler) http.Handler {
		timed := http.TimeoutHandler(next, timeout, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handlers overwrite this; it remains only on the timeout reply.
			w.Header().Set("Content-Type", "application/json")
			timed.ServeHTTP(w, r)
		})
	}
}
