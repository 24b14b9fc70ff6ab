package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// UpstreamTimeout bounds proxied exchanges without buffering the response
// the way http.TimeoutHandler does, so upstream bodies keep streaming.
// maxDuration caps the whole exchange; idleTimeout caps the silence between
// two writes to the client, counting from the start of the request.
func UpstreamTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			iw := &idleWriter{ResponseWriter: w, idle: idleTimeout}
			iw.touch()
			// Armed only once iw.timer is set; the callback may re-arm it.
			iw.timer = time.AfterFunc(time.Hour, func() {
				if iw.expired() {
					_ = rc.SetWriteDeadline(time.Now())
					cancel()
				}
			})
			iw.timer.Reset(idleTimeout)
			defer iw.timer.Stop()

			next.ServeHTTP(iw, r.WithContext(ctx))
		})
	}
}

// idleWriter records the time of the last write. Its timer checks that time
// when it fires and re-arms itself for the remainder instead of being reset
// on every write.
type idleWriter struct {
	http.ResponseWriter
	idle      time.Duration
	timer     *time.Timer
	lastWrite atomic.Int64
}

func (iw *idleWriter) touch() {
	iw.lastWrite.Store(time.Now().UnixNano())
}

func (iw *idleWriter) expired() bool {
	silent := time.Since(time.Unix(0, iw.lastWrite.Load()))
	if silent < iw.idle {
		iw.timer.Reset(iw.idle - silent)
		return false
	}
	return true
}

func (iw *idleWriter) Write(b []byte) (int, error) {
	iw.touch()
	return iw.ResponseWriter.Write(b)
}

func (iw *idleWriter) Flush() {
	iw.touch()
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (iw *idleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}
