package handler

import (
	"net"
	"net/http"
	"strings"

	"petromanage/internal/event"
	"petromanage/internal/model"
)

// publish records e on the handler's bus, if it has one. Request-derived
// fields are filled in here.
func (h *AuthHandler) publish(r *http.Request, e event.Event) {
	if h.events == nil {
		return
	}
	e.ClientIP = clientIP(r)
	h.events.Publish(e)
}

func (h *AuthHandler) publishFailure(r *http.Request, t event.Type, email string, role string, err error) {
	code := "INTERNAL_ERROR"
	if kind, ok := model.KindOf(err); ok {
		code = kind.Code
	}
	h.publish(r, event.Event{Type: t, Email: email, Role: role, Code: code})
}

// clientIP prefers the hop appended by the gateway, which is the last entry in
// X-Forwarded-For.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}

	return strings.TrimSpace(r.RemoteAddr)
}
