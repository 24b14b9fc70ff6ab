// Package identity is the contract between the gateway and the services
// behind it. The gateway verifies the session token once and forwards the
// caller's identity in these headers; downstream services trust them without
// re-verifying.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	HeaderUserID = "X-User-Id"
	HeaderEmail  = "X-User-Email"
	HeaderRole   = "X-User-Role"
	HeaderName   = "X-User-Name"
)

var ErrMissingIdentity = errors.New("identity headers missing or invalid")

type Identity struct {
	UserID int64
	Email  string
	Role   string
	Name   string
}

// Inject sets every identity header on h, replacing whatever the client sent.
func Inject(h http.Header, id Identity) {
	h.Set(HeaderUserID, strconv.FormatInt(id.UserID, 10))
	h.Set(HeaderEmail, id.Email)
	h.Set(HeaderRole, id.Role)
	h.Set(HeaderName, id.Name)
}

// Strip removes every identity header from h.
func Strip(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderEmail)
	h.Del(HeaderRole)
	h.Del(HeaderName)
}

// FromHeaders reads the identity forwarded by the gateway. User id and email
// are mandatory; role and name may be empty.
func FromHeaders(h http.Header) (Identity, error) {
	rawID := strings.TrimSpace(h.Get(HeaderUserID))
	email := strings.TrimSpace(h.Get(HeaderEmail))
	if rawID == "" || email == "" {
		return Identity{}, ErrMissingIdentity
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Identity{}, ErrMissingIdentity
	}

	return Identity{
		UserID: userID,
		Email:  email,
		Role:   h.Get(HeaderRole),
		Name:   h.Get(HeaderName),
	}, nil
}

type contextKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Require rejects requests that arrive without a forwarded identity and
// stores the identity in the request context for the ones that do.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := FromHeaders(r.Header)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   http.StatusText(http.StatusUnauthorized),
				"message": "Authentication required",
				"code":    "MISSING_IDENTITY",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}
