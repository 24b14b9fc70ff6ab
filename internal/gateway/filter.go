// Package gateway is the perimeter in front of the PetroManage services: it
// verifies session tokens once, forwards the caller's identity in headers and
// proxies the request to the upstream that owns its path.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"petromanage/internal/model"
	"petromanage/pkg/identity"
)

const bearerPrefix = "Bearer "

type TokenValidator interface {
	Validate(raw string) (model.Identity, error)
}

// AuthFilter lets public paths through untouched and requires a valid bearer
// token everywhere else.
type AuthFilter struct {
	validator TokenValidator
	public    []string
	logger    *slog.Logger
}

func NewAuthFilter(validator TokenValidator, publicPaths []string, logger *slog.Logger) (*AuthFilter, error) {
	if validator == nil {
		return nil, errors.New("gateway: token validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	public := make([]string, 0, len(publicPaths))
	for _, p := range publicPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			return nil, errors.New("gateway: public path " + p + " must start with /")
		}
		public = append(public, path.Clean(p))
	}

	return &AuthFilter{validator: validator, public: public, logger: logger.With("component", "auth_filter")}, nil
}

// IsPublic reports whether the cleaned form of p is a public prefix or lies
// below one. "/auth/login" covers "/auth/login/x" but not "/auth/loginx".
func (f *AuthFilter) IsPublic(p string) bool {
	p = cleanPath(p)
	for _, prefix := range f.public {
		if prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func (f *AuthFilter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Downstream sees the path the decision was made on.
		cleaned := cleanPath(r.URL.Path)
		if cleaned != r.URL.Path {
			r.URL.Path = cleaned
			r.URL.RawPath = ""
		}

		if f.IsPublic(cleaned) {
			// Identity headers only ever come from a validated token.
			identity.Strip(r.Header)
			f.logger.Debug("public path", "method", r.Method, "path", cleaned)
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if strings.TrimSpace(header) == "" {
			f.reject(w, r, model.ErrMissingAuthHeader)
			return
		}

		raw, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok {
			f.reject(w, r, model.ErrMalformedAuthHeader)
			return
		}

		caller, err := f.validator.Validate(strings.TrimSpace(raw))
		if err != nil {
			f.reject(w, r, err)
			return
		}

		identity.Inject(r.Header, identity.Identity{
			UserID: caller.UserID,
			Email:  caller.Email,
			Role:   caller.Role,
			Name:   caller.Name,
		})

		f.logger.Debug("request authenticated", "path", cleaned, "user_id", caller.UserID, "role", caller.Role)
		next.ServeHTTP(w, r)
	})
}

func (f *AuthFilter) reject(w http.ResponseWriter, r *http.Request, err error) {
	kind, known := model.KindOf(err)
	if !known || kind.Category != model.CategoryAuthentication {
		f.logger.Error("token validation failed unexpectedly", "path", r.URL.Path, "error", err)
		kind = model.ErrorKind{Code: "INVALID_TOKEN", Category: model.CategoryAuthentication, Message: "Invalid token"}
	} else {
		f.logger.Info("request rejected", "method", r.Method, "path", r.URL.Path, "code", kind.Code)
	}

	writeRejection(w, http.StatusUnauthorized, model.ErrorResponse{
		Error:    http.StatusText(http.StatusUnauthorized),
		Message:  kind.Message,
		Code:     kind.Code,
		Category: kind.Category,
	})
}

func writeRejection(w http.ResponseWriter, status int, body model.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
