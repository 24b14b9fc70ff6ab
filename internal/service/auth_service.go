package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"petromanage/internal/model"
)

type AuthOptions struct {
	// DefaultRole is assumed for users whose stored role was never set.
	DefaultRole string
	// AllowedRoles restricts the roles accepted at registration when non-empty.
	AllowedRoles []string
	BcryptCost   int
}

// AuthService checks passwords and declared roles against stored user
// records. A successful Login is the only source of identities for the token
// issuer.
type AuthService struct {
	users        UserStore
	defaultRole  string
	allowedRoles []string
	bcryptCost   int
}

func NewAuthService(users UserStore, opts AuthOptions) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: user store is required")
	}

	defaultRole := strings.ToLower(strings.TrimSpace(opts.DefaultRole))
	if defaultRole == "" {
		return nil, errors.New("auth service: default role is required")
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	return &AuthService{
		users:        users,
		defaultRole:  defaultRole,
		allowedRoles: opts.AllowedRoles,
		bcryptCost:   cost,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string, declaredRole string) (model.Identity, error) {
	user, err := s.findUser(ctx, strings.TrimSpace(email))
	if err != nil {
		return model.Identity{}, err
	}

	if user.PasswordHash == "" {
		return model.Identity{}, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Warn("stored password hash is unusable", "user_id", user.ID, "error", err)
		}
		return model.Identity{}, model.ErrInvalidCredentials
	}

	role := s.effectiveRole(user)
	if !strings.EqualFold(role, strings.TrimSpace(declaredRole)) {
		return model.Identity{}, model.WithMessage(model.ErrRoleMismatch,
			"Access Denied: You are not authorized as "+strings.TrimSpace(declaredRole))
	}

	return model.Identity{UserID: user.ID, Email: user.Email, Role: role, Name: user.Name}, nil
}

// Register stores a new user. An empty role is stored unset and resolves to
// the default role at login.
func (s *AuthService) Register(ctx context.Context, email string, password string, role string, name string) (model.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	role = strings.ToLower(strings.TrimSpace(role))

	if email == "" || password == "" {
		return model.User{}, model.WithMessage(model.ErrInvalidInput, "Email and password are required")
	}
	if role != "" && len(s.allowedRoles) > 0 && !slices.Contains(s.allowedRoles, role) {
		return model.User{}, model.WithMessage(model.ErrInvalidInput, "Invalid role: "+role)
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.User{}, model.ErrEmailAlreadyInUse
	case !errors.Is(err, model.ErrUserNotFound):
		return model.User{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	created, err := s.users.Create(ctx, model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailAlreadyInUse) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", created.ID, "role", s.effectiveRole(created))
	created.PasswordHash = ""
	return created, nil
}

// ListByRole returns the users whose stored role is exactly role.
func (s *AuthService) ListByRole(ctx context.Context, role string) ([]model.UserSummary, error) {
	users, err := s.users.ListByRole(ctx, strings.ToLower(strings.TrimSpace(role)))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	summaries := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, model.UserSummary{ID: u.ID, Email: u.Email, Name: u.Name})
	}
	return summaries, nil
}

func (s *AuthService) effectiveRole(u model.User) string {
	if strings.TrimSpace(u.Role) == "" {
		return s.defaultRole
	}
	return u.Role
}

func (s *AuthService) findUser(ctx context.Context, email string) (model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, err
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
