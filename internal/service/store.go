package service

import (
	"context"
	"time"

	"petromanage/internal/model"
)

// UserStore is the user-record persistence the auth flows need. Update must
// give fn exclusive access to one user's record for the duration of the call
// and persist the record only when fn returns nil.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) (model.User, error)
	Update(ctx context.Context, email string, fn func(*model.User) error) error
	ListByRole(ctx context.Context, role string) ([]model.User, error)
}

// Notifier delivers a freshly issued OTP to its owner.
type Notifier interface {
	SendOTP(ctx context.Context, email string, code string, ttl time.Duration) error
}
