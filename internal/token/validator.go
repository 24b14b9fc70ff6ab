package token

import (
	"errors"
	"fmt"
	"time"

	"petromanage/internal/model"
)

// Validator checks raw tokens against the shared secret. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	secret []byte
	now    func() time.Time
}

func NewValidator(secret []byte) (*Validator, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("token: signing secret must be at least 32 bytes")
	}

	return &Validator{secret: secret, now: time.Now}, nil
}

// WithClock returns a copy of the validator that reads time from now.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	clone := *v
	clone.now = now
	return &clone
}

// Validate returns the identity carried by raw. Any decoding or signature
// failure is model.ErrInvalidToken; a well-signed token past its exp is
// model.ErrExpiredToken.
func (v *Validator) Validate(raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, fmt.Errorf("%w: empty token", model.ErrInvalidToken)
	}

	claims, err := Decode(raw, v.secret)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if v.now().After(claims.ExpiresAt) {
		return model.Identity{}, model.ErrExpiredToken
	}

	return claims.Identity, nil
}
