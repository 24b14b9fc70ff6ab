package token

import (
	"errors"
	"time"

	"petromanage/internal/model"
)

// Issuer mints session tokens for identities that already passed
// authentication.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("token: signing secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}

	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	clone := *i
	clone.now = now
	return &clone
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(identity model.Identity) (model.Token, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)

	value, err := Encode(model.Claims{
		Identity:  identity,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, i.secret)
	if err != nil {
		return model.Token{}, err
	}

	return model.Token{Value: value, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}
