package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"petromanage/internal/model"
)

const (
	DefaultOtpTTL = 5 * time.Minute

	otpMin = 100000
	otpMax = 999999
)

type OtpOptions struct {
	TTL        time.Duration
	BcryptCost int
	// Now and Random default to time.Now and crypto/rand.
	Now    func() time.Time
	Random io.Reader
}

// OtpService runs the password-reset flow. Each user has at most one live
// code; issuing a new one replaces the old, verifying one consumes it.
type OtpService struct {
	users      UserStore
	notifier   Notifier
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
	random     io.Reader
}

func NewOtpService(users UserStore, notifier Notifier, opts OtpOptions) (*OtpService, error) {
	if users == nil {
		return nil, errors.New("otp service: user store is required")
	}
	if notifier == nil {
		return nil, errors.New("otp service: notifier is required")
	}

	s := &OtpService{
		users:      users,
		notifier:   notifier,
		ttl:        opts.TTL,
		bcryptCost: opts.BcryptCost,
		now:        opts.Now,
		random:     opts.Random,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultOtpTTL
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = DefaultBcryptCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		s.random = rand.Reader
	}

	return s, nil
}

// ForgotPassword issues a fresh code for email, overwriting any unconsumed
// one, and hands it to the notifier. Delivery failures are logged; the code
// stays on file either way.
func (s *OtpService) ForgotPassword(ctx context.Context, email string) (model.OtpRecord, error) {
	email = strings.TrimSpace(email)

	code, err := s.generateCode()
	if err != nil {
		return model.OtpRecord{}, err
	}
	generatedAt := s.now().UTC()

	err = s.users.Update(ctx, email, func(u *model.User) error {
		u.Otp = code
		u.OtpGeneratedAt = &generatedAt
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.OtpRecord{}, model.WithMessage(err, "User not found with this email")
		}
		return model.OtpRecord{}, fmt.Errorf("store otp: %w", err)
	}

	if err := s.notifier.SendOTP(ctx, email, code, s.ttl); err != nil {
		slog.Warn("otp delivery failed", "error", err)
	}

	return model.OtpRecord{Email: email, Code: code, GeneratedAt: generatedAt}, nil
}

// VerifyOtp consumes the code on file for email and sets newPassword. Checks
// run in order: a code must exist, must match, and must be younger than the
// TTL.
func (s *OtpService) VerifyOtp(ctx context.Context, email string, submitted string, newPassword string) error {
	email = strings.TrimSpace(email)
	if newPassword == "" {
		return model.WithMessage(model.ErrInvalidInput, "New password is required")
	}

	err := s.users.Update(ctx, email, func(u *model.User) error {
		if u.Otp == "" {
			return model.ErrNoOtpIssued
		}
		if subtle.ConstantTimeCompare([]byte(u.Otp), []byte(submitted)) != 1 {
			return model.ErrInvalidOtp
		}
		// A code without a timestamp cannot be proven fresh.
		if u.OtpGeneratedAt == nil || s.now().Sub(*u.OtpGeneratedAt) > s.ttl {
			return model.ErrOtpExpired
		}

		hash, err := hashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return err
		}

		u.PasswordHash = hash
		u.Otp = ""
		u.OtpGeneratedAt = nil
		return nil
	})
	if err == nil {
		slog.Info("password reset via otp")
		return nil
	}
	if _, known := model.KindOf(err); known {
		return err
	}
	return fmt.Errorf("verify otp: %w", err)
}

func (s *OtpService) generateCode() (string, error) {
	n, err := rand.Int(s.random, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
