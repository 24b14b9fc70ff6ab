package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"petromanage/internal/model"
	"petromanage/internal/repository"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOTP(ctx context.Context, email string, code string, ttl time.Duration) error {
	args := m.Called(ctx, email, code, ttl)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type otpFixture struct {
	auth     *AuthService
	otp      *OtpService
	repo     *repository.MemoryUserRepository
	notifier *MockNotifier
	clock    *fakeClock
}

func newOtpFixture(t *testing.T) *otpFixture {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemoryUserRepository()
	auth, err := NewAuthService(repo, AuthOptions{DefaultRole: "manager", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	_, err = auth.Register(ctx, "a@x.com", "old-password", "manager", "Ana")
	require.NoError(t, err)

	notifier := &MockNotifier{}
	notifier.On("SendOTP", mock.Anything, "a@x.com", mock.AnythingOfType("string"), 5*time.Minute).Return(nil)

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	otp, err := NewOtpService(repo, notifier, OtpOptions{TTL: 5 * time.Minute, BcryptCost: bcrypt.MinCost, Now: clock.Now})
	require.NoError(t, err)

	return &otpFixture{auth: auth, otp: otp, repo: repo, notifier: notifier, clock: clock}
}

func TestOtpServiceForgotPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("issues a six digit code and stores it", func(t *testing.T) {
		f := newOtpFixture(t)

		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)
		require.Regexp(t, `^[1-9][0-9]{5}$`, record.Code)
		require.Equal(t, f.clock.Now(), record.GeneratedAt)

		stored, err := f.repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, record.Code, stored.Otp)
		require.NotNil(t, stored.OtpGeneratedAt)

		f.notifier.AssertCalled(t, "SendOTP", mock.Anything, "a@x.com", record.Code, 5*time.Minute)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newOtpFixture(t)

		_, err := f.otp.ForgotPassword(ctx, "nobody@x.com")
		require.ErrorIs(t, err, model.ErrUserNotFound)
		require.Equal(t, "User not found with this email", model.MessageOf(err))
		f.notifier.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivery failure keeps the code", func(t *testing.T) {
		repo := repository.NewMemoryUserRepository()
		_, err := repo.Create(ctx, model.User{Email: "b@x.com", PasswordHash: "x"})
		require.NoError(t, err)

		notifier := &MockNotifier{}
		notifier.On("SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		svc, err := NewOtpService(repo, notifier, OtpOptions{BcryptCost: bcrypt.MinCost})
		require.NoError(t, err)

		record, err := svc.ForgotPassword(ctx, "b@x.com")
		require.NoError(t, err)

		stored, err := repo.FindByEmail(ctx, "b@x.com")
		require.NoError(t, err)
		require.Equal(t, record.Code, stored.Otp)
		notifier.AssertExpectations(t)
	})

	t.Run("reissue replaces the previous code", func(t *testing.T) {
		f := newOtpFixture(t)

		first, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)
		second, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		stored, err := f.repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, second.Code, stored.Otp)
		if first.Code != second.Code {
			require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", first.Code, "new"), model.ErrInvalidOtp)
		}
	})
}

func TestOtpServiceVerifyOtp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no code issued", func(t *testing.T) {
		f := newOtpFixture(t)

		err := f.otp.VerifyOtp(ctx, "a@x.com", "123456", "new-password")
		require.ErrorIs(t, err, model.ErrNoOtpIssued)
	})

	t.Run("wrong code leaves the code on file", func(t *testing.T) {
		f := newOtpFixture(t)
		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		wrong := "100000"
		if record.Code == wrong {
			wrong = "100001"
		}
		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", wrong, "new-password"), model.ErrInvalidOtp)

		stored, err := f.repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, record.Code, stored.Otp)
	})

	t.Run("correct code resets the password once", func(t *testing.T) {
		f := newOtpFixture(t)
		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		f.clock.Advance(4 * time.Minute)
		require.NoError(t, f.otp.VerifyOtp(ctx, "a@x.com", record.Code, "new-password"))

		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", record.Code, "again"), model.ErrNoOtpIssued)

		stored, err := f.repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Empty(t, stored.Otp)
		require.Nil(t, stored.OtpGeneratedAt)
		require.NotEqual(t, "new-password", stored.PasswordHash)

		_, err = f.auth.Login(ctx, "a@x.com", "new-password", "manager")
		require.NoError(t, err)
		_, err = f.auth.Login(ctx, "a@x.com", "old-password", "manager")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("code expires after the ttl", func(t *testing.T) {
		f := newOtpFixture(t)
		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		f.clock.Advance(5*time.Minute + time.Second)
		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", record.Code, "new-password"), model.ErrOtpExpired)

		_, err = f.auth.Login(ctx, "a@x.com", "old-password", "manager")
		require.NoError(t, err)
	})

	t.Run("code is still valid exactly at the ttl", func(t *testing.T) {
		f := newOtpFixture(t)
		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		f.clock.Advance(5 * time.Minute)
		require.NoError(t, f.otp.VerifyOtp(ctx, "a@x.com", record.Code, "new-password"))
	})

	t.Run("code without timestamp is expired", func(t *testing.T) {
		f := newOtpFixture(t)
		require.NoError(t, f.repo.Update(ctx, "a@x.com", func(u *model.User) error {
			u.Otp = "424242"
			u.OtpGeneratedAt = nil
			return nil
		}))

		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", "424242", "new-password"), model.ErrOtpExpired)
	})

	t.Run("empty new password", func(t *testing.T) {
		f := newOtpFixture(t)
		record, err := f.otp.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err)

		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "a@x.com", record.Code, ""), model.ErrInvalidInput)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newOtpFixture(t)

		require.ErrorIs(t, f.otp.VerifyOtp(ctx, "nobody@x.com", "123456", "pw"), model.ErrUserNotFound)
	})
}

func TestOtpServiceGenerateCodeRange(t *testing.T) {
	t.Parallel()

	zeros, err := NewOtpService(repository.NewMemoryUserRepository(), &MockNotifier{}, OtpOptions{
		Random: bytes.NewReader(make([]byte, 64)),
	})
	require.NoError(t, err)

	code, err := zeros.generateCode()
	require.NoError(t, err)
	require.Equal(t, "100000", code)

	live, err := NewOtpService(repository.NewMemoryUserRepository(), &MockNotifier{}, OtpOptions{})
	require.NoError(t, err)
	for range 200 {
		code, err := live.generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code, "100000")
		require.LessOrEqual(t, code, "999999")
	}
}

func TestNewOtpServiceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewOtpService(nil, &MockNotifier{}, OtpOptions{})
	require.Error(t, err)

	_, err = NewOtpService(repository.NewMemoryUserRepository(), nil, OtpOptions{})
	require.Error(t, err)
}
