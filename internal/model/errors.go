package model

import "errors"

var (
	// Authentication errors
	ErrMissingAuthHeader   = errors.New("missing authorization header")
	ErrMalformedAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidCredentials  = errors.New("invalid credentials")

	// Token codec errors, always wrapped by ErrInvalidToken once they leave the validator
	ErrTokenSignature = errors.New("token signature mismatch")
	ErrTokenMalformed = errors.New("malformed token")

	// Authorization errors
	ErrRoleMismatch = errors.New("role mismatch")

	// OTP errors
	ErrNoOtpIssued = errors.New("no otp issued")
	ErrInvalidOtp  = errors.New("invalid otp")
	ErrOtpExpired  = errors.New("otp has expired")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCategory groups error kinds the way clients recover from them.
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryOtp            ErrorCategory = "otp"
	CategoryUser           ErrorCategory = "user"
	CategoryRequest        ErrorCategory = "request"
)

// ErrorKind is the stable, machine-readable tag returned next to every
// human-readable error message.
type ErrorKind struct {
	Code     string
	Category ErrorCategory
	Message  string
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMissingAuthHeader, ErrorKind{"MISSING_AUTH_HEADER", CategoryAuthentication, "Missing Authorization header"}},
	{ErrMalformedAuthHeader, ErrorKind{"MALFORMED_AUTH_HEADER", CategoryAuthentication, "Invalid Authorization header format"}},
	{ErrExpiredToken, ErrorKind{"EXPIRED_TOKEN", CategoryAuthentication, "Token has expired"}},
	{ErrInvalidToken, ErrorKind{"INVALID_TOKEN", CategoryAuthentication, "Invalid token"}},
	{ErrTokenSignature, ErrorKind{"INVALID_TOKEN", CategoryAuthentication, "Invalid token"}},
	{ErrTokenMalformed, ErrorKind{"INVALID_TOKEN", CategoryAuthentication, "Invalid token"}},
	{ErrInvalidCredentials, ErrorKind{"INVALID_CREDENTIALS", CategoryAuthentication, "Invalid credentials"}},
	{ErrRoleMismatch, ErrorKind{"ROLE_MISMATCH", CategoryAuthorization, "Access denied"}},
	{ErrNoOtpIssued, ErrorKind{"NO_OTP_ISSUED", CategoryOtp, "Invalid OTP"}},
	{ErrInvalidOtp, ErrorKind{"INVALID_OTP", CategoryOtp, "Invalid OTP"}},
	{ErrOtpExpired, ErrorKind{"OTP_EXPIRED", CategoryOtp, "OTP has expired. Please regenerate."}},
	{ErrUserNotFound, ErrorKind{"USER_NOT_FOUND", CategoryUser, "User not found"}},
	{ErrEmailAlreadyInUse, ErrorKind{"EMAIL_ALREADY_IN_USE", CategoryUser, "Email already in use"}},
	{ErrInvalidInput, ErrorKind{"BAD_REQUEST", CategoryRequest, "Invalid input"}},
}

// KindOf classifies err. The boolean is false for errors that are not part of
// the auth taxonomy; callers must treat those as internal failures.
func KindOf(err error) (ErrorKind, bool) {
	if err == nil {
		return ErrorKind{}, false
	}
	for _, entry := range errorKinds {
		if errors.Is(err, entry.err) {
			return entry.kind, true
		}
	}
	return ErrorKind{}, false
}

type messageError struct {
	err     error
	message string
}

func (e *messageError) Error() string { return e.err.Error() + ": " + e.message }

func (e *messageError) Unwrap() error { return e.err }

// WithMessage attaches a client-facing message to a taxonomy error.
func WithMessage(err error, message string) error {
	return &messageError{err: err, message: message}
}

// MessageOf returns the client-facing message for err: the one attached by
// WithMessage when present, the kind's default otherwise.
func MessageOf(err error) string {
	var withMsg *messageError
	if errors.As(err, &withMsg) {
		return withMsg.message
	}
	if kind, ok := KindOf(err); ok {
		return kind.Message
	}
	return "Unexpected server error"
}
