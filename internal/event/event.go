// Package event carries auth events from the request path to their
// consumers without making requests wait on them.
package event

import "time"

type Type string

const (
	TypeUserRegistered      Type = "user.registered"
	TypeLoginSucceeded      Type = "login.succeeded"
	TypeLoginFailed         Type = "login.failed"
	TypeOtpIssued           Type = "otp.issued"
	TypePasswordReset       Type = "password.reset"
	TypePasswordResetFailed Type = "password.reset_failed"
)

// Failed reports whether t records a rejected attempt.
func (t Type) Failed() bool {
	return t == TypeLoginFailed || t == TypePasswordResetFailed
}

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	UserID    int64     `json:"user_id,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Code      string    `json:"code,omitempty"` // error kind of a failed attempt
	Timestamp time.Time `json:"timestamp"`
}

// Bus is what publishers and consumers of auth events depend on.
type Bus interface {
	Publish(e Event)
	Subscribe(name string) (<-chan Event, func())
}
