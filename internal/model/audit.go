package model

import "time"

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuditActor is who an auth event concerns. UserID is zero when the email
// matched no user.
type AuditActor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt time.Time  `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	// Code is the error kind of a failed attempt.
	Code string `json:"code,omitempty"`
}

type AuditQuery struct {
	Action string
	Email  string
	Status string
	From   string
	To     string
	Page   int
	Limit  int
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type AuditListResponse struct {
	Items []AuditEntry `json:"items"`
	Meta  Meta         `json:"meta"`
}

// ParseAuditTime accepts RFC 3339 with or without fractional seconds.
func ParseAuditTime(raw string) (time.Time, error) {
	if value, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return value.UTC(), nil
	}

	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}

	return value.UTC(), nil
}
