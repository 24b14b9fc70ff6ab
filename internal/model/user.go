package model

import "time"

// User is the stored user record. Empty PasswordHash and Role mean the
// column is unset; an empty Otp means no code is on file.
type User struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           string     `json:"role"`
	Otp            string     `json:"-"`
	OtpGeneratedAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Identity is what an authenticated caller is known as, both inside a
// token's claims and in the headers the gateway forwards.
type Identity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

// Claims is the decoded payload of a session token.
type Claims struct {
	Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type OtpRecord struct {
	Email       string    `json:"email"`
	Code        string    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// UserSummary is the public projection returned by the role listings.
type UserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
