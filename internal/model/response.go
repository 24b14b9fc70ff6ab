package model

// ErrorResponse is the body of every rejected request, at the gateway and in
// the auth service alike. Error carries the HTTP reason phrase, Code the
// stable error kind.
type ErrorResponse struct {
	Error    string        `json:"error"`
	Message  string        `json:"message"`
	Code     string        `json:"code,omitempty"`
	Category ErrorCategory `json:"category,omitempty"`
	Details  string        `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Email   string `json:"email"`
}
