// Package notify delivers OTP codes to their owners.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const otpSubject = "PetroManage - Password Reset OTP"

// LogNotifier writes OTP messages to the operational log instead of sending
// mail. It is the delivery channel until an outbound mail relay exists.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "otp_notifier")}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email string, code string, ttl time.Duration) error {
	n.logger.InfoContext(ctx, "otp issued",
		"to", email,
		"subject", otpSubject,
		"body", otpBody(code, ttl),
		"otp", code,
	)
	return nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Hello,\n\nYour verification code is: %s\n\nThis code is valid for %d minutes.", code, int(ttl.Minutes()))
}
