// Package notify delivers one-time codes to users over email or SMS.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Sender delivers an OTP code. destination is an email address or an E.164
// phone number; purpose tells the user why the code was sent.
type Sender interface {
	SendOTP(ctx context.Context, destination, code, purpose string) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, destination, code, purpose string) error

func (f SenderFunc) SendOTP(ctx context.Context, destination, code, purpose string) error {
	return f(ctx, destination, code, purpose)
}

func subject(purpose string) string {
	if purpose == "login_unlock" {
		return "Your sign-in code"
	}
	return "Verify your account"
}

func messageBody(code, purpose string) string {
	return fmt.Sprintf("%s: %s. It expires shortly; do not share it with anyone.", subject(purpose), code)
}

// IsPhone reports whether destination looks like an E.164 number.
func IsPhone(destination string) bool {
	return strings.HasPrefix(destination, "+")
}
