package notify

import "context"

// Router sends phone destinations through SMS and everything else through
// Email. A nil SMS sender falls back to Email.
type Router struct {
	Email Sender
	SMS   Sender
}

func (r *Router) SendOTP(ctx context.Context, destination, code, purpose string) error {
	if IsPhone(destination) && r.SMS != nil {
		return r.SMS.SendOTP(ctx, destination, code, purpose)
	}
	return r.Email.SendOTP(ctx, destination, code, purpose)
}
