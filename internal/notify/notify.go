// Package notify delivers freshly issued license keys to purchasers.
//
// Delivery is best-effort and fire-and-forget from the issuance workflow's
// perspective: a failure here is logged and counted for manual follow-up but
// never rolls back or fails issuance. Retry policy, if any, belongs to the
// downstream channel.
package notify

import (
	"context"

	"keygate/internal/license/models"
	"keygate/pkg/email"
)

// Notification is the tuple handed to the outbound channel.
type Notification struct {
	Email    string `json:"email"`
	Key      string `json:"key"`
	Plan     string `json:"plan"`
	Greeting string `json:"greeting"`
}

// Dispatcher hands a notification to the outbound email channel.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// ForLicense builds the notification for a newly issued license.
func ForLicense(l *models.License) Notification {
	return Notification{
		Email:    l.Email,
		Key:      l.Key,
		Plan:     string(l.Plan),
		Greeting: email.DeriveGreeting(l.Email),
	}
}
