// Package notify delivers recovery secrets to users. Delivery is strictly
// best-effort: callers treat a returned error as "not delivered" and fall
// back to in-band disclosure, never as a request failure.
package notify

import (
	"context"
	"errors"

	"github.com/dgtwins/ms-auth/internal/server/models"
)

// ErrDisabled is returned when outbound delivery is switched off.
var ErrDisabled = errors.New("notifier disabled")

// Notifier sends a recovery secret to the account's email address.
type Notifier interface {
	SendRecoverySecret(ctx context.Context, toEmail, userName string, secret models.RecoverySecret) error
}

// Disabled is a Notifier that reports every delivery as failed. It backs
// development setups where secrets are disclosed in the API response.
type Disabled struct{}

func (Disabled) SendRecoverySecret(ctx context.Context, toEmail, userName string, secret models.RecoverySecret) error {
	return ErrDisabled
}
