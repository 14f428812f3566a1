package models

import (
	"time"

	dErrors "keygate/pkg/domain-errors"
)

// License is the persistent record granting use rights tied to a purchase.
//
// Invariants:
//   - Key is globally unique for the lifetime of the store
//   - len(Activations) <= DeviceCap at all times
//   - Key, Email, Plan, DeviceCap and IssuedAt are immutable after issuance
//   - Activations grows monotonically; entries are unique device identifiers
//   - exactly one License exists per distinct purchase event (EventToken)
//
// Active is a flag, not a deletion: revoked licenses stay in the store so the
// activation history survives for audits.
//
// EventToken is the persisted idempotency token derived from the payment
// provider's event identifier. It is store-internal and never serialized in
// API responses.
type License struct {
	Key         string    `json:"key"`
	Email       string    `json:"email"`
	Plan        Plan      `json:"plan"`
	DeviceCap   int       `json:"devices"`
	Activations []string  `json:"activations"`
	Active      bool      `json:"active"`
	IssuedAt    time.Time `json:"created"`

	EventToken string `json:"-"`
}

// IsActivated reports whether the device already holds an activation slot.
func (l *License) IsActivated(deviceID string) bool {
	for _, d := range l.Activations {
		if d == deviceID {
			return true
		}
	}
	return false
}

// AtCap reports whether every activation slot is taken.
func (l *License) AtCap() bool {
	return len(l.Activations) >= l.DeviceCap
}

// CanDeactivate checks the active -> inactive transition.
func (l *License) CanDeactivate() error {
	if !l.Active {
		return dErrors.New(dErrors.CodeConflict, "license is already deactivated")
	}
	return nil
}

// CanReactivate checks the inactive -> active transition.
func (l *License) CanReactivate() error {
	if l.Active {
		return dErrors.New(dErrors.CodeConflict, "license is already active")
	}
	return nil
}

// Clone returns a deep copy so store internals never alias caller state.
func (l *License) Clone() *License {
	cp := *l
	cp.Activations = append([]string(nil), l.Activations...)
	return &cp
}
