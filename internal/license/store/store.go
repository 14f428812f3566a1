// Package store defines the persistence contract for licenses. The store is
// the single source of truth and the only shared resource between the
// issuance and activation paths; its conditional-update primitive is the sole
// synchronization mechanism in the system.
package store

import (
	"context"

	"keygate/internal/license/models"
)

// MaxAttempts bounds compare-and-retry cycles on contended operations so no
// request blocks indefinitely. Implementations return sentinel.ErrContention
// once the ceiling is hit.
const MaxAttempts = 4

// Store is the pluggable persistence interface. Two implementations exist:
// postgres (production) and memory (development stub and tests). Neither is a
// hidden process-wide default; main wires one explicitly.
//
// Error surface (pkg/platform/sentinel):
//   - Create: ErrDuplicateKey if the key exists, ErrDuplicateEvent if the
//     event token was already persisted.
//   - FindByKey / FindByEventToken: ErrNotFound.
//   - AddActivation: ErrNotFound, ErrAlreadyBound (device already holds a
//     slot; callers treat this as success), ErrCapExceeded, ErrContention.
//   - SetActive: ErrNotFound.
//
// AddActivation is the one mutating path exercised under concurrent access.
// Implementations must make it a single atomic conditional update: the
// appended set is persisted only if the stored set is unchanged since the
// read and its size is still below the cap, retried up to MaxAttempts.
type Store interface {
	Create(ctx context.Context, license *models.License) error
	FindByKey(ctx context.Context, key string) (*models.License, error)
	FindByEventToken(ctx context.Context, token string) (*models.License, error)
	AddActivation(ctx context.Context, key, deviceID string) (*models.License, error)
	SetActive(ctx context.Context, key string, active bool) (*models.License, error)
	List(ctx context.Context) ([]*models.License, error)
}
