package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: license does not exist in store
// - ErrDuplicateKey: license key already taken (generator retries)
// - ErrDuplicateEvent: purchase event token already persisted
// - ErrAlreadyBound: device identifier already in the activation set
// - ErrCapExceeded: activation set is at the device cap
// - ErrContention: conditional-update retry ceiling exhausted
// - ErrUnavailable: backing store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrAlreadyBound   = errors.New("already bound")
	ErrCapExceeded    = errors.New("cap exceeded")
	ErrContention     = errors.New("contention")
	ErrUnavailable    = errors.New("unavailable")
)
