package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and counters return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: uniqueness rule violated (duplicate link, duplicate family edge)
//   - ErrDuplicateNumber: a generated tracking number was already issued
//   - ErrDuplicateCode: a generated feedback code hashes to a stored one
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDuplicateNumber = errors.New("duplicate number")
	ErrDuplicateCode   = errors.New("duplicate feedback code")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
