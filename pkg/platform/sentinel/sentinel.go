package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator clients
// return these (optionally wrapped) so services can translate them into
// domain errors or fold them into degraded outcomes.
//
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a write collided with an existing record (e.g. sequence already taken)
// - ErrUnavailable: collaborator or store temporarily unreachable
// - ErrTimeout: collaborator did not answer inside its bound
// - ErrIntegrity: stored data no longer matches its recorded hash chain
// - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
	ErrIntegrity    = errors.New("integrity violation")
	ErrInvalidState = errors.New("invalid state")
)
