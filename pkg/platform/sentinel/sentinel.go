// Package sentinel declares infrastructure-level sentinel errors.
//
// Stores return these (optionally wrapped) so services can translate them
// into coded domain errors. They describe factual states of a stored record,
// not validation failures: a missing account is ErrNotFound, a second ballot
// for the same (account, election) pair is ErrAlreadyUsed.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
