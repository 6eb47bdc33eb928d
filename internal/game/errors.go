// Package game defines the shared combat vocabulary: encounter kinds,
// actions, outcome states, the error taxonomy, and the seedable RNG used
// by every engine.
package game

import "errors"

// Core error taxonomy. All four are non-fatal: validation errors are
// rejected before any mutation, and ErrConcurrencyConflict carries
// "try again" semantics and is never retried automatically.
var (
	// ErrNotFound signals an absent player, encounter, boss or mine.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientResource signals energy, mana, gold, sapphires or a
	// health threshold below what the action requires.
	ErrInsufficientResource = errors.New("insufficient resource")

	// ErrInvalidState signals an action submitted against an encounter not
	// in a state that accepts it.
	ErrInvalidState = errors.New("invalid state")

	// ErrConcurrencyConflict signals a locked-section invariant check that
	// failed after the lock was acquired.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
