package domain

import "errors"

// Validation and consistency errors shared across layers.
var (
	// ErrUndoCount is returned when the undo count is outside [1, max].
	ErrUndoCount = errors.New("undo count out of range")

	// ErrDuplicateTrigger is returned when a trigger word already exists
	// for the chat.
	ErrDuplicateTrigger = errors.New("trigger already exists")

	// ErrRuleNotFound is returned when enabling or disabling an unknown
	// rule name.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrWordTooShort is returned when a trigger word is too short to be
	// useful.
	ErrWordTooShort = errors.New("trigger word too short")

	// ErrStateDiverged reports that the cached projection disagreed with
	// a fresh fold of the event log. This indicates an internal fault;
	// the freshly folded state must be used instead of the cache.
	ErrStateDiverged = errors.New("cached state diverged from event log")
)
