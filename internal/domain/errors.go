package domain

import "errors"

var (
	// ErrValidation marks synchronously rejected boundary input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition refused by the current state.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyLocked is the expected contention result when another owner
	// holds the contact.
	ErrAlreadyLocked = errors.New("contact already locked")
	// ErrNotEligible marks a contact whose status disqualifies it from dialing.
	ErrNotEligible = errors.New("contact not eligible")
	// ErrStaleOwner marks a lock operation or outcome report from an owner
	// that no longer holds the lock.
	ErrStaleOwner = errors.New("stale lock owner")
	// ErrQueueEmpty means no eligible contact could be produced for a campaign.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrSuppressed marks an operation against a number on the suppression list.
	ErrSuppressed = errors.New("number suppressed")
)
