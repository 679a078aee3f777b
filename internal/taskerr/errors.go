// Package taskerr defines the recoverable error kinds shared by the
// repositories and lifecycle services. Handlers match them with errors.Is
// to pick a response; the core never terminates the process on any of them.
package taskerr

import "errors"

var (
	// ErrNotFound is returned when a referenced entity is absent or inactive.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyReviewed is returned when a review is applied to a
	// completion or assignment that is no longer in a reviewable state.
	ErrAlreadyReviewed = errors.New("already reviewed")

	// ErrUnauthorized is returned when the acting user does not own the
	// entity being mutated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicateRegistration is returned when an identity registers twice.
	ErrDuplicateRegistration = errors.New("already registered")

	// ErrDuplicateRelationship is returned when a supervisor/assignee link
	// already exists.
	ErrDuplicateRelationship = errors.New("relationship already exists")

	// ErrDuplicateTitle is returned when a catalog entry reuses a title
	// within one supervisor's catalog.
	ErrDuplicateTitle = errors.New("title already in use")

	// ErrPendingCompletion is returned when a task already has a pending
	// submission awaiting review.
	ErrPendingCompletion = errors.New("completion already pending")

	// ErrInsufficientPoints is returned when a reward costs more than the
	// assignee's current balance.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidRecurrenceRule is returned for malformed weekday or
	// time-of-day inputs.
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")

	// ErrInvalidTimezone is returned for an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("invalid timezone")
)
