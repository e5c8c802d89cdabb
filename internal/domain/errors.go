package domain

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrInvalidWindow     = errors.New("invalid window")
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidSpot       = errors.New("invalid parking spot")

	ErrAlreadyBooked   = errors.New("window already booked")
	ErrWindowOverlap   = errors.New("window overlaps an existing window")
	ErrWindowBooked    = errors.New("window is booked")
	ErrPastWindow      = errors.New("window already started")
	ErrTooLateToCancel = errors.New("too late to cancel")
	ErrInvalidState    = errors.New("booking cannot be cancelled in its current state")

	// ErrStorageUnavailable marks infrastructure failures (lock timeouts, lost
	// connections, failed writes). It is never used for validation outcomes.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
