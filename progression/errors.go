package progression

import "errors"

// Engine errors. Controllers map these to HTTP statuses; anything not
// listed here is an infrastructure failure wrapping the store's error.
var (
	// ErrAlreadyEnrolled: an ACTIVE enrollment already exists for this
	// (user, programme) pair. User error, never retried.
	ErrAlreadyEnrolled = errors.New("already enrolled in this programme")

	// ErrDayLocked: the day is ahead of the unlock schedule.
	ErrDayLocked = errors.New("this day isn't unlocked yet")

	// ErrDayOutOfRange: day number outside [1, duration_days].
	ErrDayOutOfRange = errors.New("day number out of range for this programme")

	ErrNotActive = errors.New("enrollment is not active")
	ErrNotPaused = errors.New("enrollment is not paused")

	ErrBadFastingConfig = errors.New("invalid fasting configuration")

	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrProgrammeNotFound  = errors.New("programme not found")

	// ErrPartialWrite: the completion record and the enrollment record
	// could not be updated together. The transaction was rolled back, so
	// the two stayed consistent, but the caller must refresh and retry.
	ErrPartialWrite = errors.New("progress update incomplete, please retry")
)
