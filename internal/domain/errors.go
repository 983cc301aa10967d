package domain

import "errors"

// Rejection errors surfaced by the booking lifecycle engine. Every one of
// them means the operation was refused before any write happened; callers
// never observe partial state behind these.
var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleInactive  = errors.New("schedule is not active")
	ErrSeatsUnavailable  = errors.New("not enough seats available")
	ErrInvalidSeatCount  = errors.New("invalid seat count")
	ErrRequestNotFound   = errors.New("booking request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor not allowed to perform this action")
	ErrScheduleBusy      = errors.New("schedule is busy, retry the operation")
)

// ValidationError marks malformed input on create/update operations.
type ValidationError struct {
	msg string
}

func ErrValidation(msg string) error {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
