package geofence

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest wraps the reasons a [Request] failed [Request.Validate].
// It describes bad input, not a platform failure, and carries no status code.
var ErrInvalidRequest = errors.New("invalid geofence request")

// Platform status codes for geofencing failures.
const (
	CodeNotAvailable          = 1000
	CodeTooManyGeofences      = 1001
	CodeTooManyPendingIntents = 1002
)

// ErrorMessage returns a readable message for a platform status code.
func ErrorMessage(code int) string {
	switch code {
	case CodeNotAvailable:
		return "Geofence service is not available now"
	case CodeTooManyGeofences:
		return "Your app has registered too many geofences"
	case CodeTooManyPendingIntents:
		return "You have provided too many PendingIntents to the addGeofences() call"
	default:
		return "Unknown error: the Geofence service is not available now"
	}
}

// Error is a registration failure carrying a platform status code.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ErrorMessage(e.Code)
	}
	return fmt.Sprintf("%s: %v", ErrorMessage(e.Code), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text to show a user for a registration failure:
// the readable status message for an [*Error], the error text otherwise.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return ErrorMessage(gerr.Code)
	}
	return err.Error()
}

// Code returns the status code of err, or 0 when err carries none.
func Code(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
