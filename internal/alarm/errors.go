package alarm

import (
	"errors"
	"fmt"
)

type errorCode string

const (
	ErrInternal                errorCode = "internal"
	ErrInvalid                 errorCode = "invalid"
	ErrIncorrectCode           errorCode = "incorrect_code"
	ErrNotFiring               errorCode = "not_firing"
	ErrSnoozeLimitReached      errorCode = "snooze_limit_reached"
	ErrAudioDeviceUnavailable  errorCode = "audio_device_unavailable"
	ErrTimerRegistrationFailed errorCode = "timer_registration_failed"
	ErrStoreWriteFailed        errorCode = "store_write_failed"
)

// Error is an alarm error carrying a machine-readable code.
type Error struct {
	// Code is a machine-readable error code.
	Code errorCode

	// Description is a human-readable description of the error.
	Description string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "alarm: " + string(e.Code) + ": " + e.Description
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(code errorCode, format string, args ...any) error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Wrap attaches code to err.
func Wrap(code errorCode, err error, format string, args ...any) error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...), Err: err}
}

// ErrorCode returns the error code associated with err, or ErrInternal if err
// isn't an alarm error.
func ErrorCode(err error) errorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return ErrInternal
}

// ErrorDescription returns a human-readable description of the error, or
// "internal error" if err isn't an alarm error.
func ErrorDescription(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Description != "" {
		return e.Description
	}
	return "internal error"
}
