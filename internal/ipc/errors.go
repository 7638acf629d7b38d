package ipc

import (
	"errors"
	"strings"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/godbus/dbus/v5"
)

// errorNames maps alarm error codes to D-Bus error name suffixes.
var errorNames = map[string]string{
	string(alarm.ErrInternal):                "Internal",
	string(alarm.ErrInvalid):                 "Invalid",
	string(alarm.ErrIncorrectCode):           "IncorrectCode",
	string(alarm.ErrNotFiring):               "NotFiring",
	string(alarm.ErrSnoozeLimitReached):      "SnoozeLimitReached",
	string(alarm.ErrAudioDeviceUnavailable):  "AudioDeviceUnavailable",
	string(alarm.ErrTimerRegistrationFailed): "TimerRegistrationFailed",
	string(alarm.ErrStoreWriteFailed):        "StoreWriteFailed",
}

// toDBusError converts a controller error into a named D-Bus error.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name, ok := errorNames[string(alarm.ErrorCode(err))]
	if !ok {
		name = errorNames[string(alarm.ErrInternal)]
	}
	return dbus.NewError(ErrorPrefix+name, []interface{}{alarm.ErrorDescription(err)})
}

// Error is a service error received by a Client.
type Error struct {
	// Code is the alarm error code, e.g. "incorrect_code".
	Code string
	// Description is the server-side description.
	Description string
}

func (e *Error) Error() string {
	return e.Description
}

// fromDBusError converts a D-Bus reply error back into an *Error. Errors not
// produced by the service are returned unchanged.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}
	var derr dbus.Error
	var pderr *dbus.Error
	switch {
	case errors.As(err, &pderr):
		derr = *pderr
	case errors.As(err, &derr):
	default:
		return err
	}

	suffix, ok := strings.CutPrefix(derr.Name, ErrorPrefix)
	if !ok {
		return err
	}
	for code, name := range errorNames {
		if name == suffix {
			desc := suffix
			if len(derr.Body) > 0 {
				if s, ok := derr.Body[0].(string); ok {
					desc = s
				}
			}
			return &Error{Code: code, Description: desc}
		}
	}
	return err
}

// IsCode reports whether err is a service error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
