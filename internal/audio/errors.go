package audio

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure reported to bridge callers.
type Code string

const (
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeDeviceInit       Code = "INIT_ERROR"
	CodeNoData           Code = "NO_DATA"
	CodeFile             Code = "FILE_ERROR"
	CodePlayback         Code = "PLAYBACK_ERROR"
	CodeNotActive        Code = "NOT_ACTIVE"
)

// Sentinels for errors.Is matching on the code alone.
var (
	ErrPermissionDenied = &Error{Code: CodePermissionDenied}
	ErrDeviceInit       = &Error{Code: CodeDeviceInit}
	ErrNoData           = &Error{Code: CodeNoData}
	ErrFile             = &Error{Code: CodeFile}
	ErrPlayback         = &Error{Code: CodePlayback}
	ErrNotActive        = &Error{Code: CodeNotActive}
)

// Error is a coded failure carrying a caller-facing message and the
// underlying cause, if any.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// NewError builds an *Error with a formatted message.
func NewError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
