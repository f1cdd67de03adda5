package device

import (
	"errors"
	"fmt"
)

// Status is a negative status code returned by a device library.
type Status int

const (
	StatusOK             Status = 0
	StatusNoDevice       Status = -1
	StatusBusy           Status = -2
	StatusInvalidConfig  Status = -3
	StatusNotInitialized Status = -4
	StatusInternal       Status = -5
	StatusNotReady       Status = -11
)

var statusMessages = map[Status]string{
	StatusOK:             "success",
	StatusNoDevice:       "device not found",
	StatusBusy:           "device is used by another process",
	StatusInvalidConfig:  "invalid device configuration",
	StatusNotInitialized: "device is not initialized",
	StatusInternal:       "internal device error",
	StatusNotReady:       "device is not ready",
}

// Message returns the human-readable message of s.
func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}

	return fmt.Sprintf("unknown status %d", int(s))
}

func (s Status) String() string {
	return s.Message()
}

// StatusError is returned by drivers for a failed device call.
type StatusError struct {
	Op   string
	Code Status
	// Message overrides the default message of Code when not empty.
	Message string
}

// NewStatusError creates a StatusError for op with the default message of code.
func NewStatusError(op string, code Status) *StatusError {
	return &StatusError{Op: op, Code: code}
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.Message()
	}

	return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, int(e.Code))
}

// StatusOf returns the status code carried by err, or StatusOK for a nil error and
// StatusInternal for an error that carries no status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	return StatusInternal
}
