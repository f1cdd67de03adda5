package acq

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-tdc/device"
)

var (
	// ErrConfigInvalid indicates a malformed device or session configuration.
	ErrConfigInvalid = errors.New("configuration invalid")
	// ErrHardwareUnavailable indicates that the device cannot be reached or is busy.
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	// ErrNotReady indicates that the device was not ready to start a measurement after all retries.
	ErrNotReady = errors.New("device not ready")
	// ErrNotInitialized indicates an operation that requires an initialized session.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrAlreadyInitialized indicates an Initialize on an initialized session.
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrMeasuring indicates an operation that is not allowed while a measurement runs.
	ErrMeasuring = errors.New("measurement in progress")
)

var (
	// ErrTooManyPipes indicates that every pipe slot is in use.
	ErrTooManyPipes = errors.New("too many pipes open")
	// ErrUnknownPipe indicates a pipe id that is not attached.
	ErrUnknownPipe = errors.New("unknown pipe")
	// ErrParamsInvalid indicates pipe parameters that violate the pipe invariants.
	ErrParamsInvalid = errors.New("pipe parameters invalid")
	// ErrNotHistogram indicates a histogram operation on a pipe that is not a histogram.
	ErrNotHistogram = errors.New("pipe is not a histogram")
	// ErrUnknownListener indicates a listener id that is not registered.
	ErrUnknownListener = errors.New("unknown completion listener")
	// ErrInvalidTransition indicates a session state transition that is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Error is returned by session operations. Kind is one of the sentinel errors of this
// package, Err is the cause, for example a *device.StatusError carrying the device message.
//
// errors.Is matches both Kind and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// translate maps a driver error to the error kinds of this package.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var kind error
	switch device.StatusOf(err) {
	case device.StatusNotReady:
		kind = ErrNotReady
	case device.StatusInvalidConfig:
		kind = ErrConfigInvalid
	case device.StatusNotInitialized:
		kind = ErrNotInitialized
	default:
		kind = ErrHardwareUnavailable
	}

	return newError(kind, op, err)
}
