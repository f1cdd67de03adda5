package scan

import "errors"

var (
	// ErrInvalidRange indicates a delay range with a non-positive step or an end before its start.
	ErrInvalidRange = errors.New("invalid delay range")
	// ErrNoPhaseShifter indicates a runner created without a phase shifter.
	ErrNoPhaseShifter = errors.New("phase shifter is nil")
	// ErrEmptyPlan indicates a run without any delay step.
	ErrEmptyPlan = errors.New("scan plan is empty")
)
