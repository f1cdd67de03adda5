package recorder

import "errors"

var (
	// ErrAlreadyOpen indicates an Open while a container is being written.
	ErrAlreadyOpen = errors.New("a container is already open")
	// ErrNotEnabled indicates that recording was never enabled for the session.
	ErrNotEnabled = errors.New("recording is not enabled")
	// ErrNotOpen indicates a Close without an open container.
	ErrNotOpen = errors.New("no container is open")
	// ErrStreamingInstanceInvalid indicates that the recorder failed and cannot be used anymore.
	ErrStreamingInstanceInvalid = errors.New("streaming instance became invalid")
	// ErrNoFields indicates a field selection without any recordable DLD field.
	ErrNoFields = errors.New("no recordable field selected")
	// ErrTruncated indicates a container that was not closed properly or is corrupt.
	ErrTruncated = errors.New("container is truncated")
)

// ErrCorrupt indicates a container whose frames are inconsistent.
var ErrCorrupt = errors.New("container is corrupt")
