package buffered

import "errors"

var (
	// ErrInvalidLength indicates a MaxBufferedLength out of range.
	ErrInvalidLength = errors.New("max buffered length out of range [1, 16777216]")
	// ErrNoFields indicates an empty or unknown field selection.
	ErrNoFields = errors.New("invalid field selection")
	// ErrNilHandler indicates a channel without handler.
	ErrNilHandler = errors.New("handler is nil")
	// ErrNotAttached indicates a channel that is not attached to a session.
	ErrNotAttached = errors.New("channel is not attached to a session")
)
