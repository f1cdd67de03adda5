package event

import "strconv"

// Reason tells why a measurement ended. The values are stable on the wire.
type Reason int

const (
	ReasonCompleted         Reason = 1
	ReasonUserAborted       Reason = 2
	ReasonBufferFull        Reason = 3
	ReasonEarlyNotification Reason = 4
)

// String returns a short name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonUserAborted:
		return "user-aborted"
	case ReasonBufferFull:
		return "buffer-full"
	case ReasonEarlyNotification:
		return "early-notification"
	default:
		return "unknown(" + strconv.Itoa(int(r)) + ")"
	}
}

// Description returns the human-readable message of the reason.
func (r Reason) Description() string {
	switch r {
	case ReasonCompleted:
		return "Measurement and data processing completed."
	case ReasonUserAborted:
		return "Measurement was interrupted by user."
	case ReasonBufferFull:
		return "Measurement was aborted because buffers were full."
	case ReasonEarlyNotification:
		return "Acquisition finished, not all data processed yet."
	default:
		return "Unknown completion reason."
	}
}

// IsFinal reports whether the reason marks the end of all processing for a measurement.
// An early notification is followed by a final reason.
func (r Reason) IsFinal() bool {
	return r == ReasonCompleted || r == ReasonUserAborted || r == ReasonBufferFull
}
