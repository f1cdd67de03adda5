// Package recorder implements the stream recorder, a pipe that persists the selected
// fields of DLD events to a container file while it is open.
//
// Container Format:
// A container is an xz stream holding a sequence of msgpack encoded frames:
//
//	header   format, version, id, comment, field names, attributes, step, creation time
//	chunk*   sequence number, event count, one array per selected field, measurement starts
//	trailer  total events, total chunks, is_last
//
// The N-th element of every field array describes the N-th recorded event. One container
// is written per Open and Close pair.
//
// Durability:
// A container is only guaranteed to be readable after Close returned without error. If the
// process ends while a container is open, the file holds a truncated xz stream without
// trailer, and ReadContainer rejects it with ErrTruncated. Such files are not repaired.
//
// A write failure invalidates the recorder. Every later Open or Close returns
// ErrStreamingInstanceInvalid, and the owner is expected to create a new recorder.
package recorder
