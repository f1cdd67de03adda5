// Package acq implements the acquisition session, the only component that talks to the
// device driver.
//
// A Session binds to a device with Initialize, attaches pipes (histograms, statistics,
// buffered channels and legacy per-event callbacks), runs timed measurements and notifies
// completion listeners. Optionally it feeds a stream recorder that persists events to
// container files.
//
// Lifecycle:
//
//	Uninitialized -> Initialize -> Initialized <-> Measuring -> Deinitialize -> Uninitialized
//
// Measuring is entered by StartMeasurement and left when the driver reports completion.
// InterruptMeasurement requests an early stop, observed as a completion with
// event.ReasonUserAborted.
//
// Concurrency:
// Lifecycle and pipe management methods are meant to be called from one controlling
// goroutine. Event delivery runs on the driver goroutine concurrently with it, and
// completion listeners run on a dedicated dispatcher goroutine.
//
// Completion listeners and pipe handlers must never start a measurement. A synchronous
// start from a listener waits for a completion that can only be dispatched after the
// listener returned.
//
// Pipe Handles:
// Pipes live in an arena of at most MaxPipes slots. A PipeID carries the slot and a
// generation; detaching a pipe invalidates its id, so a stale id fails with
// ErrUnknownPipe even after the slot has been reused.
package acq
