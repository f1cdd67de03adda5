// Package buffered implements the buffered event channel, a pipe that collects events
// into column-oriented batches and hands a whole batch to its Handler at once.
//
// A batch is flushed when it holds MaxBufferedLength events. At the end of a measurement
// the handler decides whether a partially filled batch is flushed right away or kept to be
// coalesced with the events of the next measurement.
//
// The set of columns of a batch is decided once from the field selection when the channel
// is created. Columns that are not selected, or that the chosen event stream cannot
// provide, have Valid set to false and never carry values.
//
// Batch storage is reused between flushes. A handler that keeps a batch beyond the OnData
// call must keep a Clone of it.
package buffered
