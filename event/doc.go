// Package event defines the records a time-to-digital converter (TDC) or delay-line
// detector (DLD) emits during a measurement, together with the vocabulary shared by all
// consumers of the event stream.
//
// Event Records:
//   - TDC: a timestamped trigger on one TDC channel.
//   - DLD: an arrival time ("sum") plus the two detector coordinates dif1 (x) and dif2 (y).
//
// Events are produced in strictly increasing acquisition order within a measurement. The
// slices passed to a Handler are owned by the producer and are only valid for the duration
// of the call; a consumer that needs the data later must copy it.
//
// Field Selection:
// The Field bitmask names the event data fields a consumer wants. The bit values match
// the device library and are stable on the wire:
//   - FieldSubdevice, FieldChannel, FieldStartCounter, FieldTimeTag
//   - FieldDif1 (x), FieldDif2 (y), FieldTime
//   - FieldMasterResetCounter, FieldADC, FieldSignal1Bit
//
// Completion Reasons:
// Reason codes report why a measurement ended: ReasonCompleted, ReasonUserAborted,
// ReasonBufferFull and ReasonEarlyNotification.
package event
