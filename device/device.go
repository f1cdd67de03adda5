// Package device defines the boundary between an acquisition session and the hardware
// driver that talks to a TDC or DLD.
package device

import (
	"time"

	"github.com/arloliu/go-tdc/config"
	"github.com/arloliu/go-tdc/event"
)

// Sink receives everything a driver produces. A driver calls the sink from its own
// goroutine, and never concurrently.
//
// For every measurement the call order is:
//
//	StartOfMeasurement, {Millisecond | TDCEvents | DLDEvents}*, EndOfMeasurement,
//	[Statistics], Complete(reason)
//
// A driver may additionally call Complete(event.ReasonEarlyNotification) before
// EndOfMeasurement when acquisition stopped but processing has not finished yet.
type Sink interface {
	event.Handler
	// Statistics delivers the statistics frame of the measurement.
	Statistics(stats *event.Statistics)
	// Complete reports that the measurement ended for the given reason. A driver reports
	// idle from Busy only after Complete with a final reason returned.
	Complete(reason event.Reason)
}

// Driver controls one device.
type Driver interface {
	// Init binds the driver to the device described by cfg and registers sink. It returns a
	// *StatusError when the device cannot be reached.
	Init(cfg *config.Device, sink Sink) error
	// Deinit releases the device.
	Deinit() error
	// StartMeasure starts a measurement of duration d and returns immediately.
	StartMeasure(d time.Duration) error
	// Interrupt requests the running measurement to stop. The effect is observed as a
	// completion with event.ReasonUserAborted.
	Interrupt() error
	// Busy reports whether a measurement is running.
	Busy() (bool, error)
}
