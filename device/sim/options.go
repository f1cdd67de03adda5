package sim

import (
	"errors"
	"math/rand"
	"time"

	"github.com/arloliu/go-tdc/device"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/logger"
)

// Generator produces the events of one millisecond tick. tick counts from 0 within a
// measurement.
type Generator func(tick int, rng *rand.Rand) ([]event.DLD, []event.TDC)

// Measurement is a scripted measurement. Its events are delivered in the first tick.
type Measurement struct {
	DLD []event.DLD
	TDC []event.TDC
}

// Option configures a Driver.
type Option interface {
	apply(*Driver) error
}

type optFunc struct {
	name      string
	applyFunc func(*Driver) error
}

func (o *optFunc) apply(d *Driver) error { return o.applyFunc(d) }

func newOptFunc(name string, f func(*Driver) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(d *Driver) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		d.logger = l

		return nil
	})
}

// WithEventsPerMillisecond sets how many DLD and TDC events the default generator emits
// per tick. It should be between 0 and 100000. Defaults to 10.
func WithEventsPerMillisecond(n int) Option {
	return newOptFunc("WithEventsPerMillisecond", func(d *Driver) error {
		if n < 0 || n > 100000 {
			return errors.New("events per millisecond out of range [0, 100000]")
		}
		d.eventsPerMs = n

		return nil
	})
}

// WithGenerator replaces the default random generator.
func WithGenerator(g Generator) Option {
	return newOptFunc("WithGenerator", func(d *Driver) error {
		if g == nil {
			return errors.New("generator is nil")
		}
		d.generator = g

		return nil
	})
}

// WithScript makes the driver replay the given measurements in order. Once the script is
// exhausted, measurements produce no events.
func WithScript(measurements ...Measurement) Option {
	return newOptFunc("WithScript", func(d *Driver) error {
		d.script = append(d.script, measurements...)
		d.scripted = true

		return nil
	})
}

// WithTickInterval sets the wall-clock length of one simulated millisecond. It should be
// between 1 microsecond and 1 second. Defaults to 1 millisecond.
func WithTickInterval(interval time.Duration) Option {
	return newOptFunc("WithTickInterval", func(d *Driver) error {
		if interval < time.Microsecond || interval > time.Second {
			return errors.New("tick interval out of range [1us, 1s]")
		}
		d.tickInterval = interval

		return nil
	})
}

// WithNotReady makes the first n measurement starts fail with device.StatusNotReady.
func WithNotReady(n int) Option {
	return newOptFunc("WithNotReady", func(d *Driver) error {
		if n < 0 {
			return errors.New("not ready count is negative")
		}
		d.notReady = n

		return nil
	})
}

// WithInitError makes Init fail with the given status.
func WithInitError(status device.Status) Option {
	return newOptFunc("WithInitError", func(d *Driver) error {
		if status >= 0 {
			return errors.New("init error status must be negative")
		}
		d.initErr = status

		return nil
	})
}

// WithBufferCapacity limits the number of events one measurement may produce. A
// measurement that exceeds it completes with event.ReasonBufferFull. 0 means unlimited.
func WithBufferCapacity(n int) Option {
	return newOptFunc("WithBufferCapacity", func(d *Driver) error {
		if n < 0 {
			return errors.New("buffer capacity is negative")
		}
		d.bufferCapacity = n

		return nil
	})
}

// WithEarlyNotification makes the driver report event.ReasonEarlyNotification when
// acquisition stops, before the end of measurement is delivered.
func WithEarlyNotification(enabled bool) Option {
	return newOptFunc("WithEarlyNotification", func(d *Driver) error {
		d.earlyNotification = enabled
		return nil
	})
}

// WithSeed sets the seed of the default generator.
func WithSeed(seed int64) Option {
	return newOptFunc("WithSeed", func(d *Driver) error {
		d.seed = seed
		return nil
	})
}
