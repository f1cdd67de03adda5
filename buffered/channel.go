package buffered

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-tdc/event"
)

// Handler consumes the batches of a channel. Both methods are called from the device
// driver goroutine, or from the goroutine calling Flush, and must not block
// significantly; back-pressure is provided by the device buffers, not by the handler.
//
// The channel lock is not held during the calls, so a handler may query or flush its
// own channel.
type Handler interface {
	// OnData is called once per flush. The batch is reused after the call returns.
	OnData(batch *Batch)
	// OnEndOfMeasurement is called once per measurement end. Returning true flushes a
	// partially filled batch, returning false keeps it for the next measurement.
	OnEndOfMeasurement() bool
}

// HandlerFuncs adapts plain functions to Handler. A nil EndOfMeasurement flushes.
type HandlerFuncs struct {
	Data             func(batch *Batch)
	EndOfMeasurement func() bool
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnData(batch *Batch) {
	if h.Data != nil {
		h.Data(batch)
	}
}

func (h HandlerFuncs) OnEndOfMeasurement() bool {
	if h.EndOfMeasurement == nil {
		return true
	}

	return h.EndOfMeasurement()
}

// MeasurementStarter starts a measurement of the session a channel is attached to.
type MeasurementStarter func(ctx context.Context, d time.Duration, synchronous bool) error

// Channel is the buffered event channel pipe.
type Channel struct {
	cfg     Config
	handler Handler
	starter MeasurementStarter

	mu         sync.Mutex
	batch      *Batch
	spare      *Batch // recycled batch, nil while delivered
	eventIndex uint64
	flushes    uint64
}

var _ event.Handler = (*Channel)(nil)

// NewChannel validates cfg and creates a channel delivering to handler. starter may be nil
// for a channel that is fed directly.
func NewChannel(cfg Config, handler Handler, starter MeasurementStarter) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	return &Channel{
		cfg:     cfg,
		handler: handler,
		starter: starter,
		batch:   newBatch(cfg.Available(), cfg.MaxBufferedLength),
	}, nil
}

// Config returns the validated configuration.
func (c *Channel) Config() Config {
	return c.cfg
}

// StartMeasurement starts an asynchronous measurement of duration d on the owning session.
func (c *Channel) StartMeasurement(ctx context.Context, d time.Duration) error {
	if c.starter == nil {
		return ErrNotAttached
	}

	return c.starter(ctx, d, false)
}

// StartMeasurementSync starts a measurement of duration d on the owning session and
// returns when the device is idle again.
func (c *Channel) StartMeasurementSync(ctx context.Context, d time.Duration) error {
	if c.starter == nil {
		return ErrNotAttached
	}

	return c.starter(ctx, d, true)
}

// EventCount returns the number of events flushed so far.
func (c *Channel) EventCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.eventIndex
}

// Pending returns the number of buffered events that were not flushed yet.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.batch.DataLen
}

// Flushes returns the number of OnData calls.
func (c *Channel) Flushes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.flushes
}

// Flush emits the pending events, if any.
func (c *Channel) Flush() {
	c.mu.Lock()
	var full *Batch
	if c.batch.DataLen > 0 {
		full = c.takeLocked()
	}
	c.mu.Unlock()

	c.deliver(full)
}

func (c *Channel) StartOfMeasurement() {
	c.mu.Lock()
	c.batch.SOMIndices = append(c.batch.SOMIndices, uint64(c.batch.DataLen))
	c.mu.Unlock()
}

func (c *Channel) Millisecond() {
	c.mu.Lock()
	c.batch.MSIndices = append(c.batch.MSIndices, uint64(c.batch.DataLen))
	c.mu.Unlock()
}

func (c *Channel) DLDEvents(events []event.DLD) {
	if !c.cfg.DLDEvents || len(events) == 0 {
		return
	}

	c.mu.Lock()
	for i := range events {
		c.batch.addDLD(&events[i])
		if c.batch.DataLen == c.cfg.MaxBufferedLength {
			full := c.takeLocked()
			c.mu.Unlock()
			c.deliver(full)
			c.mu.Lock()
		}
	}
	c.mu.Unlock()
}

func (c *Channel) TDCEvents(events []event.TDC) {
	if c.cfg.DLDEvents || len(events) == 0 {
		return
	}

	c.mu.Lock()
	for i := range events {
		c.batch.addTDC(&events[i])
		if c.batch.DataLen == c.cfg.MaxBufferedLength {
			full := c.takeLocked()
			c.mu.Unlock()
			c.deliver(full)
			c.mu.Lock()
		}
	}
	c.mu.Unlock()
}

func (c *Channel) EndOfMeasurement() {
	if !c.handler.OnEndOfMeasurement() {
		return
	}

	c.mu.Lock()
	var full *Batch
	if c.batch.DataLen > 0 {
		full = c.takeLocked()
	} else {
		// nothing to deliver, drop boundary marks of the empty measurement
		c.batch.reset(c.eventIndex)
	}
	c.mu.Unlock()

	c.deliver(full)
}

// takeLocked detaches the filled batch and installs an empty one in its place.
func (c *Channel) takeLocked() *Batch {
	full := c.batch
	c.flushes++
	c.eventIndex += uint64(full.DataLen)

	next := c.spare
	c.spare = nil
	if next == nil {
		next = newBatch(c.cfg.Available(), c.cfg.MaxBufferedLength)
	}
	next.reset(c.eventIndex)
	c.batch = next

	return full
}

func (c *Channel) deliver(full *Batch) {
	if full == nil {
		return
	}

	c.handler.OnData(full)

	c.mu.Lock()
	if c.spare == nil {
		c.spare = full
	}
	c.mu.Unlock()
}
