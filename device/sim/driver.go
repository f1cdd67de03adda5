// Package sim implements a simulated device driver that produces synthetic TDC and DLD
// event streams. It is used by tests and the examples in place of real hardware.
//
// Device parameters understood from config.Device.Params:
//   - "events_per_ms": overrides WithEventsPerMillisecond.
package sim

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tdc/config"
	"github.com/arloliu/go-tdc/device"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/task"
	"github.com/arloliu/go-tdc/logger"
)

// Driver is a simulated device.Driver.
type Driver struct {
	logger            logger.Logger
	eventsPerMs       int
	generator         Generator
	script            []Measurement
	scripted          bool
	tickInterval      time.Duration
	notReady          int
	initErr           device.Status
	bufferCapacity    int
	earlyNotification bool
	seed              int64

	mu           sync.Mutex
	sink         device.Sink
	cfg          *config.Device
	taskMgr      *task.Manager
	interruptCh  chan struct{}
	measurements int
	rng          *rand.Rand

	busy atomic.Bool
}

var _ device.Driver = (*Driver)(nil)

// NewDriver creates a simulated driver.
func NewDriver(opts ...Option) (*Driver, error) {
	d := &Driver{
		logger:       logger.GetLogger(),
		eventsPerMs:  10,
		tickInterval: time.Millisecond,
		seed:         1,
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	if d.generator == nil {
		d.generator = d.randomEvents
	}

	return d, nil
}

func (d *Driver) Init(cfg *config.Device, sink device.Sink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initErr != device.StatusOK {
		return device.NewStatusError("init", d.initErr)
	}
	if d.sink != nil {
		return device.NewStatusError("init", device.StatusBusy)
	}
	if err := cfg.Validate(); err != nil {
		return &device.StatusError{Op: "init", Code: device.StatusInvalidConfig, Message: err.Error()}
	}
	if sink == nil {
		return &device.StatusError{Op: "init", Code: device.StatusInvalidConfig, Message: "sink is nil"}
	}

	if v, ok := cfg.Param("events_per_ms"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &device.StatusError{Op: "init", Code: device.StatusInvalidConfig, Message: "invalid events_per_ms " + strconv.Quote(v)}
		}
		d.eventsPerMs = n
	}

	d.sink = sink
	d.cfg = cfg
	d.rng = rand.New(rand.NewSource(d.seed)) //nolint:gosec
	d.taskMgr = task.NewManager(context.Background(), d.logger)
	d.interruptCh = make(chan struct{}, 1)
	d.logger.Debug("simulated device initialized", "name", cfg.Name)

	return nil
}

func (d *Driver) Deinit() error {
	d.mu.Lock()
	if d.sink == nil {
		d.mu.Unlock()
		return nil
	}
	mgr := d.taskMgr
	d.mu.Unlock()

	if d.busy.Load() {
		_ = d.Interrupt()
	}
	mgr.Wait()

	d.mu.Lock()
	d.sink = nil
	d.cfg = nil
	d.taskMgr = nil
	d.mu.Unlock()

	d.logger.Debug("simulated device released")

	return nil
}

func (d *Driver) StartMeasure(duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sink == nil {
		return device.NewStatusError("start measure", device.StatusNotInitialized)
	}
	if d.notReady > 0 {
		d.notReady--
		return device.NewStatusError("start measure", device.StatusNotReady)
	}
	if !d.busy.CompareAndSwap(false, true) {
		return device.NewStatusError("start measure", device.StatusBusy)
	}

	// drop a stale interrupt request
	select {
	case <-d.interruptCh:
	default:
	}

	var script *Measurement
	if d.scripted {
		script = &Measurement{}
		if d.measurements < len(d.script) {
			script = &d.script[d.measurements]
		}
	}
	d.measurements++

	ticks := int(duration / time.Millisecond)
	sink := d.sink
	err := d.taskMgr.Start("sim-measurement", func() bool {
		d.run(sink, ticks, script)
		return false
	})
	if err != nil {
		d.busy.Store(false)
		return &device.StatusError{Op: "start measure", Code: device.StatusInternal, Message: err.Error()}
	}

	return nil
}

func (d *Driver) Interrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sink == nil {
		return device.NewStatusError("interrupt", device.StatusNotInitialized)
	}

	select {
	case d.interruptCh <- struct{}{}:
	default:
	}

	return nil
}

func (d *Driver) Busy() (bool, error) {
	return d.busy.Load(), nil
}

// Measurements returns the number of measurements started.
func (d *Driver) Measurements() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.measurements
}

func (d *Driver) run(sink device.Sink, ticks int, script *Measurement) {
	defer d.busy.Store(false)

	var frame event.Statistics
	produced := 0
	reason := event.ReasonCompleted

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	sink.StartOfMeasurement()

loop:
	for tick := 0; tick < ticks; tick++ {
		select {
		case <-d.interruptCh:
			reason = event.ReasonUserAborted
			break loop
		case <-ticker.C:
		}

		var dld []event.DLD
		var tdc []event.TDC
		if script != nil {
			if tick == 0 {
				dld, tdc = script.DLD, script.TDC
			}
		} else {
			dld, tdc = d.generator(tick, d.rng)
		}

		produced += len(dld) + len(tdc)
		if d.bufferCapacity > 0 && produced > d.bufferCapacity {
			reason = event.ReasonBufferFull
			break loop
		}

		sink.Millisecond()
		if len(tdc) > 0 {
			countTDC(&frame, tdc)
			sink.TDCEvents(tdc)
		}
		if len(dld) > 0 {
			countDLD(&frame, dld)
			sink.DLDEvents(dld)
		}
	}

	if d.earlyNotification {
		sink.Complete(event.ReasonEarlyNotification)
	}
	sink.EndOfMeasurement()
	sink.Statistics(&frame)
	sink.Complete(reason)

	d.logger.Debug("simulated measurement finished", "reason", reason.String(), "events", produced)
}

func (d *Driver) randomEvents(tick int, rng *rand.Rand) ([]event.DLD, []event.TDC) {
	n := d.eventsPerMs
	if n == 0 {
		return nil, nil
	}

	dld := make([]event.DLD, n)
	tdc := make([]event.TDC, n)
	base := uint64(tick) * 1000
	for i := range n {
		sub := uint32(rng.Intn(2))
		ch := uint32(rng.Intn(4))
		dld[i] = event.DLD{
			StartCounter: base + uint64(i),
			TimeTag:      base + uint64(i),
			Subdevice:    sub,
			Channel:      ch,
			Sum:          uint64(rng.Intn(1 << 20)),
			Dif1:         uint16(rng.Intn(1024)),
			Dif2:         uint16(rng.Intn(1024)),
			ADC:          uint16(rng.Intn(4096)),
		}
		tdc[i] = event.TDC{
			Subdevice:    sub,
			Channel:      ch,
			StartCounter: base + uint64(i),
			TimeTag:      base + uint64(i),
			TimeData:     uint64(rng.Intn(1 << 20)),
		}
	}

	return dld, tdc
}

func countDLD(frame *event.Statistics, events []event.DLD) {
	for i := range events {
		sub := events[i].Subdevice % 4
		frame.EventsFound[sub]++
		frame.EventsInROI[sub]++
		frame.EventsReceived[sub]++
		frame.CountsRead[events[i].Channel%64]++
		frame.CountsReceived[events[i].Channel%64]++
	}
}

func countTDC(frame *event.Statistics, events []event.TDC) {
	for i := range events {
		frame.CountsRead[events[i].Channel%64]++
		frame.CountsReceived[events[i].Channel%64]++
		frame.Counters[events[i].Channel%64]++
	}
}
