// Package stats implements the statistics pipe: cumulative event counters that are
// refreshed only at measurement boundaries.
package stats

import (
	"sync"
	"time"

	"github.com/arloliu/go-tdc/event"
)

// NumSubdevices is the number of subdevices a statistics frame reports.
const NumSubdevices = 4

// NumChannels is the number of channels a statistics frame reports.
const NumChannels = 64

// Snapshot is an immutable copy of the published counters.
type Snapshot struct {
	// Measurements is the number of completed measurements.
	Measurements uint64
	// Frames is the number of device statistics frames folded in.
	Frames uint64

	EventsFound    [NumSubdevices]uint64
	EventsInROI    [NumSubdevices]uint64
	EventsReceived [NumSubdevices]uint64
	CountsRead     [NumChannels]uint64
	CountsReceived [NumChannels]uint64
	Counters       [NumChannels]uint64

	// ChannelCounts counts the delivered events per channel. Channels beyond
	// NumChannels are only included in the totals.
	ChannelCounts [NumChannels]uint64
	DLDEvents     uint64
	TDCEvents     uint64

	// LastFrame is the most recent device statistics frame.
	LastFrame event.Statistics
	// UpdatedAt is the time of the last publication, zero if nothing was published.
	UpdatedAt time.Time
}

// TotalEventsFound returns the sum of EventsFound over all subdevices.
func (s Snapshot) TotalEventsFound() uint64 { return sum(s.EventsFound[:]) }

// TotalEventsInROI returns the sum of EventsInROI over all subdevices.
func (s Snapshot) TotalEventsInROI() uint64 { return sum(s.EventsInROI[:]) }

// TotalEventsReceived returns the sum of EventsReceived over all subdevices.
func (s Snapshot) TotalEventsReceived() uint64 { return sum(s.EventsReceived[:]) }

// TotalEvents returns the number of delivered DLD and TDC events.
func (s Snapshot) TotalEvents() uint64 { return s.DLDEvents + s.TDCEvents }

func sum(values []uint64) uint64 {
	var total uint64
	for _, v := range values {
		total += v
	}

	return total
}

type pending struct {
	channelCounts [NumChannels]uint64
	dldEvents     uint64
	tdcEvents     uint64
}

// Collector counts the events of each measurement and publishes them when the
// measurement ends. Read never observes a half-counted measurement.
type Collector struct {
	event.NopHandler

	mu        sync.Mutex
	pending   pending
	published Snapshot
	now       func() time.Time
}

var (
	_ event.Handler           = (*Collector)(nil)
	_ event.StatisticsHandler = (*Collector)(nil)
)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{now: time.Now}
}

// StartOfMeasurement discards counts of an unfinished measurement.
func (c *Collector) StartOfMeasurement() {
	c.mu.Lock()
	c.pending = pending{}
	c.mu.Unlock()
}

func (c *Collector) DLDEvents(events []event.DLD) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending.dldEvents += uint64(len(events))
	for i := range events {
		if ch := events[i].Channel; ch < NumChannels {
			c.pending.channelCounts[ch]++
		}
	}
}

func (c *Collector) TDCEvents(events []event.TDC) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending.tdcEvents += uint64(len(events))
	for i := range events {
		if ch := events[i].Channel; ch < NumChannels {
			c.pending.channelCounts[ch]++
		}
	}
}

// EndOfMeasurement publishes the counts of the finished measurement.
func (c *Collector) EndOfMeasurement() {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &c.pending
	for i, v := range p.channelCounts {
		c.published.ChannelCounts[i] += v
	}
	c.published.DLDEvents += p.dldEvents
	c.published.TDCEvents += p.tdcEvents
	c.published.Measurements++
	c.published.UpdatedAt = c.now()
	c.pending = pending{}
}

// Statistics folds a device statistics frame into the published counters.
func (c *Collector) Statistics(frame *event.Statistics) {
	if frame == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.published
	for i := range NumSubdevices {
		s.EventsFound[i] += uint64(frame.EventsFound[i])
		s.EventsInROI[i] += uint64(frame.EventsInROI[i])
		s.EventsReceived[i] += uint64(frame.EventsReceived[i])
	}
	for i := range NumChannels {
		s.CountsRead[i] += uint64(frame.CountsRead[i])
		s.CountsReceived[i] += uint64(frame.CountsReceived[i])
		s.Counters[i] += uint64(frame.Counters[i])
	}
	s.LastFrame = *frame
	s.Frames++
	s.UpdatedAt = c.now()
}

// Read returns a copy of the published counters.
func (c *Collector) Read() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.published
}

// Reset clears the published counters and any pending counts.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.published = Snapshot{}
	c.pending = pending{}
}
