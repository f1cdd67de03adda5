package acq

import (
	"fmt"

	"github.com/arloliu/go-tdc/buffered"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/histo"
	"github.com/arloliu/go-tdc/stats"
)

// PipeKind is the type of a pipe. The values match the device library.
type PipeKind int

const (
	TDCHisto              PipeKind = 0
	DLDImageXY            PipeKind = 1
	DLDImageXT            PipeKind = 2
	DLDImageYT            PipeKind = 3
	DLDImage3D            PipeKind = 4
	DLDSumHisto           PipeKind = 5
	Statistics            PipeKind = 6
	UserCallbacks         PipeKind = 10
	BufferedDataCallbacks PipeKind = 12
)

func (k PipeKind) String() string {
	switch k {
	case TDCHisto:
		return "tdc-histogram"
	case DLDImageXY:
		return "histogram-xy"
	case DLDImageXT:
		return "histogram-xt"
	case DLDImageYT:
		return "histogram-yt"
	case DLDImage3D:
		return "histogram-3d"
	case DLDSumHisto:
		return "histogram-t"
	case Statistics:
		return "statistics"
	case UserCallbacks:
		return "user-callbacks"
	case BufferedDataCallbacks:
		return "buffered-callbacks"
	default:
		return fmt.Sprintf("pipe-kind(%d)", int(k))
	}
}

// IsHistogram returns if the kind is one of the histogram kinds.
func (k PipeKind) IsHistogram() bool {
	_, ok := k.histoKind()
	return ok
}

func (k PipeKind) histoKind() (histo.Kind, bool) {
	switch k {
	case TDCHisto:
		return histo.KindTDC, true
	case DLDImageXY:
		return histo.KindXY, true
	case DLDImageXT:
		return histo.KindXT, true
	case DLDImageYT:
		return histo.KindYT, true
	case DLDImage3D:
		return histo.Kind3D, true
	case DLDSumHisto:
		return histo.KindT, true
	default:
		return 0, false
	}
}

func pipeKindOf(kind histo.Kind) (PipeKind, bool) {
	switch kind {
	case histo.KindTDC:
		return TDCHisto, true
	case histo.KindXY:
		return DLDImageXY, true
	case histo.KindXT:
		return DLDImageXT, true
	case histo.KindYT:
		return DLDImageYT, true
	case histo.Kind3D:
		return DLDImage3D, true
	case histo.KindT:
		return DLDSumHisto, true
	default:
		return 0, false
	}
}

// PipeID is a generational pipe handle. The zero value is never a valid id.
type PipeID uint64

func newPipeID(slot int, generation uint32) PipeID {
	return PipeID(uint64(generation)<<32 | uint64(uint32(slot)))
}

// Slot returns the arena slot of the id.
func (id PipeID) Slot() int {
	return int(uint32(id))
}

// Generation returns the generation of the id.
func (id PipeID) Generation() uint32 {
	return uint32(id >> 32)
}

func (id PipeID) String() string {
	return fmt.Sprintf("pipe#%d.%d", id.Slot(), id.Generation())
}

// BufferedParams are the parameters of a BufferedDataCallbacks pipe.
type BufferedParams struct {
	Config  buffered.Config
	Handler buffered.Handler
}

// Pipe is an attached pipe.
type Pipe struct {
	id      PipeID
	kind    PipeKind
	params  any
	handler event.Handler

	histogram histo.Histogram
	collector *stats.Collector
	channel   *buffered.Channel

	close func() error
}

// ID returns the handle of the pipe.
func (p *Pipe) ID() PipeID { return p.id }

// Kind returns the pipe kind.
func (p *Pipe) Kind() PipeKind { return p.kind }

// Params returns the validated parameters the pipe was attached with.
func (p *Pipe) Params() any { return p.params }

// Histogram returns the accumulator of a histogram pipe.
func (p *Pipe) Histogram() (histo.Histogram, bool) {
	return p.histogram, p.histogram != nil
}

// Statistics returns the collector of a statistics pipe.
func (p *Pipe) Statistics() (*stats.Collector, bool) {
	return p.collector, p.collector != nil
}

// Channel returns the channel of a buffered pipe.
func (p *Pipe) Channel() (*buffered.Channel, bool) {
	return p.channel, p.channel != nil
}

// Callbacks is the legacy per-event interface. Every callback is optional.
//
// It costs one call per event. Prefer a buffered channel, which delivers the same data in
// batches.
type Callbacks struct {
	StartOfMeasurement func()
	EndOfMeasurement   func()
	Millisecond        func()
	Statistics         func(stats *event.Statistics)
	TDCEvent           func(ev event.TDC)
	DLDEvent           func(ev event.DLD)
}

type callbackHandler struct {
	cb Callbacks
}

var (
	_ event.Handler           = (*callbackHandler)(nil)
	_ event.StatisticsHandler = (*callbackHandler)(nil)
)

func (h *callbackHandler) StartOfMeasurement() {
	if h.cb.StartOfMeasurement != nil {
		h.cb.StartOfMeasurement()
	}
}

func (h *callbackHandler) EndOfMeasurement() {
	if h.cb.EndOfMeasurement != nil {
		h.cb.EndOfMeasurement()
	}
}

func (h *callbackHandler) Millisecond() {
	if h.cb.Millisecond != nil {
		h.cb.Millisecond()
	}
}

func (h *callbackHandler) Statistics(stats *event.Statistics) {
	if h.cb.Statistics != nil {
		h.cb.Statistics(stats)
	}
}

func (h *callbackHandler) TDCEvents(events []event.TDC) {
	if h.cb.TDCEvent == nil {
		return
	}
	for i := range events {
		h.cb.TDCEvent(events[i])
	}
}

func (h *callbackHandler) DLDEvents(events []event.DLD) {
	if h.cb.DLDEvent == nil {
		return
	}
	for i := range events {
		h.cb.DLDEvent(events[i])
	}
}
