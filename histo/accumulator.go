package histo

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/util"
)

// Bin is the element type of a bin array.
type Bin interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Histogram is the depth-independent view of an accumulator.
type Histogram interface {
	event.Handler

	// Kind returns the histogram layout.
	Kind() Kind
	// Params returns the parameters the histogram was created with.
	Params() Params
	// Shape returns the per-axis sizes, fastest-varying axis first.
	Shape() []int
	// Len returns the total number of bins.
	Len() int
	// Values returns an independent copy of the bins widened to uint64.
	Values() []uint64
	// At returns the value of the bin at the flat index i.
	At(i int) uint64
	// Sum returns the sum of all bins.
	Sum() uint64
	// Saturated returns how many increments were dropped because the bin was full.
	Saturated() uint64
	// Clear zeroes every bin and the saturation counter.
	Clear()
}

// Accumulator is a histogram with bins of type T.
//
// Event delivery, Copy, Values and Clear are serialized by a mutex. View returns the live
// bin array; reading it while a measurement runs races with the device goroutine.
type Accumulator[T Bin] struct {
	event.NopHandler

	kind   Kind
	params Params
	shape  []int

	shiftX, shiftY, shiftT int
	sizeX, sizeY           uint64

	mu        sync.Mutex
	bins      []T
	saturated atomic.Uint64
}

var (
	_ Histogram = (*Accumulator[uint8])(nil)
	_ Histogram = (*Accumulator[uint64])(nil)
)

// New validates params and creates a histogram whose bin type follows params.Depth.
func New(kind Kind, params Params) (Histogram, error) {
	if err := params.Validate(kind); err != nil {
		return nil, err
	}

	switch params.Depth {
	case Depth8:
		return newAccumulator[uint8](kind, params), nil
	case Depth16:
		return newAccumulator[uint16](kind, params), nil
	case Depth32:
		return newAccumulator[uint32](kind, params), nil
	default:
		return newAccumulator[uint64](kind, params), nil
	}
}

// NewTDC validates tp and creates a TDC time histogram.
func NewTDC(tp TDCParams) (Histogram, error) {
	params, err := tp.Params()
	if err != nil {
		return nil, err
	}

	return New(KindTDC, params)
}

// NewAccumulator validates params and creates an accumulator with bins of type T.
// The depth of params is replaced by the depth matching T.
func NewAccumulator[T Bin](kind Kind, params Params) (*Accumulator[T], error) {
	params.Depth = depthOf[T]()
	if err := params.Validate(kind); err != nil {
		return nil, err
	}

	return newAccumulator[T](kind, params), nil
}

func newAccumulator[T Bin](kind Kind, params Params) *Accumulator[T] {
	a := &Accumulator[T]{
		kind:   kind,
		params: params,
		shape:  params.Shape(kind),
		shiftX: bits.TrailingZeros64(params.Binning.X),
		shiftY: bits.TrailingZeros64(params.Binning.Y),
		shiftT: bits.TrailingZeros64(params.Binning.T),
		sizeX:  params.ROI.Size.X,
		sizeY:  params.ROI.Size.Y,
	}
	a.bins = make([]T, params.Bins(kind))

	return a
}

func depthOf[T Bin]() Depth {
	switch bits.Len64(uint64(^T(0))) {
	case 8:
		return Depth8
	case 16:
		return Depth16
	case 32:
		return Depth32
	default:
		return Depth64
	}
}

func (a *Accumulator[T]) Kind() Kind { return a.kind }
func (a *Accumulator[T]) Params() Params { return a.params }
func (a *Accumulator[T]) Shape() []int { return util.CloneSlice(a.shape, 0) }
func (a *Accumulator[T]) Len() int { return len(a.bins) }
func (a *Accumulator[T]) Saturated() uint64 { return a.saturated.Load() }

// View returns the live bin array. Increments made after the call are visible through it.
func (a *Accumulator[T]) View() []T {
	return a.bins
}

// Copy returns an independent snapshot of the bins.
func (a *Accumulator[T]) Copy() []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	return util.CloneSlice(a.bins, 0)
}

func (a *Accumulator[T]) Values() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	values := make([]uint64, len(a.bins))
	for i, v := range a.bins {
		values[i] = uint64(v)
	}

	return values
}

func (a *Accumulator[T]) At(i int) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return uint64(a.bins[i])
}

func (a *Accumulator[T]) Sum() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sum uint64
	for _, v := range a.bins {
		sum += uint64(v)
	}

	return sum
}

func (a *Accumulator[T]) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.bins)
	a.saturated.Store(0)
}

// DLDEvents increments the bins of every DLD event inside the region of interest.
// TDC histograms ignore DLD events.
func (a *Accumulator[T]) DLDEvents(events []event.DLD) {
	if a.kind == KindTDC || len(events) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range events {
		if idx, ok := a.indexDLD(&events[i]); ok {
			a.increment(idx)
		}
	}
}

// TDCEvents increments the bins of every TDC event of the selected channel. Only TDC
// histograms consume TDC events.
func (a *Accumulator[T]) TDCEvents(events []event.TDC) {
	if a.kind != KindTDC || len(events) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range events {
		if idx, ok := a.indexTDC(&events[i]); ok {
			a.increment(idx)
		}
	}
}

// AddDLD feeds a single DLD event and reports whether a bin was incremented.
func (a *Accumulator[T]) AddDLD(ev event.DLD) bool {
	if a.kind == KindTDC {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx, ok := a.indexDLD(&ev)
	if ok {
		ok = a.increment(idx)
	}

	return ok
}

func (a *Accumulator[T]) increment(idx uint64) bool {
	if a.bins[idx] == ^T(0) {
		a.saturated.Add(1)
		return false
	}
	a.bins[idx]++

	return true
}

func (a *Accumulator[T]) indexDLD(ev *event.DLD) (uint64, bool) {
	roi := &a.params.ROI

	t := ev.Sum
	if a.params.Modulo != 0 {
		t %= a.params.Modulo
	}

	x, ok := axisIndex(uint64(ev.Dif1)>>a.shiftX, roi.Offset.X, roi.Size.X)
	if !ok {
		return 0, false
	}
	y, ok := axisIndex(uint64(ev.Dif2)>>a.shiftY, roi.Offset.Y, roi.Size.Y)
	if !ok {
		return 0, false
	}
	t, ok = axisIndex(t>>a.shiftT, roi.Offset.T, roi.Size.T)
	if !ok {
		return 0, false
	}

	switch a.kind {
	case Kind3D:
		return x + y*a.sizeX + t*a.sizeX*a.sizeY, true
	case KindXY:
		return x + y*a.sizeX, true
	case KindXT:
		return x + t*a.sizeX, true
	case KindYT:
		return y + t*a.sizeY, true
	default:
		return t, true
	}
}

func (a *Accumulator[T]) indexTDC(ev *event.TDC) (uint64, bool) {
	if a.params.Channel >= 0 && ev.Channel != uint32(a.params.Channel) {
		return 0, false
	}

	t := ev.TimeData
	if a.params.Modulo != 0 {
		t %= a.params.Modulo
	}

	return axisIndex(t>>a.shiftT, a.params.ROI.Offset.T, a.params.ROI.Size.T)
}

// axisIndex maps the binned coordinate v into [0, size) relative to offset.
func axisIndex(v uint64, offset int64, size uint64) (uint64, bool) {
	var rel uint64
	if offset >= 0 {
		if v < uint64(offset) {
			return 0, false
		}
		rel = v - uint64(offset)
	} else {
		rel = v + uint64(-offset)
		if rel < v {
			return 0, false
		}
	}

	if rel >= size {
		return 0, false
	}

	return rel, true
}

// ViewOf returns the live bin array of h if its bins are of type T.
func ViewOf[T Bin](h Histogram) ([]T, bool) {
	a, ok := h.(*Accumulator[T])
	if !ok {
		return nil, false
	}

	return a.View(), true
}

// CopyOf returns an independent copy of the bins of h if they are of type T.
func CopyOf[T Bin](h Histogram) ([]T, bool) {
	a, ok := h.(*Accumulator[T])
	if !ok {
		return nil, false
	}

	return a.Copy(), true
}
