package acq

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arloliu/go-tdc/buffered"
	"github.com/arloliu/go-tdc/histo"
	"github.com/arloliu/go-tdc/stats"
)

// AttachHistogram attaches a DLD histogram of the given kind. Use AttachTDCHistogram for
// TDC time histograms.
func (s *Session) AttachHistogram(kind histo.Kind, params histo.Params) (PipeID, histo.Histogram, error) {
	pipeKind, ok := pipeKindOf(kind)
	if !ok || kind == histo.KindTDC {
		return 0, nil, s.attachFailed(newError(ErrParamsInvalid, "attach histogram", fmt.Errorf("unsupported kind %s", kind)))
	}

	return s.attachHistogram(pipeKind, kind, params)
}

// AttachTDCHistogram attaches a one-dimensional time histogram of TDC events.
func (s *Session) AttachTDCHistogram(tp histo.TDCParams) (PipeID, histo.Histogram, error) {
	params, err := tp.Params()
	if err != nil {
		return 0, nil, s.attachFailed(newError(ErrParamsInvalid, "attach tdc histogram", err))
	}

	return s.attachHistogram(TDCHisto, histo.KindTDC, params)
}

func (s *Session) attachHistogram(pipeKind PipeKind, kind histo.Kind, params histo.Params) (PipeID, histo.Histogram, error) {
	if err := s.checkAttach("attach " + pipeKind.String()); err != nil {
		return 0, nil, err
	}

	h, err := histo.New(kind, params)
	if err != nil {
		return 0, nil, s.attachFailed(newError(ErrParamsInvalid, "attach "+pipeKind.String(), err))
	}

	p := &Pipe{kind: pipeKind, params: params, handler: h, histogram: h}
	id, err := s.register(p)
	if err != nil {
		return 0, nil, err
	}

	return id, h, nil
}

// AttachStatistics attaches a statistics pipe.
func (s *Session) AttachStatistics() (PipeID, *stats.Collector, error) {
	if err := s.checkAttach("attach statistics"); err != nil {
		return 0, nil, err
	}

	c := stats.NewCollector()
	id, err := s.register(&Pipe{kind: Statistics, handler: c, collector: c})
	if err != nil {
		return 0, nil, err
	}

	return id, c, nil
}

// AttachBuffered attaches a buffered event channel delivering batches to handler.
func (s *Session) AttachBuffered(cfg buffered.Config, handler buffered.Handler) (PipeID, *buffered.Channel, error) {
	if err := s.checkAttach("attach buffered"); err != nil {
		return 0, nil, err
	}

	starter := func(ctx context.Context, d time.Duration, synchronous bool) error {
		mode := Asynchronous
		if synchronous {
			mode = Synchronous
		}

		return s.StartMeasurement(ctx, d, mode)
	}

	ch, err := buffered.NewChannel(cfg, handler, starter)
	if err != nil {
		return 0, nil, s.attachFailed(newError(ErrParamsInvalid, "attach buffered", err))
	}

	p := &Pipe{
		kind:    BufferedDataCallbacks,
		params:  ch.Config(),
		handler: ch,
		channel: ch,
		close: func() error {
			ch.Flush()
			return nil
		},
	}
	id, err := s.register(p)
	if err != nil {
		return 0, nil, err
	}

	return id, ch, nil
}

// AttachCallbacks attaches the legacy per-event callbacks.
func (s *Session) AttachCallbacks(cb Callbacks) (PipeID, error) {
	if err := s.checkAttach("attach callbacks"); err != nil {
		return 0, err
	}

	return s.register(&Pipe{kind: UserCallbacks, params: cb, handler: &callbackHandler{cb: cb}})
}

// AttachPipe attaches a pipe of any kind. params must be:
//   - histo.TDCParams for TDCHisto
//   - histo.Params for the DLD image and sum histogram kinds
//   - nil for Statistics
//   - Callbacks for UserCallbacks
//   - BufferedParams for BufferedDataCallbacks
func (s *Session) AttachPipe(kind PipeKind, params any) (PipeID, error) {
	var id PipeID
	var err error

	switch kind {
	case TDCHisto:
		tp, ok := params.(histo.TDCParams)
		if !ok {
			return 0, s.paramsTypeError(kind, params)
		}
		id, _, err = s.AttachTDCHistogram(tp)
	case DLDImageXY, DLDImageXT, DLDImageYT, DLDImage3D, DLDSumHisto:
		hp, ok := params.(histo.Params)
		if !ok {
			return 0, s.paramsTypeError(kind, params)
		}
		hk, _ := kind.histoKind()
		id, _, err = s.AttachHistogram(hk, hp)
	case Statistics:
		if params != nil {
			return 0, s.paramsTypeError(kind, params)
		}
		id, _, err = s.AttachStatistics()
	case UserCallbacks:
		cb, ok := params.(Callbacks)
		if !ok {
			return 0, s.paramsTypeError(kind, params)
		}
		id, err = s.AttachCallbacks(cb)
	case BufferedDataCallbacks:
		bp, ok := params.(BufferedParams)
		if !ok {
			return 0, s.paramsTypeError(kind, params)
		}
		id, _, err = s.AttachBuffered(bp.Config, bp.Handler)
	default:
		return 0, s.attachFailed(newError(ErrParamsInvalid, "attach pipe", fmt.Errorf("unknown pipe kind %d", int(kind))))
	}

	return id, err
}

func (s *Session) paramsTypeError(kind PipeKind, params any) error {
	return s.attachFailed(newError(ErrParamsInvalid, "attach "+kind.String(), fmt.Errorf("unexpected params type %T", params)))
}

// DetachPipe closes the pipe id and removes it.
func (s *Session) DetachPipe(id PipeID) error {
	s.arenaMu.Lock()
	defer s.arenaMu.Unlock()

	p, ok := s.lookup(id)
	if !ok {
		return newError(ErrUnknownPipe, "detach pipe", fmt.Errorf("%s", id))
	}

	s.pipes.Delete(uint32(id.Slot()))
	s.metrics.decPipesOpen()
	s.logger.Debug("pipe detached", "id", id, "kind", p.kind)

	if p.close != nil {
		if err := p.close(); err != nil {
			return fmt.Errorf("close %s: %w", id, err)
		}
	}

	return nil
}

// Pipe returns the attached pipe id.
func (s *Session) Pipe(id PipeID) (*Pipe, bool) {
	return s.lookup(id)
}

// PipeCount returns the number of attached pipes.
func (s *Session) PipeCount() int {
	return s.pipes.Size()
}

// PipeIDs returns the ids of the attached pipes in slot order.
func (s *Session) PipeIDs() []PipeID {
	ids := make([]PipeID, 0, s.pipes.Size())
	s.pipes.Range(func(_ uint32, p *Pipe) bool {
		ids = append(ids, p.id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].Slot() < ids[j].Slot() })

	return ids
}

// ClearHistogram zeroes the bins of the histogram pipe id. Clearing is serialized against
// event delivery.
func (s *Session) ClearHistogram(id PipeID) error {
	p, ok := s.lookup(id)
	if !ok {
		return newError(ErrUnknownPipe, "clear histogram", fmt.Errorf("%s", id))
	}
	if p.histogram == nil {
		return newError(ErrNotHistogram, "clear histogram", fmt.Errorf("%s is a %s pipe", id, p.kind))
	}
	p.histogram.Clear()

	return nil
}

func (s *Session) lookup(id PipeID) (*Pipe, bool) {
	if id.Slot() >= len(s.generations) {
		return nil, false
	}

	p, ok := s.pipes.Load(uint32(id.Slot()))
	if !ok || p.id != id {
		return nil, false
	}

	return p, true
}

func (s *Session) checkAttach(op string) error {
	if s.State().IsUninitialized() {
		return s.attachFailed(newError(ErrNotInitialized, op, nil))
	}

	return nil
}

func (s *Session) attachFailed(err error) error {
	s.metrics.incPipeAttachFailures()
	s.logger.Debug("pipe attach failed", "error", err)

	return err
}

// register stores p in the lowest free slot.
func (s *Session) register(p *Pipe) (PipeID, error) {
	s.arenaMu.Lock()
	defer s.arenaMu.Unlock()

	slot := -1
	for i := range s.generations {
		if _, used := s.pipes.Load(uint32(i)); !used {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, s.attachFailed(newError(ErrTooManyPipes, "attach "+p.kind.String(), nil))
	}

	s.generations[slot]++
	p.id = newPipeID(slot, s.generations[slot])
	s.pipes.Store(uint32(slot), p)
	s.metrics.incPipesOpen()
	s.logger.Debug("pipe attached", "id", p.id, "kind", p.kind)

	return p.id, nil
}
