package acq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-tdc/config"
	"github.com/arloliu/go-tdc/device"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/pool"
	"github.com/arloliu/go-tdc/internal/queue"
	"github.com/arloliu/go-tdc/internal/task"
	"github.com/arloliu/go-tdc/logger"
	"github.com/arloliu/go-tdc/recorder"
)

// Mode selects how StartMeasurement waits.
type Mode int

const (
	// Asynchronous returns as soon as the measurement started.
	Asynchronous Mode = iota
	// Synchronous returns when the device is idle again.
	Synchronous
)

func (m Mode) String() string {
	if m == Synchronous {
		return "synchronous"
	}

	return "asynchronous"
}

// Session coordinates one device, its pipes and its completion listeners.
type Session struct {
	cfg     *sessionConfig
	driver  device.Driver
	logger  logger.Logger
	metrics SessionMetrics
	state   *stateMgr
	taskMgr *task.Manager

	lifecycleMu sync.Mutex
	deviceCfg   *config.Device

	arenaMu     sync.Mutex // protects generations and pipe set mutation
	generations []uint32
	pipes       *xsync.MapOf[uint32, *Pipe]

	listenerMu     sync.RWMutex
	listeners      []listenerEntry
	nextListenerID ListenerID
	completions    *queue.LockFreeQueue[event.Reason]
	completionSig  chan struct{}

	recorder atomic.Pointer[recorder.Recorder]
}

// NewSession creates an uninitialized session for driver.
func NewSession(driver device.Driver, opts ...Option) (*Session, error) {
	if driver == nil {
		return nil, newError(ErrConfigInvalid, "new session", errors.New("driver is nil"))
	}

	cfg, err := newSessionConfig(opts...)
	if err != nil {
		return nil, newError(ErrConfigInvalid, "new session", err)
	}

	s := &Session{
		cfg:           cfg,
		driver:        driver,
		logger:        cfg.logger,
		state:         newStateMgr(cfg.logger),
		taskMgr:       task.NewManager(context.Background(), cfg.logger),
		generations:   make([]uint32, cfg.maxPipes),
		pipes:         xsync.NewMapOf[uint32, *Pipe](),
		completions:   queue.NewLockFreeQueue[event.Reason](),
		completionSig: make(chan struct{}, 1),
	}

	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state.State()
}

// AddStateChangeHandler adds handlers invoked on every state change.
func (s *Session) AddStateChangeHandler(handlers ...StateChangeHandler) {
	s.state.AddHandler(handlers...)
}

// GetMetrics returns the metrics of the session.
func (s *Session) GetMetrics() *SessionMetrics {
	return &s.metrics
}

// Device returns the configuration the session was initialized with, or nil.
func (s *Session) Device() *config.Device {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	return s.deviceCfg
}

// Initialize binds the session to the device described by cfg. The configuration is
// validated before the device is touched.
//
// Re-initializing requires a Deinitialize first.
func (s *Session) Initialize(cfg *config.Device) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.State().IsUninitialized() {
		return newError(ErrAlreadyInitialized, "initialize", nil)
	}
	if err := cfg.Validate(); err != nil {
		return newError(ErrConfigInvalid, "initialize", err)
	}

	if err := s.driver.Init(cfg, &sessionSink{s: s}); err != nil {
		s.logger.Error("failed to initialize device", "name", cfg.Name, "error", err)
		return translate("initialize", err)
	}

	err := s.taskMgr.StartSignal("completion-dispatcher", s.completionSig, s.dispatchCompletions, nil)
	if err != nil {
		_ = s.driver.Deinit()
		return newError(ErrHardwareUnavailable, "initialize", err)
	}

	if err := s.state.ToInitialized(); err != nil {
		s.taskMgr.Stop()
		s.taskMgr.Wait()
		_ = s.driver.Deinit()
		return newError(ErrAlreadyInitialized, "initialize", err)
	}
	s.deviceCfg = cfg
	s.logger.Info("session initialized", "device", cfg.Name)

	return nil
}

// Deinitialize interrupts a running measurement, closes every pipe and the recorder, and
// releases the device. It proceeds through all steps even if one fails and returns the
// joined errors. Calling it on an uninitialized session is a no-op.
func (s *Session) Deinitialize() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.State().IsUninitialized() {
		return nil
	}

	var errs []error
	if s.State().IsMeasuring() {
		if err := s.driver.Interrupt(); err != nil {
			s.logger.Error("failed to interrupt measurement", "error", err)
			errs = append(errs, translate("deinitialize", err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.teardownTimeout)
		if err := s.waitStopped(ctx); err != nil {
			s.logger.Error("measurement did not stop", "error", err)
			errs = append(errs, newError(ErrMeasuring, "deinitialize", err))
		}
		cancel()
	}

	for _, id := range s.PipeIDs() {
		if err := s.DetachPipe(id); err != nil {
			s.logger.Error("failed to close pipe", "id", id, "error", err)
			errs = append(errs, err)
		}
	}

	if rec := s.recorder.Load(); rec != nil && rec.IsOpen() {
		if err := rec.Close(); err != nil {
			s.logger.Error("failed to close recording", "error", err)
			errs = append(errs, err)
		}
	}

	if err := s.driver.Deinit(); err != nil {
		s.logger.Error("failed to release device", "error", err)
		errs = append(errs, translate("deinitialize", err))
	}

	// the dispatcher drains pending completions before it terminates
	s.taskMgr.Stop()
	s.taskMgr.Wait()

	s.deviceCfg = nil
	s.state.ToUninitialized()
	s.logger.Info("session deinitialized")

	return errors.Join(errs...)
}

// StartMeasurement starts a measurement of duration d.
//
// A start the device rejects as not ready is retried with a short backoff before
// ErrNotReady is returned. In Synchronous mode the call polls the device status until it
// is idle and the completion was processed, or until ctx is done. ctx does not cancel the
// measurement itself; use InterruptMeasurement.
//
// StartMeasurement must not be called from a pipe handler or a completion listener.
func (s *Session) StartMeasurement(ctx context.Context, d time.Duration, mode Mode) error {
	if d < 0 {
		return newError(ErrConfigInvalid, "start measurement", fmt.Errorf("negative duration %s", d))
	}

	switch s.State() {
	case UninitializedState:
		return newError(ErrNotInitialized, "start measurement", nil)
	case MeasuringState:
		return newError(ErrMeasuring, "start measurement", nil)
	}

	if err := s.state.ToMeasuring(); err != nil {
		return newError(ErrMeasuring, "start measurement", err)
	}

	if err := s.startWithRetry(ctx, d); err != nil {
		_ = s.state.ToInitialized()
		return err
	}

	s.metrics.incMeasurementsStarted()
	s.logger.Debug("measurement started", "duration", d, "mode", mode)

	if mode == Asynchronous {
		return nil
	}

	return s.waitStopped(ctx)
}

func (s *Session) startWithRetry(ctx context.Context, d time.Duration) error {
	for attempt := 0; ; attempt++ {
		err := s.driver.StartMeasure(d)
		if err == nil {
			return nil
		}

		if device.StatusOf(err) != device.StatusNotReady || attempt >= s.cfg.startRetries {
			return translate("start measurement", err)
		}

		s.metrics.incNotReadyRetries()
		s.logger.Warn("device not ready, retry start", "attempt", attempt+1, "max_retries", s.cfg.startRetries)

		if err := pool.Sleep(ctx, s.cfg.retryBackoff); err != nil {
			return newError(ErrNotReady, "start measurement", err)
		}
	}
}

// waitStopped polls the device until it is idle and the session left MeasuringState.
func (s *Session) waitStopped(ctx context.Context) error {
	for {
		busy, err := s.driver.Busy()
		if err != nil {
			return translate("wait measurement", err)
		}
		if !busy && !s.State().IsMeasuring() {
			return nil
		}

		if err := pool.Sleep(ctx, s.cfg.pollInterval); err != nil {
			return err
		}
	}
}

// InterruptMeasurement requests the running measurement to stop. It returns immediately;
// the measurement completes with event.ReasonUserAborted. Without a running measurement
// it does nothing.
func (s *Session) InterruptMeasurement() error {
	switch s.State() {
	case UninitializedState:
		return newError(ErrNotInitialized, "interrupt measurement", nil)
	case InitializedState:
		return nil
	}

	if err := s.driver.Interrupt(); err != nil {
		return translate("interrupt measurement", err)
	}
	s.logger.Debug("measurement interrupt requested")

	return nil
}

// WaitIdle waits until no measurement is running or ctx is done.
func (s *Session) WaitIdle(ctx context.Context) error {
	return s.state.WaitUntil(ctx, func(st State) bool { return !st.IsMeasuring() })
}

// Busy reports whether the device is measuring.
func (s *Session) Busy() (bool, error) {
	if s.State().IsUninitialized() {
		return false, newError(ErrNotInitialized, "busy", nil)
	}

	busy, err := s.driver.Busy()
	if err != nil {
		return false, translate("busy", err)
	}

	return busy, nil
}

// sessionSink fans the driver output out to the pipes and the recorder.
type sessionSink struct {
	s *Session
}

var _ device.Sink = (*sessionSink)(nil)

func (k *sessionSink) each(fn func(h event.Handler)) {
	k.s.pipes.Range(func(_ uint32, p *Pipe) bool {
		fn(p.handler)
		return true
	})
	if rec := k.s.recorder.Load(); rec != nil {
		fn(rec)
	}
}

func (k *sessionSink) StartOfMeasurement() {
	k.each(func(h event.Handler) { h.StartOfMeasurement() })
}

func (k *sessionSink) Millisecond() {
	k.each(func(h event.Handler) { h.Millisecond() })
}

func (k *sessionSink) TDCEvents(events []event.TDC) {
	k.s.metrics.addTDCEvents(len(events))
	k.each(func(h event.Handler) { h.TDCEvents(events) })
}

func (k *sessionSink) DLDEvents(events []event.DLD) {
	k.s.metrics.addDLDEvents(len(events))
	k.each(func(h event.Handler) { h.DLDEvents(events) })
}

func (k *sessionSink) EndOfMeasurement() {
	k.each(func(h event.Handler) { h.EndOfMeasurement() })
}

func (k *sessionSink) Statistics(frame *event.Statistics) {
	k.s.pipes.Range(func(_ uint32, p *Pipe) bool {
		if sh, ok := p.handler.(event.StatisticsHandler); ok {
			sh.Statistics(frame)
		}
		return true
	})
}

func (k *sessionSink) Complete(reason event.Reason) {
	s := k.s
	s.metrics.incCompletion(reason)

	if reason.IsFinal() {
		if err := s.state.ToInitialized(); err != nil {
			s.logger.Warn("completion without running measurement", "reason", reason.String())
		}
		s.logger.Info("measurement finished", "reason", reason.String(), "message", reason.Description())
	}

	s.completions.Enqueue(reason)
	select {
	case s.completionSig <- struct{}{}:
	default:
	}
}
