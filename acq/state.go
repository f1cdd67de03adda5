package acq

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-tdc/logger"
)

// State is the lifecycle state of a session.
type State uint32

const (
	// UninitializedState indicates that the session is not bound to a device.
	UninitializedState State = iota
	// InitializedState indicates that the session is bound to a device and idle.
	InitializedState
	// MeasuringState indicates that a measurement is running.
	MeasuringState
)

// IsUninitialized returns if the state is uninitialized.
func (s State) IsUninitialized() bool { return s == UninitializedState }

// IsInitialized returns if the state is initialized and idle.
func (s State) IsInitialized() bool { return s == InitializedState }

// IsMeasuring returns if the state is measuring.
func (s State) IsMeasuring() bool { return s == MeasuringState }

func (s State) String() string {
	switch s {
	case UninitializedState:
		return "uninitialized"
	case InitializedState:
		return "initialized"
	case MeasuringState:
		return "measuring"
	default:
		return "unknown"
	}
}

// StateChangeHandler is invoked on every session state change.
//
// Note: handlers are invoked in blocking mode on the goroutine that caused the change,
// which is the driver goroutine when a measurement completes. They must not call back
// into the session.
type StateChangeHandler func(prevState State, newState State)

// stateMgr manages the lifecycle state of a session and lets goroutines wait for it.
type stateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []StateChangeHandler
}

func newStateMgr(l logger.Logger) *stateMgr {
	sm := &stateMgr{logger: l}
	sm.cond = sync.NewCond(&sm.mu)
	sm.state.Store(uint32(UninitializedState))

	return sm
}

func (sm *stateMgr) State() State {
	return State(sm.state.Load())
}

func (sm *stateMgr) AddHandler(handlers ...StateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.handlers = append(sm.handlers, handlers...)
}

// WaitUntil waits until cond holds for the current state or ctx is done.
func (sm *stateMgr) WaitUntil(ctx context.Context, cond func(State) bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if cond(sm.State()) {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.cond.Broadcast()
	})
	defer stopFunc()

	for !cond(sm.State()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		sm.cond.Wait()
	}

	return nil
}

// transition moves from one of the states in from to newState.
func (sm *stateMgr) transition(newState State, from ...State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	curState := sm.State()
	for _, st := range from {
		if st == curState {
			sm.setState(newState)
			sm.logger.Debug("session state changed", "prev_state", curState, "new_state", newState)
			sm.invokeHandlers(curState, newState)

			return nil
		}
	}

	return ErrInvalidTransition
}

func (sm *stateMgr) ToInitialized() error {
	return sm.transition(InitializedState, UninitializedState, MeasuringState)
}

func (sm *stateMgr) ToMeasuring() error {
	return sm.transition(MeasuringState, InitializedState)
}

// ToUninitialized is allowed from any state.
func (sm *stateMgr) ToUninitialized() {
	_ = sm.transition(UninitializedState, InitializedState, MeasuringState)
}

// setState stores the new state and wakes up waiters. sm.mu must be held.
func (sm *stateMgr) setState(newState State) {
	sm.state.Store(uint32(newState))
	sm.cond.Broadcast()
}

func (sm *stateMgr) invokeHandlers(prevState State, newState State) {
	for _, handler := range sm.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}
