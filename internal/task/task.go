// Package task manages the goroutines owned by a session or a recorder: completion
// listener dispatchers, recorder writers and simulated device loops.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tdc/logger"
)

// Func is a function executed repeatedly by a task goroutine.
// It should return true to continue running the task, or false to stop the goroutine.
type Func func() bool

// CancelFunc will be called when a task goroutine exits or is canceled.
type CancelFunc func()

// Manager manages the lifecycle of task goroutines.
//
// The Manager uses a context.Context to signal all goroutines to stop, and a
// sync.WaitGroup to wait for them to terminate. After Wait returns, the Manager can start
// new tasks again.
//
// Example Usage:
//
//	mgr := task.NewManager(ctx, logger)
//
//	mgr.Start("poller", func() bool {
//	    // ... task logic ...
//	    return true // return true to continue running, false to stop
//	})
//
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.RWMutex // protect ctx and cancel
	taskMu sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a new Manager with ctx as the parent context.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	if l == nil {
		l = logger.GetLogger()
	}
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start starts a new goroutine running taskFunc in a loop until it returns false or the
// manager is stopped.
func (mgr *Manager) Start(name string, taskFunc Func) error {
	mgr.logger.Debug("start task", "name", name)

	starter, err := mgr.newStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		mgr.runLoop(name, taskFunc)
	})

	return starter.waitForStart()
}

// StartSignal starts a goroutine that invokes fn every time signal fires. When the manager
// stops, fn is invoked one final time so that pending work can be drained, and then
// cancelFunc is called.
func (mgr *Manager) StartSignal(name string, signal <-chan struct{}, fn func(), cancelFunc CancelFunc) error {
	mgr.logger.Debug("start signal task", "name", name)

	if signal == nil {
		return fmt.Errorf("signal channel is nil")
	}

	starter, err := mgr.newStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		for {
			ctx := mgr.Context()
			select {
			case <-ctx.Done():
				mgr.callWithRecover(name, fn)
				return
			case <-signal:
				mgr.callWithRecover(name, fn)
			}
		}
	})

	return starter.waitForStart()
}

// StartConsumer starts a goroutine that passes every item received from input to fn.
// The goroutine exits when input is closed, fn returns false, or the manager is stopped.
// Items still buffered in input when the manager stops are not consumed.
func StartConsumer[T any](mgr *Manager, name string, input <-chan T, fn func(T) bool, cancelFunc CancelFunc) error {
	mgr.logger.Debug("start consumer task", "name", name)

	if input == nil {
		return fmt.Errorf("input channel is nil")
	}

	starter, err := mgr.newStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		for {
			ctx := mgr.Context()
			select {
			case <-ctx.Done():
				return
			case item, ok := <-input:
				if !ok {
					mgr.logger.Debug("input channel closed", "name", name)
					return
				}
				if !mgr.callWithRecoverBool(name, func() bool { return fn(item) }) {
					return
				}
			}
		}
	})

	return starter.waitForStart()
}

// Stop signals all running goroutines.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate and re-arms the manager.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
		}
	}()

	fn()
}

// callWithRecoverBool stops the task when fn panics.
func (mgr *Manager) callWithRecoverBool(name string, fn func() bool) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			result = false
		}
	}()

	return fn()
}

func (mgr *Manager) runLoop(name string, taskFunc Func) {
	for {
		ctx := mgr.Context()
		select {
		case <-ctx.Done():
			return
		default:
			if !mgr.callWithRecoverBool(name, taskFunc) {
				return
			}
		}
	}
}

type starter struct {
	mgr     *Manager
	name    string
	started chan struct{}
}

func (mgr *Manager) newStarter(name string) (*starter, error) {
	select {
	case <-mgr.Context().Done():
		return nil, fmt.Errorf("task manager already stopped")
	default:
	}

	return &starter{mgr: mgr, name: name, started: make(chan struct{})}, nil
}

func (s *starter) startTask(body func()) {
	s.mgr.taskMu.RLock()
	defer s.mgr.taskMu.RUnlock()

	s.mgr.wg.Add(1)
	s.mgr.count.Add(1)

	go func() {
		defer s.mgr.wg.Done()
		defer func() {
			s.mgr.count.Add(-1)
			s.mgr.logger.Debug("task terminated", "name", s.name, "task_count", s.mgr.TaskCount())
		}()

		close(s.started)
		body()
	}()
}

func (s *starter) waitForStart() error {
	select {
	case <-s.started:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for %s to start", s.name)
	}
}
