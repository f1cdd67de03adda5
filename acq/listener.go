package acq

import (
	"github.com/arloliu/go-tdc/event"
)

// CompletionListener is notified when a measurement ends.
//
// Listeners run on the dispatcher goroutine of the session, in registration order, once
// per completion. They must not call StartMeasurement.
type CompletionListener func(reason event.Reason)

// ListenerID identifies a registered completion listener.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn CompletionListener
}

// AddCompletionListener registers fn and returns its id.
func (s *Session) AddCompletionListener(fn CompletionListener) ListenerID {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return id
}

// RemoveCompletionListener unregisters the listener id.
func (s *Session) RemoveCompletionListener(id ListenerID) error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for i, entry := range s.listeners {
		if entry.id == id {
			// copy on write, the dispatcher may iterate the old slice
			listeners := make([]listenerEntry, 0, len(s.listeners)-1)
			listeners = append(listeners, s.listeners[:i]...)
			s.listeners = append(listeners, s.listeners[i+1:]...)

			return nil
		}
	}

	return newError(ErrUnknownListener, "remove completion listener", nil)
}

// dispatchCompletions runs on the dispatcher goroutine and delivers every queued
// completion to the listeners registered at that time.
func (s *Session) dispatchCompletions() {
	for {
		reason, ok := s.completions.Dequeue()
		if !ok {
			return
		}

		s.listenerMu.RLock()
		listeners := s.listeners
		s.listenerMu.RUnlock()

		for _, entry := range listeners {
			s.invokeListener(entry, reason)
		}
	}
}

func (s *Session) invokeListener(entry listenerEntry, reason event.Reason) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in completion listener", "id", entry.id, "reason", reason.String(), "panic", r)
		}
	}()

	if entry.fn != nil {
		entry.fn(reason)
	}
}
