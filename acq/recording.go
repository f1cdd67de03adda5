package acq

import (
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/recorder"
)

// EnableRecorder activates the stream recorder of the session. An enabled recorder that
// became invalid is replaced by a new one; a healthy one is kept.
func (s *Session) EnableRecorder(opts ...recorder.Option) error {
	if cur := s.recorder.Load(); cur != nil && cur.Err() == nil {
		return nil
	}

	opts = append([]recorder.Option{recorder.WithLogger(s.logger)}, opts...)
	rec, err := recorder.NewRecorder(opts...)
	if err != nil {
		return newError(ErrConfigInvalid, "enable recorder", err)
	}
	s.recorder.Store(rec)

	return nil
}

// DisableRecorder closes an open recording and deactivates the recorder.
func (s *Session) DisableRecorder() error {
	rec := s.recorder.Swap(nil)
	if rec == nil || !rec.IsOpen() {
		return nil
	}

	return rec.Close()
}

// Recorder returns the recorder, or nil when it is not enabled.
func (s *Session) Recorder() *recorder.Recorder {
	return s.recorder.Load()
}

// OpenRecording starts writing the selected DLD fields to a new container at path.
func (s *Session) OpenRecording(path string, comment string, fields event.Field, opts ...recorder.OpenOption) error {
	rec := s.recorder.Load()
	if rec == nil {
		return recorder.ErrNotEnabled
	}

	return rec.Open(path, comment, fields, opts...)
}

// CloseRecording finalizes the open container.
func (s *Session) CloseRecording() error {
	rec := s.recorder.Load()
	if rec == nil {
		return recorder.ErrNotEnabled
	}

	return rec.Close()
}
