package recorder

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-tdc/logger"
)

// Option configures a Recorder.
type Option interface {
	apply(*Recorder) error
}

type optFunc struct {
	name      string
	applyFunc func(*Recorder) error
}

func (o *optFunc) apply(r *Recorder) error { return o.applyFunc(r) }

func newOptFunc(name string, f func(*Recorder) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the recorder.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(r *Recorder) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		r.logger = l

		return nil
	})
}

// WithChunkSize sets the number of events per chunk frame. It should be between 1 and
// 1048576. Defaults to 65536.
func WithChunkSize(n int) Option {
	return newOptFunc("WithChunkSize", func(r *Recorder) error {
		if n < 1 || n > 1<<20 {
			return errors.New("chunk size out of range [1, 1048576]")
		}
		r.chunkSize = n

		return nil
	})
}

// WithCompressionLevel sets the xz dictionary capacity in bytes. It should be between
// 4 KiB and 64 MiB. Defaults to 1 MiB.
func WithCompressionLevel(dictCap int) Option {
	return newOptFunc("WithCompressionLevel", func(r *Recorder) error {
		if dictCap < 4<<10 || dictCap > 64<<20 {
			return fmt.Errorf("dictionary capacity out of range [%d, %d]", 4<<10, 64<<20)
		}
		r.dictCap = dictCap

		return nil
	})
}

// WithQueueSize sets how many chunks may wait for the writer goroutine. It should be
// between 1 and 1024. Defaults to 4.
func WithQueueSize(n int) Option {
	return newOptFunc("WithQueueSize", func(r *Recorder) error {
		if n < 1 || n > 1024 {
			return errors.New("queue size out of range [1, 1024]")
		}
		r.queueSize = n

		return nil
	})
}

// OpenOption configures a single container.
type OpenOption func(*Header)

// WithStep tags the container with a scan step.
func WithStep(index int, delay int) OpenOption {
	return func(h *Header) {
		h.Step = &Step{Index: index, Delay: delay}
	}
}

// WithAttribute adds a free-form attribute to the container header.
func WithAttribute(key, value string) OpenOption {
	return func(h *Header) {
		if h.Attributes == nil {
			h.Attributes = make(map[string]string)
		}
		h.Attributes[key] = value
	}
}
