package scan

import (
	"errors"
	"time"

	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/logger"
)

// Option configures a Runner.
type Option interface {
	apply(*Runner) error
}

type optFunc struct {
	name      string
	applyFunc func(*Runner) error
}

func (o *optFunc) apply(r *Runner) error { return o.applyFunc(r) }

func newOptFunc(name string, f func(*Runner) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the runner.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(r *Runner) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		r.logger = l

		return nil
	})
}

// WithAnalyzer sets the analyzer that is put in safe state when a run ends.
func WithAnalyzer(a Analyzer) Option {
	return newOptFunc("WithAnalyzer", func(r *Runner) error {
		if a == nil {
			return errors.New("analyzer is nil")
		}
		r.analyzer = a

		return nil
	})
}

// WithVoltages makes the runner apply the analyzer voltages before the first step.
// It requires WithAnalyzer.
func WithVoltages(kinetic float64, pass float64) Option {
	return newOptFunc("WithVoltages", func(r *Runner) error {
		if pass <= 0 {
			return errors.New("pass energy must be positive")
		}
		r.kinetic, r.pass = kinetic, pass
		r.applyVoltages = true

		return nil
	})
}

// WithDuration sets the acquisition time per step. It should be between 1ms and 24h.
// Defaults to 1s.
func WithDuration(d time.Duration) Option {
	return newOptFunc("WithDuration", func(r *Runner) error {
		if d < time.Millisecond || d > 24*time.Hour {
			return errors.New("duration out of range [1ms, 24h]")
		}
		r.duration = d

		return nil
	})
}

// WithSettleTime sets the pause after every step. It should be between 0 and 1m.
// Defaults to 0.
func WithSettleTime(d time.Duration) Option {
	return newOptFunc("WithSettleTime", func(r *Runner) error {
		if d < 0 || d > time.Minute {
			return errors.New("settle time out of range [0, 1m]")
		}
		r.settle = d

		return nil
	})
}

// WithFields selects the recorded DLD fields. Defaults to x, y and time.
func WithFields(fields event.Field) Option {
	return newOptFunc("WithFields", func(r *Runner) error {
		if fields == 0 || fields&^event.AllFields != 0 {
			return errors.New("invalid field selection")
		}
		r.fields = fields

		return nil
	})
}

// WithPrefix sets the file name prefix. Defaults to the current date as YYMMDD.
func WithPrefix(prefix string) Option {
	return newOptFunc("WithPrefix", func(r *Runner) error {
		if prefix == "" {
			return errors.New("prefix is empty")
		}
		r.prefix = prefix

		return nil
	})
}

// WithDir sets the data directory the run directories are created in. Defaults to ".".
func WithDir(dir string) Option {
	return newOptFunc("WithDir", func(r *Runner) error {
		if dir == "" {
			return errors.New("directory is empty")
		}
		r.dir = dir

		return nil
	})
}

// WithRunNumber sets the first run number tried. It should be between 0 and 999.
func WithRunNumber(n int) Option {
	return newOptFunc("WithRunNumber", func(r *Runner) error {
		if n < 0 || n > 999 {
			return errors.New("run number out of range [0, 999]")
		}
		r.runNumber = n

		return nil
	})
}
