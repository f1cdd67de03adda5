package acq

import (
	"errors"
	"time"

	"github.com/arloliu/go-tdc/logger"
)

// MaxPipes is the size of the pipe id space.
const MaxPipes = 1000

type sessionConfig struct {
	logger logger.Logger

	// maxPipes is the number of pipe slots. It should be between 1 and MaxPipes.
	// Defaults to MaxPipes.
	maxPipes int

	// pollInterval is the sleep between two status polls of a synchronous measurement.
	// It should be between 1ms and 100ms. Defaults to 10ms.
	pollInterval time.Duration

	// startRetries is how often a start that failed with "not ready" is retried.
	// It should be between 0 and 100. Defaults to 3.
	startRetries int

	// retryBackoff is the pause before a start is retried. It should be between 0 and 100ms.
	// Defaults to 1ms.
	retryBackoff time.Duration

	// teardownTimeout bounds the wait for an interrupted measurement in Deinitialize.
	// It should be between 100ms and 60s. Defaults to 5s.
	teardownTimeout time.Duration
}

func newSessionConfig(opts ...Option) (*sessionConfig, error) {
	cfg := &sessionConfig{
		logger:          logger.GetLogger(),
		maxPipes:        MaxPipes,
		pollInterval:    10 * time.Millisecond,
		startRetries:    3,
		retryBackoff:    time.Millisecond,
		teardownTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option represents a functional option for configuring a Session.
type Option interface {
	apply(*sessionConfig) error
}

type optFunc struct {
	name      string
	applyFunc func(*sessionConfig) error
}

func (o *optFunc) apply(cfg *sessionConfig) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*sessionConfig) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the session.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *sessionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithMaxPipes limits the number of pipe slots. It should be between 1 and 1000.
func WithMaxPipes(n int) Option {
	return newOptFunc("WithMaxPipes", func(cfg *sessionConfig) error {
		if n < 1 || n > MaxPipes {
			return errors.New("max pipes out of range [1, 1000]")
		}
		cfg.maxPipes = n

		return nil
	})
}

// WithPollInterval sets the status poll interval of synchronous measurements.
// It should be between 1ms and 100ms.
func WithPollInterval(d time.Duration) Option {
	return newOptFunc("WithPollInterval", func(cfg *sessionConfig) error {
		if d < time.Millisecond || d > 100*time.Millisecond {
			return errors.New("poll interval out of range [1ms, 100ms]")
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithStartRetries sets how often a "not ready" start is retried. It should be between
// 0 and 100.
func WithStartRetries(n int) Option {
	return newOptFunc("WithStartRetries", func(cfg *sessionConfig) error {
		if n < 0 || n > 100 {
			return errors.New("start retries out of range [0, 100]")
		}
		cfg.startRetries = n

		return nil
	})
}

// WithRetryBackoff sets the pause before a start is retried. It should be between 0 and
// 100ms.
func WithRetryBackoff(d time.Duration) Option {
	return newOptFunc("WithRetryBackoff", func(cfg *sessionConfig) error {
		if d < 0 || d > 100*time.Millisecond {
			return errors.New("retry backoff out of range [0, 100ms]")
		}
		cfg.retryBackoff = d

		return nil
	})
}

// WithTeardownTimeout bounds how long Deinitialize waits for an interrupted measurement.
// It should be between 100ms and 60s.
func WithTeardownTimeout(d time.Duration) Option {
	return newOptFunc("WithTeardownTimeout", func(cfg *sessionConfig) error {
		if d < 100*time.Millisecond || d > time.Minute {
			return errors.New("teardown timeout out of range [100ms, 60s]")
		}
		cfg.teardownTimeout = d

		return nil
	})
}
