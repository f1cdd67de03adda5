package acq

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/device"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		status device.Status
		kind   error
	}{
		{device.StatusNotReady, ErrNotReady},
		{device.StatusInvalidConfig, ErrConfigInvalid},
		{device.StatusNotInitialized, ErrNotInitialized},
		{device.StatusNoDevice, ErrHardwareUnavailable},
		{device.StatusBusy, ErrHardwareUnavailable},
		{device.StatusInternal, ErrHardwareUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status.Message(), func(t *testing.T) {
			require := require.New(t)

			cause := device.NewStatusError("start measure", tt.status)
			err := translate("start measurement", cause)
			require.ErrorIs(err, tt.kind)
			require.ErrorIs(err, cause)

			var acqErr *Error
			require.ErrorAs(err, &acqErr)
			require.Equal("start measurement", acqErr.Op)
		})
	}

	require.NoError(t, translate("noop", nil))
	require.ErrorIs(t, translate("plain", errors.New("boom")), ErrHardwareUnavailable)
}

func TestError_String(t *testing.T) {
	require := require.New(t)

	err := newError(ErrUnknownPipe, "detach pipe", nil)
	require.Equal("detach pipe: unknown pipe", err.Error())

	err = newError(ErrParamsInvalid, "attach statistics", errors.New("bad"))
	require.Equal("attach statistics: pipe parameters invalid: bad", err.Error())
	require.ErrorIs(err, ErrParamsInvalid)
}

func TestOptions(t *testing.T) {
	tests := []struct {
		desc string
		opt  Option
		ok   bool
	}{
		{"nil logger", WithLogger(nil), false},
		{"max pipes", WithMaxPipes(10), true},
		{"max pipes too large", WithMaxPipes(MaxPipes + 1), false},
		{"poll interval", WithPollInterval(5 * time.Millisecond), true},
		{"poll interval too short", WithPollInterval(0), false},
		{"start retries", WithStartRetries(0), true},
		{"start retries negative", WithStartRetries(-1), false},
		{"retry backoff", WithRetryBackoff(0), true},
		{"retry backoff too long", WithRetryBackoff(time.Second), false},
		{"teardown timeout", WithTeardownTimeout(time.Second), true},
		{"teardown timeout too short", WithTeardownTimeout(time.Millisecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := newSessionConfig(tt.opt)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
