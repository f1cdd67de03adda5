package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/acq"
	"github.com/arloliu/go-tdc/config"
	"github.com/arloliu/go-tdc/device/sim"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/recorder"
)

type fakeShifter struct {
	mu     sync.Mutex
	delays []int
	failAt int
}

func (s *fakeShifter) SetDelay(_ context.Context, delay int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAt > 0 && len(s.delays)+1 == s.failAt {
		return errors.New("gpio write failed")
	}
	s.delays = append(s.delays, delay)

	return nil
}

type fakeAnalyzer struct {
	calls []string
}

func (a *fakeAnalyzer) SetVoltages(context.Context, float64, float64) error {
	a.calls = append(a.calls, "voltages")
	return nil
}

func (a *fakeAnalyzer) SetSafeState(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.calls = append(a.calls, "safe")

	return nil
}

func newScanSession(t *testing.T) *acq.Session {
	t.Helper()

	drv, err := sim.NewDriver(sim.WithTickInterval(20*time.Microsecond), sim.WithEventsPerMillisecond(5))
	require.NoError(t, err)
	sess, err := acq.NewSession(drv, acq.WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, sess.Initialize(&config.Device{Name: "sim"}))
	require.NoError(t, sess.EnableRecorder())
	t.Cleanup(func() { _ = sess.Deinitialize() })

	return sess
}

func TestRunner_Run(t *testing.T) {
	require := require.New(t)

	sess := newScanSession(t)
	shifter := &fakeShifter{}
	analyzer := &fakeAnalyzer{}
	dir := t.TempDir()

	runner, err := NewRunner(sess, shifter,
		WithAnalyzer(analyzer),
		WithVoltages(100, 20),
		WithDuration(4*time.Millisecond),
		WithFields(event.FieldX|event.FieldTime),
		WithPrefix("261015"),
		WithDir(dir),
		WithRunNumber(7),
	)
	require.NoError(err)

	delays, err := Plan([]Range{{Start: 100, End: 300, Step: 100}})
	require.NoError(err)

	results, err := runner.Run(context.Background(), delays)
	require.NoError(err)
	require.Len(results, 3)
	require.Equal([]int{100, 200, 300}, shifter.delays)
	require.Equal([]string{"voltages", "safe"}, analyzer.calls)

	runDir := filepath.Join(dir, "PS_Scan_261015-run007")
	require.Equal(runDir, runner.RunDir(7))

	runIDs := map[string]struct{}{}
	for i, res := range results {
		require.Equal(i, res.Step)
		require.Equal(delays[i], res.Delay)
		require.Equal(filepath.Join(runDir, runner.StepFile(7, delays[i])), res.Path)
		require.Equal(uint64(20), res.Events)

		c, err := recorder.ReadContainer(res.Path)
		require.NoError(err)
		require.Equal(20, c.Data.DataLen)
		require.Equal(event.FieldX|event.FieldTime, c.Fields)
		require.NotNil(c.Header.Step)
		require.Equal(delays[i], c.Header.Step.Delay)
		runIDs[c.Header.Attributes["run_id"]] = struct{}{}
	}
	require.Len(runIDs, 1)
	require.NotContains(runIDs, "")
	require.Equal("261015-run007_ps0100.tdc", filepath.Base(results[0].Path))

	// a second run takes the next free run number
	results, err = runner.Run(context.Background(), delays[:1])
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(filepath.Join(dir, "PS_Scan_261015-run008"), filepath.Dir(results[0].Path))
}

func TestRunner_StepFailure(t *testing.T) {
	require := require.New(t)

	sess := newScanSession(t)
	shifter := &fakeShifter{failAt: 2}
	analyzer := &fakeAnalyzer{}

	runner, err := NewRunner(sess, shifter,
		WithAnalyzer(analyzer),
		WithDuration(time.Millisecond),
		WithPrefix("fail"),
		WithDir(t.TempDir()),
	)
	require.NoError(err)

	results, err := runner.Run(context.Background(), []int{10, 20, 30})
	require.Error(err)
	require.Contains(err.Error(), "gpio write failed")
	require.Len(results, 1)
	require.Equal([]string{"safe"}, analyzer.calls)
	require.False(sess.Recorder().IsOpen())
}

func TestRunner_Canceled(t *testing.T) {
	require := require.New(t)

	sess := newScanSession(t)
	analyzer := &fakeAnalyzer{}
	runner, err := NewRunner(sess, &fakeShifter{},
		WithAnalyzer(analyzer),
		WithDuration(time.Millisecond),
		WithDir(t.TempDir()),
	)
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runner.Run(ctx, []int{0, 5})
	require.ErrorIs(err, context.Canceled)
	require.Empty(results)
	// the safe state is reached despite the canceled context
	require.Equal([]string{"safe"}, analyzer.calls)
}

func TestRunner_RecorderNotEnabled(t *testing.T) {
	require := require.New(t)

	drv, err := sim.NewDriver()
	require.NoError(err)
	sess, err := acq.NewSession(drv)
	require.NoError(err)
	require.NoError(sess.Initialize(&config.Device{Name: "sim"}))
	t.Cleanup(func() { _ = sess.Deinitialize() })

	runner, err := NewRunner(sess, &fakeShifter{}, WithDir(t.TempDir()))
	require.NoError(err)

	_, err = runner.Run(context.Background(), []int{0})
	require.ErrorIs(err, recorder.ErrNotEnabled)
}

func TestNewRunner(t *testing.T) {
	require := require.New(t)

	sess := newScanSession(t)

	_, err := NewRunner(nil, &fakeShifter{})
	require.Error(err)
	_, err = NewRunner(sess, nil)
	require.ErrorIs(err, ErrNoPhaseShifter)
	_, err = NewRunner(sess, &fakeShifter{}, WithVoltages(1, 1))
	require.Error(err)
	_, err = NewRunner(sess, &fakeShifter{}, WithDuration(0))
	require.Error(err)
	_, err = NewRunner(sess, &fakeShifter{}, WithFields(0))
	require.Error(err)
	_, err = NewRunner(sess, &fakeShifter{}, WithRunNumber(1000))
	require.Error(err)

	runner, err := NewRunner(sess, &fakeShifter{}, WithDir(t.TempDir()))
	require.NoError(err)
	_, err = runner.Run(context.Background(), nil)
	require.ErrorIs(err, ErrEmptyPlan)

	entries, err := os.ReadDir(runner.dir)
	require.NoError(err)
	require.Empty(entries)
}
