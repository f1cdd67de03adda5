package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/config"
	"github.com/arloliu/go-tdc/device"
	"github.com/arloliu/go-tdc/event"
)

type recordingSink struct {
	mu      sync.Mutex
	calls   []string
	dld     int
	tdc     int
	frames  []event.Statistics
	reasons []event.Reason
	done    chan event.Reason
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan event.Reason, 16)}
}

func (s *recordingSink) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// collapse repeated calls
	if n := len(s.calls); n > 0 && s.calls[n-1] == call {
		return
	}
	s.calls = append(s.calls, call)
}

func (s *recordingSink) StartOfMeasurement() { s.record("som") }
func (s *recordingSink) Millisecond()        { s.record("ms") }
func (s *recordingSink) EndOfMeasurement()   { s.record("eom") }

func (s *recordingSink) TDCEvents(events []event.TDC) {
	s.mu.Lock()
	s.tdc += len(events)
	s.mu.Unlock()
}

func (s *recordingSink) DLDEvents(events []event.DLD) {
	s.mu.Lock()
	s.dld += len(events)
	s.mu.Unlock()
}

func (s *recordingSink) Statistics(frame *event.Statistics) {
	s.record("stats")
	s.mu.Lock()
	s.frames = append(s.frames, *frame)
	s.mu.Unlock()
}

func (s *recordingSink) Complete(reason event.Reason) {
	s.record("complete:" + reason.String())
	s.mu.Lock()
	s.reasons = append(s.reasons, reason)
	s.mu.Unlock()
	if reason.IsFinal() {
		s.done <- reason
	}
}

func (s *recordingSink) wait(t *testing.T) event.Reason {
	t.Helper()

	select {
	case r := <-s.done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("measurement did not complete")
		return 0
	}
}

func waitIdle(t *testing.T, d *Driver) {
	t.Helper()
	require.Eventually(t, func() bool {
		busy, err := d.Busy()
		return err == nil && !busy
	}, 5*time.Second, time.Millisecond)
}

func newTestDriver(t *testing.T, opts ...Option) (*Driver, *recordingSink) {
	t.Helper()

	d, err := NewDriver(append([]Option{WithTickInterval(100 * time.Microsecond)}, opts...)...)
	require.NoError(t, err)
	sink := newRecordingSink()
	require.NoError(t, d.Init(&config.Device{Name: "sim"}, sink))
	t.Cleanup(func() { _ = d.Deinit() })

	return d, sink
}

func TestDriver_Measurement(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t, WithEventsPerMillisecond(5))
	require.NoError(d.StartMeasure(20 * time.Millisecond))

	require.Equal(event.ReasonCompleted, sink.wait(t))
	waitIdle(t, d)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal([]string{"som", "ms", "eom", "stats", "complete:completed"}, sink.calls)
	require.Equal(100, sink.dld)
	require.Equal(100, sink.tdc)
	require.Len(sink.frames, 1)

	var found uint32
	for _, v := range sink.frames[0].EventsFound {
		found += v
	}
	require.Equal(uint32(100), found)
	require.Equal(1, d.Measurements())
}

func TestDriver_Interrupt(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t)
	require.NoError(d.StartMeasure(time.Hour))

	busy, err := d.Busy()
	require.NoError(err)
	require.True(busy)
	require.Equal(device.StatusBusy, device.StatusOf(d.StartMeasure(time.Second)))

	require.NoError(d.Interrupt())
	require.Equal(event.ReasonUserAborted, sink.wait(t))
	waitIdle(t, d)
}

func TestDriver_NotReady(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t, WithNotReady(2))
	for range 2 {
		err := d.StartMeasure(time.Millisecond)
		require.Equal(device.StatusNotReady, device.StatusOf(err))
	}
	require.NoError(d.StartMeasure(time.Millisecond))
	require.Equal(event.ReasonCompleted, sink.wait(t))
}

func TestDriver_BufferFull(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t, WithEventsPerMillisecond(10), WithBufferCapacity(50))
	require.NoError(d.StartMeasure(time.Second))
	require.Equal(event.ReasonBufferFull, sink.wait(t))
	waitIdle(t, d)
}

func TestDriver_EarlyNotification(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t, WithEarlyNotification(true))
	require.NoError(d.StartMeasure(2 * time.Millisecond))
	require.Equal(event.ReasonCompleted, sink.wait(t))
	waitIdle(t, d)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal([]event.Reason{event.ReasonEarlyNotification, event.ReasonCompleted}, sink.reasons)
}

func TestDriver_Script(t *testing.T) {
	require := require.New(t)

	d, sink := newTestDriver(t, WithScript(Measurement{
		DLD: []event.DLD{{Dif1: 1}, {Dif1: 2}},
		TDC: []event.TDC{{Channel: 1}},
	}))

	require.NoError(d.StartMeasure(5 * time.Millisecond))
	sink.wait(t)
	waitIdle(t, d)
	require.NoError(d.StartMeasure(5 * time.Millisecond))
	sink.wait(t)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(2, sink.dld)
	require.Equal(1, sink.tdc)
}

func TestDriver_Init(t *testing.T) {
	require := require.New(t)

	d, err := NewDriver(WithInitError(device.StatusNoDevice))
	require.NoError(err)
	err = d.Init(&config.Device{Name: "sim"}, newRecordingSink())
	require.Equal(device.StatusNoDevice, device.StatusOf(err))

	d, err = NewDriver()
	require.NoError(err)
	err = d.Init(&config.Device{}, newRecordingSink())
	require.Equal(device.StatusInvalidConfig, device.StatusOf(err))

	err = d.StartMeasure(time.Millisecond)
	require.Equal(device.StatusNotInitialized, device.StatusOf(err))

	err = d.Init(&config.Device{Name: "sim", Params: map[string]string{"events_per_ms": "x"}}, newRecordingSink())
	require.Equal(device.StatusInvalidConfig, device.StatusOf(err))

	require.NoError(d.Init(&config.Device{Name: "sim", Params: map[string]string{"events_per_ms": "3"}}, newRecordingSink()))
	require.Equal(3, d.eventsPerMs)
	err = d.Init(&config.Device{Name: "sim"}, newRecordingSink())
	require.Equal(device.StatusBusy, device.StatusOf(err))

	require.NoError(d.Deinit())
	require.NoError(d.Deinit())

	_, err = NewDriver(WithEventsPerMillisecond(-1))
	require.Error(err)
	_, err = NewDriver(WithTickInterval(0))
	require.Error(err)
}
