package acq

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/device/sim"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/recorder"
)

func TestSession_Recording(t *testing.T) {
	require := require.New(t)

	sess, _ := newTestSession(t, []sim.Option{sim.WithScript(
		sim.Measurement{DLD: xyEvents},
		sim.Measurement{DLD: xyEvents[:2]},
	)})
	path := filepath.Join(t.TempDir(), "run.tdc")

	err := sess.OpenRecording(path, "unused", event.FieldX)
	require.ErrorIs(err, recorder.ErrNotEnabled)
	require.ErrorIs(sess.CloseRecording(), recorder.ErrNotEnabled)
	require.Nil(sess.Recorder())

	require.NoError(sess.EnableRecorder(recorder.WithChunkSize(3)))
	rec := sess.Recorder()
	require.NotNil(rec)

	// enabling again keeps the healthy recorder
	require.NoError(sess.EnableRecorder())
	require.Same(rec, sess.Recorder())

	fields := event.FieldX | event.FieldY | event.FieldTime
	require.NoError(sess.OpenRecording(path, "scan step", fields, recorder.WithStep(1, 250)))
	require.True(rec.IsOpen())

	ctx := testContext(t)
	require.NoError(sess.StartMeasurement(ctx, 2*time.Millisecond, Synchronous))
	require.NoError(sess.StartMeasurement(ctx, 2*time.Millisecond, Synchronous))
	require.NoError(sess.CloseRecording())
	require.False(rec.IsOpen())
	require.Equal(uint64(6), rec.Events())

	c, err := recorder.ReadContainer(path)
	require.NoError(err)
	require.Equal("scan step", c.Header.Comment)
	require.Equal(fields, c.Fields)
	require.Equal(6, c.Data.DataLen)
	require.Equal([]uint64{0, 4}, c.Data.SOMIndices)
	require.Equal([]uint16{0, 1, 0, 3, 0, 1}, c.Data.Dif1.Values)
	require.Equal([]uint64{10, 20, 30, 40, 10, 20}, c.Data.Time.Values)
	require.False(c.Data.Channel.Valid)
	require.True(c.Trailer.IsLast)

	require.NoError(sess.DisableRecorder())
	require.Nil(sess.Recorder())
	require.NoError(sess.DisableRecorder())
}

func TestSession_DeinitializeClosesRecording(t *testing.T) {
	require := require.New(t)

	drv, err := sim.NewDriver(sim.WithTickInterval(testTick), sim.WithScript(sim.Measurement{DLD: xyEvents}))
	require.NoError(err)
	sess, err := NewSession(drv)
	require.NoError(err)
	require.NoError(sess.Initialize(testDevice()))

	path := filepath.Join(t.TempDir(), "deinit.tdc")
	require.NoError(sess.EnableRecorder())
	require.NoError(sess.OpenRecording(path, "", event.FieldTime))
	require.NoError(sess.StartMeasurement(testContext(t), 2*time.Millisecond, Synchronous))
	require.NoError(sess.Deinitialize())
	require.False(sess.Recorder().IsOpen())

	c, err := recorder.ReadContainer(path)
	require.NoError(err)
	require.Equal(4, c.Data.DataLen)
}
