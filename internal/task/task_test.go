package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/logger"
)

func TestManager_Start(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), logger.GetLogger())

	var runs atomic.Int32
	require.NoError(mgr.Start("counter", func() bool {
		return runs.Add(1) < 5
	}))

	require.Eventually(func() bool { return mgr.TaskCount() == 0 }, time.Second, time.Millisecond)
	require.Equal(int32(5), runs.Load())
}

func TestManager_StopAndRestart(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), nil)
	require.NoError(mgr.Start("spin", func() bool {
		time.Sleep(time.Millisecond)
		return true
	}))
	require.Equal(1, mgr.TaskCount())

	mgr.Stop()
	require.Error(mgr.Start("late", func() bool { return false }))

	mgr.Wait()
	require.Equal(0, mgr.TaskCount())

	// re-armed after Wait
	require.NoError(mgr.Start("again", func() bool { return false }))
	mgr.Stop()
	mgr.Wait()
}

func TestManager_StartSignal(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), nil)
	signal := make(chan struct{}, 1)

	var calls atomic.Int32
	var canceled atomic.Bool
	require.NoError(mgr.StartSignal("dispatch", signal, func() { calls.Add(1) }, func() { canceled.Store(true) }))

	signal <- struct{}{}
	require.Eventually(func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	mgr.Stop()
	mgr.Wait()

	// final drain on stop
	require.Equal(int32(2), calls.Load())
	require.True(canceled.Load())
}

func TestStartConsumer(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), nil)
	input := make(chan int, 10)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	require.NoError(StartConsumer(mgr, "consumer", input, func(v int) bool {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		return true
	}, func() { close(done) }))

	for i := 0; i < 5; i++ {
		input <- i
	}
	close(input)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after input closed")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]int{0, 1, 2, 3, 4}, got)
}

func TestManager_RecoverPanic(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), nil)
	require.NoError(mgr.Start("panicky", func() bool {
		panic("boom")
	}))

	require.Eventually(func() bool { return mgr.TaskCount() == 0 }, time.Second, time.Millisecond)
}
