package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type completion struct {
	seq    int
	reason int
}

func TestLockFreeQueue(t *testing.T) {
	assert := assert.New(t)

	t.Run("Empty Queue", func(t *testing.T) {
		q := NewLockFreeQueue[completion]()

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())
		_, ok := q.Dequeue()
		assert.False(ok)
	})

	t.Run("FIFO Order", func(t *testing.T) {
		q := NewLockFreeQueue[completion]()
		for i := 0; i < 10; i++ {
			q.Enqueue(completion{seq: i, reason: 1})
		}
		assert.Equal(10, q.Length())

		for i := 0; i < 10; i++ {
			item, ok := q.Dequeue()
			assert.True(ok)
			assert.Equal(i, item.seq)
		}
		assert.True(q.IsEmpty())
	})

	t.Run("Concurrency", func(t *testing.T) {
		q := NewLockFreeQueue[int]()

		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q.Enqueue(i)
			}(i)
		}
		wg.Wait()
		assert.Equal(1000, q.Length())

		var mu sync.Mutex
		seen := make(map[int]bool, 1000)
		wg.Add(1000)
		for i := 0; i < 1000; i++ {
			go func() {
				defer wg.Done()
				if v, ok := q.Dequeue(); ok {
					mu.Lock()
					seen[v] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.True(q.IsEmpty())
		assert.Len(seen, 1000)
	})
}

func BenchmarkLockFreeQueue(b *testing.B) {
	q := NewLockFreeQueue[int]()
	for i := 0; i < b.N; i++ {
		q.Enqueue(i)
		_, _ = q.Dequeue()
	}
}
