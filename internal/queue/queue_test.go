package queue

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		q, err := New[int](capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Nil(t, q)
	}
}

func TestNewQueueIsEmpty(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)

	stats := q.Stats()
	assert.Equal(t, 0, stats.Len)
	assert.Equal(t, 4, stats.Cap)
	assert.Equal(t, 4, q.Cap())
}

func TestFIFOSingleProducer(t *testing.T) {
	q, err := New[int](3)
	require.NoError(t, err)

	const n = 50
	go func() {
		for i := 1; i <= n; i++ {
			q.Enqueue(i)
		}
	}()

	for i := 1; i <= n; i++ {
		assert.Equal(t, i, q.Dequeue())
	}
}

func TestLenDisambiguatesFullAndEmpty(t *testing.T) {
	q, err := New[string](2)
	require.NoError(t, err)

	q.Enqueue("a")
	assert.Equal(t, 1, q.Len())
	q.Enqueue("b")
	assert.Equal(t, 2, q.Len(), "head == tail while full")

	assert.Equal(t, "a", q.Dequeue())
	assert.Equal(t, "b", q.Dequeue())
	assert.Equal(t, 0, q.Len(), "head == tail while empty")

	// Wrap around a few times.
	for i := 0; i < 7; i++ {
		q.Enqueue("x")
		assert.Equal(t, 1, q.Len())
		q.Dequeue()
	}
	assert.Equal(t, 0, q.Len())
}

func TestCapacityHoldsUnderContention(t *testing.T) {
	const (
		capacity  = 4
		producers = 6
		perProd   = 200
	)
	q, err := New[int](capacity)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Enqueue(p*perProd + i)
			}
		}(p)
	}

	stop := make(chan struct{})
	violations := make(chan int, 1)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := q.Len(); n < 0 || n > capacity {
				select {
				case violations <- n:
				default:
				}
			}
		}
	}()

	got := make([]int, 0, producers*perProd)
	for i := 0; i < producers*perProd; i++ {
		got = append(got, q.Dequeue())
	}
	wg.Wait()
	close(stop)

	select {
	case n := <-violations:
		t.Fatalf("resident count %d out of [0,%d]", n, capacity)
	default:
	}

	sort.Ints(got)
	for i, v := range got {
		require.Equal(t, i, v, "lost or duplicated item")
	}

	stats := q.Stats()
	assert.LessOrEqual(t, stats.HighWater, capacity)
	assert.Equal(t, uint64(producers*perProd), stats.Enqueued)
	assert.Equal(t, uint64(producers*perProd), stats.Dequeued)
}

func TestPerProducerOrderPreserved(t *testing.T) {
	q, err := New[[2]int](5)
	require.NoError(t, err)

	const producers, perProd = 4, 100
	for p := 0; p < producers; p++ {
		go func(p int) {
			for i := 0; i < perProd; i++ {
				q.Enqueue([2]int{p, i})
			}
		}(p)
	}

	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for i := 0; i < producers*perProd; i++ {
		item := q.Dequeue()
		require.Greater(t, item[1], last[item[0]], "producer %d reordered", item[0])
		last[item[0]] = item[1]
	}
}

func TestSaturationBlocksFastProducer(t *testing.T) {
	q, err := New[int](2)
	require.NoError(t, err)

	const items = 10
	produced := make(chan int, items)
	go func() {
		for i := 1; i <= items; i++ {
			q.Enqueue(i)
			produced <- i
		}
	}()

	// Producer parks with two items pending.
	require.Eventually(t, func() bool {
		return q.Stats().BlockedProducers == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 2, q.Len())
	assert.Len(t, produced, 2)

	for i := 1; i <= items; i++ {
		time.Sleep(2 * time.Millisecond)
		require.LessOrEqual(t, q.Len(), 2)
		assert.Equal(t, i, q.Dequeue())
	}

	require.Eventually(t, func() bool { return len(produced) == items }, time.Second, time.Millisecond)
	assert.Equal(t, 2, q.Stats().HighWater)
}

func TestConsumerBlocksUntilItemArrives(t *testing.T) {
	q, err := New[int](1)
	require.NoError(t, err)

	got := make(chan int)
	go func() { got <- q.Dequeue() }()

	require.Eventually(t, func() bool {
		return q.Stats().BlockedConsumers == 1
	}, time.Second, time.Millisecond)

	q.Enqueue(42)
	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
	assert.Equal(t, 0, q.Stats().BlockedConsumers)
}
