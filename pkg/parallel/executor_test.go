package parallel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutorClampsLimit(t *testing.T) {
	assert.Equal(t, 1, NewExecutor(0).Limit())
	assert.Equal(t, 1, NewExecutor(-3).Limit())
	assert.Equal(t, 8, NewExecutor(8).Limit())
}

func TestForEachVisitsEveryIndex(t *testing.T) {
	executor := NewExecutor(4)

	var mu sync.Mutex
	seen := make(map[int]bool)

	err := executor.ForEach(context.Background(), 100, func(ctx context.Context, i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 100)
}

func TestForEachRespectsConcurrencyLimit(t *testing.T) {
	executor := NewExecutor(2)

	var current, peak int64
	err := executor.ForEach(context.Background(), 50, func(ctx context.Context, i int) error {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		atomic.AddInt64(&current, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestForEachPropagatesFirstError(t *testing.T) {
	executor := NewExecutor(1)

	boom := fmt.Errorf("index failure")
	var calls int64
	err := executor.ForEach(context.Background(), 100, func(ctx context.Context, i int) error {
		atomic.AddInt64(&calls, 1)
		if i == 3 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// Cancellation stops the remaining work well short of all indexes.
	assert.Less(t, atomic.LoadInt64(&calls), int64(100))
}

func TestMapIntsPreservesOrder(t *testing.T) {
	executor := NewExecutor(8)

	items := []string{"a", "bb", "ccc", "dddd"}
	results, err := executor.MapInts(context.Background(), items,
		func(ctx context.Context, item string) (int, error) {
			return len(item), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, results)
}

func TestMapIntsReturnsNilOnError(t *testing.T) {
	executor := NewExecutor(2)

	results, err := executor.MapInts(context.Background(), []string{"ok", "bad"},
		func(ctx context.Context, item string) (int, error) {
			if item == "bad" {
				return 0, fmt.Errorf("cannot count %q", item)
			}
			return len(item), nil
		})
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestForEachCancelledContext(t *testing.T) {
	executor := NewExecutor(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.ForEach(ctx, 10, func(ctx context.Context, i int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
