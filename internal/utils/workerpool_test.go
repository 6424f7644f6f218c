package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelMap(t *testing.T) {
	t.Parallel()

	t.Run("results keep item order", func(t *testing.T) {
		items := []string{"dev", "qa", "prod", "staging"}

		results, errs := ParallelMap(context.Background(), items, 3, func(ctx context.Context, env string) (int, error) {
			time.Sleep(time.Duration(len(env)) * time.Millisecond)
			return len(env), nil
		})

		require.Len(t, results, 4)
		assert.Equal(t, []int{3, 2, 4, 7}, results)
		assert.Empty(t, CollectErrors(errs))
	})

	t.Run("errors are stored by index", func(t *testing.T) {
		items := []int{1, 2, 3}

		results, errs := ParallelMap(context.Background(), items, 2, func(ctx context.Context, item int) (int, error) {
			if item == 2 {
				return 0, errors.New("error on 2")
			}
			return item * 10, nil
		})

		assert.Equal(t, []int{10, 0, 30}, results)
		assert.NoError(t, errs[0])
		assert.EqualError(t, errs[1], "error on 2")
		assert.NoError(t, errs[2])
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		var running, peak int32
		items := make([]int, 20)

		_, errs := ParallelMap(context.Background(), items, 4, func(ctx context.Context, _ int) (struct{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		})

		assert.Empty(t, CollectErrors(errs))
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
	})

	t.Run("empty input", func(t *testing.T) {
		results, errs := ParallelMap(context.Background(), []int{}, 4, func(ctx context.Context, item int) (int, error) {
			return item, nil
		})
		assert.Empty(t, results)
		assert.Empty(t, errs)
	})

	t.Run("cancelled context marks unstarted items", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, errs := ParallelMap(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, item int) (int, error) {
			return item, nil
		})

		require.Len(t, errs, 3)
		assert.ErrorIs(t, FirstError(errs), context.Canceled)
	})
}

func TestFirstError(t *testing.T) {
	t.Parallel()

	first := errors.New("error1")
	tests := []struct {
		name     string
		errs     []error
		expected error
	}{
		{"no errors", []error{nil, nil, nil}, nil},
		{"first error", []error{nil, first, nil}, first},
		{"all errors", []error{first, errors.New("error2")}, first},
		{"empty slice", []error{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FirstError(tt.errs))
		})
	}
}

func TestCollectErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		errs     []error
		expected int
	}{
		{"no errors", []error{nil, nil, nil}, 0},
		{"some errors", []error{nil, errors.New("error1"), nil, errors.New("error2")}, 2},
		{"all errors", []error{errors.New("e1"), errors.New("e2"), errors.New("e3")}, 3},
		{"empty slice", []error{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, CollectErrors(tt.errs), tt.expected)
		})
	}
}
