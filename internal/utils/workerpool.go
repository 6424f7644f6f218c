package utils

import (
	"context"
	"sync"
)

// ParallelMap applies fn to every item using at most workers goroutines.
// Results and errors are stored at the index of their item. Items never
// started because ctx was cancelled get ctx.Err().
func ParallelMap[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	started := make([]bool, len(items))
	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx], errs[idx] = fn(ctx, items[idx])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
			started[i] = true
		}
	}
	close(indexes)
	wg.Wait()

	for i, ok := range started {
		if !ok {
			errs[i] = ctx.Err()
		}
	}
	return results, errs
}

// FirstError returns the first non-nil error from a slice of errors
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CollectErrors collects all non-nil errors from a slice
func CollectErrors(errs []error) []error {
	var result []error
	for _, err := range errs {
		if err != nil {
			result = append(result, err)
		}
	}
	return result
}
