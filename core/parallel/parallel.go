// Package parallel provides the goroutine fan-out helpers used for fold
// evaluation, tree building and batch prediction.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Parallelize divides items into one contiguous range per CPU core and runs
// fn on each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over [0, items) when items
// does not exceed threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items) using at most workers
// goroutines (NumCPU when workers <= 0). A panic inside fn is recovered into
// a PanicError. The first error by index is returned.
func ForEach(items, workers int, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}
	errs := make([]error, items)

	run := func(i int) {
		errs[i] = errors.SafeExecute("parallel.ForEach", func() error { return fn(i) })
	}

	if workers == 1 || items == 1 {
		for i := 0; i < items; i++ {
			run(i)
		}
	} else {
		ParallelizeN(items, workers, func(start, end int) {
			for i := start; i < end; i++ {
				run(i)
			}
		})
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
