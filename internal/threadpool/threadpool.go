// Package threadpool - intra-layer fork-join parallel-for
//
// Implements spec.md §5's "intra-layer parallelism": a fork-join
// parallel-for over a bounded integer range (typically channels),
// statically split, workers block until the region ends. This is the
// only suspension point in CPU execution per spec.md §5. Grounded on
// golang.org/x/sync/errgroup, the same package fs/ggml/gguf_write.go
// and cmd/cmd_model.go use for bounded fan-out.
package threadpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// For runs fn(i) for i in [0, n) across at most numThreads goroutines,
// statically partitioning the range into contiguous chunks (mirroring
// OpenMP's default static schedule, the model spec.md's "parallel for"
// language alludes to). It blocks until every call returns, and
// returns the first non-nil error encountered, matching the
// short-circuit-on-first-negative-code propagation policy of spec.md
// §7.
func For(n, numThreads int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if numThreads < 1 {
		numThreads = 1
	}
	if numThreads > n {
		numThreads = n
	}
	if numThreads == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())

	chunk := (n + numThreads - 1) / numThreads
	for start := 0; start < n; start += chunk {
		start := start
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
