// Package parallel provides parallel execution utilities for the reference kernels.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

func (cfg Config) sequential(n int) bool {
	return !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize
}

// chunkSize returns the number of items each goroutine handles.
func (cfg Config) chunkSize(n int) int {
	return max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if cfg.sequential(n) {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := cfg.chunkSize(n)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr executes f(i) for i in [0, n) and returns the error of the lowest
// failing index among the chunks that failed. Once a chunk fails, the
// remaining items of that chunk are skipped; other chunks run to completion.
func ForErr(n int, f func(i int) error, cfg Config) error {
	if cfg.sequential(n) {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	chunk := cfg.chunkSize(n)
	numChunks := (n + chunk - 1) / chunk
	errs := make([]error, numChunks)

	var g errgroup.Group
	for c := 0; c < numChunks; c++ {
		g.Go(func() error {
			start := c * chunk
			end := min(start+chunk, n)
			for i := start; i < end; i++ {
				if err := f(i); err != nil {
					errs[c] = err
					return err
				}
			}
			return nil
		})
	}
	if g.Wait() == nil {
		return nil
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Range is a half-open interval [Start, End) of item indices.
type Range struct {
	Start, End int
}

// Chunks splits [0, n) into contiguous ranges in ascending order, one per
// goroutine that For would start. Callers that need ordered output use the
// ranges to compute per-chunk offsets before fanning out with For.
func Chunks(n int, cfg Config) []Range {
	if n == 0 {
		return nil
	}
	if cfg.sequential(n) {
		return []Range{{0, n}}
	}
	chunk := cfg.chunkSize(n)
	ranges := make([]Range, 0, (n+chunk-1)/chunk)
	for start := 0; start < n; start += chunk {
		ranges = append(ranges, Range{start, min(start+chunk, n)})
	}
	return ranges
}

// ForBatch optimized for outer*inner iteration pattern.
// Common in axis reductions where each (outer, inner) pair is independent.
func ForBatch(outer, inner int, f func(o, i int), cfg Config) {
	n := outer * inner
	For(n, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}

// ForBatchErr is ForBatch with error propagation semantics of ForErr.
func ForBatchErr(outer, inner int, f func(o, i int) error, cfg Config) error {
	n := outer * inner
	return ForErr(n, func(k int) error {
		return f(k/inner, k%inner)
	}, cfg)
}
