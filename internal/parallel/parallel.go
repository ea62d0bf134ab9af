// Package parallel splits row-wise kernels into contiguous row ranges and
// runs the ranges on separate goroutines.
//
// Each range writes only its own output rows, so results never depend on
// scheduling.
package parallel

import (
	"runtime"
	"sync"
)

// Config bounds how a row loop is split.
type Config struct {
	Workers int // ranges run at once; below 2 runs inline
	Grain   int // minimum rows per range
}

// Default uses one worker per CPU and ranges of at least 16 rows.
func Default() Config {
	return Config{Workers: runtime.NumCPU(), Grain: 16}
}

// Serial runs every loop inline on the calling goroutine.
func Serial() Config {
	return Config{Workers: 1, Grain: 1}
}

// ranges returns the [lo, hi) bounds that cover n rows under cfg.
func (cfg Config) ranges(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	grain := max(cfg.Grain, 1)
	parts := min(max(cfg.Workers, 1), (n+grain-1)/grain)
	size := (n + parts - 1) / parts

	out := make([][2]int, 0, parts)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}

// ForRows calls f(lo, hi) over contiguous ranges that cover [0, n) exactly
// once, and returns when every call has finished.
func ForRows(n int, cfg Config, f func(lo, hi int)) {
	rs := cfg.ranges(n)
	if len(rs) <= 1 {
		if n > 0 {
			f(0, n)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(rs))
	for _, r := range rs {
		r := r
		go func() {
			defer wg.Done()
			f(r[0], r[1])
		}()
	}
	wg.Wait()
}
