package utils

import (
	"runtime"
	"sync"
)

// SplitRanges partitions [0,n) into at most nWorkers contiguous half-open
// ranges of near-equal size. Empty ranges are not emitted.
func SplitRanges(n, nWorkers int) (ranges [][2]int) {
	if nWorkers < 1 {
		nWorkers = 1
	}
	perWorker := (n + nWorkers - 1) / nWorkers
	for start := 0; start < n; start += perWorker {
		end := start + perWorker
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return
}

// ParallelFor runs work(start, end) over a partition of [0,n) using one
// goroutine per range and blocks until all complete. Workers write only to
// their own range, so no locking is performed here.
func ParallelFor(n int, work func(start, end int)) {
	var (
		nWorkers = runtime.NumCPU()
		wg       sync.WaitGroup
	)
	if n < 2*nWorkers {
		work(0, n)
		return
	}
	for _, r := range SplitRanges(n, nWorkers) {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			work(start, end)
		}(r[0], r[1])
	}
	wg.Wait()
}
