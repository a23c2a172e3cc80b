// Package utils holds small shared helpers, currently parallel work
// scheduling for the batch projection APIs.
package utils

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be
// useful to set in tests where too much parallelism actually slows tests down
// in aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEach calls work(i) for every i in [0, n), split into contiguous
// index ranges over at most ParallelFactor goroutines. Each index is visited
// exactly once; there is no ordering between indexes, so work must only write
// to its own index.
func ParallelForEach(n int, work func(i int)) {
	if n <= 0 {
		return
	}
	numWorkers := ParallelFactor
	if numWorkers > n {
		numWorkers = n
	}
	chunk := n / numWorkers
	extra := n % numWorkers

	var wait sync.WaitGroup
	wait.Add(numWorkers)
	from := 0
	for worker := 0; worker < numWorkers; worker++ {
		size := chunk
		if worker < extra {
			size++
		}
		start, end := from, from+size
		from = end
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			for i := start; i < end; i++ {
				work(i)
			}
		})
	}
	wait.Wait()
}
