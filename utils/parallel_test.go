package utils

import (
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEach(t *testing.T) {
	for _, n := range []int{0, 1, 3, ParallelFactor, ParallelFactor*4 + 1, 1000} {
		visited := make([]int32, n)
		var calls int32
		ParallelForEach(n, func(i int) {
			atomic.AddInt32(&visited[i], 1)
			atomic.AddInt32(&calls, 1)
		})
		test.That(t, atomic.LoadInt32(&calls), test.ShouldEqual, int32(n))
		for i := range visited {
			test.That(t, visited[i], test.ShouldEqual, int32(1))
		}
	}
}

func TestParallelForEachSingleWorker(t *testing.T) {
	old := ParallelFactor
	ParallelFactor = 1
	defer func() { ParallelFactor = old }()

	sum := 0
	ParallelForEach(10, func(i int) { sum += i })
	test.That(t, sum, test.ShouldEqual, 45)
}
