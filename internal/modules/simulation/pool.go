package simulation

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
)

// WorkerPool runs independent trials on a fixed number of goroutines
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a worker pool. A non-positive size uses DefaultWorkers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// DefaultWorkers returns the number of logical cores, falling back to the Go
// runtime's count when the host cannot be inspected.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// RunBatch runs trials [first, first+count) and returns their outcomes in trial order.
func (wp *WorkerPool) RunBatch(first, count int, run func(trial int) trialOutcome) []trialOutcome {
	if count <= 0 {
		return []trialOutcome{}
	}

	jobs := make(chan int, count)
	results := make(chan resultItem, count)

	var wg sync.WaitGroup
	numActualWorkers := min(wp.numWorkers, count)
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(jobs, results, run)
		}()
	}

	for trial := first; trial < first+count; trial++ {
		jobs <- trial
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]trialOutcome, count)
	for result := range results {
		out[result.trial-first] = result.outcome
	}
	return out
}

// trialOutcome is the terminal value of one trial and, optionally, its path
type trialOutcome struct {
	terminal float64
	path     []float64
}

type resultItem struct {
	trial   int
	outcome trialOutcome
}

func worker(jobs <-chan int, results chan<- resultItem, run func(trial int) trialOutcome) {
	for trial := range jobs {
		results <- resultItem{trial: trial, outcome: run(trial)}
	}
}
