package pkg

import (
	"fmt"
	"sync"
)

type job struct {
	index int
	path  string
}

type result struct {
	index int
	path  string
	err   error
}

// BatchResult reports the outcome for one input file of a batch run.
type BatchResult struct {
	Input  string
	Output string
	Err    error
}

// RunBatch obfuscates several files concurrently, one worker per CPU slot.
// The obfuscator is immutable and shared by all workers; each document is
// still processed on a single goroutine. Results come back in input order.
func (a *App) RunBatch(files []string, outputSuffix string, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	if outputSuffix == "" {
		outputSuffix = ".obfuscated"
	}

	jobs := make(chan job)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go a.worker(&wg, outputSuffix, jobs, results)
	}

	go func() {
		for i, path := range files {
			jobs <- job{index: i, path: path}
		}
		close(jobs)
	}()
	go func() { wg.Wait(); close(results) }()

	ordered := make([]BatchResult, len(files))
	for res := range results {
		ordered[res.index] = BatchResult{
			Input:  files[res.index],
			Output: res.path,
			Err:    res.err,
		}
	}
	return ordered
}

func (a *App) worker(wg *sync.WaitGroup, suffix string, jobs <-chan job, results chan<- result) {
	defer wg.Done()
	for j := range jobs {
		out := j.path + suffix
		err := a.Run(j.path, out)
		if err != nil {
			err = fmt.Errorf("obfuscating %s: %w", j.path, err)
		}
		results <- result{index: j.index, path: out, err: err}
	}
}
