// Package parallel runs named jobs on a fixed number of goroutines.
package parallel

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

type (
	// WorkerFunc queues job under name. It may block until a worker is free.
	WorkerFunc func(name string, job func() error)
	// WaitFunc stops accepting jobs, waits for queued ones and returns their
	// joined errors.
	WaitFunc func() error
)

type Pool struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	logger *slog.Logger

	Do   WorkerFunc
	Wait WaitFunc
}

// Start creates a pool. numWorkers below 1 uses GOMAXPROCS; with a single
// worker jobs run inline on the caller's goroutine.
func Start(numWorkers int, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := &Pool{logger: logger}
	pool.Do = pool.run
	pool.Wait = pool.result

	if numWorkers > 1 {
		type task struct {
			name string
			job  func() error
		}
		workChan := make(chan task, numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for t := range workChan {
					pool.run(t.name, t.job)
				}
			})
		}

		pool.Do = func(name string, job func() error) {
			workChan <- task{name: name, job: job}
		}

		closeWork := sync.OnceFunc(func() { close(workChan) })
		pool.Wait = func() error {
			closeWork()
			pool.wg.Wait()
			return pool.result()
		}
	}

	return pool
}

func (p *Pool) run(name string, job func() error) {
	logger := p.logger.With("job", name)
	logger.Info("starting")
	start := time.Now()

	err := job()
	if err != nil {
		logger.Error("failed", "elapsed", time.Since(start), "error", err)
		p.mu.Lock()
		p.errs = append(p.errs, fmt.Errorf("%s: %w", name, err))
		p.mu.Unlock()
		return
	}
	logger.Info("done", "elapsed", time.Since(start))
}

func (p *Pool) result() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
