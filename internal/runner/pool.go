package runner

import (
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// workerPool runs fuzz workers on an ants pool
type workerPool struct {
	pool       *ants.Pool
	wg         sync.WaitGroup
	isShutdown atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	errors    atomic.Int64
}

func newWorkerPool(size int) (*workerPool, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	return &workerPool{pool: pool}, nil
}

// Submit adds a task to the worker pool
func (wp *workerPool) Submit(task func() error) error {
	if wp.isShutdown.Load() {
		return ants.ErrPoolClosed
	}

	wp.submitted.Add(1)
	wp.wg.Add(1)

	err := wp.pool.Submit(func() {
		defer wp.wg.Done()
		defer wp.completed.Add(1)
		if err := task(); err != nil {
			wp.errors.Add(1)
		}
	})
	if err != nil {
		wp.wg.Done()
		wp.submitted.Add(-1)
	}
	return err
}

// Wait blocks until all submitted tasks complete
func (wp *workerPool) Wait() {
	wp.wg.Wait()
}

// Shutdown waits for running tasks and releases the pool
func (wp *workerPool) Shutdown() {
	wp.isShutdown.Store(true)
	wp.Wait()
	wp.pool.Release()
}

type poolStats struct {
	Capacity  int
	Submitted int64
	Completed int64
	Errors    int64
}

func (wp *workerPool) Stats() poolStats {
	return poolStats{
		Capacity:  wp.pool.Cap(),
		Submitted: wp.submitted.Load(),
		Completed: wp.completed.Load(),
		Errors:    wp.errors.Load(),
	}
}
