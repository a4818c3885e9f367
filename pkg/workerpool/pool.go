// Package workerpool provides the bounded goroutine pool that caps how many
// benchmark requests are in flight at once. Every submitted task runs to
// completion; a panicking task is recovered and never takes its siblings
// down with it.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool manages a fixed number of worker goroutines fed from a task queue.
type Pool struct {
	workers int32
	tasks   chan func()
	running int32
	closed  int32
	panics  int64
	wg      sync.WaitGroup
}

// New creates a pool with the given number of workers. Workers start
// lazily as tasks are submitted. Non-positive sizes fall back to GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: int32(workers),
		tasks:   make(chan func(), workers*4),
	}
}

// Submit queues a task. It blocks while the queue is full and returns false
// if the pool is closed.
func (p *Pool) Submit(task func()) bool {
	if atomic.LoadInt32(&p.closed) == 1 {
		return false
	}

	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			break
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			break
		}
	}

	p.tasks <- task
	return true
}

func (p *Pool) worker() {
	defer func() {
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()

	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.panics, 1)
		}
	}()
	if task != nil {
		task()
	}
}

// Panics returns how many tasks panicked and were recovered.
func (p *Pool) Panics() int64 {
	return atomic.LoadInt64(&p.panics)
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}

// Map applies fn to each item on the pool and returns results in input
// order. A task that panics leaves the zero value in its slot.
func Map[T, R any](p *Pool, items []T, fn func(int, T) R) []R {
	results := make([]R, len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		idx, val := i, item
		if !p.Submit(func() {
			defer wg.Done()
			results[idx] = fn(idx, val)
		}) {
			wg.Done()
		}
	}

	wg.Wait()
	return results
}
