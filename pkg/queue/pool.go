package queue

import (
	"context"
	"sync"
)

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context)

// Pool is a bounded worker pool. Tasks are executed by a fixed number of
// workers; Wait blocks until every submitted task has finished. Completion
// order is unspecified.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts a pool with the given number of workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{tasks: make(chan Task)}
	for i := 0; i < workers; i++ {
		go func() {
			for task := range p.tasks {
				task(ctx)
				p.wg.Done()
			}
		}()
	}
	return p
}

// Submit enqueues a task. It must not be called after Wait has returned.
func (p *Pool) Submit(t Task) {
	p.wg.Add(1)
	p.tasks <- t
}

// Wait blocks until all submitted tasks are done and stops the workers.
func (p *Pool) Wait() {
	p.wg.Wait()
	p.once.Do(func() { close(p.tasks) })
}

// Run executes fn for every item over a pool of the given width and waits
// for all of them; a join-barrier fan-out helper for batch operations.
func Run[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T)) {
	p := NewPool(ctx, workers)
	for _, it := range items {
		it := it
		p.Submit(func(ctx context.Context) { fn(ctx, it) })
	}
	p.Wait()
}
