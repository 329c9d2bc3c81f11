package index

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// pool runs submitted jobs on a fixed number of workers. The job queue is
// bounded: Submit blocks while the queue is full.
type pool struct {
	jobs    chan func()
	mu      sync.RWMutex
	closed  bool
	pending atomic.Int64
	group   errgroup.Group
}

func newPool(workerCount int, queueSize int) *pool {
	p := &pool{jobs: make(chan func(), queueSize)}
	for i := 0; i < workerCount; i++ {
		p.group.Go(func() error {
			for job := range p.jobs {
				job()
				p.pending.Add(-1)
			}
			return nil
		})
	}
	return p
}

// Submit queues a job. It fails once the pool is closed.
func (p *pool) Submit(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errPoolClosed
	}
	p.pending.Add(1)
	p.jobs <- job
	return nil
}

// Pending returns the number of queued and running jobs.
func (p *pool) Pending() int {
	return int(p.pending.Load())
}

// Close stops accepting jobs. Workers finish the queued jobs and exit;
// Close does not wait for them.
func (p *pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}

// Wait blocks until every worker has exited. Only meaningful after Close.
func (p *pool) Wait() {
	_ = p.group.Wait()
}
