package engine

import (
	"context"
	"log/slog"
	"sync"
)

// defaultQueueSize bounds the persistence queue. The delivery path only
// blocks if persistence falls this far behind.
const defaultQueueSize = 512

// job is one unit of persistence work.
type job struct {
	fn   func(ctx context.Context) error
	name string
}

// worker runs persistence jobs on a single goroutine so writes to a
// given store are strictly ordered and the delivery path never waits on
// disk I/O. Failures are logged, not retried; in-memory state stays
// authoritative for the session.
type worker struct {
	jobs chan job
	wg   sync.WaitGroup
}

func newWorker(queueSize int) *worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &worker{jobs: make(chan job, queueSize)}
}

// start launches the worker goroutine. Jobs run detached from ctx's
// cancellation: queued writes must still flush when the delivery path
// shuts down and stop drains the queue. There are no per-job timeouts.
func (w *worker) start(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for j := range w.jobs {
			if err := j.fn(jobCtx); err != nil {
				slog.Error("persistence job failed", "job", j.name, "error", err)
			}
		}
	}()
}

// enqueue submits a job for sequential execution.
func (w *worker) enqueue(name string, fn func(ctx context.Context) error) {
	w.jobs <- job{name: name, fn: fn}
}

// stop drains the queue and waits for the worker goroutine to finish.
func (w *worker) stop() {
	close(w.jobs)
	w.wg.Wait()
}
