package workpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slackharvest/pkg/logger"
)

// Job is one unit of work. Index is the unit's position in the original
// work list; results carry it back so callers can restore submission
// order.
type Job[T any] struct {
	Index   int
	Payload T
}

// Result is the outcome of one job
type Result[T, R any] struct {
	Job      Job[T]
	Value    R
	Err      error
	Duration time.Duration
}

// Worker processes one job payload
type Worker[T, R any] func(ctx context.Context, payload T) (R, error)

// Pool runs jobs on a fixed number of workers. Workers block at network
// boundaries independently; a throttled worker never stalls another
// worker's unit.
type Pool[T, R any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan Result[T, R]
	work       Worker[T, R]
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	logger     logger.Logger
}

// New creates a worker pool with the given concurrency
func New[T, R any](ctx context.Context, numWorkers int, work Worker[T, R], log logger.Logger) *Pool[T, R] {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool[T, R]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], numWorkers*2),
		results:    make(chan Result[T, R], numWorkers),
		work:       work,
		ctx:        poolCtx,
		cancel:     cancel,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool[T, R]) Start() {
	p.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit adds a job to the queue, blocking when the queue is full
func (p *Pool[T, R]) Submit(job Job[T]) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel of completed jobs. It is closed by Close
// after all workers drain.
func (p *Pool[T, R]) Results() <-chan Result[T, R] {
	return p.results
}

// Close signals that no more jobs will be submitted. Workers finish the
// queued jobs, then the results channel is closed.
func (p *Pool[T, R]) Close() {
	close(p.jobQueue)
	go func() {
		p.wg.Wait()
		close(p.results)
		p.cancel()
	}()
}

func (p *Pool[T, R]) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		value, err := p.work(p.ctx, job.Payload)
		result := Result[T, R]{
			Job:      job,
			Value:    value,
			Err:      err,
			Duration: time.Since(start),
		}

		if err != nil {
			p.logger.DebugWithFields("worker job failed", map[string]interface{}{
				"worker_id": id,
				"index":     job.Index,
				"error":     err.Error(),
			})
		}

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			return
		}
	}
}
