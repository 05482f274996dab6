package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// It suits single-instance deployments and tests; multi-instance
// deployments use the RabbitMQ queue instead.
type Queue struct {
	jobChan     chan *jobs.MessageJob
	closeChan   chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	store       jobs.JobStore
	workerCount int
	closed      bool
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishMessage
// blocks; workerCount bounds concurrent handlers.
func NewQueue(bufferSize, workerCount int, store jobs.JobStore) *Queue {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Queue{
		jobChan:     make(chan *jobs.MessageJob, bufferSize),
		closeChan:   make(chan struct{}),
		store:       store,
		workerCount: workerCount,
	}
}

// PublishMessage implements the Publisher interface. The queue works on its
// own copy of job; the caller's value gets the generated ID and status.
func (q *Queue) PublishMessage(ctx context.Context, job *jobs.MessageJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	jobs.Prepare(job, uuid.NewString, time.Now())

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return err
		}
	}

	queued := *job
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start implements the Consumer interface.
// It starts workerCount goroutines that run handler for each queued job.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job, re-enqueueing it with linear backoff
// while retries remain.
func (q *Queue) processJob(ctx context.Context, job *jobs.MessageJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)
	retry := jobs.Finish(job, err, time.Now())
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.JobID).Bool("retry", retry).Msg("Message job failed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	if retry {
		backoff := time.Duration(job.RetryCount) * time.Second
		time.AfterFunc(backoff, func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			_ = q.PublishMessage(ctx, job)
		})
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
