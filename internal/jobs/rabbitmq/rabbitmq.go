package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

// channel is the subset of *amqp091.Channel the queue uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Queue publishes and consumes message jobs through a durable direct exchange.
// Deliveries are acknowledged manually once the handler returns.
type Queue struct {
	conn         *amqp091.Connection
	ch           channel
	exchangeName string
	queueName    string
	store        jobs.JobStore
	workerCount  int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dial connects to the broker and declares the exchange, queue and binding.
// store may be nil.
func Dial(url, exchangeName, queueName string, workerCount int, store jobs.JobStore) (*Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq.Dial: dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq.Dial: open channel: %w", err)
	}

	q, err := newQueue(ch, exchangeName, queueName, workerCount, store)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq.Dial: %w", err)
	}
	q.conn = conn
	return q, nil
}

func newQueue(ch channel, exchangeName, queueName string, workerCount int, store jobs.JobStore) (*Queue, error) {
	if workerCount < 1 {
		workerCount = 1
	}
	q := &Queue{
		ch:           ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		store:        store,
		workerCount:  workerCount,
	}
	if err := q.setup(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) setup() error {
	if err := q.ch.ExchangeDeclare(
		q.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := q.ch.QueueDeclare(
		q.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name on the direct exchange.
	if err := q.ch.QueueBind(q.queueName, q.queueName, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishMessage implements jobs.Publisher.
func (q *Queue) PublishMessage(ctx context.Context, job *jobs.MessageJob) error {
	jobs.Prepare(job, uuid.NewString, time.Now())

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("PublishMessage: marshal job: %w", err)
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishMessage: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = q.ch.PublishWithContext(
		ctx,
		q.exchangeName, // exchange
		q.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    job.JobID,
			Timestamp:    job.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("PublishMessage: publish %s: %w", job.JobID, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("job_id", job.JobID).
		Str("exchange", q.exchangeName).
		Str("queue", q.queueName).
		Msg("Published message job")
	return nil
}

// Start implements jobs.Consumer. It limits unacknowledged deliveries to the
// worker count and returns once the workers are running.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if err := q.ch.Qos(q.workerCount, 0, false); err != nil {
		return fmt.Errorf("Start: set prefetch: %w", err)
	}

	deliveries, err := q.ch.Consume(
		q.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("Start: start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()

	log := logger.FromContext(ctx)
	log.Info().Str("queue", q.queueName).Int("workers", q.workerCount).Msg("Started consuming message jobs")

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, deliveries, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, deliveries <-chan amqp091.Delivery, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			q.handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery runs one delivery. Undecodable bodies and failed jobs are
// rejected without requeue; retryable jobs are republished before the ack.
func (q *Queue) handleDelivery(ctx context.Context, d amqp091.Delivery, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	job, err := DecodeJob(d.Body)
	if err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("Failed to decode message job")
		_ = d.Nack(false, false)
		return
	}

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	herr := handler(ctx, job)
	retry := jobs.Finish(job, herr, time.Now())
	q.save(ctx, job)

	switch {
	case herr == nil:
		_ = d.Ack(false)
	case retry:
		log.Warn().Err(herr).Str("job_id", job.JobID).Int("retry", job.RetryCount).Msg("Message job failed, republishing")
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		if err := q.PublishMessage(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to republish message job")
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	default:
		log.Error().Err(herr).Str("job_id", job.JobID).Msg("Message job failed")
		_ = d.Nack(false, false)
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.MessageJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements jobs.Consumer.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}

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

// Close implements jobs.Publisher. It closes the channel and connection.
func (q *Queue) Close() error {
	_ = q.Stop(context.Background())

	var errs []error
	if q.ch != nil {
		errs = append(errs, q.ch.Close())
	}
	if q.conn != nil {
		errs = append(errs, q.conn.Close())
	}
	return errors.Join(errs...)
}

// DecodeJob parses a delivery body into a message job.
func DecodeJob(body []byte) (*jobs.MessageJob, error) {
	var job jobs.MessageJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("DecodeJob: %w", err)
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("DecodeJob: missing job_id")
	}
	return &job, nil
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
