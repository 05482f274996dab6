package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for unknown job IDs.
var ErrJobNotFound = errors.New("jobs: job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("jobs: queue is closed")

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// MessageJob is one incoming chat message waiting to be parsed, saved and
// answered.
type MessageJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID is the chat platform user who sent the message.
	UserID string `json:"user_id"`

	// ReplyToken answers the message. It expires shortly after the event.
	ReplyToken string `json:"reply_token,omitempty"`

	// Text is the raw message text.
	Text string `json:"text"`

	// ReceivedAt is the event timestamp reported by the platform.
	ReceivedAt time.Time `json:"received_at"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed. Reply tokens
	// expire quickly, so message jobs default to none.
	MaxRetries int `json:"max_retries"`
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishMessage publishes a message job.
	PublishMessage(ctx context.Context, job *MessageJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue and returns immediately.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed, or
// retrying when retries remain.
type JobHandler func(ctx context.Context, job *MessageJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *MessageJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*MessageJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*MessageJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by sender.
	UserID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Prepare fills in the ID, status and creation time of a new job.
func Prepare(job *MessageJob, newID func() string, now time.Time) {
	if job.JobID == "" {
		job.JobID = newID()
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
}

// Finish records the handler outcome on job and reports whether it should be
// retried.
func Finish(job *MessageJob, err error, now time.Time) (retry bool) {
	job.CompletedAt = &now
	if err == nil {
		job.Status = JobStatusCompleted
		job.Error = ""
		return false
	}

	job.Error = err.Error()
	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = JobStatusRetrying
		return true
	}
	job.Status = JobStatusFailed
	return false
}
