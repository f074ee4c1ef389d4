package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrInvalidCount = errors.New("job must cover at least one message")
)

// Job is the audit record of one batch dispatch.
type Job struct {
	ID               uuid.UUID
	AccountID        uuid.UUID
	NoOfEmails       int
	SuccessfulEmails int
	FailedEmails     int
	CreatedAt        time.Time
	FinalizedAt      *time.Time
}

// SentMessage is the durable outcome of one send attempt.
type SentMessage struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	Position          int
	Recipient         string
	Subject           string
	Body              string
	Sent              bool
	ProviderMessageID string
	FailureReason     string
	CreatedAt         time.Time
}

// MessageRecord is what the dispatcher reports after each attempt.
type MessageRecord struct {
	JobID             uuid.UUID
	Position          int
	Recipient         string
	Subject           string
	Body              string
	Sent              bool
	ProviderMessageID string
	FailureReason     string
}

// JobDetail is a job with its recorded messages in batch order.
type JobDetail struct {
	Job      Job
	Messages []SentMessage
}

// Reconciliation compares a job's counters with its recorded messages.
type Reconciliation struct {
	JobID            uuid.UUID
	NoOfEmails       int
	SuccessfulEmails int
	FailedEmails     int
	Recorded         int
	RecordedOK       int
	RecordedFail     int
	// Unrecorded counts attempts with no Sent Message row: blank recipients
	// and best-effort writes that failed.
	Unrecorded int
	// Finalized is true once the job's closing counters were written.
	Finalized bool
	// Drift is true when a finalized job claims more successes than were
	// recorded, or fewer failures than the recorded failed rows.
	Drift bool
}

type ListOptions struct {
	Page     int
	PageSize int
}

type ListResult struct {
	Items      []Job
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Repository abstracts persistence for jobs and sent messages.
type Repository interface {
	CreateJob(ctx context.Context, id, accountID uuid.UUID, count int) (Job, error)
	RecordMessage(ctx context.Context, rec MessageRecord) error
	// FinalizeJob returns ErrJobNotFound when no job has jobID.
	FinalizeJob(ctx context.Context, jobID uuid.UUID, ok, fail int) error
	// GetJob returns ErrJobNotFound when the job is missing or owned by another account.
	GetJob(ctx context.Context, accountID, jobID uuid.UUID) (Job, error)
	ListMessages(ctx context.Context, jobID uuid.UUID) ([]SentMessage, error)
	Summarize(ctx context.Context, jobID uuid.UUID) (recorded, recordedOK int, err error)
	List(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]Job, int64, error)
}

// Service is the job ledger.
type Service interface {
	CreateJob(ctx context.Context, accountID uuid.UUID, count int) (Job, error)
	RecordMessage(ctx context.Context, rec MessageRecord) error
	FinalizeJob(ctx context.Context, jobID uuid.UUID, ok, fail int) error
	ListJobs(ctx context.Context, accountID uuid.UUID, opts ListOptions) (ListResult, error)
	GetJob(ctx context.Context, accountID, jobID uuid.UUID) (JobDetail, error)
	Reconcile(ctx context.Context, accountID, jobID uuid.UUID) (Reconciliation, error)
}
