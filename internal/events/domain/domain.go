package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the mail workflow.
const (
	TypeBatchCompleted  = "mail.batch.completed"
	TypeQuotaRejected   = "mail.quota.rejected"
	TypeSenderAdded     = "mail.sender.added"
	TypeSenderVerified  = "mail.sender.verified"
	TypeSettingsUpdated = "settings.update.success"
)

// Event represents an account-scoped audit event.
// Meta carries flat details such as job_id, total_ok or changed keys; never secrets.
type Event struct {
	Type      string
	AccountID uuid.UUID
	Meta      map[string]string
	Time      time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
