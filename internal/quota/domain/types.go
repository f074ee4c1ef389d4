package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"

	jdomain "github.com/corvusHold/certmail/internal/jobs/domain"
)

var (
	ErrInvalidCount      = errors.New("reservation count must be at least 1")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientQuota = errors.New("insufficient quota")
)

// Balance is a read-only view of an account's monthly ledger.
type Balance struct {
	AccountID    uuid.UUID
	MonthlyLimit int
	UsedLimit    int
}

// Remaining never goes below zero.
func (b Balance) Remaining() int {
	if r := b.MonthlyLimit - b.UsedLimit; r > 0 {
		return r
	}
	return 0
}

// Reservation is the ledger state right after a successful charge.
type Reservation struct {
	AccountID    uuid.UUID
	Count        int
	MonthlyLimit int
	UsedLimit    int
}

// Repository charges quota with a single conditional update.
type Repository interface {
	// Reserve returns ErrInsufficientQuota or ErrAccountNotFound and leaves
	// the ledger unchanged when the charge cannot be applied.
	Reserve(ctx context.Context, accountID uuid.UUID, count int) (Reservation, error)
	Balance(ctx context.Context, accountID uuid.UUID) (Balance, error)
	// ReserveAndOpenJob charges quota and creates the audit Job in one
	// transaction; on any error neither is persisted.
	ReserveAndOpenJob(ctx context.Context, accountID, jobID uuid.UUID, count int) (Reservation, jdomain.Job, error)
}

// Service is the quota ledger.
type Service interface {
	Reserve(ctx context.Context, accountID uuid.UUID, count int) (Reservation, error)
	Remaining(ctx context.Context, accountID uuid.UUID) (Balance, error)
	ReserveAndOpenJob(ctx context.Context, accountID uuid.UUID, count int) (Reservation, jdomain.Job, error)
}
