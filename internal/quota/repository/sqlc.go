package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	db "github.com/corvusHold/certmail/internal/db/sqlc"
	jdomain "github.com/corvusHold/certmail/internal/jobs/domain"
	jrepo "github.com/corvusHold/certmail/internal/jobs/repository"
	domain "github.com/corvusHold/certmail/internal/quota/domain"
)

// Pool is the subset of pgxpool.Pool the ledger needs.
type Pool interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type SQLCRepository struct {
	pool Pool
	q    *db.Queries
	log  zerolog.Logger
}

func New(pool Pool) *SQLCRepository {
	return &SQLCRepository{pool: pool, q: db.New(pool), log: zerolog.Nop()}
}

func (r *SQLCRepository) SetLogger(l zerolog.Logger) { r.log = l }

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func (r *SQLCRepository) Reserve(ctx context.Context, accountID uuid.UUID, count int) (domain.Reservation, error) {
	return reserve(ctx, r.q, accountID, count)
}

// reserve runs the conditional increment; when no row comes back it reads
// the balance to tell an unknown account from an exhausted one.
func reserve(ctx context.Context, q *db.Queries, accountID uuid.UUID, count int) (domain.Reservation, error) {
	row, err := q.ReserveQuota(ctx, db.ReserveQuotaParams{Count: int32(count), ID: toPgUUID(accountID)})
	if err == nil {
		return domain.Reservation{
			AccountID:    accountID,
			Count:        count,
			MonthlyLimit: int(row.MonthlyLimit),
			UsedLimit:    int(row.UsedLimit),
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("reserve quota: %w", err)
	}
	if _, err := q.GetQuotaBalance(ctx, toPgUUID(accountID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrAccountNotFound
		}
		return domain.Reservation{}, fmt.Errorf("read quota balance: %w", err)
	}
	return domain.Reservation{}, domain.ErrInsufficientQuota
}

func (r *SQLCRepository) Balance(ctx context.Context, accountID uuid.UUID) (domain.Balance, error) {
	row, err := r.q.GetQuotaBalance(ctx, toPgUUID(accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Balance{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{AccountID: accountID, MonthlyLimit: int(row.MonthlyLimit), UsedLimit: int(row.UsedLimit)}, nil
}

func (r *SQLCRepository) ReserveAndOpenJob(ctx context.Context, accountID, jobID uuid.UUID, count int) (domain.Reservation, jdomain.Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Reservation{}, jdomain.Job{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	// ErrTxClosed is expected after a successful Commit.
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.log.Warn().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	queries := r.q.WithTx(tx)
	res, err := reserve(ctx, queries, accountID, count)
	if err != nil {
		return domain.Reservation{}, jdomain.Job{}, err
	}
	job, err := jrepo.NewFromQueries(queries).CreateJob(ctx, jobID, accountID, count)
	if err != nil {
		return domain.Reservation{}, jdomain.Job{}, fmt.Errorf("open job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, jdomain.Job{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, job, nil
}
