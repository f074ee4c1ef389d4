package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/corvusHold/certmail/internal/db/sqlc"
	domain "github.com/corvusHold/certmail/internal/jobs/domain"
)

type SQLCRepository struct {
	q *db.Queries
}

func New(pg db.DBTX) *SQLCRepository {
	return &SQLCRepository{q: db.New(pg)}
}

// NewFromQueries binds the repository to q, e.g. a transaction-scoped Queries.
func NewFromQueries(q *db.Queries) *SQLCRepository {
	return &SQLCRepository{q: q}
}

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// ToJob converts a generated row into the domain type.
func ToJob(j db.Job) domain.Job {
	out := domain.Job{
		ID:               uuid.UUID(j.ID.Bytes),
		AccountID:        uuid.UUID(j.AccountID.Bytes),
		NoOfEmails:       int(j.NoOfEmails),
		SuccessfulEmails: int(j.SuccessfulEmails),
		FailedEmails:     int(j.FailedEmails),
		CreatedAt:        j.CreatedAt.Time,
	}
	if j.FinalizedAt.Valid {
		t := j.FinalizedAt.Time
		out.FinalizedAt = &t
	}
	return out
}

func toMessage(m db.SentMessage) domain.SentMessage {
	return domain.SentMessage{
		ID:                uuid.UUID(m.ID.Bytes),
		JobID:             uuid.UUID(m.JobID.Bytes),
		Position:          int(m.Position),
		Recipient:         m.Recipient,
		Subject:           m.Subject,
		Body:              m.Body,
		Sent:              m.Sent,
		ProviderMessageID: m.ProviderMessageID.String,
		FailureReason:     m.FailureReason.String,
		CreatedAt:         m.CreatedAt.Time,
	}
}

func (r *SQLCRepository) CreateJob(ctx context.Context, id, accountID uuid.UUID, count int) (domain.Job, error) {
	j, err := r.q.CreateJob(ctx, db.CreateJobParams{
		ID:         toPgUUID(id),
		AccountID:  toPgUUID(accountID),
		NoOfEmails: int32(count),
	})
	if err != nil {
		return domain.Job{}, err
	}
	return ToJob(j), nil
}

func (r *SQLCRepository) RecordMessage(ctx context.Context, rec domain.MessageRecord) error {
	return r.q.CreateSentMessage(ctx, db.CreateSentMessageParams{
		ID:                toPgUUID(uuid.New()),
		JobID:             toPgUUID(rec.JobID),
		Position:          int32(rec.Position),
		Recipient:         rec.Recipient,
		Subject:           rec.Subject,
		Body:              rec.Body,
		Sent:              rec.Sent,
		ProviderMessageID: toPgText(rec.ProviderMessageID),
		FailureReason:     toPgText(rec.FailureReason),
	})
}

func (r *SQLCRepository) FinalizeJob(ctx context.Context, jobID uuid.UUID, ok, fail int) error {
	n, err := r.q.FinalizeJob(ctx, db.FinalizeJobParams{
		ID:               toPgUUID(jobID),
		SuccessfulEmails: int32(ok),
		FailedEmails:     int32(fail),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *SQLCRepository) GetJob(ctx context.Context, accountID, jobID uuid.UUID) (domain.Job, error) {
	j, err := r.q.GetJobForAccount(ctx, db.GetJobForAccountParams{ID: toPgUUID(jobID), AccountID: toPgUUID(accountID)})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, err
	}
	return ToJob(j), nil
}

func (r *SQLCRepository) ListMessages(ctx context.Context, jobID uuid.UUID) ([]domain.SentMessage, error) {
	rows, err := r.q.ListSentMessagesByJob(ctx, toPgUUID(jobID))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SentMessage, len(rows))
	for i, row := range rows {
		out[i] = toMessage(row)
	}
	return out, nil
}

func (r *SQLCRepository) Summarize(ctx context.Context, jobID uuid.UUID) (int, int, error) {
	row, err := r.q.SummarizeSentMessagesByJob(ctx, toPgUUID(jobID))
	if err != nil {
		return 0, 0, err
	}
	return int(row.Recorded), int(row.RecordedOk), nil
}

func (r *SQLCRepository) List(ctx context.Context, accountID uuid.UUID, limit, offset int32) ([]domain.Job, int64, error) {
	rows, err := r.q.ListJobsByAccount(ctx, db.ListJobsByAccountParams{AccountID: toPgUUID(accountID), Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := r.q.CountJobsByAccount(ctx, toPgUUID(accountID))
	if err != nil {
		return nil, 0, err
	}
	items := make([]domain.Job, len(rows))
	for i, row := range rows {
		items[i] = ToJob(row)
	}
	return items, total, nil
}
