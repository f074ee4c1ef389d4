package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	domain "github.com/corvusHold/certmail/internal/accounts/domain"
	db "github.com/corvusHold/certmail/internal/db/sqlc"
)

type SQLCRepository struct {
	q *db.Queries
}

func New(pg db.DBTX) *SQLCRepository {
	return &SQLCRepository{q: db.New(pg)}
}

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func toAccount(a db.Account) domain.Account {
	return domain.Account{
		ID:           uuid.UUID(a.ID.Bytes),
		Email:        a.Email,
		Name:         a.Name,
		MonthlyLimit: int(a.MonthlyLimit),
		UsedLimit:    int(a.UsedLimit),
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt.Time,
	}
}

func toSender(s db.SenderIdentity) domain.SenderIdentity {
	return domain.SenderIdentity{
		ID:         uuid.UUID(s.ID.Bytes),
		AccountID:  uuid.UUID(s.AccountID.Bytes),
		Email:      s.Email,
		Slot:       domain.Slot(s.Slot),
		IsPrimary:  s.IsPrimary,
		IsVerified: s.IsVerified,
		CreatedAt:  s.CreatedAt.Time,
	}
}

func accountErr(a db.Account, err error) (domain.Account, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return toAccount(a), nil
}

func (r *SQLCRepository) CreateAccount(ctx context.Context, id uuid.UUID, email, name string, monthlyLimit int) (domain.Account, error) {
	a, err := r.q.CreateAccount(ctx, db.CreateAccountParams{
		ID:           toPgUUID(id),
		Email:        email,
		Name:         name,
		MonthlyLimit: int32(monthlyLimit),
	})
	if isUniqueViolation(err) {
		return domain.Account{}, domain.ErrAccountExists
	}
	if err != nil {
		return domain.Account{}, err
	}
	return toAccount(a), nil
}

func (r *SQLCRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return accountErr(r.q.GetAccountByID(ctx, toPgUUID(id)))
}

func (r *SQLCRepository) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return accountErr(r.q.GetAccountByEmail(ctx, email))
}

func (r *SQLCRepository) CreateSender(ctx context.Context, s domain.SenderIdentity) (domain.SenderIdentity, error) {
	row, err := r.q.CreateSenderIdentity(ctx, db.CreateSenderIdentityParams{
		ID:        toPgUUID(s.ID),
		AccountID: toPgUUID(s.AccountID),
		Email:     s.Email,
		Slot:      string(s.Slot),
		IsPrimary: s.IsPrimary,
	})
	if isUniqueViolation(err) {
		return domain.SenderIdentity{}, domain.ErrSenderExists
	}
	if err != nil {
		return domain.SenderIdentity{}, err
	}
	return toSender(row), nil
}

func (r *SQLCRepository) GetSenderByEmail(ctx context.Context, email string) (domain.SenderIdentity, error) {
	row, err := r.q.GetSenderIdentityByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SenderIdentity{}, domain.ErrSenderNotFound
	}
	if err != nil {
		return domain.SenderIdentity{}, err
	}
	return toSender(row), nil
}

func (r *SQLCRepository) ListSenders(ctx context.Context, accountID uuid.UUID) ([]domain.SenderIdentity, error) {
	rows, err := r.q.ListSenderIdentitiesByAccount(ctx, toPgUUID(accountID))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SenderIdentity, len(rows))
	for i, row := range rows {
		out[i] = toSender(row)
	}
	return out, nil
}

func (r *SQLCRepository) MarkSenderVerified(ctx context.Context, id uuid.UUID) error {
	return r.q.MarkSenderIdentityVerified(ctx, toPgUUID(id))
}
