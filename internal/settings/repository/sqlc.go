package repository

import (
	"context"
	"errors"

	db "github.com/corvusHold/certmail/internal/db/sqlc"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type SQLCRepository struct{ q *db.Queries }

func New(pg db.DBTX) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

func toPgUUIDPtr(u *uuid.UUID) pgtype.UUID {
	if u == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *u, Valid: true}
}

func (r *SQLCRepository) Get(ctx context.Context, key string, accountID *uuid.UUID) (string, bool, error) {
	if accountID != nil {
		row, err := r.q.GetAppSettingByKeyAccount(ctx, db.GetAppSettingByKeyAccountParams{Key: key, AccountID: toPgUUIDPtr(accountID)})
		if err == nil {
			return row.Value, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, err
		}
	}
	row, err := r.q.GetAppSettingGlobal(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *SQLCRepository) Upsert(ctx context.Context, key string, accountID *uuid.UUID, value string, secret bool) error {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	if accountID == nil {
		return r.q.UpsertGlobalAppSetting(ctx, db.UpsertGlobalAppSettingParams{
			ID:       id,
			Key:      key,
			Value:    value,
			IsSecret: secret,
		})
	}
	return r.q.UpsertAccountAppSetting(ctx, db.UpsertAccountAppSettingParams{
		ID:        id,
		AccountID: toPgUUIDPtr(accountID),
		Key:       key,
		Value:     value,
		IsSecret:  secret,
	})
}
