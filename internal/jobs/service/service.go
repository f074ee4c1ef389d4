package service

import (
	"context"
	"math"

	"github.com/google/uuid"

	domain "github.com/corvusHold/certmail/internal/jobs/domain"
)

type service struct {
	repo domain.Repository
}

func New(repo domain.Repository) domain.Service {
	return &service{repo: repo}
}

func (s *service) CreateJob(ctx context.Context, accountID uuid.UUID, count int) (domain.Job, error) {
	if count < 1 {
		return domain.Job{}, domain.ErrInvalidCount
	}
	return s.repo.CreateJob(ctx, uuid.New(), accountID, count)
}

func (s *service) RecordMessage(ctx context.Context, rec domain.MessageRecord) error {
	return s.repo.RecordMessage(ctx, rec)
}

func (s *service) FinalizeJob(ctx context.Context, jobID uuid.UUID, ok, fail int) error {
	return s.repo.FinalizeJob(ctx, jobID, ok, fail)
}

func (s *service) ListJobs(ctx context.Context, accountID uuid.UUID, opts domain.ListOptions) (domain.ListResult, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	// OFFSET is an int4; past the last addressable page the result is empty anyway.
	if maxPage := math.MaxInt32/opts.PageSize + 1; opts.Page > maxPage {
		opts.Page = maxPage
	}
	limit := int32(opts.PageSize)
	offset := int32((opts.Page - 1) * opts.PageSize)

	items, total, err := s.repo.List(ctx, accountID, limit, offset)
	if err != nil {
		return domain.ListResult{}, err
	}
	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize != 0 {
		totalPages++
	}
	return domain.ListResult{
		Items:      items,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *service) GetJob(ctx context.Context, accountID, jobID uuid.UUID) (domain.JobDetail, error) {
	j, err := s.repo.GetJob(ctx, accountID, jobID)
	if err != nil {
		return domain.JobDetail{}, err
	}
	msgs, err := s.repo.ListMessages(ctx, jobID)
	if err != nil {
		return domain.JobDetail{}, err
	}
	return domain.JobDetail{Job: j, Messages: msgs}, nil
}

func (s *service) Reconcile(ctx context.Context, accountID, jobID uuid.UUID) (domain.Reconciliation, error) {
	j, err := s.repo.GetJob(ctx, accountID, jobID)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	recorded, recordedOK, err := s.repo.Summarize(ctx, jobID)
	if err != nil {
		return domain.Reconciliation{}, err
	}
	r := domain.Reconciliation{
		JobID:            j.ID,
		NoOfEmails:       j.NoOfEmails,
		SuccessfulEmails: j.SuccessfulEmails,
		FailedEmails:     j.FailedEmails,
		Recorded:         recorded,
		RecordedOK:       recordedOK,
		RecordedFail:     recorded - recordedOK,
		Unrecorded:       j.NoOfEmails - recorded,
		Finalized:        j.FinalizedAt != nil,
	}
	if r.Unrecorded < 0 {
		r.Unrecorded = 0
	}
	if r.Finalized {
		r.Drift = j.SuccessfulEmails != recordedOK || j.FailedEmails < r.RecordedFail
	}
	return r, nil
}
