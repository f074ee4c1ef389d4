package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	jdomain "github.com/corvusHold/certmail/internal/jobs/domain"
	"github.com/corvusHold/certmail/internal/metrics"
	domain "github.com/corvusHold/certmail/internal/quota/domain"
)

type Service struct {
	repo domain.Repository
	log  zerolog.Logger
}

func New(repo domain.Repository) *Service {
	return &Service{repo: repo, log: zerolog.Nop()}
}

func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// Reserve charges count units. There is no compensating release: units
// stay charged whatever happens to the messages they cover.
func (s *Service) Reserve(ctx context.Context, accountID uuid.UUID, count int) (domain.Reservation, error) {
	if count < 1 {
		return domain.Reservation{}, domain.ErrInvalidCount
	}
	res, err := s.repo.Reserve(ctx, accountID, count)
	if err != nil {
		return domain.Reservation{}, err
	}
	metrics.AddQuotaReserved(count)
	s.log.Debug().Str("account_id", accountID.String()).Int("count", count).Int("used", res.UsedLimit).Msg("quota reserved")
	return res, nil
}

func (s *Service) Remaining(ctx context.Context, accountID uuid.UUID) (domain.Balance, error) {
	return s.repo.Balance(ctx, accountID)
}

// ReserveAndOpenJob charges count units and opens the audit Job atomically.
func (s *Service) ReserveAndOpenJob(ctx context.Context, accountID uuid.UUID, count int) (domain.Reservation, jdomain.Job, error) {
	if count < 1 {
		return domain.Reservation{}, jdomain.Job{}, domain.ErrInvalidCount
	}
	res, job, err := s.repo.ReserveAndOpenJob(ctx, accountID, uuid.New(), count)
	if err != nil {
		return domain.Reservation{}, jdomain.Job{}, err
	}
	metrics.AddQuotaReserved(count)
	s.log.Debug().Str("account_id", accountID.String()).Str("job_id", job.ID.String()).Int("count", count).Msg("quota reserved and job opened")
	return res, job, nil
}
