package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/corvusHold/certmail/internal/accounts/domain"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	evsvc "github.com/corvusHold/certmail/internal/events/service"
)

type Service struct {
	repo         domain.Repository
	verifier     edomain.Verifier
	defaultLimit int
	pub          evdomain.Publisher
	log          zerolog.Logger
}

var _ domain.Service = (*Service)(nil)

func New(repo domain.Repository, verifier edomain.Verifier, defaultMonthlyLimit int) *Service {
	return &Service{repo: repo, verifier: verifier, defaultLimit: defaultMonthlyLimit, pub: evsvc.NewLogger(), log: zerolog.Nop()}
}

// SetPublisher allows tests or callers to override the event publisher.
func (s *Service) SetPublisher(p evdomain.Publisher) { s.pub = p }

// SetLogger allows injection of a structured logger.
func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Service) Signup(ctx context.Context, email, name string) (domain.Account, error) {
	email = normalize(email)
	if !edomain.ValidAddress(email) {
		return domain.Account{}, domain.ErrInvalidEmail
	}
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return domain.Account{}, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Account{}, err
	}
	acct, err := s.repo.CreateAccount(ctx, uuid.New(), email, strings.TrimSpace(name), s.defaultLimit)
	if err != nil {
		return domain.Account{}, err
	}
	s.log.Info().Str("account_id", acct.ID.String()).Int("monthly_limit", acct.MonthlyLimit).Msg("account:created")
	return acct, nil
}

func (s *Service) ResolveByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.repo.GetAccountByEmail(ctx, normalize(email))
}

func (s *Service) Profile(ctx context.Context, email string) (domain.Profile, error) {
	acct, err := s.ResolveByEmail(ctx, email)
	if err != nil {
		return domain.Profile{}, err
	}
	senders, err := s.repo.ListSenders(ctx, acct.ID)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{Account: acct, Senders: senders}, nil
}

// AddSender registers email as a sender identity for accountID and asks the
// verifier to start its flow. The first identity takes SlotFirst and becomes primary.
// If the verification request fails the identity is kept and ErrVerificationRequest returned.
func (s *Service) AddSender(ctx context.Context, accountID uuid.UUID, email string) (domain.SenderIdentity, error) {
	email = normalize(email)
	if !edomain.ValidAddress(email) {
		return domain.SenderIdentity{}, domain.ErrInvalidEmail
	}
	if _, err := s.repo.GetSenderByEmail(ctx, email); err == nil {
		return domain.SenderIdentity{}, domain.ErrSenderExists
	} else if !errors.Is(err, domain.ErrSenderNotFound) {
		return domain.SenderIdentity{}, err
	}
	existing, err := s.repo.ListSenders(ctx, accountID)
	if err != nil {
		return domain.SenderIdentity{}, err
	}
	if len(existing) >= domain.MaxSenders {
		return domain.SenderIdentity{}, domain.ErrSenderLimit
	}
	slot := domain.SlotFirst
	for _, e := range existing {
		if e.Slot == domain.SlotFirst {
			slot = domain.SlotSecond
		}
	}
	created, err := s.repo.CreateSender(ctx, domain.SenderIdentity{
		ID:        uuid.New(),
		AccountID: accountID,
		Email:     email,
		Slot:      slot,
		IsPrimary: len(existing) == 0,
	})
	if err != nil {
		return domain.SenderIdentity{}, err
	}
	s.log.Info().Str("account_id", accountID.String()).Str("slot", string(slot)).Msg("sender:added")
	_ = s.pub.Publish(ctx, evdomain.Event{
		Type:      evdomain.TypeSenderAdded,
		AccountID: accountID,
		Meta:      map[string]string{"email": email, "slot": string(slot)},
		Time:      time.Now(),
	})

	if err := s.verifier.RequestVerification(ctx, email); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID.String()).Str("email", email).Msg("sender:verification_request_failed")
		return created, fmt.Errorf("%w: %v", domain.ErrVerificationRequest, err)
	}
	return created, nil
}

// CheckSender asks the verifier whether email finished verification and, if so, marks it verified.
func (s *Service) CheckSender(ctx context.Context, accountID uuid.UUID, email string) (domain.SenderIdentity, error) {
	sender, err := s.repo.GetSenderByEmail(ctx, normalize(email))
	if err != nil {
		return domain.SenderIdentity{}, err
	}
	if sender.AccountID != accountID {
		return domain.SenderIdentity{}, domain.ErrSenderNotOwned
	}
	if sender.IsVerified {
		return sender, domain.ErrAlreadyVerified
	}
	status, err := s.verifier.Status(ctx, sender.Email)
	if err != nil {
		return domain.SenderIdentity{}, fmt.Errorf("verification status: %w", err)
	}
	if status != edomain.StatusVerified {
		s.log.Debug().Str("email", sender.Email).Str("status", string(status)).Msg("sender:not_verified")
		return sender, domain.ErrNotYetVerified
	}
	if err := s.repo.MarkSenderVerified(ctx, sender.ID); err != nil {
		return domain.SenderIdentity{}, err
	}
	sender.IsVerified = true
	_ = s.pub.Publish(ctx, evdomain.Event{
		Type:      evdomain.TypeSenderVerified,
		AccountID: accountID,
		Meta:      map[string]string{"email": sender.Email},
		Time:      time.Now(),
	})
	return sender, nil
}

// SenderForDispatch returns the identity registered for email, whoever owns it.
func (s *Service) SenderForDispatch(ctx context.Context, email string) (domain.SenderIdentity, error) {
	return s.repo.GetSenderByEmail(ctx, normalize(email))
}
