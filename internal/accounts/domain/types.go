package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrSenderExists        = errors.New("sender email already registered")
	ErrSenderLimit         = errors.New("maximum of two sender emails reached")
	ErrSenderNotFound      = errors.New("sender email not found")
	ErrSenderNotOwned      = errors.New("sender email does not belong to the user")
	ErrAlreadyVerified     = errors.New("sender email already verified")
	ErrNotYetVerified      = errors.New("sender email not yet verified")
	ErrVerificationRequest = errors.New("verification request failed")
)

// Account is a paying customer with a monthly send quota.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	MonthlyLimit int
	UsedLimit    int
	IsActive     bool
	CreatedAt    time.Time
}

// Slot is the position a sender identity occupies on its account.
type Slot string

const (
	SlotFirst  Slot = "FIRST"
	SlotSecond Slot = "SECOND"
)

// MaxSenders is the number of sender identities an account may register.
const MaxSenders = 2

// SenderIdentity is an address an account may send from once verified.
type SenderIdentity struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Email      string
	Slot       Slot
	IsPrimary  bool
	IsVerified bool
	CreatedAt  time.Time
}

// Profile is an account together with its sender identities.
type Profile struct {
	Account Account
	Senders []SenderIdentity
}

// Remaining is the unreserved part of the monthly quota.
func (a Account) Remaining() int {
	if r := a.MonthlyLimit - a.UsedLimit; r > 0 {
		return r
	}
	return 0
}

// Repository abstracts persistence for accounts and their sender identities.
// Lookups return ErrAccountNotFound or ErrSenderNotFound when nothing matches;
// creates return ErrAccountExists or ErrSenderExists on a uniqueness conflict.
type Repository interface {
	CreateAccount(ctx context.Context, id uuid.UUID, email, name string, monthlyLimit int) (Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	CreateSender(ctx context.Context, s SenderIdentity) (SenderIdentity, error)
	GetSenderByEmail(ctx context.Context, email string) (SenderIdentity, error)
	ListSenders(ctx context.Context, accountID uuid.UUID) ([]SenderIdentity, error)
	MarkSenderVerified(ctx context.Context, id uuid.UUID) error
}

// Service encapsulates signup, profile and sender identity rules.
type Service interface {
	Signup(ctx context.Context, email, name string) (Account, error)
	Profile(ctx context.Context, email string) (Profile, error)
	ResolveByEmail(ctx context.Context, email string) (Account, error)
	AddSender(ctx context.Context, accountID uuid.UUID, email string) (SenderIdentity, error)
	CheckSender(ctx context.Context, accountID uuid.UUID, email string) (SenderIdentity, error)
	SenderForDispatch(ctx context.Context, email string) (SenderIdentity, error)
}
