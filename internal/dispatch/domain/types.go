package domain

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("invalid batch request")
	ErrSenderNotVerified = errors.New("From email not verified")
	ErrSenderNotOwned    = errors.New("From email does not belong to the user")
)

// ValidationError carries the user-facing reason a batch was rejected
// before any quota was charged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Recipient is one entry of a batch. Index binds an uploaded file by position.
type Recipient struct {
	Index int
	Email string
}

// File is an uploaded attachment. Open is called at most once, while the
// recipient it belongs to is being sent.
type File struct {
	Index int
	Name  string
	Size  int64
	Open  func() (io.ReadCloser, error)
}

type BatchRequest struct {
	From       string
	Subject    string
	Body       string
	Recipients []Recipient
	Files      []File
}

// RecipientResult is the outcome for one entry. Email is the trimmed
// address, empty for blank entries.
type RecipientResult struct {
	Email string
	OK    bool
}

type BatchResult struct {
	JobID     uuid.UUID
	Results   []RecipientResult
	TotalOK   int
	TotalFail int
}

// Dispatcher runs a batch to completion once it passes the pre-send gates.
type Dispatcher interface {
	Dispatch(ctx context.Context, accountID uuid.UUID, req BatchRequest) (BatchResult, error)
}
