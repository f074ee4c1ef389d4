package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// MaxAttachmentBytes is the largest decoded attachment a Message may carry.
const MaxAttachmentBytes = 5 * 1024 * 1024

// ErrNotConfigured is returned when the selected transport lacks credentials.
var ErrNotConfigured = errors.New("email transport not configured")

// Attachment is a single named file. Content is standard base64.
type Attachment struct {
	Name    string
	Content string
}

// Message is one outbound email with an HTML body.
type Message struct {
	From       string
	To         string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Sender delivers a single Message and returns the provider's message id.
// accountID selects per-account transport settings; use uuid.Nil for global.
// Senders perform exactly one transport call and never retry.
type Sender interface {
	Send(ctx context.Context, accountID uuid.UUID, msg Message) (string, error)
}

// VerificationStatus is the provider-side state of a sender address.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "Verified"
	StatusPending  VerificationStatus = "Pending"
	StatusNotFound VerificationStatus = "NotFound"
)

// Verifier proves a sender controls an address.
type Verifier interface {
	// RequestVerification starts the provider's verification flow for email.
	RequestVerification(ctx context.Context, email string) error
	// Status reports where email is in that flow.
	Status(ctx context.Context, email string) (VerificationStatus, error)
}

// ValidationError collects every reason a Message was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Reasons, "; ") }
