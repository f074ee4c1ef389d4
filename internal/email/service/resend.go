package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// Ensure Resend implements domain.Sender
var _ edomain.Sender = (*Resend)(nil)

type Resend struct {
	cfg      config.Config
	settings sdomain.Service
	http     *http.Client
}

func NewResend(settings sdomain.Service, cfg config.Config) *Resend {
	return &Resend{settings: settings, cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}}
}

func (r *Resend) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	apiKey, _ := r.settings.GetString(ctx, sdomain.KeyResendAPIKey, &accountID, r.cfg.ResendAPIKey)
	if apiKey == "" {
		return "", fmt.Errorf("resend: %w", edomain.ErrNotConfigured)
	}
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if a := msg.Attachment; a != nil {
		raw, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return "", fmt.Errorf("decode attachment: %w", err)
		}
		params.Attachments = []*resend.Attachment{{Filename: edomain.SanitizeFilename(a.Name), Content: raw}}
	}
	client := resend.NewCustomClient(r.http, apiKey)
	sent, err := client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}
