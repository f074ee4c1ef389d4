package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// Ensure Brevo implements domain.Sender
var _ edomain.Sender = (*Brevo)(nil)

type Brevo struct {
	cfg      config.Config
	settings sdomain.Service
	http     *http.Client
}

func NewBrevo(settings sdomain.Service, cfg config.Config) *Brevo {
	return &Brevo{settings: settings, cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}}
}

type brevoAddress struct {
	Email string `json:"email"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type brevoEmail struct {
	To          []brevoAddress    `json:"to"`
	Sender      brevoAddress      `json:"sender"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

func (b *Brevo) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	apiKey, _ := b.settings.GetString(ctx, sdomain.KeyBrevoAPIKey, &accountID, b.cfg.BrevoAPIKey)
	if apiKey == "" {
		return "", fmt.Errorf("brevo: %w", edomain.ErrNotConfigured)
	}
	payload := brevoEmail{
		To:          []brevoAddress{{Email: msg.To}},
		Sender:      brevoAddress{Email: msg.From},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	if a := msg.Attachment; a != nil {
		payload.Attachment = []brevoAttachment{{Name: edomain.SanitizeFilename(a.Name), Content: a.Content}}
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(b.cfg.BrevoBaseURL, "/") + "/v3/smtp/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)
	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("brevo send failed: %s", resp.Status)
	}
	var out brevoResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &out)
	return out.MessageID, nil
}
