package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	"github.com/corvusHold/certmail/internal/metrics"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// Ensure Router implements domain.Sender
var _ edomain.Sender = (*Router)(nil)

// Router validates a message and hands it to the transport selected for the account.
type Router struct {
	cfg        config.Config
	settings   sdomain.Service
	transports map[string]edomain.Sender
}

func NewRouter(settings sdomain.Service, cfg config.Config) *Router {
	return &Router{cfg: cfg, settings: settings, transports: map[string]edomain.Sender{
		"ses":    NewSES(settings, cfg),
		"smtp":   NewSMTP(settings, cfg),
		"brevo":  NewBrevo(settings, cfg),
		"resend": NewResend(settings, cfg),
	}}
}

// Provider returns the transport name configured for accountID.
func (r *Router) Provider(ctx context.Context, accountID uuid.UUID) string {
	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, &accountID, r.cfg.EmailProvider)
	return strings.ToLower(prov)
}

func (r *Router) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	prov := r.Provider(ctx, accountID)
	if err := edomain.Validate(msg); err != nil {
		metrics.IncMessage(prov, "invalid")
		return "", err
	}
	t, ok := r.transports[prov]
	if !ok {
		metrics.IncMessage(prov, "failed")
		return "", fmt.Errorf("unknown email provider %q: %w", prov, edomain.ErrNotConfigured)
	}
	if r.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SendTimeout)
		defer cancel()
	}
	start := time.Now()
	id, err := t.Send(ctx, accountID, msg)
	metrics.ObserveSend(prov, time.Since(start))
	if err != nil {
		metrics.IncMessage(prov, "failed")
		return "", err
	}
	metrics.IncMessage(prov, "sent")
	return id, nil
}
