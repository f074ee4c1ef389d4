package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/google/uuid"
	jemail "github.com/jordan-wright/email"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// Ensure SMTP implements domain.Sender
var _ edomain.Sender = (*SMTP)(nil)

type SMTP struct {
	cfg      config.Config
	settings sdomain.Service
	deliver  func(e *jemail.Email, addr string, auth smtp.Auth) error
}

func NewSMTP(settings sdomain.Service, cfg config.Config) *SMTP {
	return &SMTP{
		settings: settings,
		cfg:      cfg,
		deliver:  func(e *jemail.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (s *SMTP) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	host, _ := s.settings.GetString(ctx, sdomain.KeySMTPHost, &accountID, s.cfg.SMTPHost)
	username, _ := s.settings.GetString(ctx, sdomain.KeySMTPUsername, &accountID, s.cfg.SMTPUsername)
	password, _ := s.settings.GetString(ctx, sdomain.KeySMTPPassword, &accountID, s.cfg.SMTPPassword)
	portStr, _ := s.settings.GetString(ctx, sdomain.KeySMTPPort, &accountID, strconv.Itoa(s.cfg.SMTPPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = s.cfg.SMTPPort
	}
	if host == "" {
		return "", fmt.Errorf("smtp: %w", edomain.ErrNotConfigured)
	}

	e, id, err := buildMIME(msg)
	if err != nil {
		return "", err
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	if err := s.deliver(e, fmt.Sprintf("%s:%d", host, port), auth); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	return id, nil
}
