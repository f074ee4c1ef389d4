package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

type mockSettings struct{ vals map[string]string }

func (m mockSettings) GetString(ctx context.Context, key string, accountID *uuid.UUID, def string) (string, error) {
	if v, ok := m.vals[key]; ok {
		return v, nil
	}
	return def, nil
}
func (m mockSettings) GetDuration(ctx context.Context, key string, accountID *uuid.UUID, def time.Duration) (time.Duration, error) {
	return def, nil
}
func (m mockSettings) GetInt(ctx context.Context, key string, accountID *uuid.UUID, def int) (int, error) {
	return def, nil
}

var _ sdomain.Service = (*mockSettings)(nil)

type captureSender struct {
	called  bool
	last    edomain.Message
	account uuid.UUID
	id      string
	err     error
}

func (c *captureSender) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	c.called = true
	c.last = msg
	c.account = accountID
	return c.id, c.err
}

func testConfig() config.Config {
	return config.Config{
		EmailProvider: "smtp",
		SMTPHost:      "localhost",
		SMTPPort:      1025,
		BrevoBaseURL:  "https://api.brevo.com",
		AWSRegion:     "ap-south-1",
		SendTimeout:   5 * time.Second,
	}
}

func message() edomain.Message {
	return edomain.Message{
		From:    "certs@example.com",
		To:      "jane@example.org",
		Subject: "Your certificate",
		HTML:    "<p>Congratulations</p>",
		Attachment: &edomain.Attachment{
			Name:    "jane doe.png",
			Content: "aGVsbG8=",
		},
	}
}
