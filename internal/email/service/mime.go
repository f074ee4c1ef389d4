package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
	jemail "github.com/jordan-wright/email"

	edomain "github.com/corvusHold/certmail/internal/email/domain"
)

// buildMIME renders msg as a MIME email with a fresh Message-Id, which it also returns.
func buildMIME(msg edomain.Message) (*jemail.Email, string, error) {
	e := jemail.NewEmail()
	e.From = msg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	id := fmt.Sprintf("<%s@certmail>", uuid.NewString())
	e.Headers.Set("Message-Id", id)

	if a := msg.Attachment; a != nil {
		raw, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, "", fmt.Errorf("decode attachment: %w", err)
		}
		name := edomain.SanitizeFilename(a.Name)
		if _, err := e.Attach(bytes.NewReader(raw), name, contentType(name)); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", name, err)
		}
	}
	return e, id, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
