package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

func TestBrevo_SendsHTMLWithAttachment(t *testing.T) {
	b := NewBrevo(mockSettings{vals: map[string]string{sdomain.KeyBrevoAPIKey: "xkeysib-test"}}, testConfig())
	httpmock.ActivateNonDefault(b.http)
	defer httpmock.DeactivateAndReset()

	var got brevoEmail
	httpmock.RegisterResponder(http.MethodPost, brevoURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "xkeysib-test", req.Header.Get("api-key"))
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, "bad json"), nil
		}
		return httpmock.NewStringResponse(http.StatusCreated, `{"messageId":"<brevo-1@smtp-relay>"}`), nil
	})

	id, err := b.Send(context.Background(), uuid.New(), message())
	require.NoError(t, err)
	assert.Equal(t, "<brevo-1@smtp-relay>", id)
	assert.Equal(t, "<p>Congratulations</p>", got.HTMLContent)
	assert.Equal(t, "certs@example.com", got.Sender.Email)
	require.Len(t, got.Attachment, 1)
	assert.Equal(t, "jane_doe.png", got.Attachment[0].Name)
	assert.Equal(t, "aGVsbG8=", got.Attachment[0].Content)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestBrevo_ErrorStatus(t *testing.T) {
	b := NewBrevo(mockSettings{vals: map[string]string{sdomain.KeyBrevoAPIKey: "k"}}, testConfig())
	httpmock.ActivateNonDefault(b.http)
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, brevoURL, httpmock.NewStringResponder(http.StatusUnauthorized, `{"code":"unauthorized"}`))

	_, err := b.Send(context.Background(), uuid.New(), message())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestBrevo_NotConfigured(t *testing.T) {
	b := NewBrevo(mockSettings{vals: map[string]string{}}, testConfig())
	httpmock.ActivateNonDefault(b.http)
	defer httpmock.DeactivateAndReset()

	_, err := b.Send(context.Background(), uuid.New(), message())
	assert.ErrorIs(t, err, edomain.ErrNotConfigured)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}
