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

func TestResend_SendsWithAccountKey(t *testing.T) {
	r := NewResend(mockSettings{vals: map[string]string{sdomain.KeyResendAPIKey: "re_account"}}, testConfig())
	httpmock.ActivateNonDefault(r.http)
	defer httpmock.DeactivateAndReset()

	var body map[string]any
	httpmock.RegisterResponder(http.MethodPost, "https://api.resend.com/emails", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer re_account", req.Header.Get("Authorization"))
		_ = json.NewDecoder(req.Body).Decode(&body)
		return httpmock.NewStringResponse(http.StatusOK, `{"id":"re-msg-1"}`), nil
	})

	id, err := r.Send(context.Background(), uuid.New(), message())
	require.NoError(t, err)
	assert.Equal(t, "re-msg-1", id)
	assert.Equal(t, "<p>Congratulations</p>", body["html"])
	atts, _ := body["attachments"].([]any)
	require.Len(t, atts, 1)
	assert.Equal(t, "jane_doe.png", atts[0].(map[string]any)["filename"])
}

func TestResend_NotConfigured(t *testing.T) {
	r := NewResend(mockSettings{vals: map[string]string{}}, testConfig())
	_, err := r.Send(context.Background(), uuid.New(), message())
	assert.ErrorIs(t, err, edomain.ErrNotConfigured)
}
