package domain

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMessage() Message {
	return Message{From: "certs@example.com", To: "r1@example.org", Subject: "Your certificate", HTML: "<p>hi</p>"}
}

func TestValidate_OK(t *testing.T) {
	msg := validMessage()
	msg.Attachment = &Attachment{Name: "cert.png", Content: base64.StdEncoding.EncodeToString([]byte("png"))}
	assert.NoError(t, Validate(msg))
}

func TestValidate_CollectsAllReasons(t *testing.T) {
	err := Validate(Message{From: "nope", To: "", Subject: " ", HTML: ""})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Reasons, 4)
	assert.Equal(t, "from is not a valid email address; to is required; subject is required; html body is required", err.Error())
}

func TestValidate_AddressCaseInsensitive(t *testing.T) {
	msg := validMessage()
	msg.To = "R1+Tag@Example.ORG"
	assert.NoError(t, Validate(msg))
}

func TestValidate_Attachment(t *testing.T) {
	cases := map[string]struct {
		att    Attachment
		reason string
	}{
		"missing name":  {Attachment{Name: "", Content: "QUJD"}, "attachment name is required"},
		"empty content": {Attachment{Name: "a", Content: ""}, "attachment content is required"},
		"bad length":    {Attachment{Name: "a", Content: "QUJ"}, "attachment content is not valid base64"},
		"bad alphabet":  {Attachment{Name: "a", Content: "QU*D"}, "attachment content is not valid base64"},
		"too much pad":  {Attachment{Name: "a", Content: "Q==="}, "attachment content is not valid base64"},
		"inner pad":     {Attachment{Name: "a", Content: "Q=JD"}, "attachment content is not valid base64"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			msg := validMessage()
			att := tc.att
			msg.Attachment = &att
			err := Validate(msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestValidate_AttachmentSizeCeiling(t *testing.T) {
	msg := validMessage()
	msg.Attachment = &Attachment{Name: "a.bin", Content: base64.StdEncoding.EncodeToString(make([]byte, MaxAttachmentBytes))}
	assert.NoError(t, Validate(msg))

	msg.Attachment.Content = base64.StdEncoding.EncodeToString(make([]byte, MaxAttachmentBytes+1))
	err := Validate(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDecodedLen(t *testing.T) {
	for _, raw := range []string{"", "a", "ab", "abc", "abcd", strings.Repeat("x", 1000)} {
		enc := base64.StdEncoding.EncodeToString([]byte(raw))
		assert.Equal(t, len(raw), decodedLen(enc), raw)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "cert_for_Jane_Doe.png", SanitizeFilename("cert for Jane/Doe.png"))
	assert.Equal(t, "a+b@c-(1).pdf", SanitizeFilename("a+b@c-(1).pdf"))
	assert.Equal(t, "attachment", SanitizeFilename("  "))
}
