package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecipients_WithAttachments(t *testing.T) {
	csv := "name,email,attachment\nJane, jane@example.com ,certs/jane.png\nBob,,/abs/bob.png\n"
	mappings, files, err := readRecipients(strings.NewReader(csv), "/data")
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{Index: 0, Email: "jane@example.com"}, {Index: 1, Email: ""}}, mappings)
	assert.Equal(t, []string{filepath.Join("/data", "certs/jane.png"), "/abs/bob.png"}, files)
}

func TestReadRecipients_Errors(t *testing.T) {
	_, _, err := readRecipients(strings.NewReader(""), ".")
	assert.Error(t, err)

	_, _, err = readRecipients(strings.NewReader("name\nJane\n"), ".")
	assert.ErrorContains(t, err, "email column")

	_, _, err = readRecipients(strings.NewReader("email,attachment\na@example.com,a.png\nb@example.com,\n"), ".")
	assert.ErrorContains(t, err, "row 2")

	_, _, err = readRecipients(strings.NewReader("email\n"), ".")
	assert.ErrorContains(t, err, "no rows")
}

func TestClient_SendMultipart(t *testing.T) {
	dir := t.TempDir()
	att := filepath.Join(dir, "jane.png")
	require.NoError(t, os.WriteFile(att, []byte("png-bytes"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "certs@example.com", r.FormValue("from"))
		var m []Mapping
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("mappings")), &m))
		assert.Equal(t, []Mapping{{Index: 0, Email: "jane@example.com"}}, m)

		fh := r.MultipartForm.File["files"]
		require.Len(t, fh, 1)
		assert.Equal(t, "jane.png", fh[0].Filename)
		f, err := fh[0].Open()
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(b))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Emails sent Successfully","job_id":"j-1","results":[{"email":"jane@example.com","result":true}]}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "tok").Send(Batch{
		From:     "certs@example.com",
		Subject:  "s",
		Body:     "<p>b</p>",
		Mappings: []Mapping{{Index: 0, Email: "jane@example.com"}},
		Files:    []string{att},
	})
	require.NoError(t, err)
	assert.Equal(t, "j-1", res.JobID)
	assert.Equal(t, []SendResult{{Email: "jane@example.com", Result: true}}, res.Results)
}

func TestClient_APIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"You Don't Have Limit to send mails to all those people"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").ListJobs(1, 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (400): You Don't Have Limit")
}

func TestFormatOutput(t *testing.T) {
	var buf bytes.Buffer
	orig, origFmt := stdout, outputFmt
	defer func() { stdout, outputFmt = orig, origFmt }()
	stdout = &buf

	outputFmt = "yaml"
	require.NoError(t, formatOutput(Reconciliation{JobID: "j-1", Drift: true}, nil))
	assert.Contains(t, buf.String(), "job_id: j-1")
	assert.Contains(t, buf.String(), "drift: true")

	buf.Reset()
	outputFmt = "json"
	require.NoError(t, formatOutput(Job{ID: "j-2"}, nil))
	assert.Contains(t, buf.String(), `"id": "j-2"`)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd**wxyz", maskToken("abcdefwxyz"))
}
