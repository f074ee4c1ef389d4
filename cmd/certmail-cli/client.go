package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Client talks to the certmail API with a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: &http.Client{Timeout: 10 * time.Minute}}
}

type Account struct {
	ID           string `json:"id" yaml:"id"`
	Email        string `json:"email" yaml:"email"`
	Name         string `json:"name" yaml:"name"`
	MonthlyLimit int    `json:"monthly_limit" yaml:"monthly_limit"`
	UsedLimit    int    `json:"used_limit" yaml:"used_limit"`
	Remaining    int    `json:"remaining" yaml:"remaining"`
}

type Sender struct {
	Email      string `json:"email" yaml:"email"`
	Slot       string `json:"slot" yaml:"slot"`
	IsPrimary  bool   `json:"is_primary" yaml:"is_primary"`
	IsVerified bool   `json:"is_verified" yaml:"is_verified"`
}

type ProfileResponse struct {
	Message string   `json:"message" yaml:"message"`
	Account Account  `json:"account" yaml:"account"`
	Senders []Sender `json:"senders" yaml:"senders"`
}

type Balance struct {
	MonthlyLimit int `json:"monthly_limit" yaml:"monthly_limit"`
	UsedLimit    int `json:"used_limit" yaml:"used_limit"`
	Remaining    int `json:"remaining" yaml:"remaining"`
}

type Job struct {
	ID               string `json:"id" yaml:"id"`
	NoOfEmails       int    `json:"no_of_emails" yaml:"no_of_emails"`
	SuccessfulEmails int    `json:"successful_emails" yaml:"successful_emails"`
	FailedEmails     int    `json:"failed_emails" yaml:"failed_emails"`
	CreatedAt        string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	FinalizedAt      string `json:"finalized_at,omitempty" yaml:"finalized_at,omitempty"`
}

type JobsPage struct {
	Items      []Job `json:"items" yaml:"items"`
	Total      int64 `json:"total" yaml:"total"`
	Page       int   `json:"page" yaml:"page"`
	PageSize   int   `json:"page_size" yaml:"page_size"`
	TotalPages int   `json:"total_pages" yaml:"total_pages"`
}

type Reconciliation struct {
	JobID            string `json:"job_id" yaml:"job_id"`
	NoOfEmails       int    `json:"no_of_emails" yaml:"no_of_emails"`
	SuccessfulEmails int    `json:"successful_emails" yaml:"successful_emails"`
	FailedEmails     int    `json:"failed_emails" yaml:"failed_emails"`
	Recorded         int    `json:"recorded" yaml:"recorded"`
	RecordedOK       int    `json:"recorded_ok" yaml:"recorded_ok"`
	RecordedFail     int    `json:"recorded_fail" yaml:"recorded_fail"`
	Unrecorded       int    `json:"unrecorded" yaml:"unrecorded"`
	Finalized        bool   `json:"finalized" yaml:"finalized"`
	Drift            bool   `json:"drift" yaml:"drift"`
}

type SendResult struct {
	Email  string `json:"email" yaml:"email"`
	Result bool   `json:"result" yaml:"result"`
}

type SendResponse struct {
	Message string       `json:"message" yaml:"message"`
	JobID   string       `json:"job_id" yaml:"job_id"`
	Results []SendResult `json:"results" yaml:"results"`
}

type HealthResponse struct {
	Status  string `json:"status" yaml:"status"`
	Version string `json:"version" yaml:"version"`
	DB      string `json:"db" yaml:"db"`
	Cache   string `json:"cache" yaml:"cache"`
	Events  string `json:"events" yaml:"events"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) newRequest(method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, target any) error {
	logVerbose("%s %s", req.Method, req.URL.String())
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logVerbose("Response status: %s", resp.Status)

	if resp.StatusCode >= 400 {
		var e errorResponse
		if err := json.Unmarshal(body, &e); err == nil {
			msg := e.Message
			if msg == "" {
				msg = e.Error
			}
			if msg != "" {
				return fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	if target != nil && len(body) > 0 {
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) jsonCall(method, path string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}
	req, err := c.newRequest(method, path, body, ct)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) Signup(email, name string) (Account, error) {
	var a Account
	err := c.jsonCall(http.MethodPost, "/api/v1/accounts", map[string]string{"email": email, "name": name}, &a)
	return a, err
}

func (c *Client) Profile() (ProfileResponse, error) {
	var p ProfileResponse
	err := c.jsonCall(http.MethodGet, "/api/v1/profile", nil, &p)
	return p, err
}

func (c *Client) AddSender(email string) (Sender, error) {
	var s Sender
	err := c.jsonCall(http.MethodPost, "/api/v1/senders", map[string]string{"email": email}, &s)
	return s, err
}

func (c *Client) VerifySender(email string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.jsonCall(http.MethodPost, "/api/v1/senders/verify", map[string]string{"email": email}, &out)
	return out.Message, err
}

func (c *Client) Quota() (Balance, error) {
	var b Balance
	err := c.jsonCall(http.MethodGet, "/api/v1/quota", nil, &b)
	return b, err
}

func (c *Client) ListJobs(page, pageSize int) (JobsPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := "/api/v1/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var p JobsPage
	err := c.jsonCall(http.MethodGet, path, nil, &p)
	return p, err
}

func (c *Client) Reconcile(jobID string) (Reconciliation, error) {
	var r Reconciliation
	err := c.jsonCall(http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID)+"/reconcile", nil, &r)
	return r, err
}

func (c *Client) Health() (HealthResponse, error) {
	var h HealthResponse
	err := c.jsonCall(http.MethodGet, "/healthz", nil, &h)
	return h, err
}

// Send uploads a batch. Attachment paths are sent as "files" parts in
// mapping index order.
func (c *Client) Send(b Batch) (SendResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	mappings, err := json.Marshal(b.Mappings)
	if err != nil {
		return SendResponse{}, fmt.Errorf("failed to marshal mappings: %w", err)
	}
	for k, v := range map[string]string{"from": b.From, "subject": b.Subject, "body": b.Body, "mappings": string(mappings)} {
		if err := w.WriteField(k, v); err != nil {
			return SendResponse{}, err
		}
	}
	for _, path := range b.Files {
		if err := addFile(w, path); err != nil {
			return SendResponse{}, err
		}
	}
	if err := w.Close(); err != nil {
		return SendResponse{}, err
	}

	req, err := c.newRequest(http.MethodPost, "/api/v1/mail/send", &buf, w.FormDataContentType())
	if err != nil {
		return SendResponse{}, err
	}
	var out SendResponse
	err = c.do(req, &out)
	return out, err
}

func addFile(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()
	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
