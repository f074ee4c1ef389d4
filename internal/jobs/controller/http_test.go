package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	domain "github.com/corvusHold/certmail/internal/jobs/domain"
)

const testKey = "test-signing-key-0123456789"

type fakeService struct {
	owner    uuid.UUID
	job      domain.Job
	messages []domain.SentMessage
	lastOpts domain.ListOptions
}

func (f *fakeService) CreateJob(context.Context, uuid.UUID, int) (domain.Job, error) {
	return domain.Job{}, errors.New("not used")
}
func (f *fakeService) RecordMessage(context.Context, domain.MessageRecord) error { return nil }
func (f *fakeService) FinalizeJob(context.Context, uuid.UUID, int, int) error    { return nil }

func (f *fakeService) ListJobs(_ context.Context, accountID uuid.UUID, opts domain.ListOptions) (domain.ListResult, error) {
	f.lastOpts = opts
	if accountID != f.owner {
		return domain.ListResult{Page: 1, PageSize: 20}, nil
	}
	return domain.ListResult{Items: []domain.Job{f.job}, Total: 1, Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeService) GetJob(_ context.Context, accountID, jobID uuid.UUID) (domain.JobDetail, error) {
	if accountID != f.owner || jobID != f.job.ID {
		return domain.JobDetail{}, domain.ErrJobNotFound
	}
	return domain.JobDetail{Job: f.job, Messages: f.messages}, nil
}

func (f *fakeService) Reconcile(_ context.Context, accountID, jobID uuid.UUID) (domain.Reconciliation, error) {
	if accountID != f.owner || jobID != f.job.ID {
		return domain.Reconciliation{}, domain.ErrJobNotFound
	}
	return domain.Reconciliation{JobID: jobID, NoOfEmails: 3, SuccessfulEmails: 2, FailedEmails: 1, Recorded: 2, RecordedOK: 2, Unrecorded: 1, Finalized: true}, nil
}

func setup(f *fakeService) *echo.Echo {
	e := echo.New()
	resolve := func(_ context.Context, email string) (uuid.UUID, error) {
		if email == "owner@example.com" {
			return f.owner, nil
		}
		if email == "flaky@example.com" {
			return uuid.Nil, errors.New("pool timeout")
		}
		return uuid.Nil, adomain.ErrAccountNotFound
	}
	New(f, resolve).WithJWT(amw.NewBearer(testKey)).Register(e)
	return e
}

func get(t *testing.T, e *echo.Echo, path, email string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if email != "" {
		tok, err := amw.Sign(testKey, email, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newFake() *fakeService {
	fin := time.Now()
	j := domain.Job{ID: uuid.New(), NoOfEmails: 3, SuccessfulEmails: 2, FailedEmails: 1, CreatedAt: time.Now(), FinalizedAt: &fin}
	return &fakeService{
		owner: uuid.New(),
		job:   j,
		messages: []domain.SentMessage{
			{JobID: j.ID, Position: 0, Recipient: "a@example.com", Sent: true, ProviderMessageID: "m-1"},
			{JobID: j.ID, Position: 2, Recipient: "c@example.com", Sent: false, FailureReason: "bounced"},
		},
	}
}

func TestListJobs_PassesPagination(t *testing.T) {
	f := newFake()
	e := setup(f)
	rec := get(t, e, "/api/v1/jobs?page=3&page_size=7", "owner@example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ListOptions{Page: 3, PageSize: 7}, f.lastOpts)

	var got listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, f.job.ID.String(), got.Items[0].ID)
	assert.NotEmpty(t, got.Items[0].FinalizedAt)
}

func TestGetJob_WithMessages(t *testing.T) {
	f := newFake()
	e := setup(f)
	rec := get(t, e, "/api/v1/jobs/"+f.job.ID.String(), "owner@example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got jobDetailResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m-1", got.Messages[0].ProviderMessageID)
	assert.Equal(t, "bounced", got.Messages[1].FailureReason)
}

func TestGetJob_Errors(t *testing.T) {
	f := newFake()
	e := setup(f)

	rec := get(t, e, "/api/v1/jobs/not-a-uuid", "owner@example.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, e, "/api/v1/jobs/"+uuid.NewString(), "owner@example.com")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, e, "/api/v1/jobs/"+f.job.ID.String(), "stranger@example.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, e, "/api/v1/jobs", "flaky@example.com")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, e, "/api/v1/jobs/"+f.job.ID.String(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReconcile_OK(t *testing.T) {
	f := newFake()
	e := setup(f)
	rec := get(t, e, "/api/v1/jobs/"+f.job.ID.String()+"/reconcile", "owner@example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got reconcileResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Finalized)
	assert.False(t, got.Drift)
	assert.Equal(t, 1, got.Unrecorded)
}
