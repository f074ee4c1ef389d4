package service

import (
	"context"
	"sort"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/corvusHold/certmail/internal/jobs/domain"
)

type mockRepo struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]domain.Job
	order    []uuid.UUID
	messages map[uuid.UUID][]domain.SentMessage
	offsets  []int32
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: map[uuid.UUID]domain.Job{}, messages: map[uuid.UUID][]domain.SentMessage{}}
}

func (m *mockRepo) CreateJob(_ context.Context, id, accountID uuid.UUID, count int) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := domain.Job{ID: id, AccountID: accountID, NoOfEmails: count}
	m.jobs[id] = j
	m.order = append(m.order, id)
	return j, nil
}

func (m *mockRepo) RecordMessage(_ context.Context, rec domain.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[rec.JobID] = append(m.messages[rec.JobID], domain.SentMessage{
		ID: uuid.New(), JobID: rec.JobID, Position: rec.Position, Recipient: rec.Recipient, Sent: rec.Sent,
	})
	return nil
}

func (m *mockRepo) FinalizeJob(_ context.Context, jobID uuid.UUID, ok, fail int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, found := m.jobs[jobID]
	if !found {
		return domain.ErrJobNotFound
	}
	now := time.Now()
	j.SuccessfulEmails, j.FailedEmails, j.FinalizedAt = ok, fail, &now
	m.jobs[jobID] = j
	return nil
}

func (m *mockRepo) GetJob(_ context.Context, accountID, jobID uuid.UUID) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.AccountID != accountID {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return j, nil
}

func (m *mockRepo) ListMessages(_ context.Context, jobID uuid.UUID) ([]domain.SentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.SentMessage(nil), m.messages[jobID]...)
	sort.SliceStable(out, func(i, k int) bool { return out[i].Position < out[k].Position })
	return out, nil
}

func (m *mockRepo) Summarize(_ context.Context, jobID uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := 0
	for _, msg := range m.messages[jobID] {
		if msg.Sent {
			ok++
		}
	}
	return len(m.messages[jobID]), ok, nil
}

func (m *mockRepo) List(_ context.Context, accountID uuid.UUID, limit, offset int32) ([]domain.Job, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets = append(m.offsets, offset)
	var all []domain.Job
	for i := len(m.order) - 1; i >= 0; i-- {
		if j := m.jobs[m.order[i]]; j.AccountID == accountID {
			all = append(all, j)
		}
	}
	total := int64(len(all))
	if int(offset) >= len(all) {
		return nil, total, nil
	}
	end := int(offset) + int(limit)
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func TestCreateJob_RejectsEmpty(t *testing.T) {
	s := New(newMockRepo())
	_, err := s.CreateJob(context.Background(), uuid.New(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCount)
}

func TestListJobs_PaginationDefaults(t *testing.T) {
	repo := newMockRepo()
	s := New(repo)
	ctx := context.Background()
	acct := uuid.New()
	for i := 0; i < 25; i++ {
		_, err := s.CreateJob(ctx, acct, 1)
		require.NoError(t, err)
	}
	_, err := s.CreateJob(ctx, uuid.New(), 1)
	require.NoError(t, err)

	res, err := s.ListJobs(ctx, acct, domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.PageSize)
	assert.Equal(t, int64(25), res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 20)

	res, err = s.ListJobs(ctx, acct, domain.ListOptions{Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, res.PageSize)
	assert.Empty(t, res.Items)
}

func TestGetJob_OwnershipEnforced(t *testing.T) {
	s := New(newMockRepo())
	ctx := context.Background()
	acct := uuid.New()
	j, err := s.CreateJob(ctx, acct, 2)
	require.NoError(t, err)
	require.NoError(t, s.RecordMessage(ctx, domain.MessageRecord{JobID: j.ID, Position: 1, Recipient: "b@example.com", Sent: true}))
	require.NoError(t, s.RecordMessage(ctx, domain.MessageRecord{JobID: j.ID, Position: 0, Recipient: "a@example.com", Sent: false}))

	d, err := s.GetJob(ctx, acct, j.ID)
	require.NoError(t, err)
	require.Len(t, d.Messages, 2)
	assert.Equal(t, "a@example.com", d.Messages[0].Recipient)

	_, err = s.GetJob(ctx, uuid.New(), j.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestReconcile_BlankRecipientIsUnrecorded(t *testing.T) {
	s := New(newMockRepo())
	ctx := context.Background()
	acct := uuid.New()
	j, err := s.CreateJob(ctx, acct, 3)
	require.NoError(t, err)
	require.NoError(t, s.RecordMessage(ctx, domain.MessageRecord{JobID: j.ID, Position: 0, Recipient: "ok@example.com", Sent: true}))
	require.NoError(t, s.RecordMessage(ctx, domain.MessageRecord{JobID: j.ID, Position: 1, Recipient: "bad@example.com", Sent: false}))
	require.NoError(t, s.FinalizeJob(ctx, j.ID, 1, 2))

	r, err := s.Reconcile(ctx, acct, j.ID)
	require.NoError(t, err)
	assert.True(t, r.Finalized)
	assert.Equal(t, 2, r.Recorded)
	assert.Equal(t, 1, r.RecordedOK)
	assert.Equal(t, 1, r.RecordedFail)
	assert.Equal(t, 1, r.Unrecorded)
	assert.False(t, r.Drift)
}

func TestReconcile_DriftWhenSuccessUnrecorded(t *testing.T) {
	s := New(newMockRepo())
	ctx := context.Background()
	acct := uuid.New()
	j, err := s.CreateJob(ctx, acct, 2)
	require.NoError(t, err)
	require.NoError(t, s.RecordMessage(ctx, domain.MessageRecord{JobID: j.ID, Position: 0, Recipient: "a@example.com", Sent: true}))
	require.NoError(t, s.FinalizeJob(ctx, j.ID, 2, 0))

	r, err := s.Reconcile(ctx, acct, j.ID)
	require.NoError(t, err)
	assert.True(t, r.Finalized)
	assert.True(t, r.Drift)
	assert.Equal(t, 1, r.Unrecorded)
}

func TestReconcile_Unfinalized(t *testing.T) {
	s := New(newMockRepo())
	ctx := context.Background()
	acct := uuid.New()
	j, err := s.CreateJob(ctx, acct, 4)
	require.NoError(t, err)

	r, err := s.Reconcile(ctx, acct, j.ID)
	require.NoError(t, err)
	assert.False(t, r.Finalized)
	assert.False(t, r.Drift)
	assert.Equal(t, 4, r.Unrecorded)
}

func TestListJobs_HugePageStaysInRange(t *testing.T) {
	repo := newMockRepo()
	s := New(repo)
	ctx := context.Background()
	acct := uuid.New()
	_, err := s.CreateJob(ctx, acct, 1)
	require.NoError(t, err)

	for _, page := range []int{math.MaxInt32, math.MaxInt64, 1 << 40} {
		res, err := s.ListJobs(ctx, acct, domain.ListOptions{Page: page, PageSize: 100})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, int64(1), res.Total)
	}
	for _, off := range repo.offsets {
		assert.GreaterOrEqual(t, off, int32(0))
	}
}

func TestReconcile_FinalizedFollowsFinalizeWrite(t *testing.T) {
	s := New(newMockRepo())
	ctx := context.Background()
	acct := uuid.New()
	j, err := s.CreateJob(ctx, acct, 2)
	require.NoError(t, err)

	// Counters short of the total still count once the finalize write happened.
	require.NoError(t, s.FinalizeJob(ctx, j.ID, 0, 1))
	r, err := s.Reconcile(ctx, acct, j.ID)
	require.NoError(t, err)
	assert.True(t, r.Finalized)
	assert.Equal(t, 2, r.Unrecorded)
}
