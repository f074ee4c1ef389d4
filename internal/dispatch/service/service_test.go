package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	domain "github.com/corvusHold/certmail/internal/dispatch/domain"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	jdomain "github.com/corvusHold/certmail/internal/jobs/domain"
	qdomain "github.com/corvusHold/certmail/internal/quota/domain"
)

type fakeSenders map[string]adomain.SenderIdentity

func (f fakeSenders) SenderForDispatch(_ context.Context, email string) (adomain.SenderIdentity, error) {
	s, ok := f[strings.ToLower(email)]
	if !ok {
		return adomain.SenderIdentity{}, adomain.ErrSenderNotFound
	}
	return s, nil
}

type fakeLedger struct {
	mu    sync.Mutex
	limit int
	used  int
	jobs  []jdomain.Job
}

func (l *fakeLedger) ReserveAndOpenJob(_ context.Context, accountID uuid.UUID, count int) (qdomain.Reservation, jdomain.Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used+count > l.limit {
		return qdomain.Reservation{}, jdomain.Job{}, qdomain.ErrInsufficientQuota
	}
	l.used += count
	j := jdomain.Job{ID: uuid.New(), AccountID: accountID, NoOfEmails: count}
	l.jobs = append(l.jobs, j)
	return qdomain.Reservation{AccountID: accountID, Count: count, MonthlyLimit: l.limit, UsedLimit: l.used}, j, nil
}

type fakeSink struct {
	mu          sync.Mutex
	records     []jdomain.MessageRecord
	finalized   map[uuid.UUID][2]int
	recordErr   error
	finalizeErr error
	panicRecord bool
}

func newSink() *fakeSink { return &fakeSink{finalized: map[uuid.UUID][2]int{}} }

func (s *fakeSink) RecordMessage(_ context.Context, rec jdomain.MessageRecord) error {
	if s.panicRecord {
		panic("db gone")
	}
	if s.recordErr != nil {
		return s.recordErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) FinalizeJob(_ context.Context, jobID uuid.UUID, ok, fail int) error {
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized[jobID] = [2]int{ok, fail}
	return nil
}

// scriptedMailer fails or panics for listed recipients and succeeds otherwise.
type scriptedMailer struct {
	mu     sync.Mutex
	fail   map[string]bool
	panics map[string]bool
	sent   []edomain.Message
	ctxErr []error
}

func (m *scriptedMailer) Send(ctx context.Context, _ uuid.UUID, msg edomain.Message) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.ctxErr = append(m.ctxErr, ctx.Err())
	m.mu.Unlock()
	if m.panics[msg.To] {
		panic("transport exploded")
	}
	if m.fail[msg.To] {
		return "", errors.New("provider rejected")
	}
	return "pm-" + msg.To, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []evdomain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e evdomain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	account uuid.UUID
	ledger  *fakeLedger
	sink    *fakeSink
	mailer  *scriptedMailer
	pub     *recordingPublisher
	svc     *Service
}

func newFixture(limit, used int) *fixture {
	acct := uuid.New()
	f := &fixture{
		account: acct,
		ledger:  &fakeLedger{limit: limit, used: used},
		sink:    newSink(),
		mailer:  &scriptedMailer{fail: map[string]bool{}, panics: map[string]bool{}},
		pub:     &recordingPublisher{},
	}
	senders := fakeSenders{
		"a@x.com":           {AccountID: acct, Email: "a@x.com", IsVerified: true},
		"pending@x.com":     {AccountID: acct, Email: "pending@x.com", IsVerified: false},
		"someoneelse@x.com": {AccountID: uuid.New(), Email: "someoneelse@x.com", IsVerified: true},
	}
	f.svc = New(senders, f.ledger, f.sink, f.mailer, 16)
	f.svc.SetPublisher(f.pub)
	return f
}

func batch(emails ...string) domain.BatchRequest {
	req := domain.BatchRequest{From: "a@x.com", Subject: "Your certificate", Body: "<p>Congrats</p>"}
	for i, e := range emails {
		req.Recipients = append(req.Recipients, domain.Recipient{Index: i, Email: e})
	}
	return req
}

func fileOf(index int, name, content string) domain.File {
	return domain.File{
		Index: index,
		Name:  name,
		Size:  int64(len(content)),
		Open:  func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestDispatch_MixedOutcomes(t *testing.T) {
	f := newFixture(10, 0)
	f.mailer.fail["r2@x.com"] = true

	res, err := f.svc.Dispatch(context.Background(), f.account, batch("r1@x.com", "r2@x.com", ""))
	require.NoError(t, err)

	assert.Equal(t, []domain.RecipientResult{{Email: "r1@x.com", OK: true}, {Email: "r2@x.com", OK: false}, {Email: "", OK: false}}, res.Results)
	assert.Equal(t, 1, res.TotalOK)
	assert.Equal(t, 2, res.TotalFail)
	assert.Equal(t, 3, f.ledger.used)
	require.Len(t, f.ledger.jobs, 1)
	assert.Equal(t, 3, f.ledger.jobs[0].NoOfEmails)
	assert.Equal(t, [2]int{1, 2}, f.sink.finalized[res.JobID])

	// Blank entry: no transport call and no Sent Message row.
	assert.Len(t, f.mailer.sent, 2)
	require.Len(t, f.sink.records, 2)
	assert.Equal(t, "pm-r1@x.com", f.sink.records[0].ProviderMessageID)
	assert.Equal(t, "provider rejected", f.sink.records[1].FailureReason)
	assert.Equal(t, 1, f.sink.records[1].Position)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, evdomain.TypeBatchCompleted, f.pub.events[0].Type)
	assert.Equal(t, "1", f.pub.events[0].Meta["ok"])
}

func TestDispatch_QuotaRejected(t *testing.T) {
	f := newFixture(10, 8)

	_, err := f.svc.Dispatch(context.Background(), f.account, batch("r1@x.com", "r2@x.com", "r3@x.com"))
	require.ErrorIs(t, err, qdomain.ErrInsufficientQuota)

	assert.Equal(t, 8, f.ledger.used)
	assert.Empty(t, f.ledger.jobs)
	assert.Empty(t, f.mailer.sent)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, evdomain.TypeQuotaRejected, f.pub.events[0].Type)
	assert.Equal(t, "3", f.pub.events[0].Meta["requested"])
}

func TestDispatch_SenderAuthorization(t *testing.T) {
	cases := []struct {
		from string
		want error
	}{
		{"pending@x.com", domain.ErrSenderNotVerified},
		{"unknown@x.com", domain.ErrSenderNotVerified},
		{"someoneelse@x.com", domain.ErrSenderNotOwned},
	}
	for _, tc := range cases {
		t.Run(tc.from, func(t *testing.T) {
			f := newFixture(10, 0)
			req := batch("r1@x.com")
			req.From = tc.from

			_, err := f.svc.Dispatch(context.Background(), f.account, req)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, f.ledger.used)
			assert.Empty(t, f.ledger.jobs)
			assert.Empty(t, f.mailer.sent)
		})
	}
}

func TestDispatch_ValidationBeforeQuota(t *testing.T) {
	f := newFixture(10, 0)

	req := batch("r1@x.com")
	req.Subject = "   "
	_, err := f.svc.Dispatch(context.Background(), f.account, req)
	require.ErrorIs(t, err, domain.ErrValidation)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Missing required fields", verr.Message)

	_, err = f.svc.Dispatch(context.Background(), f.account, batch())
	require.ErrorIs(t, err, domain.ErrValidation)

	neg := batch("r1@x.com")
	neg.Recipients[0].Index = -1
	_, err = f.svc.Dispatch(context.Background(), f.account, neg)
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 0, f.ledger.used)
}

func TestDispatch_PreservesOrderAndCounts(t *testing.T) {
	f := newFixture(100, 0)
	var emails []string
	for i := 0; i < 30; i++ {
		emails = append(emails, "r"+string(rune('a'+i%26))+"@x.com")
	}
	f.mailer.fail["rc@x.com"] = true

	res, err := f.svc.Dispatch(context.Background(), f.account, batch(emails...))
	require.NoError(t, err)
	require.Len(t, res.Results, len(emails))
	for i, r := range res.Results {
		assert.Equal(t, emails[i], r.Email)
	}
	fin := f.sink.finalized[res.JobID]
	assert.Equal(t, len(emails), fin[0]+fin[1])
}

func TestDispatch_SinkFailuresDoNotChangeOutcome(t *testing.T) {
	f := newFixture(10, 0)
	f.sink.recordErr = errors.New("insert failed")
	f.sink.finalizeErr = errors.New("update failed")

	res, err := f.svc.Dispatch(context.Background(), f.account, batch("r1@x.com", "r2@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalOK)
	assert.Len(t, f.mailer.sent, 2)

	g := newFixture(10, 0)
	g.sink.panicRecord = true
	res, err = g.svc.Dispatch(context.Background(), g.account, batch("r1@x.com", "r2@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalOK)
}

func TestDispatch_PanicIsolatedToRecipient(t *testing.T) {
	f := newFixture(10, 0)
	f.mailer.panics["r1@x.com"] = true

	res, err := f.svc.Dispatch(context.Background(), f.account, batch("r1@x.com", "r2@x.com"))
	require.NoError(t, err)
	assert.Equal(t, []domain.RecipientResult{{Email: "r1@x.com", OK: false}, {Email: "r2@x.com", OK: true}}, res.Results)
	require.Len(t, f.sink.records, 2)
	assert.Contains(t, f.sink.records[0].FailureReason, "panic")
}

func TestDispatch_AttachmentBinding(t *testing.T) {
	f := newFixture(10, 0)
	req := batch("r0@x.com", "r1@x.com", "r2@x.com", "r3@x.com")
	req.Files = []domain.File{
		fileOf(0, "jane doe.png", "hello"),
		fileOf(0, "second.png", "ignored"),
		fileOf(1, "big.png", strings.Repeat("x", 17)),
		{Index: 2, Name: "broken.png", Size: 3, Open: func() (io.ReadCloser, error) { return nil, errors.New("disk") }},
	}

	res, err := f.svc.Dispatch(context.Background(), f.account, req)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalOK)
	require.Len(t, f.mailer.sent, 4)

	first := f.mailer.sent[0].Attachment
	require.NotNil(t, first)
	assert.Equal(t, "jane_doe.png", first.Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), first.Content)

	assert.Nil(t, f.mailer.sent[1].Attachment, "oversized file is dropped")
	assert.Nil(t, f.mailer.sent[2].Attachment, "unreadable file is dropped")
	assert.Nil(t, f.mailer.sent[3].Attachment, "no file bound")
}

func TestDispatch_RunsToCompletionAfterCancel(t *testing.T) {
	f := newFixture(10, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Dispatch(ctx, f.account, batch("r1@x.com", "r2@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalOK)
	for _, e := range f.mailer.ctxErr {
		assert.NoError(t, e)
	}
}

func TestDispatch_SendsFromTrimmedSender(t *testing.T) {
	f := newFixture(10, 0)
	req := batch("r1@x.com", "r2@x.com")
	req.From = "  a@x.com \t"

	res, err := f.svc.Dispatch(context.Background(), f.account, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalOK)
	assert.Equal(t, 2, f.ledger.used)

	require.Len(t, f.mailer.sent, 2)
	for _, msg := range f.mailer.sent {
		assert.Equal(t, "a@x.com", msg.From)
		assert.NoError(t, edomain.Validate(msg))
	}
}
