package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	domain "github.com/corvusHold/certmail/internal/dispatch/domain"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	evsvc "github.com/corvusHold/certmail/internal/events/service"
	jdomain "github.com/corvusHold/certmail/internal/jobs/domain"
	"github.com/corvusHold/certmail/internal/metrics"
	qdomain "github.com/corvusHold/certmail/internal/quota/domain"
)

// Senders looks up sender identities by address.
type Senders interface {
	SenderForDispatch(ctx context.Context, email string) (adomain.SenderIdentity, error)
}

// Ledger charges quota and opens the batch Job in one step.
type Ledger interface {
	ReserveAndOpenJob(ctx context.Context, accountID uuid.UUID, count int) (qdomain.Reservation, jdomain.Job, error)
}

// Sink receives per-message and per-job outcomes. Its errors never reach
// the caller of Dispatch.
type Sink interface {
	RecordMessage(ctx context.Context, rec jdomain.MessageRecord) error
	FinalizeJob(ctx context.Context, jobID uuid.UUID, ok, fail int) error
}

type Service struct {
	senders        Senders
	ledger         Ledger
	sink           Sink
	mailer         edomain.Sender
	maxAttachBytes int64
	pub            evdomain.Publisher
	log            zerolog.Logger
	now            func() time.Time
}

func New(senders Senders, ledger Ledger, sink Sink, mailer edomain.Sender, maxAttachBytes int64) *Service {
	if maxAttachBytes <= 0 {
		maxAttachBytes = edomain.MaxAttachmentBytes
	}
	return &Service{
		senders:        senders,
		ledger:         ledger,
		sink:           sink,
		mailer:         mailer,
		maxAttachBytes: maxAttachBytes,
		pub:            evsvc.NewLogger(),
		log:            zerolog.Nop(),
		now:            time.Now,
	}
}

func (s *Service) SetPublisher(p evdomain.Publisher) {
	if p != nil {
		s.pub = p
	}
}

func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

func invalid(msg string) error { return &domain.ValidationError{Message: msg} }

func validate(req domain.BatchRequest) error {
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return invalid("Missing required fields")
	}
	if len(req.Recipients) == 0 {
		return invalid("No valid emails found")
	}
	for _, r := range req.Recipients {
		if r.Index < 0 {
			return invalid("No valid emails found")
		}
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, accountID uuid.UUID, from string) error {
	sender, err := s.senders.SenderForDispatch(ctx, from)
	if errors.Is(err, adomain.ErrSenderNotFound) {
		return domain.ErrSenderNotVerified
	}
	if err != nil {
		return fmt.Errorf("lookup sender: %w", err)
	}
	if !sender.IsVerified {
		return domain.ErrSenderNotVerified
	}
	if sender.AccountID != accountID {
		return domain.ErrSenderNotOwned
	}
	return nil
}

// Dispatch validates, authorizes and charges the whole batch before the
// first send. Once sending starts every entry is attempted in order and
// only the first four stages can fail the call.
func (s *Service) Dispatch(ctx context.Context, accountID uuid.UUID, req domain.BatchRequest) (domain.BatchResult, error) {
	// The authorized address is the one every message is sent from.
	req.From = strings.TrimSpace(req.From)
	if err := validate(req); err != nil {
		metrics.IncBatch("invalid")
		return domain.BatchResult{}, err
	}
	if err := s.authorize(ctx, accountID, req.From); err != nil {
		if errors.Is(err, domain.ErrSenderNotVerified) || errors.Is(err, domain.ErrSenderNotOwned) {
			metrics.IncBatch("unauthorized")
		} else {
			metrics.IncBatch("error")
		}
		return domain.BatchResult{}, err
	}

	count := len(req.Recipients)
	_, job, err := s.ledger.ReserveAndOpenJob(ctx, accountID, count)
	if err != nil {
		if errors.Is(err, qdomain.ErrInsufficientQuota) {
			metrics.IncBatch("quota_exceeded")
			s.publish(ctx, evdomain.Event{
				Type:      evdomain.TypeQuotaRejected,
				AccountID: accountID,
				Meta:      map[string]string{"requested": strconv.Itoa(count)},
			})
		} else {
			metrics.IncBatch("error")
		}
		return domain.BatchResult{}, err
	}

	// The loop outlives a disconnected client: quota is already charged.
	loopCtx := context.WithoutCancel(ctx)
	log := s.log.With().Str("account_id", accountID.String()).Str("job_id", job.ID.String()).Logger()
	files := bindFiles(req.Files)

	start := s.now()
	res := domain.BatchResult{JobID: job.ID, Results: make([]domain.RecipientResult, 0, count)}
	for pos, r := range req.Recipients {
		to := strings.TrimSpace(r.Email)
		if to == "" {
			metrics.IncMessage("none", "skipped")
			res.Results = append(res.Results, domain.RecipientResult{Email: "", OK: false})
			res.TotalFail++
			continue
		}

		msg := edomain.Message{From: req.From, To: to, Subject: req.Subject, HTML: req.Body}
		if f, ok := files[r.Index]; ok {
			msg.Attachment = s.loadAttachment(log, f)
		}

		providerID, sendErr := s.send(loopCtx, accountID, msg)
		ok := sendErr == nil
		if !ok {
			log.Warn().Err(sendErr).Int("position", pos).Str("to", to).Msg("recipient send failed")
		}

		rec := jdomain.MessageRecord{
			JobID:             job.ID,
			Position:          pos,
			Recipient:         to,
			Subject:           req.Subject,
			Body:              req.Body,
			Sent:              ok,
			ProviderMessageID: providerID,
		}
		if sendErr != nil {
			rec.FailureReason = sendErr.Error()
		}
		s.record(loopCtx, log, rec)

		res.Results = append(res.Results, domain.RecipientResult{Email: to, OK: ok})
		if ok {
			res.TotalOK++
		} else {
			res.TotalFail++
		}
	}
	metrics.ObserveBatchDuration(s.now().Sub(start).Seconds())

	if err := s.finalize(loopCtx, job.ID, res.TotalOK, res.TotalFail); err != nil {
		metrics.IncLedgerWriteFailure("finalize_job")
		log.Error().Err(err).Msg("finalize job failed")
	}
	metrics.IncBatch("completed")
	s.publish(loopCtx, evdomain.Event{
		Type:      evdomain.TypeBatchCompleted,
		AccountID: accountID,
		Meta: map[string]string{
			"job_id": job.ID.String(),
			"total":  strconv.Itoa(count),
			"ok":     strconv.Itoa(res.TotalOK),
			"fail":   strconv.Itoa(res.TotalFail),
		},
	})
	log.Info().Int("total", count).Int("ok", res.TotalOK).Int("fail", res.TotalFail).Msg("batch dispatched")
	return res, nil
}

// bindFiles keys files by recipient index; the first file for an index wins.
func bindFiles(files []domain.File) map[int]domain.File {
	out := make(map[int]domain.File, len(files))
	for _, f := range files {
		if _, dup := out[f.Index]; dup {
			continue
		}
		out[f.Index] = f
	}
	return out
}

// loadAttachment returns nil unless the file reads back non-empty within the
// size ceiling; the message then goes out without it.
func (s *Service) loadAttachment(log zerolog.Logger, f domain.File) *edomain.Attachment {
	if f.Open == nil || f.Size > s.maxAttachBytes {
		if f.Size > s.maxAttachBytes {
			log.Warn().Str("file", f.Name).Int64("size", f.Size).Msg("attachment over size ceiling, sending without it")
		}
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("attachment open failed, sending without it")
		return nil
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, s.maxAttachBytes+1))
	if err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("attachment read failed, sending without it")
		return nil
	}
	if n > s.maxAttachBytes {
		log.Warn().Str("file", f.Name).Msg("attachment over size ceiling, sending without it")
		return nil
	}
	if n == 0 {
		return nil
	}
	return &edomain.Attachment{
		Name:    edomain.SanitizeFilename(f.Name),
		Content: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
}

func (s *Service) send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("sender panic: %v", r)
		}
	}()
	return s.mailer.Send(ctx, accountID, msg)
}

func (s *Service) record(ctx context.Context, log zerolog.Logger, rec jdomain.MessageRecord) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sink panic: %v", r)
			}
		}()
		return s.sink.RecordMessage(ctx, rec)
	}()
	if err != nil {
		metrics.IncLedgerWriteFailure("record_message")
		log.Error().Err(err).Int("position", rec.Position).Msg("record sent message failed")
	}
}

func (s *Service) finalize(ctx context.Context, jobID uuid.UUID, ok, fail int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.sink.FinalizeJob(ctx, jobID, ok, fail)
}

func (s *Service) publish(ctx context.Context, ev evdomain.Event) {
	ev.Time = s.now()
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", ev.Type).Msg("publish event failed")
	}
}
