package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	ctrl "github.com/corvusHold/certmail/internal/dispatch/controller"
	svc "github.com/corvusHold/certmail/internal/dispatch/service"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// Options carries the dispatcher's collaborators and limits.
type Options struct {
	Senders        svc.Senders
	Ledger         svc.Ledger
	Sink           svc.Sink
	Mailer         edomain.Sender
	Settings       sdomain.Service
	MaxAttachBytes int64
	SendLimit      int
	SendWindow     time.Duration
	Resolve        func(ctx context.Context, email string) (uuid.UUID, error)
}

// Register wires the batch dispatcher behind POST /api/v1/mail/send.
func Register(e *echo.Echo, opts Options, jwt echo.MiddlewareFunc, store rl.Store, pub evdomain.Publisher, log zerolog.Logger) *svc.Service {
	s := svc.New(opts.Senders, opts.Ledger, opts.Sink, opts.Mailer, opts.MaxAttachBytes)
	s.SetPublisher(pub)
	s.SetLogger(log)
	ctrl.New(s, ctrl.AccountResolver(opts.Resolve)).
		WithJWT(jwt).
		WithRateLimit(store, opts.SendLimit, opts.SendWindow).
		WithSettings(opts.Settings).
		Register(e)
	return s
}
