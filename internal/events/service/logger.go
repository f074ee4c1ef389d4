package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corvusHold/certmail/internal/events/domain"
)

// Logger is a Publisher that writes events as log lines. It prefers the
// logger carried by ctx and falls back to its own, which matters for the
// dispatch loop whose context is detached from the request.
type Logger struct {
	fallback zerolog.Logger
}

func NewLogger() *Logger { return &Logger{fallback: zerolog.Nop()} }

// WithFallback sets the logger used when ctx carries none.
func (l *Logger) WithFallback(z zerolog.Logger) *Logger {
	l.fallback = z
	return l
}

func (l *Logger) Publish(ctx context.Context, e domain.Event) error {
	z := zerolog.Ctx(ctx)
	if z.GetLevel() == zerolog.Disabled || z == zerolog.DefaultContextLogger {
		z = &l.fallback
	}
	ev := z.Info().Str("type", e.Type)
	if e.AccountID != uuid.Nil {
		ev = ev.Str("account_id", e.AccountID.String())
	}
	if len(e.Meta) > 0 {
		meta := zerolog.Dict()
		for k, v := range e.Meta {
			meta = meta.Str(k, v)
		}
		ev = ev.Dict("meta", meta)
	}
	if !e.Time.IsZero() {
		ev = ev.Time("ts", e.Time)
	}
	ev.Msg("event")
	return nil
}
