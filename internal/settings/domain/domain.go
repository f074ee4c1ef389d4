package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service provides typed access to global settings with per-account override.
type Service interface {
	GetString(ctx context.Context, key string, accountID *uuid.UUID, def string) (string, error)
	GetDuration(ctx context.Context, key string, accountID *uuid.UUID, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, accountID *uuid.UUID, def int) (int, error)
}

// Repository abstracts storage of app settings.
type Repository interface {
	// Get returns (value, found, err) for an exact key. An account value shadows the global one.
	Get(ctx context.Context, key string, accountID *uuid.UUID) (string, bool, error)
	// Upsert stores a key for an account, or globally when accountID is nil.
	Upsert(ctx context.Context, key string, accountID *uuid.UUID, value string, secret bool) error
}

// Email transport keys.
const (
	KeyEmailProvider = "email.provider" // values: ses | smtp | brevo | resend
	KeySMTPHost      = "email.smtp.host"
	KeySMTPPort      = "email.smtp.port"
	KeySMTPUsername  = "email.smtp.username"
	KeySMTPPassword  = "email.smtp.password"
	KeyBrevoAPIKey   = "email.brevo.api_key"
	KeyResendAPIKey  = "email.resend.api_key"
	KeySESRegion     = "email.ses.region"
)

// Rate limiting keys. Windows use Go duration strings (e.g. "1m"); limits are integers.
const (
	KeyRLSendLimit  = "mail.ratelimit.send.limit"
	KeyRLSendWindow = "mail.ratelimit.send.window"

	KeyRLSettingsGetLimit  = "settings.ratelimit.get.limit"
	KeyRLSettingsGetWindow = "settings.ratelimit.get.window"
	KeyRLSettingsPutLimit  = "settings.ratelimit.put.limit"
	KeyRLSettingsPutWindow = "settings.ratelimit.put.window"
)
