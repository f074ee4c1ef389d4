package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// AccountResolver maps an authenticated email to its account id.
type AccountResolver func(ctx context.Context, email string) (uuid.UUID, error)

// Controller exposes account-scoped settings for the email transport and send rate limit.
// Only whitelisted keys can be read or written.
type Controller struct {
	repo    sdomain.Repository
	service sdomain.Service

	jwtMW    echo.MiddlewareFunc
	rlStore  rl.Store
	pub      evdomain.Publisher
	resolver AccountResolver
}

func New(repo sdomain.Repository, service sdomain.Service) *Controller {
	return &Controller{repo: repo, service: service}
}

// WithJWT injects the bearer middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// WithRateLimit injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimit(store rl.Store) *Controller { h.rlStore = store; return h }

// WithPublisher injects an audit event publisher.
func (h *Controller) WithPublisher(p evdomain.Publisher) *Controller { h.pub = p; return h }

// WithAccountResolver injects the email to account lookup.
func (h *Controller) WithAccountResolver(fn AccountResolver) *Controller { h.resolver = fn; return h }

// Register mounts settings endpoints under /api/v1.
func (h *Controller) Register(e *echo.Echo) {
	// Defaults: GET 60/min, PUT 10/min. Overridable globally through settings.
	getPolicy := h.policy("settings:get", 60, sdomain.KeyRLSettingsGetLimit, sdomain.KeyRLSettingsGetWindow)
	putPolicy := h.policy("settings:put", 10, sdomain.KeyRLSettingsPutLimit, sdomain.KeyRLSettingsPutWindow)

	getMW := []echo.MiddlewareFunc{}
	putMW := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		getMW = append(getMW, h.jwtMW)
		putMW = append(putMW, h.jwtMW)
	}
	getMW = append(getMW, rl.Middleware(getPolicy, h.rlStore))
	putMW = append(putMW, rl.Middleware(putPolicy, h.rlStore))

	e.GET("/api/v1/settings", h.getSettings, getMW...)
	e.PUT("/api/v1/settings", h.putSettings, putMW...)
}

func (h *Controller) policy(name string, defLimit int, limitKey, windowKey string) rl.Policy {
	return rl.Policy{
		Name:   name,
		Window: time.Minute,
		Limit:  defLimit,
		Key:    rl.KeyAccountOrIP(name, amw.Email),
		WindowFunc: func(c echo.Context) time.Duration {
			d, _ := h.service.GetDuration(c.Request().Context(), windowKey, nil, time.Minute)
			return d
		},
		LimitFunc: func(c echo.Context) int {
			n, _ := h.service.GetInt(c.Request().Context(), limitKey, nil, defLimit)
			return n
		},
	}
}

type settingsResponse struct {
	EmailProvider string `json:"email_provider"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      string `json:"smtp_port"`
	SMTPUsername  string `json:"smtp_username"`
	SMTPPassword  string `json:"smtp_password,omitempty"`  // masked
	BrevoAPIKey   string `json:"brevo_api_key,omitempty"`  // masked
	ResendAPIKey  string `json:"resend_api_key,omitempty"` // masked
	SESRegion     string `json:"ses_region"`
	SendRateLimit string `json:"send_rate_limit"`
	SendRateWin   string `json:"send_rate_window"`
}

type putSettingsRequest struct {
	EmailProvider *string `json:"email_provider"`
	SMTPHost      *string `json:"smtp_host"`
	SMTPPort      *string `json:"smtp_port"`
	SMTPUsername  *string `json:"smtp_username"`
	SMTPPassword  *string `json:"smtp_password"`
	BrevoAPIKey   *string `json:"brevo_api_key"`
	ResendAPIKey  *string `json:"resend_api_key"`
	SESRegion     *string `json:"ses_region"`
	SendRateLimit *string `json:"send_rate_limit"`
	SendRateWin   *string `json:"send_rate_window"`
}

type field struct {
	key    string
	secret bool
	value  *string
}

func (r *putSettingsRequest) fields() []field {
	return []field{
		{sdomain.KeyEmailProvider, false, r.EmailProvider},
		{sdomain.KeySMTPHost, false, r.SMTPHost},
		{sdomain.KeySMTPPort, false, r.SMTPPort},
		{sdomain.KeySMTPUsername, false, r.SMTPUsername},
		{sdomain.KeySMTPPassword, true, r.SMTPPassword},
		{sdomain.KeyBrevoAPIKey, true, r.BrevoAPIKey},
		{sdomain.KeyResendAPIKey, true, r.ResendAPIKey},
		{sdomain.KeySESRegion, false, r.SESRegion},
		{sdomain.KeyRLSendLimit, false, r.SendRateLimit},
		{sdomain.KeyRLSendWindow, false, r.SendRateWin},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func (h *Controller) account(c echo.Context) (uuid.UUID, bool, error) {
	email, ok := amw.Email(c)
	if !ok {
		return uuid.Nil, false, c.JSON(http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
	}
	if h.resolver == nil {
		return uuid.Nil, false, c.JSON(http.StatusInternalServerError, map[string]string{"message": "account resolver not configured"})
	}
	id, err := h.resolver(c.Request().Context(), email)
	if err != nil {
		return uuid.Nil, false, c.JSON(http.StatusNotFound, map[string]string{"message": "account not found"})
	}
	return id, true, nil
}

// Get Settings godoc
// @Summary      Get account settings
// @Description  Returns the caller's email transport and send rate limit settings. Secrets are masked.
// @Tags         settings
// @Produce      json
// @Success      200  {object}  settingsResponse
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [get]
func (h *Controller) getSettings(c echo.Context) error {
	id, ok, err := h.account(c)
	if !ok {
		return err
	}
	ctx := c.Request().Context()
	get := func(key string) string {
		v, _ := h.service.GetString(ctx, key, &id, "")
		return v
	}
	return c.JSON(http.StatusOK, settingsResponse{
		EmailProvider: get(sdomain.KeyEmailProvider),
		SMTPHost:      get(sdomain.KeySMTPHost),
		SMTPPort:      get(sdomain.KeySMTPPort),
		SMTPUsername:  get(sdomain.KeySMTPUsername),
		SMTPPassword:  mask(get(sdomain.KeySMTPPassword)),
		BrevoAPIKey:   mask(get(sdomain.KeyBrevoAPIKey)),
		ResendAPIKey:  mask(get(sdomain.KeyResendAPIKey)),
		SESRegion:     get(sdomain.KeySESRegion),
		SendRateLimit: get(sdomain.KeyRLSendLimit),
		SendRateWin:   get(sdomain.KeyRLSendWindow),
	})
}

// Put Settings godoc
// @Summary      Upsert account settings
// @Description  Upserts the caller's settings. Only whitelisted keys are accepted.
// @Tags         settings
// @Accept       json
// @Param        body  body   putSettingsRequest  true  "settings"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [put]
func (h *Controller) putSettings(c echo.Context) error {
	id, ok, err := h.account(c)
	if !ok {
		return err
	}
	var req putSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid json"})
	}
	if msg := validate(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": msg})
	}

	ctx := c.Request().Context()
	changed := make([]string, 0, 4)
	meta := map[string]string{}
	for _, f := range req.fields() {
		if f.value == nil {
			continue
		}
		if err := h.repo.Upsert(ctx, f.key, &id, strings.TrimSpace(*f.value), f.secret); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to save settings"})
		}
		changed = append(changed, f.key)
		if f.secret {
			meta[f.key] = "redacted"
		}
	}
	if h.pub != nil && len(changed) > 0 {
		meta["changed"] = strings.Join(changed, ",")
		_ = h.pub.Publish(ctx, evdomain.Event{Type: evdomain.TypeSettingsUpdated, AccountID: id, Meta: meta, Time: time.Now()})
	}
	return c.NoContent(http.StatusNoContent)
}

func validate(req *putSettingsRequest) string {
	if req.EmailProvider != nil {
		v := strings.ToLower(strings.TrimSpace(*req.EmailProvider))
		switch v {
		case "", "ses", "smtp", "brevo", "resend":
			req.EmailProvider = &v
		default:
			return "invalid email_provider"
		}
	}
	if req.SMTPPort != nil {
		if v := strings.TrimSpace(*req.SMTPPort); v != "" {
			if n, err := strconv.Atoi(v); err != nil || n <= 0 || n > 65535 {
				return "invalid smtp_port"
			}
		}
	}
	if req.SendRateLimit != nil {
		if v := strings.TrimSpace(*req.SendRateLimit); v != "" {
			if n, err := strconv.Atoi(v); err != nil || n <= 0 {
				return "invalid send_rate_limit"
			}
		}
	}
	if req.SendRateWin != nil {
		if v := strings.TrimSpace(*req.SendRateWin); v != "" {
			if d, err := time.ParseDuration(v); err != nil || d <= 0 {
				return "invalid send_rate_window"
			}
		}
	}
	return ""
}
