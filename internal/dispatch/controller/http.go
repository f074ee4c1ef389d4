package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	domain "github.com/corvusHold/certmail/internal/dispatch/domain"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	qdomain "github.com/corvusHold/certmail/internal/quota/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// AccountResolver maps an authenticated email to its account id.
type AccountResolver func(ctx context.Context, email string) (uuid.UUID, error)

type Controller struct {
	svc      domain.Dispatcher
	resolver AccountResolver
	settings sdomain.Service
	jwtMW    echo.MiddlewareFunc
	rlStore  rl.Store

	sendLimit  int
	sendWindow time.Duration
}

func New(svc domain.Dispatcher, resolver AccountResolver) *Controller {
	return &Controller{svc: svc, resolver: resolver, sendLimit: 10, sendWindow: time.Minute}
}

func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

func (h *Controller) WithRateLimit(store rl.Store, limit int, window time.Duration) *Controller {
	h.rlStore = store
	if limit > 0 {
		h.sendLimit = limit
	}
	if window > 0 {
		h.sendWindow = window
	}
	return h
}

// WithSettings enables per-account overrides of the send rate limit.
func (h *Controller) WithSettings(s sdomain.Service) *Controller { h.settings = s; return h }

func (h *Controller) Register(e *echo.Echo) {
	mws := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		mws = append(mws, h.jwtMW)
	}
	mws = append(mws, rl.Middleware(h.sendPolicy(), h.rlStore))
	e.POST("/api/v1/mail/send", h.send, mws...)
}

func (h *Controller) sendPolicy() rl.Policy {
	p := rl.Policy{
		Name:   "mail:send",
		Window: h.sendWindow,
		Limit:  h.sendLimit,
		Key:    rl.KeyAccountOrIP("mail:send", amw.Email),
	}
	if h.settings == nil {
		return p
	}
	account := func(c echo.Context) *uuid.UUID {
		id, err := h.account(c)
		if err != nil {
			return nil
		}
		return &id
	}
	p.LimitFunc = func(c echo.Context) int {
		n, _ := h.settings.GetInt(c.Request().Context(), sdomain.KeyRLSendLimit, account(c), h.sendLimit)
		return n
	}
	p.WindowFunc = func(c echo.Context) time.Duration {
		d, _ := h.settings.GetDuration(c.Request().Context(), sdomain.KeyRLSendWindow, account(c), h.sendWindow)
		return d
	}
	return p
}

const accountKey = "dispatch.account"

type resolved struct {
	id  uuid.UUID
	err error
}

// account resolves the caller once per request. The rate-limit policy and the
// handler share the cached result.
func (h *Controller) account(c echo.Context) (uuid.UUID, error) {
	if r, ok := c.Get(accountKey).(resolved); ok {
		return r.id, r.err
	}
	email, ok := amw.Email(c)
	if !ok {
		return uuid.Nil, adomain.ErrAccountNotFound
	}
	id, err := h.resolver(c.Request().Context(), email)
	c.Set(accountKey, resolved{id: id, err: err})
	return id, err
}

type mapping struct {
	Index json.RawMessage `json:"index"`
	Email *string         `json:"email"`
}

type recipientResult struct {
	Email  string `json:"email"`
	Result bool   `json:"result"`
}

type sendResponse struct {
	Message string            `json:"message"`
	JobID   string            `json:"job_id"`
	Results []recipientResult `json:"results"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"message": msg})
}

// parseMappings accepts a JSON array of {index, email}. index must be an
// integer; email must be present but may be blank.
func parseMappings(raw string) ([]domain.Recipient, string) {
	var entries []mapping
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, "Invalid mappings format"
	}
	if len(entries) == 0 {
		return nil, "No valid emails found"
	}
	out := make([]domain.Recipient, 0, len(entries))
	for _, m := range entries {
		var idx int
		if m.Email == nil || len(m.Index) == 0 || string(m.Index) == "null" || json.Unmarshal(m.Index, &idx) != nil || idx < 0 {
			return nil, "No valid emails found"
		}
		out = append(out, domain.Recipient{Index: idx, Email: *m.Email})
	}
	return out, ""
}

func toFiles(headers []*multipart.FileHeader) []domain.File {
	files := make([]domain.File, 0, len(headers))
	for i, fh := range headers {
		fh := fh
		files = append(files, domain.File{
			Index: i,
			Name:  fh.Filename,
			Size:  fh.Size,
			Open:  func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

// Send Batch godoc
// @Summary      Send a batch of emails
// @Description  Reserves quota for every mapping, then sends each message in order. Files bind to mappings by upload position.
// @Tags         mail
// @Accept       multipart/form-data
// @Produce      json
// @Param        from      formData  string  true   "Verified sender address"
// @Param        subject   formData  string  true   "Subject"
// @Param        body      formData  string  true   "HTML body"
// @Param        mappings  formData  string  true   "JSON array of {index, email}"
// @Param        files     formData  file    false  "Attachments"
// @Success      200  {object}  sendResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/mail/send [post]
func (h *Controller) send(c echo.Context) error {
	if _, ok := amw.Email(c); !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authorization header missing or invalid"})
	}

	from := c.FormValue("from")
	subject := c.FormValue("subject")
	body := c.FormValue("body")
	mappingsRaw := c.FormValue("mappings")
	if from == "" || subject == "" || body == "" || mappingsRaw == "" {
		return badRequest(c, "Missing required fields")
	}

	ctx := c.Request().Context()
	accountID, err := h.account(c)
	if errors.Is(err, adomain.ErrAccountNotFound) {
		return badRequest(c, "No User Found")
	}
	if err != nil {
		c.Logger().Errorf("resolve account: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	recipients, reason := parseMappings(mappingsRaw)
	if reason != "" {
		return badRequest(c, reason)
	}

	var files []domain.File
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = toFiles(form.File["files"])
	}

	res, err := h.svc.Dispatch(ctx, accountID, domain.BatchRequest{
		From:       from,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		Files:      files,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			return badRequest(c, verr.Message)
		case errors.Is(err, domain.ErrSenderNotVerified), errors.Is(err, domain.ErrSenderNotOwned):
			return badRequest(c, err.Error())
		case errors.Is(err, qdomain.ErrInsufficientQuota):
			return badRequest(c, "You Don't Have Limit to send mails to all those people")
		case errors.Is(err, qdomain.ErrAccountNotFound):
			return badRequest(c, "No User Found")
		default:
			c.Logger().Errorf("dispatch failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		}
	}

	out := sendResponse{Message: "Emails sent Successfully", JobID: res.JobID.String(), Results: make([]recipientResult, 0, len(res.Results))}
	for _, r := range res.Results {
		out.Results = append(out.Results, recipientResult{Email: r.Email, Result: r.OK})
	}
	return c.JSON(http.StatusOK, out)
}
