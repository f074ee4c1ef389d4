package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	domain "github.com/corvusHold/certmail/internal/jobs/domain"
)

// AccountResolver maps an authenticated email to its account id.
type AccountResolver func(ctx context.Context, email string) (uuid.UUID, error)

type Controller struct {
	svc      domain.Service
	jwtMW    echo.MiddlewareFunc
	resolver AccountResolver
}

func New(svc domain.Service, resolver AccountResolver) *Controller {
	return &Controller{svc: svc, resolver: resolver}
}

// WithJWT injects the bearer middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	if h.jwtMW != nil {
		g.Use(h.jwtMW)
	}
	g.GET("/jobs", h.listJobs)
	g.GET("/jobs/:id", h.getJob)
	g.GET("/jobs/:id/reconcile", h.reconcile)
}

type jobResp struct {
	ID               string `json:"id"`
	NoOfEmails       int    `json:"no_of_emails"`
	SuccessfulEmails int    `json:"successful_emails"`
	FailedEmails     int    `json:"failed_emails"`
	CreatedAt        string `json:"created_at,omitempty"`
	FinalizedAt      string `json:"finalized_at,omitempty"`
}

type messageResp struct {
	Position          int    `json:"position"`
	Recipient         string `json:"recipient"`
	Sent              bool   `json:"sent"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

type jobDetailResp struct {
	jobResp
	Messages []messageResp `json:"messages"`
}

type listQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

type listResponse struct {
	Items      []jobResp `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

type reconcileResp struct {
	JobID            string `json:"job_id"`
	NoOfEmails       int    `json:"no_of_emails"`
	SuccessfulEmails int    `json:"successful_emails"`
	FailedEmails     int    `json:"failed_emails"`
	Recorded         int    `json:"recorded"`
	RecordedOK       int    `json:"recorded_ok"`
	RecordedFail     int    `json:"recorded_fail"`
	Unrecorded       int    `json:"unrecorded"`
	Finalized        bool   `json:"finalized"`
	Drift            bool   `json:"drift"`
}

func toTimeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toJobResp(j domain.Job) jobResp {
	r := jobResp{
		ID:               j.ID.String(),
		NoOfEmails:       j.NoOfEmails,
		SuccessfulEmails: j.SuccessfulEmails,
		FailedEmails:     j.FailedEmails,
		CreatedAt:        toTimeString(j.CreatedAt),
	}
	if j.FinalizedAt != nil {
		r.FinalizedAt = toTimeString(*j.FinalizedAt)
	}
	return r
}

// scope resolves the caller's account and, when withID is set, the :id job param.
func (h *Controller) scope(c echo.Context, withID bool) (accountID, jobID uuid.UUID, ok bool, err error) {
	email, found := amw.Email(c)
	if !found {
		return uuid.Nil, uuid.Nil, false, c.JSON(http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
	}
	if withID {
		jobID, err = uuid.Parse(c.Param("id"))
		if err != nil {
			return uuid.Nil, uuid.Nil, false, c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid id"})
		}
	}
	accountID, err = h.resolver(c.Request().Context(), email)
	if errors.Is(err, adomain.ErrAccountNotFound) {
		return uuid.Nil, uuid.Nil, false, c.JSON(http.StatusBadRequest, map[string]string{"message": "No User Found"})
	}
	if err != nil {
		c.Logger().Errorf("resolve account: %v", err)
		return uuid.Nil, uuid.Nil, false, c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
	return accountID, jobID, true, nil
}

func notFoundOr500(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrJobNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "job not found"})
	}
	c.Logger().Errorf("jobs request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal error"})
}

// List Jobs godoc
// @Summary      List jobs
// @Description  Lists the caller's batch jobs, newest first
// @Tags         jobs
// @Produce      json
// @Param        page       query  int  false  "Page (default 1)"
// @Param        page_size  query  int  false  "Page size (default 20, max 100)"
// @Success      200  {object}  listResponse
// @Security     BearerAuth
// @Router       /api/v1/jobs [get]
func (h *Controller) listJobs(c echo.Context) error {
	accountID, _, ok, err := h.scope(c, false)
	if !ok {
		return err
	}
	var q listQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid query"})
	}
	res, err := h.svc.ListJobs(c.Request().Context(), accountID, domain.ListOptions{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		return notFoundOr500(c, err)
	}
	out := listResponse{Items: make([]jobResp, 0, len(res.Items)), Total: res.Total, Page: res.Page, PageSize: res.PageSize, TotalPages: res.TotalPages}
	for _, j := range res.Items {
		out.Items = append(out.Items, toJobResp(j))
	}
	return c.JSON(http.StatusOK, out)
}

// Get Job godoc
// @Summary      Get job
// @Description  Returns a job with its recorded messages in batch order
// @Tags         jobs
// @Produce      json
// @Param        id   path   string  true  "Job ID (UUID)"
// @Success      200  {object}  jobDetailResp
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/jobs/{id} [get]
func (h *Controller) getJob(c echo.Context) error {
	accountID, jobID, ok, err := h.scope(c, true)
	if !ok {
		return err
	}
	d, err := h.svc.GetJob(c.Request().Context(), accountID, jobID)
	if err != nil {
		return notFoundOr500(c, err)
	}
	out := jobDetailResp{jobResp: toJobResp(d.Job), Messages: make([]messageResp, 0, len(d.Messages))}
	for _, m := range d.Messages {
		out.Messages = append(out.Messages, messageResp{
			Position:          m.Position,
			Recipient:         m.Recipient,
			Sent:              m.Sent,
			ProviderMessageID: m.ProviderMessageID,
			FailureReason:     m.FailureReason,
			CreatedAt:         toTimeString(m.CreatedAt),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Reconcile Job godoc
// @Summary      Reconcile job
// @Description  Compares job counters with recorded Sent Message rows
// @Tags         jobs
// @Produce      json
// @Param        id   path   string  true  "Job ID (UUID)"
// @Success      200  {object}  reconcileResp
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/jobs/{id}/reconcile [get]
func (h *Controller) reconcile(c echo.Context) error {
	accountID, jobID, ok, err := h.scope(c, true)
	if !ok {
		return err
	}
	r, err := h.svc.Reconcile(c.Request().Context(), accountID, jobID)
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(http.StatusOK, reconcileResp{
		JobID:            r.JobID.String(),
		NoOfEmails:       r.NoOfEmails,
		SuccessfulEmails: r.SuccessfulEmails,
		FailedEmails:     r.FailedEmails,
		Recorded:         r.Recorded,
		RecordedOK:       r.RecordedOK,
		RecordedFail:     r.RecordedFail,
		Unrecorded:       r.Unrecorded,
		Finalized:        r.Finalized,
		Drift:            r.Drift,
	})
}
