package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domain "github.com/corvusHold/certmail/internal/accounts/domain"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	"github.com/corvusHold/certmail/internal/platform/validation"
)

type Controller struct {
	svc     domain.Service
	jwtMW   echo.MiddlewareFunc
	rlStore rl.Store
}

func New(svc domain.Service) *Controller {
	return &Controller{svc: svc}
}

// WithJWT injects the bearer middleware for authenticated routes.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// WithRateLimit injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimit(store rl.Store) *Controller { h.rlStore = store; return h }

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	h.RegisterV1(g)
}

func (h *Controller) RegisterV1(g *echo.Group) {
	signupRL := rl.Middleware(rl.Policy{Name: "accounts:signup", Window: time.Minute, Limit: 5, Key: rl.KeyAccountOrIP("accounts:signup", nil)}, h.rlStore)
	verifyRL := rl.Middleware(rl.Policy{Name: "senders:verify", Window: time.Minute, Limit: 10, Key: rl.KeyAccountOrIP("senders:verify", amw.Email)}, h.rlStore)

	auth := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		auth = append(auth, h.jwtMW)
	}
	g.POST("/accounts", h.signup, signupRL)
	g.GET("/profile", h.profile, auth...)
	g.POST("/senders", h.addSender, append(auth, verifyRL)...)
	g.POST("/senders/verify", h.checkSender, append(auth, verifyRL)...)
}

type signupReq struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

type senderReq struct {
	Email string `json:"email" validate:"required,email"`
}

type accountResp struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	MonthlyLimit int    `json:"monthly_limit"`
	UsedLimit    int    `json:"used_limit"`
	Remaining    int    `json:"remaining"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type senderResp struct {
	Email      string `json:"email"`
	Slot       string `json:"slot"`
	IsPrimary  bool   `json:"is_primary"`
	IsVerified bool   `json:"is_verified"`
}

type profileResp struct {
	Message string       `json:"message"`
	Account accountResp  `json:"account"`
	Senders []senderResp `json:"senders"`
}

func toAccountResp(a domain.Account) accountResp {
	r := accountResp{
		ID:           a.ID.String(),
		Email:        a.Email,
		Name:         a.Name,
		MonthlyLimit: a.MonthlyLimit,
		UsedLimit:    a.UsedLimit,
		Remaining:    a.Remaining(),
		IsActive:     a.IsActive,
	}
	if !a.CreatedAt.IsZero() {
		r.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

func toSenderResp(s domain.SenderIdentity) senderResp {
	return senderResp{Email: s.Email, Slot: string(s.Slot), IsPrimary: s.IsPrimary, IsVerified: s.IsVerified}
}

func msg(c echo.Context, code int, m string) error {
	return c.JSON(code, map[string]string{"message": m})
}

// senderError maps sender identity errors onto HTTP responses.
func senderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidEmail):
		return msg(c, http.StatusBadRequest, "Invalid email")
	case errors.Is(err, domain.ErrSenderExists):
		return msg(c, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, domain.ErrSenderLimit):
		return msg(c, http.StatusBadRequest, "You can only verify 2 emails")
	case errors.Is(err, domain.ErrSenderNotFound):
		return msg(c, http.StatusNotFound, "Email not found")
	case errors.Is(err, domain.ErrSenderNotOwned):
		return msg(c, http.StatusForbidden, "Email does not belong to you")
	case errors.Is(err, domain.ErrAlreadyVerified):
		return msg(c, http.StatusForbidden, "Email already verified")
	case errors.Is(err, domain.ErrNotYetVerified):
		return msg(c, http.StatusForbidden, "Email not yet verified")
	case errors.Is(err, domain.ErrVerificationRequest):
		return msg(c, http.StatusBadGateway, "Failed to send verification email")
	case errors.Is(err, domain.ErrAccountNotFound):
		return msg(c, http.StatusBadRequest, "No User Found")
	default:
		c.Logger().Errorf("sender request failed: %v", err)
		return msg(c, http.StatusInternalServerError, "internal error")
	}
}

// caller resolves the bearer principal to its account. When ok is false the
// response has been written and err is the result of writing it.
func (h *Controller) caller(c echo.Context) (acct domain.Account, ok bool, err error) {
	email, found := amw.Email(c)
	if !found {
		return domain.Account{}, false, msg(c, http.StatusUnauthorized, "unauthorized")
	}
	acct, err = h.svc.ResolveByEmail(c.Request().Context(), email)
	if err != nil {
		return domain.Account{}, false, senderError(c, err)
	}
	return acct, true, nil
}

// Signup godoc
// @Summary      Create account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body  signupReq  true  "email and name"
// @Success      201   {object}  accountResp
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/accounts [post]
func (h *Controller) signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	acct, err := h.svc.Signup(c.Request().Context(), req.Email, req.Name)
	switch {
	case errors.Is(err, domain.ErrAccountExists):
		return msg(c, http.StatusConflict, "Account already exists")
	case errors.Is(err, domain.ErrInvalidEmail):
		return msg(c, http.StatusBadRequest, "Invalid email")
	case err != nil:
		c.Logger().Errorf("signup failed: %v", err)
		return msg(c, http.StatusInternalServerError, "Failed to create user")
	}
	return c.JSON(http.StatusCreated, toAccountResp(acct))
}

// Profile godoc
// @Summary      Fetch profile
// @Description  Returns the caller's account, quota balance and sender identities
// @Tags         accounts
// @Produce      json
// @Success      200  {object}  profileResp
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/profile [get]
func (h *Controller) profile(c echo.Context) error {
	email, ok := amw.Email(c)
	if !ok {
		return msg(c, http.StatusUnauthorized, "unauthorized")
	}
	p, err := h.svc.Profile(c.Request().Context(), email)
	if err != nil {
		return senderError(c, err)
	}
	out := profileResp{Message: "User Details Fetched", Account: toAccountResp(p.Account), Senders: make([]senderResp, 0, len(p.Senders))}
	for _, s := range p.Senders {
		out.Senders = append(out.Senders, toSenderResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Add Sender godoc
// @Summary      Register sender email
// @Description  Registers a sender identity and starts provider verification
// @Tags         senders
// @Accept       json
// @Produce      json
// @Param        body  body  senderReq  true  "email"
// @Success      201   {object}  senderResp
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/senders [post]
func (h *Controller) addSender(c echo.Context) error {
	var req senderReq
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	acct, ok, err := h.caller(c)
	if !ok {
		return err
	}
	s, err := h.svc.AddSender(c.Request().Context(), acct.ID, req.Email)
	if err != nil {
		return senderError(c, err)
	}
	return c.JSON(http.StatusCreated, toSenderResp(s))
}

// Check Sender godoc
// @Summary      Check sender verification
// @Description  Marks the sender verified once the provider reports it verified
// @Tags         senders
// @Accept       json
// @Produce      json
// @Param        body  body  senderReq  true  "email"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/senders/verify [post]
func (h *Controller) checkSender(c echo.Context) error {
	var req senderReq
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	acct, ok, err := h.caller(c)
	if !ok {
		return err
	}
	if _, err := h.svc.CheckSender(c.Request().Context(), acct.ID, req.Email); err != nil {
		return senderError(c, err)
	}
	return msg(c, http.StatusOK, "Email verified Successfully")
}
