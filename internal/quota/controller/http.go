package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	adomain "github.com/corvusHold/certmail/internal/accounts/domain"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	domain "github.com/corvusHold/certmail/internal/quota/domain"
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

func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	if h.jwtMW != nil {
		g.Use(h.jwtMW)
	}
	g.GET("/quota", h.balance)
}

type balanceResp struct {
	MonthlyLimit int `json:"monthly_limit"`
	UsedLimit    int `json:"used_limit"`
	Remaining    int `json:"remaining"`
}

// Quota Balance godoc
// @Summary      Quota balance
// @Description  Returns the caller's monthly quota and what is left of it
// @Tags         quota
// @Produce      json
// @Success      200  {object}  balanceResp
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/quota [get]
func (h *Controller) balance(c echo.Context) error {
	email, ok := amw.Email(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
	}
	accountID, err := h.resolver(c.Request().Context(), email)
	if errors.Is(err, adomain.ErrAccountNotFound) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "No User Found"})
	}
	if err != nil {
		c.Logger().Errorf("resolve account: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
	b, err := h.svc.Remaining(c.Request().Context(), accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "No User Found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, balanceResp{MonthlyLimit: b.MonthlyLimit, UsedLimit: b.UsedLimit, Remaining: b.Remaining()})
}
