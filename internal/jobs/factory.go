package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	ctrl "github.com/corvusHold/certmail/internal/jobs/controller"
	domain "github.com/corvusHold/certmail/internal/jobs/domain"
	repo "github.com/corvusHold/certmail/internal/jobs/repository"
	svc "github.com/corvusHold/certmail/internal/jobs/service"
)

// Register wires the job ledger, registers its audit routes and returns the
// service for the dispatcher.
func Register(e *echo.Echo, pg *pgxpool.Pool, jwt echo.MiddlewareFunc, resolve func(ctx context.Context, email string) (uuid.UUID, error)) domain.Service {
	s := svc.New(repo.New(pg))
	ctrl.New(s, ctrl.AccountResolver(resolve)).WithJWT(jwt).Register(e)
	return s
}
