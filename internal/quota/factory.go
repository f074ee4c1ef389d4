package quota

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	ctrl "github.com/corvusHold/certmail/internal/quota/controller"
	repo "github.com/corvusHold/certmail/internal/quota/repository"
	svc "github.com/corvusHold/certmail/internal/quota/service"
)

// Register wires the quota ledger and its balance route and returns the
// service for the dispatcher.
func Register(e *echo.Echo, pg *pgxpool.Pool, jwt echo.MiddlewareFunc, resolve func(ctx context.Context, email string) (uuid.UUID, error), log zerolog.Logger) *svc.Service {
	r := repo.New(pg)
	r.SetLogger(log)
	s := svc.New(r)
	s.SetLogger(log)
	ctrl.New(s, ctrl.AccountResolver(resolve)).WithJWT(jwt).Register(e)
	return s
}
