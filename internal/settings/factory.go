package settings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	ctrl "github.com/corvusHold/certmail/internal/settings/controller"
	repo "github.com/corvusHold/certmail/internal/settings/repository"
	svc "github.com/corvusHold/certmail/internal/settings/service"
)

// Register wires the settings module and registers HTTP routes.
func Register(e *echo.Echo, pg *pgxpool.Pool, jwt echo.MiddlewareFunc, store rl.Store, pub evdomain.Publisher, resolve func(ctx context.Context, email string) (uuid.UUID, error)) *svc.Service {
	r := repo.New(pg)
	s := svc.New(r)
	c := ctrl.New(r, s)
	c.WithJWT(jwt).WithRateLimit(store).WithPublisher(pub).WithAccountResolver(resolve)
	c.Register(e)
	return s
}
