package accounts

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	ctrl "github.com/corvusHold/certmail/internal/accounts/controller"
	repo "github.com/corvusHold/certmail/internal/accounts/repository"
	svc "github.com/corvusHold/certmail/internal/accounts/service"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
)

// Register wires the accounts module, registers HTTP routes and returns the
// service so other modules can resolve accounts and sender identities.
func Register(e *echo.Echo, pg *pgxpool.Pool, verifier edomain.Verifier, defaultMonthlyLimit int, jwt echo.MiddlewareFunc, store rl.Store, pub evdomain.Publisher, log zerolog.Logger) *svc.Service {
	r := repo.New(pg)
	s := svc.New(r, verifier, defaultMonthlyLimit)
	s.SetPublisher(pub)
	s.SetLogger(log)
	ctrl.New(s).WithJWT(jwt).WithRateLimit(store).Register(e)
	return s
}
