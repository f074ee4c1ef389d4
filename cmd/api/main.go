package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/corvusHold/certmail/internal/accounts"
	amw "github.com/corvusHold/certmail/internal/auth/middleware"
	"github.com/corvusHold/certmail/internal/config"
	"github.com/corvusHold/certmail/internal/dispatch"
	emailsvc "github.com/corvusHold/certmail/internal/email/service"
	evdomain "github.com/corvusHold/certmail/internal/events/domain"
	evsvc "github.com/corvusHold/certmail/internal/events/service"
	"github.com/corvusHold/certmail/internal/jobs"
	"github.com/corvusHold/certmail/internal/logger"
	"github.com/corvusHold/certmail/internal/metrics"
	rl "github.com/corvusHold/certmail/internal/platform/ratelimit"
	"github.com/corvusHold/certmail/internal/platform/validation"
	"github.com/corvusHold/certmail/internal/quota"
	"github.com/corvusHold/certmail/internal/settings"
	"github.com/corvusHold/certmail/internal/version"
)

// @title           certmail API
// @version         1.0
// @description     Bulk certificate mailing with per-account quota accounting.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

func main() {
	if handleCLICommand(os.Args[1:]) {
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Str("provider", cfg.EmailProvider).Msg("starting api server")

	// Init Postgres
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	// Init Redis/Valkey
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	rlStore := rl.NewRedisStore(redisClient)

	// Events go to RabbitMQ when configured, otherwise to the log.
	var pub evdomain.Publisher = evsvc.NewLogger().WithFallback(log)
	var mq *evsvc.AMQP
	if cfg.AMQPURL != "" {
		mq, err = evsvc.NewAMQP(cfg.AMQPURL)
		if err != nil {
			log.Error().Err(err).Msg("amqp unavailable, publishing events to log")
			mq = nil
		} else {
			defer mq.Close()
			pub = mq
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, cfg.CORSAllowedOrigins), nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	// Batches carry up to one attachment per recipient.
	e.Use(middleware.BodyLimit("64M"))

	// Validator
	e.Validator = validation.New()

	jwt := amw.NewBearer(cfg.JWTSigningKey)
	verifier := emailsvc.NewVerifier(cfg)

	// Register domain routes via factories
	acct := accounts.Register(e, pgPool, verifier, cfg.DefaultMonthlyLimit, jwt, rlStore, pub, log)
	resolve := func(ctx context.Context, email string) (uuid.UUID, error) {
		a, err := acct.ResolveByEmail(ctx, email)
		if err != nil {
			return uuid.Nil, err
		}
		return a.ID, nil
	}
	settingsSvc := settings.Register(e, pgPool, jwt, rlStore, pub, resolve)
	jobSvc := jobs.Register(e, pgPool, jwt, resolve)
	quotaSvc := quota.Register(e, pgPool, jwt, resolve, log)
	dispatch.Register(e, dispatch.Options{
		Senders:        acct,
		Ledger:         quotaSvc,
		Sink:           jobSvc,
		Mailer:         emailsvc.NewRouter(settingsSvc, cfg),
		Settings:       settingsSvc,
		MaxAttachBytes: cfg.MaxAttachmentBytes,
		SendLimit:      cfg.RateLimitSendLimit,
		SendWindow:     cfg.RateLimitSendWindow,
		Resolve:        resolve,
	}, jwt, rlStore, pub, log)

	// Health endpoint pings DB and Redis
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := metrics.Probe(ctx, "postgres", pgPool.Ping)
		cacheStatus := metrics.Probe(ctx, "redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})

		eventsStatus := "log"
		if mq != nil {
			eventsStatus = "down"
			if mq.IsConnected() {
				eventsStatus = "ok"
			}
		}

		return c.JSON(http.StatusOK, map[string]any{
			"events":  eventsStatus,
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"version": version.String(),
			"db":      dbStatus,
			"cache":   cacheStatus,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
