package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mandat-pay/mandat_pay/internal/allowance"
	"github.com/mandat-pay/mandat_pay/internal/auth"
	"github.com/mandat-pay/mandat_pay/internal/config"
	"github.com/mandat-pay/mandat_pay/internal/identity"
	"github.com/mandat-pay/mandat_pay/internal/middleware"
	"github.com/mandat-pay/mandat_pay/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// In-memory backends are a development convenience only.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var ledgerBackend allowance.Ledger
	if d.DB != nil {
		ledgerBackend = allowance.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = allowance.NewInMemory()
	}

	var notifier notification.Notifier
	if d.Cache != nil {
		notifier = notification.NewRedisNotifier(d.Cache)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	var partyRepo identity.Repository
	if d.DB != nil {
		partyRepo = identity.NewPostgresRepository(d.DB)
	} else {
		partyRepo = identity.NewMemoryRepository()
	}

	allowanceSvc := allowance.NewService(ledgerBackend, notifier, d.Cfg.ApprovalPeriod)
	allowanceHandler := allowance.NewHandler(allowanceSvc)
	identitySvc := identity.NewService(partyRepo)
	authSvc := auth.NewService(d.Cfg, partyRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	loginLimiter := middleware.WriteRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, loginLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, partyRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	writeLimiter := middleware.WriteRateLimit(d.Cache, 30)
	RegisterAllowanceRoutes(protected, allowanceHandler, writeLimiter)

	return nil
}
