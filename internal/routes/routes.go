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

	"github.com/congo-pay/wallet_core/internal/config"
	"github.com/congo-pay/wallet_core/internal/guard"
	"github.com/congo-pay/wallet_core/internal/ledger"
	"github.com/congo-pay/wallet_core/internal/middleware"
	"github.com/congo-pay/wallet_core/internal/notification"
	"github.com/congo-pay/wallet_core/internal/reservation"
	"github.com/congo-pay/wallet_core/internal/store"
	"github.com/congo-pay/wallet_core/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Services bundles the wired domain services so main can reuse them for the
// background sweeper.
type Services struct {
	Wallets      *wallet.Service
	Reservations *reservation.Manager
	Ledger       *ledger.Service
}

// Setup configures middlewares and all application routes, returning the
// wired domain services.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
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

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var backend store.Store
	if d.DB != nil {
		backend = store.NewPostgres(d.DB)
	} else {
		backend = store.NewMemory()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	g := guard.New(backend, d.Cfg.MutateRetries, d.Cfg.MutateBackoff, d.Logger)
	walletSvc := wallet.NewService(backend, g, notifier, d.Logger)
	reservationMgr := reservation.NewManager(backend, g, notifier, d.Cfg.ReservationTTL, d.Logger)
	ledgerSvc := ledger.NewService(backend)

	walletHandler := wallet.NewHandler(walletSvc)
	reservationHandler := reservation.NewHandler(reservationMgr)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.MutationRateLimit(d.Cache, d.Cfg.RatePerMinute)
	RegisterWalletRoutes(api, walletHandler, ledgerHandler, rateLimiter)
	RegisterReservationRoutes(api, reservationHandler, rateLimiter)

	return Services{Wallets: walletSvc, Reservations: reservationMgr, Ledger: ledgerSvc}, nil
}
