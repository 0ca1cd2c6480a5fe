package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/social-recovery/recovery_wallet/internal/account"
	"github.com/social-recovery/recovery_wallet/internal/auth"
	"github.com/social-recovery/recovery_wallet/internal/config"
	"github.com/social-recovery/recovery_wallet/internal/funding"
	"github.com/social-recovery/recovery_wallet/internal/ledger"
	"github.com/social-recovery/recovery_wallet/internal/logging"
	"github.com/social-recovery/recovery_wallet/internal/metrics"
	"github.com/social-recovery/recovery_wallet/internal/middleware"
	"github.com/social-recovery/recovery_wallet/internal/notification"
	"github.com/social-recovery/recovery_wallet/internal/payments"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// Receivers are installed on the call forwarder keyed by target address.
	Receivers map[common.Address]payments.Receiver
	// Notifier overrides the logging notifier when set.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	d.Logger = logging.OrDiscard(d.Logger)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health and metrics
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		accountRepo   account.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		accountRepo = account.NewMemoryRepository()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	forwarder := payments.NewForwarder(ledgerBackend, notifier)
	for target, r := range d.Receivers {
		forwarder.Install(target, r)
	}

	walletSvc, err := wallet.NewService(wallet.Deps{
		Repo:      walletRepo,
		Ledger:    ledgerBackend,
		Forwarder: forwarder,
		Notifier:  notifier,
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	})
	if err != nil {
		return err
	}
	accountSvc := account.NewService(accountRepo)
	authSvc := auth.NewService(d.Cfg, accountRepo)

	authHandler := auth.NewHandler(accountSvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	jwtmw := middleware.JWTAuth(d.Cfg, authSvc)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	if d.Cfg.IsDev() {
		fundingSvc, err := funding.NewService(context.Background(), ledgerBackend, d.Logger)
		if err != nil {
			return err
		}
		RegisterFundingRoutes(api, funding.NewHandler(fundingSvc))
	}

	// Protected routes
	protected := api.Group("", jwtmw, middleware.Audit(d.Logger))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterAccountRoutes(protected, accountSvc, walletHandler)
	RegisterWalletRoutes(protected, walletHandler)

	return nil
}
