package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/cache"
	"github.com/sarvcast/coinsvc/internal/config"
	"github.com/sarvcast/coinsvc/internal/handler"
	"github.com/sarvcast/coinsvc/internal/middleware"
	"github.com/sarvcast/coinsvc/internal/repository"
	"github.com/sarvcast/coinsvc/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	// Balance cache is optional; without redis every read hits the database.
	var balanceCache service.BalanceCache
	if c, err := cache.New(cfg.Redis); err != nil {
		zapLogger.Warn("Redis unavailable, balance cache disabled", zap.Error(err))
	} else {
		defer c.Close()
		balanceCache = c
	}

	// Create services
	walletSvc := service.NewWalletService(repo, balanceCache, zapLogger)
	earningSvc := service.NewEarningService(repo, repo, balanceCache, cfg.Coins, zapLogger)
	redemptionSvc := service.NewRedemptionService(repo, repo, balanceCache, cfg.Coins, zapLogger)
	commissionSvc := service.NewCommissionService(repo, zapLogger)
	reconciler := service.NewReconciler(repo, cfg.Coins.ReconcileInterval, zapLogger)

	// Create handlers
	h := handler.New(cfg, walletSvc, earningSvc, redemptionSvc, commissionSvc, reconciler)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Health check
	app.Get("/health", h.Health)

	// API routes with token authentication
	api := app.Group("/api", middleware.Auth(cfg))

	// Coins
	api.Get("/coins/balance", h.GetBalance)
	api.Get("/coins/transactions", h.GetTransactions)
	api.Post("/coins/spend", h.Spend)
	api.Post("/coins/redeem", h.Redeem)
	api.Get("/coins/redemptions", h.ListRedemptions)
	api.Post("/coins/redemptions/:id/cancel", h.CancelRedemption)

	// Referrals
	api.Post("/referral/apply", h.ApplyReferralCode)
	api.Get("/referral/stats", h.GetReferralStats)

	// Admin panel routes (token auth + admin check)
	admin := app.Group("/api/admin", middleware.Auth(cfg), middleware.AdminAuth(repo))
	admin.Get("/redemptions", h.AdminListRedemptions)
	admin.Post("/redemptions/:id/process", h.AdminProcessRedemption)
	admin.Post("/redemptions/:id/complete", h.AdminCompleteRedemption)
	admin.Post("/redemptions/:id/fail", h.AdminFailRedemption)
	admin.Post("/redemptions/:id/cancel", h.AdminCancelRedemption)

	admin.Post("/coins/adjust", h.AdminAdjust)
	admin.Post("/coins/bonus", h.AdminAwardBonus)

	admin.Get("/commission-payments", h.AdminListCommissions)
	admin.Post("/commission-payments", h.AdminCreateCommission)
	admin.Post("/commission-payments/:id/process", h.AdminProcessCommission)
	admin.Post("/commission-payments/:id/mark-paid", h.AdminMarkCommissionPaid)
	admin.Post("/commission-payments/:id/mark-failed", h.AdminMarkCommissionFailed)
	admin.Post("/commission-payments/bulk", h.AdminBulkCommissions)

	admin.Get("/reconciliation", h.AdminReconcileReport)

	// Internal endpoints (service-to-service and cron)
	internal := app.Group("/internal", middleware.InternalAuth(cfg))
	internal.Post("/quiz/award", h.QuizAward)
	internal.Post("/referral/complete", h.ReferralComplete)
	internal.Post("/cron/reconcile", h.CronReconcile)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reconciler.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	zapLogger.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
