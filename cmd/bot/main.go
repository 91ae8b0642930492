package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/funnel-bot/internal/api/http"
	"github.com/spec-kit/funnel-bot/internal/api/http/handlers"
	"github.com/spec-kit/funnel-bot/internal/auth"
	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/funnel"
	"github.com/spec-kit/funnel-bot/internal/observability"
	"github.com/spec-kit/funnel-bot/internal/persistence"
	"github.com/spec-kit/funnel-bot/internal/repository"
	"github.com/spec-kit/funnel-bot/internal/service"
	"github.com/spec-kit/funnel-bot/internal/telegram"
	"github.com/spec-kit/funnel-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	subscriberRepo := repository.NewSubscriberRepository(pool)
	linkClickRepo := repository.NewLinkClickRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	auditService := service.NewAuditService(dispatcher, metrics, logger)
	auditService.RegisterHandlers()

	tgClient := telegram.NewClient(cfg.Telegram, logger)
	limiter := funnel.NewSendLimiter(cfg.Funnel.SendInterval())
	deliverer := funnel.NewDeliverer(tgClient, limiter, cfg.Funnel.DeliveryTimeout(), logger)

	catalog, err := funnel.DefaultCatalog(cfg.Funnel, cfg.Telegram.QuestionsGroupLink)
	if err != nil {
		logger.Fatal("invalid stage catalog", zap.Error(err))
	}

	engine := funnel.NewEngine(funnel.EngineDeps{
		Store:          subscriberRepo,
		Deliverer:      deliverer,
		Catalog:        catalog,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		AdvanceRetries: cfg.Funnel.AdvanceRetries,
	})

	welcomeService := service.NewWelcomeService(cfg.Telegram, service.WelcomeDependencies{
		Subscribers: subscriberRepo,
		Transport:   tgClient,
		Limiter:     limiter,
		Dispatcher:  dispatcher,
	}, logger)
	moderationService := service.NewModerationService(cfg.Moderation, service.ModerationDependencies{
		Transport:   tgClient,
		RedisClient: redis.Client,
		Links:       linkClickRepo,
		Subscribers: subscriberRepo,
		Dispatcher:  dispatcher,
	}, logger)
	broadcastService := service.NewBroadcastService(subscriberRepo, tgClient, limiter, dispatcher, logger)
	reportService := service.NewReportService(subscriberRepo, linkClickRepo, settingsRepo, catalog)
	authService := service.NewAuthService(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	funnelWorker := worker.NewFunnelWorker(engine, redis.Client, cfg.Funnel.CheckInterval(), logger)
	go funnelWorker.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Webhook:        handlers.NewWebhookHandler(cfg.Telegram, welcomeService, moderationService, redis.Client, logger),
		Admin:          handlers.NewAdminHandler(reportService, broadcastService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
