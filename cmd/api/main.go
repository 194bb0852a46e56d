package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskforge/servicedesk/internal/api/http"
	"github.com/deskforge/servicedesk/internal/api/http/handlers"
	"github.com/deskforge/servicedesk/internal/auth"
	"github.com/deskforge/servicedesk/internal/config"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/observability"
	"github.com/deskforge/servicedesk/internal/persistence"
	"github.com/deskforge/servicedesk/internal/repository"
	"github.com/deskforge/servicedesk/internal/service"
	"github.com/deskforge/servicedesk/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	repairRepo := repository.NewRepairRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	kbRepo := repository.NewKBRepository(pool)

	listCache := persistence.NewListCache(redis, cfg.SLA.ListCacheTTL(), logger)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	directoryService := service.NewDirectoryService(cfg.Auth, service.DirectoryDependencies{
		CategoryRepo: categoryRepo,
		KBRepo:       kbRepo,
		UserRepo:     userRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		UserRepo:     userRepo,
		CategoryRepo: categoryRepo,
		Cache:        listCache,
		Dispatcher:   dispatcher,
	})
	repairService := service.NewRepairService(service.RepairDependencies{
		RepairRepo:  repairRepo,
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Cache:       listCache,
		Dispatcher:  dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo:  commentRepo,
		FeedbackRepo: feedbackRepo,
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	assistService := service.NewAssistService(cfg.Assist, service.AssistDependencies{
		TicketRepo:   ticketRepo,
		KBRepo:       kbRepo,
		CategoryRepo: categoryRepo,
		Logger:       logger,
	})
	exportService := service.NewExportService()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, directoryService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Repair:         handlers.NewRepairHandler(repairService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Assist:         handlers.NewAssistHandler(assistService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		Export:         handlers.NewExportHandler(ticketService, exportService),
		Upload:         handlers.NewUploadHandler(cfg.Upload),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
