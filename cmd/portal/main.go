package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-portal/internal/api/http"
	"github.com/spec-kit/support-portal/internal/api/http/handlers"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/locale"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/persistence"
	"github.com/spec-kit/support-portal/internal/repository"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/internal/upload"
	"github.com/spec-kit/support-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := locale.MustLoad(cfg.Locale.Default)
	metrics := observability.NewMetrics()
	deps := map[string]handlers.Pinger{"postgres": nil, "redis": nil}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		transcripts repository.TranscriptRepository = repository.NewMemoryTranscriptRepository()
		eventLog    repository.EventRepository      = repository.NewMemoryEventRepository()
	)
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		transcripts = repository.NewTranscriptRepository(pool)
		eventLog = repository.NewEventRepository(pool)
		deps["postgres"] = pg
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var sessionRepo repository.SessionRepository = repository.NewMemorySessionRepository()
	if redis != nil {
		sessionRepo = repository.NewRedisSessionRepository(redis)
		deps["redis"] = redis
	}

	var publisher events.Publisher
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer amqpPublisher.Close() //nolint:errcheck
		publisher = amqpPublisher
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifyDone := worker.StartNotificationWorker(ctx, dispatcher, eventLog, publisher, cfg.AMQP.QueueSize, logger)

	client, err := backend.New(cfg.Backend.APIURL,
		backend.WithTimeout(cfg.Backend.Timeout()),
		backend.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to init backend client", zap.Error(err))
	}

	var handoff *upload.Handoff
	if cfg.Upload.TUSURL != "" {
		tus, err := upload.NewTUSClient(cfg.Upload.TUSURL, cfg.Upload.ChunkBytes, nil, logger)
		if err != nil {
			logger.Fatal("failed to init upload client", zap.Error(err))
		}
		handoff = upload.NewHandoff(tus, cfg.Upload.Concurrency, logger, metrics)
	} else {
		logger.Warn("TUS_URL not provided; attachments will be reported as skipped")
	}

	tokens := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTLMinutes)
	sessions := service.NewSessionService(*cfg, service.SessionDependencies{
		Backend:     client,
		Handoff:     handoff,
		Catalog:     catalog,
		Tokens:      tokens,
		Sessions:    sessionRepo,
		Transcripts: transcripts,
		Redis:       redis,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	}, logger)
	defer sessions.CloseAll()

	idle := cfg.App.SessionIdle()
	janitorDone := worker.StartSessionJanitor(ctx, sessions, idle, idle/2, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
		BodyLimit:             12 * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, catalog, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics, sessions.Len),
		Session:     handlers.NewSessionHandler(sessions, cfg.Auth.CookieName, cfg.App.Env == "production"),
		Chat:        handlers.NewChatHandler(sessions, logger),
		Tickets:     handlers.NewTicketsHandler(sessions),
		Tracking:    handlers.NewTrackingHandler(sessions),
		Attachments: handlers.NewAttachmentsHandler(sessions),
		Catalog:     handlers.NewCatalogHandler(client, sessions),
		Sessions:    auth.NewSessionMiddleware(tokens, cfg.Auth.CookieName),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	cancel()
	<-janitorDone
	<-notifyDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
