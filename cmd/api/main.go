package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fileflow/docs"
	"fileflow/internal/config"
	"fileflow/internal/database"
	"fileflow/internal/database/migration"
	handlers "fileflow/internal/http/handler"
	"fileflow/internal/http/middleware"
	"fileflow/internal/logging"
	"fileflow/internal/otel"
	"fileflow/internal/repository/postgres"
	"fileflow/internal/service"
	"fileflow/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title FileFlow API
// @version 1.0
// @description Peer-to-peer document sharing with a signed transaction ledger.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Location(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server_exited")
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, local, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.Database.Name),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	uow := postgres.NewUnitOfWork(db)
	quota := service.NewQuotaLedger(log, metrics)
	ledger := service.NewLedgerService(uow, quota, metrics, log)
	content := service.NewContentService(uow, store, quota, service.ContentConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize(),
		PresignExpiry: cfg.Storage.PresignExpiry(),
	}, log)

	docs.SwaggerInfo.Host = cfg.AppHost

	bodyLimit := fiber.DefaultBodyLimit
	if local != nil && cfg.Upload.MaxFileSize() > int64(bodyLimit) {
		// local uploads stream through this server
		bodyLimit = int(cfg.Upload.MaxFileSize())
	}
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:        db,
		Ledger:    ledger,
		Content:   content,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Gatherer:  reg,
		Local:     local,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "storage_backend": cfg.Storage.Backend}).Info("server_started")
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server_shutting_down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := app.ShutdownWithContext(sctx)
		if terr := shutdownTracing(sctx); terr != nil {
			log.WithError(terr).Warn("tracing_shutdown_failed")
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server_stopped")
	return nil
}

// openStorage builds the configured byte store. local is non-nil only for the disk
// backend, whose signed URLs are served by this process.
func openStorage(ctx context.Context, cfg *config.AppConfig) (store storage.Storage, local *storage.Local, err error) {
	switch cfg.Storage.Backend {
	case "minio":
		store, err = storage.NewMinIO(ctx, cfg.MinIO)
	case "s3":
		store, err = storage.NewS3(ctx, cfg.S3)
	case "local":
		local, err = storage.NewLocal(cfg.Storage)
		store = local
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	return store, local, nil
}
