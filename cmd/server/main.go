package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	grpcapi "viaje-seguro-partner/internal/api/grpc"
	httpapi "viaje-seguro-partner/internal/api/http"
	"viaje-seguro-partner/internal/backend"
	"viaje-seguro-partner/internal/camera"
	"viaje-seguro-partner/internal/config"
	"viaje-seguro-partner/internal/jobs"
	"viaje-seguro-partner/internal/logger"
	"viaje-seguro-partner/internal/repository"
	"viaje-seguro-partner/internal/repository/postgres"
	"viaje-seguro-partner/internal/scheduler"
	"viaje-seguro-partner/internal/security"
	"viaje-seguro-partner/internal/service"
	"viaje-seguro-partner/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Viaje Seguro partner console...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Backend configuration", "base_url", cfg.Backend.BaseURL, "timeout", cfg.BackendTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit trail
	var auditRepo repository.ActionAuditRepository = repository.NopAuditRepository{}
	if cfg.Database.Enabled {
		logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		store := postgres.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		auditRepo = store
		logger.Info("Database connection established")
	} else {
		logger.Info("Database disabled, action audits are not persisted")
	}

	// Photo storage
	uploader, mockStorage, err := storage.New(ctx, storage.Config{
		Type:            cfg.Storage.Type,
		UploadDir:       cfg.Storage.UploadDir,
		BaseURL:         cfg.Storage.BaseURL,
		Bucket:          cfg.Storage.Bucket,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.BackendTimeout())
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	notifier := service.NewSendGridNotifier(
		cfg.Notifications.SendGridAPIKey,
		cfg.Notifications.FromEmail,
		cfg.Notifications.FromName,
	)

	// Initialize Services
	dashboards := service.NewDashboardService(client, auditRepo, cfg.Backend.VATPercent)
	captures := service.NewCaptureService(client, uploader, dashboards, auditRepo, notifier, service.CaptureOptions{
		Render: camera.RenderOptions{
			MaxWidth: cfg.Capture.MaxWidth,
			Quality:  cfg.Capture.JPEGQuality,
		},
	})

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Dashboards:     dashboards,
		Captures:       captures,
		TokenManager:   tokenManager,
		MockStorage:    mockStorage,
		AllowedTypes:   cfg.Storage.AllowedTypes,
		MaxUploadBytes: cfg.Storage.MaxFileSize << 20,
	})
	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var health *grpcapi.HealthServer
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		health = grpcapi.NewHealthServer()
		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := health.Serve(lis); err != nil {
				logger.Error("gRPC health server error", "error", err)
			}
		}()
	}

	// Background jobs
	jobRunner := jobs.NewJobRunner(&jobs.Services{Captures: captures, Dashboards: dashboards}, cfg)
	sched, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()
	if health != nil {
		health.SetServing(true)
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	if health != nil {
		health.SetServing(false)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	sched.Stop()
	if health != nil {
		health.Stop()
	}
	logger.Info("Shutdown complete")
}
