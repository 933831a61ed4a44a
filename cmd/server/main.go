package main

import (
	"azarean/rehab-app/internal/api" // Import API package
	"azarean/rehab-app/internal/config"
	"azarean/rehab-app/internal/logger"
	"azarean/rehab-app/internal/observability"
	"azarean/rehab-app/internal/repository"
	"azarean/rehab-app/internal/repository/memory"
	"azarean/rehab-app/internal/repository/mongo"
	"azarean/rehab-app/internal/service"
	"azarean/rehab-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// @title Rehab API
// @version 1.0
// @description API for instructors assembling exercise complexes and patients following a rehab roadmap.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "rehab",
		Short:        "Rehabilitation progress API server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(indexesCmd(&configPath))
	root.AddCommand(seedPhasesCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(a)
		},
	}
}

// app is what every command needs: config, a logger and an open store.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	store repository.Store
	// ensureIndexes is nil for the memory driver.
	ensureIndexes func(ctx context.Context) error
	closers       []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.log.Sync()
}

func bootstrap(configPath string) (*app, error) {
	// --- Configuration ---
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("could not build logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	// --- Database Connection ---
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		a.store = memory.NewStore().Repositories()
	case "mongo", "":
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() {
			log.Info("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Error("failed to disconnect MongoDB", "error", err)
			}
		})
		appDB := dbClient.Database(cfg.Database.Name)
		a.store = mongo.NewStore(dbClient, appDB)
		a.ensureIndexes = func(ctx context.Context) error {
			return mongo.EnsureIndexes(ctx, appDB)
		}
		log.Info("Database connection established", "database", cfg.Database.Name)
	default:
		log.Sync()
		return nil, fmt.Errorf("unknown database.driver %q", cfg.Database.Driver)
	}
	return a, nil
}

func newServices(ctx context.Context, a *app) (api.Services, error) {
	// --- Initialize Storage ---
	fileStorage := storage.Disabled()
	if a.cfg.S3.BucketName != "" {
		s3, err := storage.NewS3Storage(ctx, a.cfg.S3, a.log)
		if err != nil {
			return api.Services{}, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		fileStorage = s3
	} else {
		a.log.Warn("s3.bucket_name is empty; exercise media uploads are disabled")
	}

	now := service.Clock(time.Now)
	loc := a.cfg.Rehab.Location()
	store := a.store

	return api.Services{
		Auth:        service.NewAuthService(store.Users, a.cfg.JWT.Secret, a.cfg.JWT.Expiration, a.log),
		Patients:    service.NewPatientService(store, a.log),
		Exercises:   service.NewExerciseService(store, fileStorage, a.log),
		Diagnoses:   service.NewDiagnosisService(store),
		Composition: service.NewCompositionService(store, a.log),
		Lifecycle:   service.NewLifecycleService(store, a.log),
		Progress:    service.NewProgressService(store, now, loc, a.log),
		Roadmap:     service.NewRoadmapService(store, now, loc, a.log),
		Reporting:   service.NewReportingService(store, loc, a.log),
	}, nil
}

func runServer(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, a.cfg.Tracing, a.log)
	if err != nil {
		return fmt.Errorf("could not init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.log.Error("tracer shutdown failed", "error", err)
		}
	}()

	// --- Ensure Indexes ---
	if a.ensureIndexes != nil {
		a.log.Info("Ensuring database indexes...")
		idxCtx, cancel := context.WithTimeout(ctx, time.Minute)
		err := a.ensureIndexes(idxCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("could not ensure indexes: %w", err)
		}
	}

	svc, err := newServices(ctx, a)
	if err != nil {
		return err
	}

	gin.SetMode(a.cfg.Server.Mode)
	router := api.NewRouter(a.cfg, svc, a.log)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         a.cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "address", a.cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	a.log.Info("Shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info("Server exiting.")
	return nil
}
