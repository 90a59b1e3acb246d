package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/api"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/app"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/auth"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/progress"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting vessel admin server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("progress_backend", cfg.Progress.Backend),
		zap.String("catalog_id", cfg.CatalogID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.OpenBackend(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open progress backend", zap.Error(err))
	}
	defer backend.Close()

	var tokens auth.TokenVerifier
	if cfg.Auth.FirebaseProjectID != "" {
		fb, err := auth.NewFirebaseTokenVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth", zap.Error(err))
		}
		tokens = fb
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set; only the service key is accepted")
	}
	if tokens == nil && cfg.Auth.ServiceKeyHash == "" {
		logger.Warn("No admin credentials configured; every /v1 request will be rejected")
	}
	verifier := auth.NewVerifier(tokens, cfg.Auth.AdminEmails, cfg.Auth.ServiceKeyHash, logger)

	catalog := app.NewCatalog(cfg, logger)
	svc := app.NewService(cfg, catalog, backend, logger)

	router := api.NewRouter(cfg, svc, catalog, verifier, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweeper := progress.NewSweeper(backend.Store, cfg.Progress.Retention, cfg.Progress.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server started successfully", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	// let in-flight deployments finish and record their results
	logger.Info("Waiting for running deployments")
	svc.Wait()

	logger.Info("Server exited")
}
