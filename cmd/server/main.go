package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/rbac-backend/internal/api"
	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/config"
	"github.com/dom/rbac-backend/internal/logging"
	"github.com/dom/rbac-backend/internal/metrics"
	"github.com/dom/rbac-backend/internal/repository/postgres"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, log, logging.GormLevel(log))
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database handle: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	m := metrics.New()

	// Initialize services
	services := service.NewServices(repos, sqlDB, auth.NewBcryptHasher(auth.DefaultCost), cfg, m, log)

	// Initialize router
	router := api.NewRouter(services, cfg, m, log)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Errorf("failed to close database: %v", err)
	}

	log.Info("server stopped")
}
