// Package main is the entry point for the auth service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/config"
	"github.com/prian3003/gotchu-auth/internal/handlers"
	"github.com/prian3003/gotchu-auth/internal/repository"
	"github.com/prian3003/gotchu-auth/internal/routes"
	"github.com/prian3003/gotchu-auth/internal/service"
	"github.com/prian3003/gotchu-auth/internal/store"
	redisclient "github.com/prian3003/gotchu-auth/pkg/redis"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("auth service exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.WithError(err).Warn("sentry init failed, continuing without error reporting")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sessions := store.New(redisclient.NewClient(cfg))
	if err := sessions.Connect(context.Background()); err != nil {
		return err
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.WithError(err).Warn("failed to close session store")
		}
	}()

	userRepo := repository.NewUserRepository(db)
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	jwtService, err := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(userRepo, sessions, jwtService, hasher, service.Options{
		SessionTTL:   cfg.SessionTTL,
		UserCacheTTL: cfg.UserCacheTTL,
		RateLimit:    int64(cfg.AuthRateLimit),
		RateWindow:   cfg.AuthRateWin,
	})

	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(db, sessions)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	routes.Setup(router, cfg, authService, authHandler, healthHandler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("starting auth service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info("auth service stopped")
	return nil
}
