package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/taskhive/task-service/internal/app"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/avatar"
	"github.com/taskhive/task-service/internal/services/hash"
	"github.com/taskhive/task-service/internal/services/jwt"
	"github.com/taskhive/task-service/internal/services/mailtrap"
	"github.com/taskhive/task-service/internal/services/sentry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Database
	dbService := sqldb.New()
	defer dbService.Close()

	if err := sqldb.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// 2. Services. The signing secret is injected here, once; rotating
	// it invalidates every outstanding session at once.
	jwtService, err := jwt.NewTokenService(os.Getenv("JWT_SECRET"), os.Getenv("JWT_ISSUER"))
	if err != nil {
		return fmt.Errorf("configuring token service: %w", err)
	}
	hashService := hash.NewHashService()
	avatarStore, err := avatar.NewMinioStore()
	if err != nil {
		return fmt.Errorf("configuring avatar storage: %w", err)
	}
	if err := avatarStore.EnsureBucket(context.Background()); err != nil {
		return fmt.Errorf("ensuring avatar bucket: %w", err)
	}
	mailService := mailtrap.NewMailtrapService()
	sentryService := sentry.NewSentryService()
	defer sentryService.Close()

	// 3. App
	application := app.NewApp(dbService, jwtService, hashService, avatarStore, mailService, sentryService)

	// 4. Server
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      app.RegisterRoutes(application),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 5. Graceful shutdown
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		done <- true
	}()

	// 6. Start
	logger.Info("Starting server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	logger.Info("Graceful shutdown complete")
	return nil
}
