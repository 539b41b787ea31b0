package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/infrastructure/logger"
	"mediavault/internal/infrastructure/observability"
	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/interfaces/httpserver"
)

// @title Media Vault API
// @version 1.0
// @description Brokered multipart uploads and per-user media catalog over object storage
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, localStore, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	mediaService := domain.NewService(cfg, store, log)

	httpServer := httpserver.New(cfg, log, mediaService, localStore, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideStorage creates the configured storage backend. The second return
// value is non-nil only for the local backend, which needs its own part
// upload route.
func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.ObjectStore, *storage.LocalStore, error) {
	if cfg.IsLocalStorage() {
		localStore, err := storage.NewLocalStore(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return localStore, localStore, nil
	}

	s3Store, err := storage.NewS3Store(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return s3Store, nil, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
