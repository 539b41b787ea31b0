//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/infrastructure/logger"
	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/interfaces/httpserver"
)

// storageBackends bundles the active object store with the optional local
// backend, which additionally serves part uploads over HTTP.
type storageBackends struct {
	Store domain.ObjectStore
	Local *storage.LocalStore
}

var mediaSet = wire.NewSet(
	newStorageBackends,
	wire.FieldsOf(new(*storageBackends), "Store", "Local"),
	domain.NewService,
)

// BuildApplication assembles the media vault with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		mediaSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newStorageBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storageBackends, error) {
	store, localStore, err := provideStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &storageBackends{Store: store, Local: localStore}, nil
}
