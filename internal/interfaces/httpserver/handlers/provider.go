package handlers

import (
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/storage"
)

// Provider wires HTTP handlers. LocalUpload is nil unless the local
// storage backend is active.
type Provider struct {
	Media       *MediaHandler
	LocalUpload *LocalUploadHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, localStore *storage.LocalStore, log zerolog.Logger) *Provider {
	provider := &Provider{
		Media: NewMediaHandler(cfg, service, log),
	}
	if localStore != nil {
		provider.LocalUpload = NewLocalUploadHandler(localStore, log)
	}
	return provider
}
