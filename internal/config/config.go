package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	minPartSizeBytes    = 5 * 1024 * 1024
	minPresignTTL       = 60 * time.Second
	maxPresignTTL       = 604800 * time.Second
	maxFilesUpperBound  = 100
	defaultMaxListLimit = 1000
)

// Config holds the environment driven configuration for the media vault service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-vault"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"VAULT_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"VAULT_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage Backend Selection
	StorageBackend string `env:"VAULT_STORAGE_BACKEND" envDefault:"s3"` // Options: "s3" or "local"

	// Local Storage Configuration
	LocalStoragePath    string `env:"VAULT_LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"VAULT_LOCAL_STORAGE_BASE_URL"`

	// S3 Storage Configuration
	S3Bucket       string `env:"VAULT_S3_BUCKET"`
	S3Region       string `env:"VAULT_S3_REGION" envDefault:"us-west-2"`
	S3Endpoint     string `env:"VAULT_S3_ENDPOINT"`
	S3AccessKeyID  string `env:"VAULT_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"VAULT_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"VAULT_S3_USE_PATH_STYLE" envDefault:"true"`

	// Upload Configuration
	KeyPrefix         string        `env:"VAULT_KEY_PREFIX" envDefault:"uploads"`
	PartSizeBytes     int64         `env:"VAULT_PART_SIZE_BYTES" envDefault:"10485760"`
	PresignTTL        time.Duration `env:"VAULT_PRESIGN_TTL" envDefault:"3600s"`
	MaxFileSizeBytes  int64         `env:"VAULT_MAX_FILE_SIZE_BYTES" envDefault:"5368709120"`
	MinFileSizeBytes  int64         `env:"VAULT_MIN_FILE_SIZE_BYTES" envDefault:"1"`
	MaxFilesPerUpload int           `env:"VAULT_MAX_FILES_PER_UPLOAD" envDefault:"10"`
	MaxFilenameLength int           `env:"VAULT_MAX_FILENAME_LENGTH" envDefault:"255"`
	AllowedMimeTypes  []string      `env:"VAULT_ALLOWED_MIME_TYPES" envSeparator:"," envDefault:"video/mp4,video/quicktime,video/webm,image/jpeg,image/png,image/webp,image/gif,audio/mpeg,audio/wav,audio/ogg,audio/mp4"`

	// Catalog Configuration
	DefaultListLimit int `env:"VAULT_DEFAULT_LIST_LIMIT" envDefault:"50"`
	MaxListLimit     int `env:"VAULT_MAX_LIST_LIMIT" envDefault:"1000"`
	MaxDeleteBatch   int `env:"VAULT_MAX_DELETE_BATCH" envDefault:"100"`

	// Authentication
	AuthEnabled bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer  string `env:"AUTH_ISSUER"`
	AuthJWKSURL string `env:"AUTH_JWKS_URL"`
}

// Load parses environment variables into Config and enforces documented bounds.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.KeyPrefix = strings.Trim(strings.TrimSpace(cfg.KeyPrefix), "/")
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "uploads"
	}

	if cfg.PartSizeBytes < minPartSizeBytes {
		cfg.PartSizeBytes = minPartSizeBytes
	}
	if cfg.PresignTTL < minPresignTTL {
		cfg.PresignTTL = minPresignTTL
	}
	if cfg.PresignTTL > maxPresignTTL {
		cfg.PresignTTL = maxPresignTTL
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024 * 1024
	}
	if cfg.MinFileSizeBytes < 1 {
		cfg.MinFileSizeBytes = 1
	}
	if cfg.MaxFilesPerUpload < 1 {
		cfg.MaxFilesPerUpload = 1
	}
	if cfg.MaxFilesPerUpload > maxFilesUpperBound {
		cfg.MaxFilesPerUpload = maxFilesUpperBound
	}
	if cfg.MaxFilenameLength <= 0 {
		cfg.MaxFilenameLength = 255
	}
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = 50
	}
	if cfg.MaxListLimit <= 0 || cfg.MaxListLimit > defaultMaxListLimit {
		cfg.MaxListLimit = defaultMaxListLimit
	}
	if cfg.MaxDeleteBatch <= 0 {
		cfg.MaxDeleteBatch = 100
	}

	mimes := make([]string, 0, len(cfg.AllowedMimeTypes))
	for _, m := range cfg.AllowedMimeTypes {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			mimes = append(mimes, m)
		}
	}
	if len(mimes) == 0 {
		return nil, fmt.Errorf("VAULT_ALLOWED_MIME_TYPES must not be empty")
	}
	cfg.AllowedMimeTypes = mimes

	if cfg.IsS3Storage() && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("VAULT_S3_BUCKET is required when the s3 backend is selected")
	}
	if cfg.IsLocalStorage() && strings.TrimSpace(cfg.LocalStoragePath) == "" {
		return nil, fmt.Errorf("VAULT_LOCAL_STORAGE_PATH is required when the local backend is selected")
	}

	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AllowedMimeSet returns the MIME allowlist as a lookup set.
func (c *Config) AllowedMimeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AllowedMimeTypes))
	for _, m := range c.AllowedMimeTypes {
		set[m] = struct{}{}
	}
	return set
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "s3"
}
