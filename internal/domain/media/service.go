package media

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/mediakey"
	"mediavault/internal/utils/platformerrors"
)

// Validation rule codes surfaced in error details, in addition to the codes
// owned by package mediakey.
const (
	RuleNoFiles             = "NO_FILES"
	RuleTooManyFiles        = "TOO_MANY_FILES"
	RuleFileTooLarge        = "FILE_TOO_LARGE"
	RuleFileTooSmall        = "FILE_TOO_SMALL"
	RuleUnsupportedMime     = "UNSUPPORTED_MIME_TYPE"
	RuleThumbnailNotAllowed = "THUMBNAIL_NOT_ALLOWED"
	RuleInvalidFileID       = "INVALID_FILE_ID"
	RuleInvalidSessionID    = "INVALID_SESSION_ID"
	RuleNoParts             = "NO_PARTS"
	RulePartOutOfRange      = "PART_OUT_OF_RANGE"
	RuleDuplicatePart       = "DUPLICATE_PART"
	RulePartsNotSorted      = "PARTS_NOT_SORTED"
	RulePartGap             = "PART_GAP"
	RuleInvalidPartTag      = "INVALID_PART_TAG"
	RuleTooManyKeys         = "TOO_MANY_KEYS"
	RuleEmptyQuery          = "EMPTY_QUERY"
	RuleInvalidMediaType    = "INVALID_MEDIA_TYPE"
)

// Service is the key-space and lifecycle management core. Every operation
// takes an already-authenticated user id and routes caller-supplied keys
// through mediakey validation before touching the store.
type Service struct {
	cfg    *config.Config
	store  ObjectStore
	policy mediakey.Policy
	mimes  map[string]struct{}
	log    zerolog.Logger
	now    func() time.Time
}

// NewService wires the media service against an injected object store.
func NewService(cfg *config.Config, store ObjectStore, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		policy: mediakey.NewPolicy(cfg.MaxFilenameLength, nil),
		mimes:  cfg.AllowedMimeSet(),
		log:    log.With().Str("component", "media-service").Logger(),
		now:    time.Now,
	}
}

// validationError builds a client-caused error carrying a stable rule code.
func validationError(ctx context.Context, rule, message string) error {
	return platformerrors.NewErrorWithContext(
		ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		message,
		nil,
		"",
		map[string]any{"rule": rule},
	)
}

// keyRuleError converts a mediakey violation into the platform taxonomy,
// preserving its rule code.
func keyRuleError(ctx context.Context, err error) error {
	if keyErr, ok := err.(*mediakey.KeyError); ok {
		return validationError(ctx, keyErr.Code, keyErr.Message)
	}
	return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "key validation failed")
}

// authorizeKey parses and ownership-checks a caller-supplied key.
func (s *Service) authorizeKey(ctx context.Context, rawKey, userID string) (mediakey.Key, error) {
	key, err := mediakey.Parse(rawKey)
	if err != nil {
		return mediakey.Key{}, keyRuleError(ctx, err)
	}
	if key.UserID != userID {
		return mediakey.Key{}, platformerrors.NewError(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden,
			"key does not belong to the authenticated user",
			nil,
			"",
		)
	}
	return key, nil
}

// storeError wraps an object-store failure.
func storeError(ctx context.Context, err error, message string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeExternal,
		message,
		err,
		"",
	)
}
