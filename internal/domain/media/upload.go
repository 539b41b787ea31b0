package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"mediavault/internal/domain/mediakey"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/groupid"
	"mediavault/internal/utils/platformerrors"
)

const maxPartNumber = 10000

// fileIssue is one accumulated validation problem in an upload batch.
type fileIssue struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// InitiateUpload derives storage keys for each file group, opens multipart
// sessions, and returns presigned part-upload URLs. Groups are processed
// concurrently; they touch disjoint keys by construction. A failure in any
// group currently surfaces as one aggregate error with no partial-success
// mode; open sessions of failed groups are left to the store's expiry.
func (s *Service) InitiateUpload(ctx context.Context, userID string, req InitiateUploadRequest) (*InitiateUploadResult, error) {
	uid, err := mediakey.SanitizeUserID(userID)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}

	if len(req.Groups) == 0 {
		return nil, validationError(ctx, RuleNoFiles, "at least one file is required")
	}
	if len(req.Groups) > s.cfg.MaxFilesPerUpload {
		return nil, validationError(ctx, RuleTooManyFiles,
			fmt.Sprintf("at most %d files per request", s.cfg.MaxFilesPerUpload))
	}

	// File-array validation accumulates every violation so the caller sees
	// all problems in one round trip.
	issues := s.validateGroups(req.Groups)
	if len(issues) > 0 {
		return nil, platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			"one or more files failed validation",
			nil,
			"",
			map[string]any{"files": issues},
		)
	}

	plans := make([]GroupUploadPlan, len(req.Groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range req.Groups {
		g.Go(func() error {
			plan, err := s.planGroup(gctx, uid, group)
			if err != nil {
				return err
			}
			plans[i] = *plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordInitiate("error", len(req.Groups))
		return nil, err
	}

	metrics.RecordInitiate("success", len(req.Groups))
	return &InitiateUploadResult{Groups: plans}, nil
}

func (s *Service) validateGroups(groups []UploadGroup) []fileIssue {
	var issues []fileIssue
	for i, group := range groups {
		issues = append(issues, s.validateDescriptor(i, group.Primary)...)
		if group.Thumbnail == nil {
			continue
		}
		// Thumbnails are a visual-category pairing; an audio thumbnail key
		// would be invisible to the catalog and the delete cascade.
		if mediakey.CategoryForMime(group.Primary.MimeType) != mediakey.CategoryVisual {
			issues = append(issues, fileIssue{
				Index:    i,
				Filename: group.Thumbnail.Filename,
				Rule:     RuleThumbnailNotAllowed,
				Message:  "thumbnails are only accepted for visual files",
			})
			continue
		}
		issues = append(issues, s.validateDescriptor(i, *group.Thumbnail)...)
	}
	return issues
}

func (s *Service) validateDescriptor(idx int, fd FileDescriptor) []fileIssue {
	var issues []fileIssue
	collect := func(rule, message string) {
		issues = append(issues, fileIssue{Index: idx, Filename: fd.Filename, Rule: rule, Message: message})
	}

	if _, err := s.policy.SanitizeFilename(fd.Filename); err != nil {
		if keyErr, ok := err.(*mediakey.KeyError); ok {
			collect(keyErr.Code, keyErr.Message)
		} else {
			collect(mediakey.RuleInvalidFilename, err.Error())
		}
	}

	declared := strings.ToLower(strings.TrimSpace(fd.MimeType))
	if _, ok := s.mimes[declared]; !ok {
		collect(RuleUnsupportedMime, fmt.Sprintf("mime type %q is not allowed", fd.MimeType))
	} else if mimetype.Lookup(declared) == nil {
		s.log.Debug().Str("mime", declared).Str("filename", fd.Filename).
			Msg("declared mime type is not a registered media type")
	}

	if fd.SizeBytes > s.cfg.MaxFileSizeBytes {
		collect(RuleFileTooLarge, fmt.Sprintf("file exceeds max size of %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if fd.SizeBytes < s.cfg.MinFileSizeBytes {
		collect(RuleFileTooSmall, fmt.Sprintf("file is below min size of %d bytes", s.cfg.MinFileSizeBytes))
	}
	return issues
}

// planGroup mints one group id and opens sessions for the primary and, when
// present, its thumbnail, which lands beside the primary under the same id.
func (s *Service) planGroup(ctx context.Context, userID string, group UploadGroup) (*GroupUploadPlan, error) {
	gid := groupid.New()
	category := mediakey.CategoryForMime(group.Primary.MimeType)
	now := s.now().UTC()

	primaryName, err := s.policy.SanitizeFilename(group.Primary.Filename)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}
	primaryKey := mediakey.Build(s.cfg.KeyPrefix, userID, category, now, gid, primaryName)

	primary, err := s.openTarget(ctx, primaryKey, group.Primary, gid, primaryName, now)
	if err != nil {
		return nil, err
	}

	plan := &GroupUploadPlan{Primary: *primary}

	if group.Thumbnail != nil {
		thumbName, err := s.policy.SanitizeFilename(group.Thumbnail.Filename)
		if err != nil {
			return nil, keyRuleError(ctx, err)
		}
		// The stored thumbnail name is derived from the primary so the
		// pairing stays resolvable from the key alone.
		thumbKey := primaryKey.Thumbnail()
		thumb, err := s.openTarget(ctx, thumbKey, *group.Thumbnail, gid, thumbName, now)
		if err != nil {
			return nil, err
		}
		plan.Thumbnail = thumb
	}

	return plan, nil
}

// openTarget opens one multipart session and presigns its part URLs.
func (s *Service) openTarget(ctx context.Context, key mediakey.Key, fd FileDescriptor, gid, originalName string, now time.Time) (*UploadTarget, error) {
	storageKey := key.String()
	metadata := map[string]string{
		MetaUserID:           key.UserID,
		MetaGroupID:          gid,
		MetaOriginalFilename: originalName,
		MetaUploadedAt:       now.Format(time.RFC3339),
	}

	sessionID, err := s.store.OpenMultipart(ctx, storageKey, fd.MimeType, metadata)
	if err != nil {
		return nil, storeError(ctx, err, "open multipart session")
	}

	partCount := int32((fd.SizeBytes + s.cfg.PartSizeBytes - 1) / s.cfg.PartSizeBytes)
	if partCount < 1 {
		partCount = 1
	}
	if partCount > maxPartNumber {
		s.abortQuietly(ctx, storageKey, sessionID)
		return nil, validationError(ctx, RuleFileTooLarge,
			fmt.Sprintf("file would need %d parts; the maximum is %d", partCount, maxPartNumber))
	}

	parts := make([]PresignedPart, 0, partCount)
	for n := int32(1); n <= partCount; n++ {
		url, err := s.store.PresignPartUpload(ctx, storageKey, sessionID, n, s.cfg.PresignTTL)
		if err != nil {
			s.abortQuietly(ctx, storageKey, sessionID)
			return nil, storeError(ctx, err, "presign part upload")
		}
		parts = append(parts, PresignedPart{PartNumber: n, UploadURL: url})
	}

	return &UploadTarget{
		FileID:     gid,
		StorageKey: storageKey,
		SessionID:  sessionID,
		Parts:      parts,
		Filename:   originalName,
		FileType:   fd.MimeType,
		ExpiresAt:  now.Add(s.cfg.PresignTTL),
	}, nil
}

// abortQuietly discards a session we opened but cannot hand to the client.
// Abort failures are logged, never raised.
func (s *Service) abortQuietly(ctx context.Context, key, sessionID string) {
	if err := s.store.AbortMultipart(ctx, key, sessionID); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("abort multipart session failed")
	}
}
