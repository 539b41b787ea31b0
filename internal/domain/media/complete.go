package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/groupid"
)

const (
	minSessionIDLength = 10
	maxSessionIDLength = 1024
	minIntegrityTagLen = 32
)

// CompleteUpload validates a completion request and instructs the store to
// assemble the object. Validation is ordered and fails fast on the first
// violation. On assemble failure the session is aborted best-effort; the abort
// outcome never masks the original error.
func (s *Service) CompleteUpload(ctx context.Context, userID string, req CompleteUploadRequest) (*CompleteUploadResult, error) {
	if !groupid.IsValid(req.FileID) {
		return nil, validationError(ctx, RuleInvalidFileID, "file id must be a valid UUID")
	}

	key, err := s.authorizeKey(ctx, req.StorageKey, userID)
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if len(sessionID) < minSessionIDLength || len(sessionID) > maxSessionIDLength {
		return nil, validationError(ctx, RuleInvalidSessionID, "session id has implausible length")
	}

	parts, err := validateParts(ctx, req.Parts)
	if err != nil {
		return nil, err
	}

	location, err := s.store.AssembleMultipart(ctx, req.StorageKey, sessionID, parts)
	if err != nil {
		s.abortQuietly(ctx, req.StorageKey, sessionID)
		metrics.RecordComplete("error")
		return nil, storeError(ctx, err, "assemble multipart upload")
	}

	result := &CompleteUploadResult{
		FileID:     req.FileID,
		StorageKey: req.StorageKey,
		Location:   location,
		Filename:   key.Filename,
		UploadedAt: s.now().UTC(),
	}

	// Read back what the store recorded. The object is already assembled,
	// so a head failure downgrades to a warning rather than undoing work.
	meta, err := s.store.HeadObject(ctx, req.StorageKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", req.StorageKey).Msg("read back object metadata failed")
	} else {
		result.FileType = meta.ContentType
		result.SizeBytes = meta.SizeBytes
		if name := meta.UserMetadata[MetaOriginalFilename]; name != "" {
			result.Filename = name
		}
		if raw := meta.UserMetadata[MetaUploadedAt]; raw != "" {
			if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
				result.UploadedAt = ts
			}
		}
	}

	metrics.RecordComplete("success")
	return result, nil
}

// validateParts checks the part list is non-empty, in ascending submitted
// order, duplicate-free, contiguous from 1, and that every integrity tag is
// plausible. Returns the parts with surrounding quotes stripped from tags.
func validateParts(ctx context.Context, parts []PartDescriptor) ([]CompletedPart, error) {
	if len(parts) == 0 {
		return nil, validationError(ctx, RuleNoParts, "at least one part is required")
	}

	for _, part := range parts {
		if part.PartNumber < 1 || part.PartNumber > maxPartNumber {
			return nil, validationError(ctx, RulePartOutOfRange,
				fmt.Sprintf("part number %d is out of range [1,%d]", part.PartNumber, maxPartNumber))
		}
	}
	for i := 1; i < len(parts); i++ {
		switch {
		case parts[i].PartNumber == parts[i-1].PartNumber:
			return nil, validationError(ctx, RuleDuplicatePart,
				fmt.Sprintf("part number %d appears more than once", parts[i].PartNumber))
		case parts[i].PartNumber < parts[i-1].PartNumber:
			return nil, validationError(ctx, RulePartsNotSorted, "parts must be submitted sorted by part number")
		}
	}
	for i, part := range parts {
		if part.PartNumber != int32(i+1) {
			return nil, validationError(ctx, RulePartGap,
				fmt.Sprintf("parts must form a contiguous run from 1; missing part %d", i+1))
		}
	}

	out := make([]CompletedPart, 0, len(parts))
	for _, part := range parts {
		tag := strings.Trim(strings.TrimSpace(part.IntegrityTag), `"`)
		if len(tag) < minIntegrityTagLen {
			return nil, validationError(ctx, RuleInvalidPartTag,
				fmt.Sprintf("part %d integrity tag is too short", part.PartNumber))
		}
		out = append(out, CompletedPart{PartNumber: part.PartNumber, IntegrityTag: tag})
	}

	return out, nil
}
