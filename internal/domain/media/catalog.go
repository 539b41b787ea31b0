package media

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"mediavault/internal/domain/mediakey"
)

// List returns one page of a user's primary assets. Thumbnail keys are never
// listed; instead each visual asset carries a presigned thumbnail URL when its
// companion object exists.
func (s *Service) List(ctx context.Context, userID string, req ListRequest) (*ListResult, error) {
	uid, err := mediakey.SanitizeUserID(userID)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}
	if req.MediaType != "" && !req.MediaType.Valid() {
		return nil, validationError(ctx, RuleInvalidMediaType, "media type must be visual or audio")
	}

	limit := s.clampLimit(req.Limit)
	prefix := mediakey.UserPrefix(s.cfg.KeyPrefix, uid, req.MediaType)

	page, err := s.store.ListObjects(ctx, prefix, int32(limit), req.ContinuationToken)
	if err != nil {
		return nil, storeError(ctx, err, "list objects")
	}

	files := make([]MediaFileInfo, 0, len(page.Entries))
	for _, entry := range page.Entries {
		info, ok := s.projectEntry(ctx, entry)
		if !ok {
			continue
		}
		files = append(files, *info)
	}

	return &ListResult{
		Files:     files,
		HasMore:   page.Truncated,
		NextToken: page.NextToken,
	}, nil
}

// Search filters a user's catalog by case-insensitive filename substring.
// Every search path orders matches most-recent-first before the limit is
// applied, whether one or both category prefixes are scanned.
func (s *Service) Search(ctx context.Context, userID string, req SearchRequest) (*ListResult, error) {
	uid, err := mediakey.SanitizeUserID(userID)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return nil, validationError(ctx, RuleEmptyQuery, "search query must not be empty")
	}
	if req.MediaType != "" && !req.MediaType.Valid() {
		return nil, validationError(ctx, RuleInvalidMediaType, "media type must be visual or audio")
	}

	limit := s.clampLimit(req.Limit)

	categories := []mediakey.Category{mediakey.CategoryVisual, mediakey.CategoryAudio}
	if req.MediaType != "" {
		categories = []mediakey.Category{req.MediaType}
	}

	matchesPerCategory := make([][]ObjectEntry, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			prefix := mediakey.UserPrefix(s.cfg.KeyPrefix, uid, category)
			entries, err := s.collectMatches(gctx, prefix, query)
			if err != nil {
				return err
			}
			matchesPerCategory[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matches []ObjectEntry
	for _, entries := range matchesPerCategory {
		matches = append(matches, entries...)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastModified.After(matches[j].LastModified)
	})

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	files := make([]MediaFileInfo, 0, len(matches))
	for _, entry := range matches {
		info, ok := s.projectEntry(ctx, entry)
		if !ok {
			continue
		}
		files = append(files, *info)
	}

	return &ListResult{Files: files, HasMore: hasMore}, nil
}

// collectMatches walks every listing page under a prefix and keeps the
// non-thumbnail keys whose filename contains the query.
func (s *Service) collectMatches(ctx context.Context, prefix, query string) ([]ObjectEntry, error) {
	var matches []ObjectEntry
	token := ""
	for {
		page, err := s.store.ListObjects(ctx, prefix, int32(s.cfg.MaxListLimit), token)
		if err != nil {
			return nil, storeError(ctx, err, "list objects for search")
		}
		for _, entry := range page.Entries {
			key, err := mediakey.Parse(entry.Key)
			if err != nil || key.IsThumbnail {
				continue
			}
			if strings.Contains(strings.ToLower(key.Filename), query) {
				matches = append(matches, entry)
			}
		}
		if !page.Truncated || page.NextToken == "" {
			return matches, nil
		}
		token = page.NextToken
	}
}

// projectEntry turns one listing entry into the read-side projection,
// presigning the read URL and probing for a thumbnail on visual assets.
// Unparsable and thumbnail keys are skipped.
func (s *Service) projectEntry(ctx context.Context, entry ObjectEntry) (*MediaFileInfo, bool) {
	key, err := mediakey.Parse(entry.Key)
	if err != nil {
		s.log.Debug().Str("key", entry.Key).Msg("skipping key outside the expected shape")
		return nil, false
	}
	if key.IsThumbnail {
		return nil, false
	}

	readURL, err := s.store.PresignRead(ctx, entry.Key, s.cfg.PresignTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("key", entry.Key).Msg("presign read url failed")
		return nil, false
	}

	info := &MediaFileInfo{
		Key:        entry.Key,
		Filename:   key.Filename,
		MediaType:  key.Category,
		SizeBytes:  entry.SizeBytes,
		UploadedAt: entry.LastModified,
		ReadURL:    readURL,
	}

	if key.Category == mediakey.CategoryVisual {
		info.ThumbnailReadURL = s.presignThumbnail(ctx, key)
	}

	return info, true
}

// presignThumbnail probes for the derived thumbnail key and presigns it when
// present. Audio assets never reach here; visual assets without a thumbnail
// get nil.
func (s *Service) presignThumbnail(ctx context.Context, key mediakey.Key) *string {
	thumbKey := key.Thumbnail().String()
	if _, err := s.store.HeadObject(ctx, thumbKey); err != nil {
		if !errors.Is(err, ErrObjectNotFound) {
			s.log.Warn().Err(err).Str("key", thumbKey).Msg("thumbnail probe failed")
		}
		return nil
	}
	url, err := s.store.PresignRead(ctx, thumbKey, s.cfg.PresignTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("key", thumbKey).Msg("presign thumbnail url failed")
		return nil
	}
	return &url
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultListLimit
	}
	if limit > s.cfg.MaxListLimit {
		return s.cfg.MaxListLimit
	}
	return limit
}
