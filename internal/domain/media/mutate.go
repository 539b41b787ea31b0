package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"mediavault/internal/domain/mediakey"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/platformerrors"
)

// Delete removes a batch of primary assets. Keys are processed independently
// and concurrently; one key's failure never aborts the batch. Deleting a
// visual asset cascades to its thumbnail after the primary delete.
func (s *Service) Delete(ctx context.Context, userID string, req DeleteRequest) (*DeleteResult, error) {
	uid, err := mediakey.SanitizeUserID(userID)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}
	if len(req.FileKeys) == 0 {
		return nil, validationError(ctx, RuleNoFiles, "at least one file key is required")
	}
	if len(req.FileKeys) > s.cfg.MaxDeleteBatch {
		return nil, validationError(ctx, RuleTooManyKeys,
			fmt.Sprintf("at most %d keys per delete request", s.cfg.MaxDeleteBatch))
	}

	outcomes := make([]error, len(req.FileKeys))
	var wg sync.WaitGroup
	for i, rawKey := range req.FileKeys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.deleteOne(ctx, uid, rawKey)
		}()
	}
	wg.Wait()

	result := &DeleteResult{TotalRequested: len(req.FileKeys)}
	for i, rawKey := range req.FileKeys {
		if outcomes[i] != nil {
			result.Failed = append(result.Failed, DeleteFailure{
				FileKey: rawKey,
				Error:   deleteFailureMessage(outcomes[i]),
			})
			continue
		}
		result.Deleted = append(result.Deleted, rawKey)
	}
	result.SuccessCount = len(result.Deleted)
	result.FailureCount = len(result.Failed)

	metrics.RecordDelete(result.SuccessCount, result.FailureCount)
	return result, nil
}

// deleteOne removes one primary asset and, for visual assets, its thumbnail.
// The thumbnail delete runs after the primary delete and its failure does not
// roll the primary back; it is reported as this key's failure.
func (s *Service) deleteOne(ctx context.Context, userID, rawKey string) error {
	key, err := s.authorizeKey(ctx, rawKey, userID)
	if err != nil {
		return err
	}
	if key.IsThumbnail {
		return validationError(ctx, mediakey.RuleInvalidKey, "thumbnail keys cannot be deleted directly")
	}

	if err := s.store.DeleteObject(ctx, rawKey); err != nil {
		return storeError(ctx, err, "delete object")
	}

	if key.Category == mediakey.CategoryVisual {
		thumbKey := key.Thumbnail().String()
		if err := s.store.DeleteObject(ctx, thumbKey); err != nil {
			return storeError(ctx, err, "delete thumbnail object")
		}
	}
	return nil
}

// Rename moves a primary asset to a new filename within its group directory.
// Copies happen before any delete: a crash between the copy and delete steps
// leaves both old and new objects readable, never zero.
func (s *Service) Rename(ctx context.Context, userID string, req RenameRequest) (*RenameResult, error) {
	oldKey, err := s.authorizeKey(ctx, req.FileKey, userID)
	if err != nil {
		return nil, err
	}
	if oldKey.IsThumbnail {
		return nil, validationError(ctx, mediakey.RuleInvalidKey, "thumbnail keys cannot be renamed directly")
	}

	newName, err := s.policy.SanitizeFilename(req.NewFilename)
	if err != nil {
		return nil, keyRuleError(ctx, err)
	}
	if strings.ContainsRune(newName, '/') {
		return nil, validationError(ctx, mediakey.RuleInvalidFilename, "new filename must be a single path segment")
	}
	if err := mediakey.ExtensionsMatch(oldKey.Filename, newName); err != nil {
		return nil, keyRuleError(ctx, err)
	}

	newKey := oldKey.WithFilename(newName)
	newRaw := newKey.String()
	oldRaw := oldKey.String()

	// Target must be free and source must exist before any mutation.
	if _, err := s.store.HeadObject(ctx, newRaw); err == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict, "an object already exists at the target key", nil, "")
	} else if !errors.Is(err, ErrObjectNotFound) {
		return nil, storeError(ctx, err, "probe rename target")
	}

	srcMeta, err := s.store.HeadObject(ctx, oldRaw)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
				platformerrors.ErrorTypeNotFound, "no object exists at the source key", nil, "")
		}
		return nil, storeError(ctx, err, "probe rename source")
	}

	newMeta := overrideFilename(srcMeta.UserMetadata, newName)
	if err := s.store.CopyObject(ctx, oldRaw, newRaw, newMeta); err != nil {
		return nil, storeError(ctx, err, "copy object to new key")
	}

	// Thumbnails keep their jpg extension regardless of the primary's name.
	thumbCopied := false
	oldThumb := oldKey.Thumbnail().String()
	newThumb := newKey.Thumbnail().String()
	if oldKey.Category == mediakey.CategoryVisual {
		thumbMeta, err := s.store.HeadObject(ctx, oldThumb)
		switch {
		case err == nil:
			thumbName := strings.TrimSuffix(newName, "."+mediakey.Extension(newName)) + "." + mediakey.ThumbnailExtension
			if err := s.store.CopyObject(ctx, oldThumb, newThumb, overrideFilename(thumbMeta.UserMetadata, thumbName)); err != nil {
				// The old objects stay durable; the copied primary is a
				// harmless duplicate the next rename attempt overwrites.
				return nil, storeError(ctx, err, "copy thumbnail to new key")
			}
			thumbCopied = true
		case errors.Is(err, ErrObjectNotFound):
			// Visual asset without a thumbnail; nothing to carry over.
		default:
			return nil, storeError(ctx, err, "probe rename thumbnail")
		}
	}

	// Both copies confirmed; the old objects are now redundant. A failed
	// delete leaves a duplicate behind, which is preferable to data loss,
	// so it only warrants a warning.
	if err := s.store.DeleteObject(ctx, oldRaw); err != nil {
		s.log.Warn().Err(err).Str("key", oldRaw).Msg("delete old object after rename failed")
	} else if thumbCopied {
		if err := s.store.DeleteObject(ctx, oldThumb); err != nil {
			s.log.Warn().Err(err).Str("key", oldThumb).Msg("delete old thumbnail after rename failed")
		}
	}

	result := &RenameResult{
		OldKey:   oldRaw,
		NewKey:   newRaw,
		Filename: newName,
	}
	readURL, err := s.store.PresignRead(ctx, newRaw, s.cfg.PresignTTL)
	if err != nil {
		return nil, storeError(ctx, err, "presign renamed object")
	}
	result.ReadURL = readURL
	if thumbCopied {
		thumbURL, err := s.store.PresignRead(ctx, newThumb, s.cfg.PresignTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("key", newThumb).Msg("presign renamed thumbnail failed")
		} else {
			result.ThumbnailReadURL = &thumbURL
		}
	}

	metrics.RecordRename()
	return result, nil
}

func overrideFilename(meta map[string]string, filename string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out[MetaOriginalFilename] = filename
	return out
}

// deleteFailureMessage keeps store internals out of the per-key report while
// preserving the stable taxonomy.
func deleteFailureMessage(err error) string {
	if platformErr := platformerrors.GetPlatformError(err); platformErr != nil {
		return fmt.Sprintf("%s: %s", platformErr.Type, platformErr.Message)
	}
	return err.Error()
}
