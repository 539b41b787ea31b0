package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
)

const (
	multipartDir = ".multipart"
	metaDir      = ".meta"
)

// LocalStore is a filesystem backed object store intended for development
// and tests. Multipart sessions are staged under a hidden directory and
// concatenated on assembly; object metadata lives in JSON sidecar files.
type LocalStore struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

var _ media.ObjectStore = (*LocalStore)(nil)

type localManifest struct {
	Key         string            `json:"key"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type localMeta struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// NewLocalStore creates a filesystem object store rooted at the configured path.
func NewLocalStore(cfg *config.Config, log zerolog.Logger) (*LocalStore, error) {
	logger := log.With().Str("component", "local-store").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		return nil, errors.New("local storage path is not configured")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}

	store := &LocalStore{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(strings.TrimSpace(cfg.LocalStorageBaseURL), "/"),
		log:      logger,
	}

	logger.Info().
		Str("path", basePath).
		Str("base_url", store.baseURL).
		Msg("local storage initialized")

	return store, nil
}

func (l *LocalStore) objectPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func (l *LocalStore) metaPath(key string) string {
	return filepath.Join(l.basePath, metaDir, filepath.FromSlash(key)+".json")
}

func (l *LocalStore) sessionPath(sessionID string) string {
	return filepath.Join(l.basePath, multipartDir, sessionID)
}

func (l *LocalStore) OpenMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	sessionID := uuid.NewString()
	dir := l.sessionPath(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create multipart session: %w", err)
	}

	manifest := localManifest{
		Key:         key,
		ContentType: contentType,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, "manifest.json"), manifest); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return sessionID, nil
}

func (l *LocalStore) PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	if l.baseURL == "" {
		return "", errors.New("local storage base URL is not configured")
	}
	return fmt.Sprintf("%s/v1/local/uploads/%s/parts/%d", l.baseURL, sessionID, partNumber), nil
}

func (l *LocalStore) PresignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.baseURL == "" {
		return l.objectPath(key), nil
	}
	return fmt.Sprintf("%s/%s", l.baseURL, key), nil
}

// WritePart stores one staged part for an open session and returns its
// integrity tag. It backs the local part upload endpoint.
func (l *LocalStore) WritePart(sessionID string, partNumber int32, body io.Reader) (string, error) {
	dir := l.sessionPath(sessionID)
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		return "", fmt.Errorf("unknown multipart session %q", sessionID)
	}

	file, err := os.Create(filepath.Join(dir, fmt.Sprintf("part-%05d", partNumber)))
	if err != nil {
		return "", fmt.Errorf("create part file: %w", err)
	}
	defer file.Close()

	hasher := md5.New()
	if _, err := io.Copy(io.MultiWriter(file, hasher), body); err != nil {
		return "", fmt.Errorf("write part file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (l *LocalStore) AssembleMultipart(ctx context.Context, key, sessionID string, parts []media.CompletedPart) (string, error) {
	dir := l.sessionPath(sessionID)

	var manifest localManifest
	if err := readJSON(filepath.Join(dir, "manifest.json"), &manifest); err != nil {
		return "", fmt.Errorf("unknown multipart session %q", sessionID)
	}
	if manifest.Key != key {
		return "", fmt.Errorf("session %q was opened for a different key", sessionID)
	}

	target := l.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create object file: %w", err)
	}
	defer out.Close()

	for _, part := range parts {
		src, err := os.Open(filepath.Join(dir, fmt.Sprintf("part-%05d", part.PartNumber)))
		if err != nil {
			os.Remove(target)
			return "", fmt.Errorf("part %d was never uploaded", part.PartNumber)
		}
		_, err = io.Copy(out, src)
		src.Close()
		if err != nil {
			os.Remove(target)
			return "", fmt.Errorf("assemble part %d: %w", part.PartNumber, err)
		}
	}

	if err := l.writeMeta(key, manifest.ContentType, manifest.Metadata); err != nil {
		return "", err
	}
	os.RemoveAll(dir)

	return l.objectPath(key), nil
}

func (l *LocalStore) AbortMultipart(ctx context.Context, key, sessionID string) error {
	return os.RemoveAll(l.sessionPath(sessionID))
}

func (l *LocalStore) HeadObject(ctx context.Context, key string) (*media.ObjectMeta, error) {
	info, err := os.Stat(l.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, media.ErrObjectNotFound
		}
		return nil, err
	}

	var meta localMeta
	if err := readJSON(l.metaPath(key), &meta); err != nil {
		meta = localMeta{}
	}

	return &media.ObjectMeta{
		Key:          key,
		SizeBytes:    info.Size(),
		ContentType:  meta.ContentType,
		LastModified: info.ModTime().UTC(),
		UserMetadata: meta.Metadata,
	}, nil
}

func (l *LocalStore) ListObjects(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*media.ObjectPage, error) {
	var keys []string
	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == multipartDir || d.Name() == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk local storage: %w", err)
	}
	sort.Strings(keys)

	// The continuation token is the last key of the previous page.
	start := 0
	if continuationToken != "" {
		start = sort.SearchStrings(keys, continuationToken)
		if start < len(keys) && keys[start] == continuationToken {
			start++
		}
	}

	page := &media.ObjectPage{}
	for i := start; i < len(keys); i++ {
		if int32(len(page.Entries)) >= maxKeys {
			page.Truncated = true
			page.NextToken = page.Entries[len(page.Entries)-1].Key
			break
		}
		info, err := os.Stat(l.objectPath(keys[i]))
		if err != nil {
			continue
		}
		page.Entries = append(page.Entries, media.ObjectEntry{
			Key:          keys[i],
			SizeBytes:    info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}
	return page, nil
}

func (l *LocalStore) CopyObject(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error {
	src, err := os.Open(l.objectPath(srcKey))
	if err != nil {
		if os.IsNotExist(err) {
			return media.ErrObjectNotFound
		}
		return err
	}
	defer src.Close()

	target := l.objectPath(dstKey)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy object: %w", err)
	}

	var meta localMeta
	if err := readJSON(l.metaPath(srcKey), &meta); err != nil {
		meta = localMeta{}
	}
	if metadata != nil {
		meta.Metadata = metadata
	}
	return l.writeMeta(dstKey, meta.ContentType, meta.Metadata)
}

func (l *LocalStore) DeleteObject(ctx context.Context, key string) error {
	if err := os.Remove(l.objectPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(l.metaPath(key)); err != nil && !os.IsNotExist(err) {
		l.log.Warn().Err(err).Str("key", key).Msg("failed to remove metadata sidecar")
	}
	return nil
}

func (l *LocalStore) writeMeta(key, contentType string, metadata map[string]string) error {
	path := l.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	return writeJSON(path, localMeta{ContentType: contentType, Metadata: metadata})
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
