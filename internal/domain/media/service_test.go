package media

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/utils/platformerrors"
)

// fakeStore is an in-memory ObjectStore for service tests. Call recording is
// mutex-guarded because the service fans out over goroutines.
type fakeStore struct {
	mu sync.Mutex

	sessionSeq int
	opened     []string
	presigned  []string
	aborted    []string
	assembled  []string
	copies     [][2]string
	deletes    []string

	objects map[string]*ObjectMeta

	openErr     error
	presignErr  error
	assembleErr error
	copyErr     map[string]error
	deleteErr   map[string]error
	headErr     map[string]error

	listFn func(prefix string, maxKeys int32, token string) (*ObjectPage, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   make(map[string]*ObjectMeta),
		copyErr:   make(map[string]error),
		deleteErr: make(map[string]error),
		headErr:   make(map[string]error),
	}
}

func (f *fakeStore) putObject(key string, meta ObjectMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta.Key = key
	f.objects[key] = &meta
}

func (f *fakeStore) OpenMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return "", f.openErr
	}
	f.sessionSeq++
	f.opened = append(f.opened, key)
	return fmt.Sprintf("session-%08d", f.sessionSeq), nil
}

func (f *fakeStore) PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presignErr != nil {
		return "", f.presignErr
	}
	url := fmt.Sprintf("https://store.test/%s?part=%d", key, partNumber)
	f.presigned = append(f.presigned, url)
	return url, nil
}

func (f *fakeStore) PresignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://store.test/read/" + key, nil
}

func (f *fakeStore) AssembleMultipart(ctx context.Context, key, sessionID string, parts []CompletedPart) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assembleErr != nil {
		return "", f.assembleErr
	}
	f.assembled = append(f.assembled, key)
	return "https://store.test/" + key, nil
}

func (f *fakeStore) AbortMultipart(ctx context.Context, key, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, sessionID)
	return nil
}

func (f *fakeStore) HeadObject(ctx context.Context, key string) (*ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.headErr[key]; ok {
		return nil, err
	}
	if meta, ok := f.objects[key]; ok {
		copied := *meta
		return &copied, nil
	}
	return nil, ErrObjectNotFound
}

func (f *fakeStore) ListObjects(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*ObjectPage, error) {
	if f.listFn != nil {
		return f.listFn(prefix, maxKeys, continuationToken)
	}
	return &ObjectPage{}, nil
}

func (f *fakeStore) CopyObject(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.copyErr[srcKey]; ok {
		return err
	}
	src, ok := f.objects[srcKey]
	if !ok {
		return ErrObjectNotFound
	}
	copied := *src
	copied.Key = dstKey
	if metadata != nil {
		copied.UserMetadata = metadata
	}
	f.objects[dstKey] = &copied
	f.copies = append(f.copies, [2]string{srcKey, dstKey})
	return nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErr[key]; ok {
		return err
	}
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deletes))
	copy(out, f.deletes)
	return out
}

var testClock = time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:       "media-vault",
		KeyPrefix:         "uploads",
		PartSizeBytes:     10 * 1024 * 1024,
		PresignTTL:        time.Hour,
		MaxFileSizeBytes:  5 * 1024 * 1024 * 1024,
		MinFileSizeBytes:  1,
		MaxFilesPerUpload: 10,
		MaxFilenameLength: 255,
		AllowedMimeTypes:  []string{"video/mp4", "image/jpeg", "image/png", "audio/mpeg"},
		DefaultListLimit:  50,
		MaxListLimit:      1000,
		MaxDeleteBatch:    100,
	}
}

func newTestService(store ObjectStore) *Service {
	svc := NewService(testConfig(), store, zerolog.Nop())
	svc.now = func() time.Time { return testClock }
	return svc
}

// ruleOf extracts the rule code from a validation error's context.
func ruleOf(t *testing.T, err error) string {
	t.Helper()
	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil {
		t.Fatalf("expected platform error, got %v", err)
	}
	rule, _ := platformErr.Context["rule"].(string)
	return rule
}

func requireErrorType(t *testing.T, err error, errorType platformerrors.ErrorType) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", errorType)
	}
	if !platformerrors.IsErrorType(err, errorType) {
		t.Fatalf("expected %s error, got %v", errorType, err)
	}
}
