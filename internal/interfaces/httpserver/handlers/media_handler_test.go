package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/interfaces/httpserver/handlers"
	"mediavault/internal/interfaces/httpserver/responses"
)

// MockObjectStore is a function-field implementation of media.ObjectStore.
type MockObjectStore struct {
	OpenMultipartFunc     func(ctx context.Context, key, contentType string, metadata map[string]string) (string, error)
	PresignPartUploadFunc func(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error)
	PresignReadFunc       func(ctx context.Context, key string, ttl time.Duration) (string, error)
	AssembleMultipartFunc func(ctx context.Context, key, sessionID string, parts []domain.CompletedPart) (string, error)
	AbortMultipartFunc    func(ctx context.Context, key, sessionID string) error
	HeadObjectFunc        func(ctx context.Context, key string) (*domain.ObjectMeta, error)
	ListObjectsFunc       func(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*domain.ObjectPage, error)
	CopyObjectFunc        func(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error
	DeleteObjectFunc      func(ctx context.Context, key string) error
}

func (m *MockObjectStore) OpenMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	if m.OpenMultipartFunc != nil {
		return m.OpenMultipartFunc(ctx, key, contentType, metadata)
	}
	return "session-0123456789", nil
}

func (m *MockObjectStore) PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	if m.PresignPartUploadFunc != nil {
		return m.PresignPartUploadFunc(ctx, key, sessionID, partNumber, ttl)
	}
	return "https://store.test/upload", nil
}

func (m *MockObjectStore) PresignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.PresignReadFunc != nil {
		return m.PresignReadFunc(ctx, key, ttl)
	}
	return "https://store.test/read/" + key, nil
}

func (m *MockObjectStore) AssembleMultipart(ctx context.Context, key, sessionID string, parts []domain.CompletedPart) (string, error) {
	if m.AssembleMultipartFunc != nil {
		return m.AssembleMultipartFunc(ctx, key, sessionID, parts)
	}
	return "https://store.test/" + key, nil
}

func (m *MockObjectStore) AbortMultipart(ctx context.Context, key, sessionID string) error {
	if m.AbortMultipartFunc != nil {
		return m.AbortMultipartFunc(ctx, key, sessionID)
	}
	return nil
}

func (m *MockObjectStore) HeadObject(ctx context.Context, key string) (*domain.ObjectMeta, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, key)
	}
	return nil, domain.ErrObjectNotFound
}

func (m *MockObjectStore) ListObjects(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*domain.ObjectPage, error) {
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, prefix, maxKeys, continuationToken)
	}
	return &domain.ObjectPage{}, nil
}

func (m *MockObjectStore) CopyObject(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error {
	if m.CopyObjectFunc != nil {
		return m.CopyObjectFunc(ctx, srcKey, dstKey, metadata)
	}
	return nil
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, key string) error {
	if m.DeleteObjectFunc != nil {
		return m.DeleteObjectFunc(ctx, key)
	}
	return nil
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		KeyPrefix:         "uploads",
		PartSizeBytes:     10 * 1024 * 1024,
		PresignTTL:        time.Hour,
		MaxFileSizeBytes:  5 * 1024 * 1024 * 1024,
		MinFileSizeBytes:  1,
		MaxFilesPerUpload: 10,
		MaxFilenameLength: 255,
		AllowedMimeTypes:  []string{"video/mp4", "image/jpeg", "audio/mpeg"},
		DefaultListLimit:  50,
		MaxListLimit:      1000,
		MaxDeleteBatch:    100,
	}
}

// newTestRouter wires the handler behind a stub identity middleware. An empty
// userID simulates an unauthenticated request.
func newTestRouter(store domain.ObjectStore, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := handlerTestConfig()
	service := domain.NewService(cfg, store, zerolog.Nop())
	handler := handlers.NewMediaHandler(cfg, service, zerolog.Nop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(auth.UserIDKey, userID)
		}
		c.Next()
	})
	v1 := router.Group("/v1")
	v1.POST("/media/uploads", handler.InitiateUpload)
	v1.POST("/media/uploads/complete", handler.CompleteUpload)
	v1.GET("/media", handler.List)
	v1.GET("/media/search", handler.Search)
	v1.POST("/media/delete", handler.Delete)
	v1.POST("/media/rename", handler.Rename)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) responses.ErrorResponse {
	t.Helper()
	var resp responses.ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %s)", err, recorder.Body.String())
	}
	return resp
}

func TestInitiateUploadEndpoint(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "alice")

	body := `{"files":[{"primary":{"filename":"clip.mp4","mime_type":"video/mp4","size_bytes":1048576}}]}`
	recorder := performJSON(t, router, http.MethodPost, "/v1/media/uploads", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	var result domain.InitiateUploadResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("groups = %d", len(result.Groups))
	}
	target := result.Groups[0].Primary
	if target.SessionID != "session-0123456789" {
		t.Errorf("SessionID = %q", target.SessionID)
	}
	if !strings.HasPrefix(target.StorageKey, "uploads/alice/visual/") {
		t.Errorf("StorageKey = %q", target.StorageKey)
	}
	if len(target.Parts) != 1 {
		t.Errorf("parts = %d", len(target.Parts))
	}
}

func TestInitiateUploadEndpointUnauthenticated(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "")

	recorder := performJSON(t, router, http.MethodPost, "/v1/media/uploads", `{"files":[]}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Code == "" || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestInitiateUploadEndpointMalformedBody(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "alice")

	recorder := performJSON(t, router, http.MethodPost, "/v1/media/uploads", `{"files":`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestInitiateUploadEndpointValidationDetails(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "alice")

	body := `{"files":[{"primary":{"filename":"tool.exe","mime_type":"video/mp4","size_bytes":1024}}]}`
	recorder := performJSON(t, router, http.MethodPost, "/v1/media/uploads", body)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeError(t, recorder)
	if resp.Details == nil {
		t.Error("validation details missing from response")
	}
	if _, ok := resp.Details["files"]; !ok {
		t.Errorf("per-file issues missing: %v", resp.Details)
	}
}

func TestListEndpoint(t *testing.T) {
	var gotPrefix string
	var gotMaxKeys int32
	store := &MockObjectStore{
		ListObjectsFunc: func(ctx context.Context, prefix string, maxKeys int32, token string) (*domain.ObjectPage, error) {
			gotPrefix = prefix
			gotMaxKeys = maxKeys
			return &domain.ObjectPage{
				Entries: []domain.ObjectEntry{{
					Key:          "uploads/alice/audio/2026/03/07/a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6/song.mp3",
					SizeBytes:    2048,
					LastModified: time.Now().UTC(),
				}},
			}, nil
		},
	}
	router := newTestRouter(store, "alice")

	recorder := performJSON(t, router, http.MethodGet, "/v1/media?media_type=audio&limit=5", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if gotPrefix != "uploads/alice/audio/" {
		t.Errorf("prefix = %q", gotPrefix)
	}
	if gotMaxKeys != 5 {
		t.Errorf("maxKeys = %d", gotMaxKeys)
	}

	var result domain.ListResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Filename != "song.mp3" {
		t.Errorf("files = %+v", result.Files)
	}
}

func TestListEndpointRejectsUnknownMediaType(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "alice")

	recorder := performJSON(t, router, http.MethodGet, "/v1/media?media_type=video", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "alice")

	recorder := performJSON(t, router, http.MethodGet, "/v1/media/search?q=%20", "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestRenameEndpointForeignKeyForbidden(t *testing.T) {
	router := newTestRouter(&MockObjectStore{}, "mallory")

	body := `{"file_key":"uploads/alice/visual/2026/03/07/a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6/vacation.mp4","new_filename":"mine.mp4"}`
	recorder := performJSON(t, router, http.MethodPost, "/v1/media/rename", body)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
}

func TestDeleteEndpointPartialFailure(t *testing.T) {
	store := &MockObjectStore{}
	router := newTestRouter(store, "alice")

	body := `{"file_keys":["uploads/alice/audio/2026/03/07/a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6/song.mp3","uploads/bob/audio/2026/03/07/a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6/his.mp3"]}`
	recorder := performJSON(t, router, http.MethodPost, "/v1/media/delete", body)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	var result domain.DeleteResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("result = %+v", result)
	}
}
