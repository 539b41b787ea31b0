package media

import (
	"context"
	"strings"
	"testing"

	"mediavault/internal/domain/mediakey"
	"mediavault/internal/utils/platformerrors"
)

func mib(n int64) int64 { return n * 1024 * 1024 }

func TestInitiateUploadSingleGroup(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary:   FileDescriptor{Filename: "vacation.mp4", MimeType: "video/mp4", SizeBytes: mib(15)},
		Thumbnail: &FileDescriptor{Filename: "vacation-thumb.jpg", MimeType: "image/jpeg", SizeBytes: mib(1)},
	}}}

	result, err := svc.InitiateUpload(context.Background(), "alice", req)
	if err != nil {
		t.Fatalf("InitiateUpload failed: %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Groups))
	}

	primary := result.Groups[0].Primary
	thumb := result.Groups[0].Thumbnail
	if thumb == nil {
		t.Fatal("thumbnail plan missing")
	}

	// 15 MiB at a 10 MiB part size needs two parts.
	if len(primary.Parts) != 2 {
		t.Errorf("primary parts = %d, want 2", len(primary.Parts))
	}
	if primary.Parts[0].PartNumber != 1 || primary.Parts[1].PartNumber != 2 {
		t.Errorf("part numbers = %v", primary.Parts)
	}
	if len(thumb.Parts) != 1 {
		t.Errorf("thumbnail parts = %d, want 1", len(thumb.Parts))
	}

	if primary.FileID != thumb.FileID {
		t.Errorf("primary and thumbnail have different group ids: %s vs %s", primary.FileID, thumb.FileID)
	}

	wantPrefix := "uploads/alice/visual/2026/03/07/" + primary.FileID + "/"
	if primary.StorageKey != wantPrefix+"vacation.mp4" {
		t.Errorf("primary key = %q", primary.StorageKey)
	}
	// The stored thumbnail lands under thumbnail/ with the primary's stem.
	if thumb.StorageKey != wantPrefix+"thumbnail/vacation.jpg" {
		t.Errorf("thumbnail key = %q", thumb.StorageKey)
	}
	if _, err := mediakey.Parse(primary.StorageKey); err != nil {
		t.Errorf("primary key does not parse: %v", err)
	}
	if _, err := mediakey.Parse(thumb.StorageKey); err != nil {
		t.Errorf("thumbnail key does not parse: %v", err)
	}

	if primary.SessionID == "" || thumb.SessionID == "" {
		t.Error("session ids missing")
	}
	if got, want := primary.ExpiresAt, testClock.Add(svc.cfg.PresignTTL); !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}
}

func TestInitiateUploadAudioCategory(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary: FileDescriptor{Filename: "song.mp3", MimeType: "audio/mpeg", SizeBytes: mib(4)},
	}}}

	result, err := svc.InitiateUpload(context.Background(), "bob", req)
	if err != nil {
		t.Fatalf("InitiateUpload failed: %v", err)
	}
	key := result.Groups[0].Primary.StorageKey
	if !strings.HasPrefix(key, "uploads/bob/audio/") {
		t.Errorf("audio upload landed at %q", key)
	}
}

func TestInitiateUploadRejectsAudioThumbnail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary:   FileDescriptor{Filename: "song.mp3", MimeType: "audio/mpeg", SizeBytes: mib(4)},
		Thumbnail: &FileDescriptor{Filename: "song.jpg", MimeType: "image/jpeg", SizeBytes: mib(1)},
	}}}

	_, err := svc.InitiateUpload(context.Background(), "alice", req)
	if err == nil {
		t.Fatal("audio group with thumbnail accepted")
	}

	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil || platformErr.Type != platformerrors.ErrorTypeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	issues, ok := platformErr.Context["files"].([]fileIssue)
	if !ok || len(issues) != 1 {
		t.Fatalf("issues = %+v", platformErr.Context["files"])
	}
	if issues[0].Rule != RuleThumbnailNotAllowed {
		t.Errorf("rule = %q, want %q", issues[0].Rule, RuleThumbnailNotAllowed)
	}

	// An audio thumbnail key would be unreachable afterwards: never listed,
	// never cascaded by delete. No session may open.
	if len(store.opened) != 0 {
		t.Errorf("sessions opened despite validation failure: %v", store.opened)
	}
}

func TestInitiateUploadBatchBounds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.InitiateUpload(ctx, "alice", InitiateUploadRequest{})
	if got := ruleOf(t, err); got != RuleNoFiles {
		t.Errorf("empty batch rule = %q, want %q", got, RuleNoFiles)
	}

	groups := make([]UploadGroup, 11)
	for i := range groups {
		groups[i] = UploadGroup{Primary: FileDescriptor{Filename: "a.mp4", MimeType: "video/mp4", SizeBytes: 1}}
	}
	_, err = svc.InitiateUpload(ctx, "alice", InitiateUploadRequest{Groups: groups})
	if got := ruleOf(t, err); got != RuleTooManyFiles {
		t.Errorf("oversized batch rule = %q, want %q", got, RuleTooManyFiles)
	}

	if len(store.opened) != 0 {
		t.Errorf("store was touched on rejected batches: %v", store.opened)
	}
}

func TestInitiateUploadAccumulatesIssues(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	req := InitiateUploadRequest{Groups: []UploadGroup{
		{Primary: FileDescriptor{Filename: "tool.exe", MimeType: "video/mp4", SizeBytes: mib(1)}},
		{Primary: FileDescriptor{Filename: "big.mp4", MimeType: "video/mp4", SizeBytes: mib(6 * 1024)}},
		{Primary: FileDescriptor{Filename: "doc.mp4", MimeType: "application/pdf", SizeBytes: mib(1)}},
	}}

	_, err := svc.InitiateUpload(context.Background(), "alice", req)
	if err == nil {
		t.Fatal("invalid batch accepted")
	}

	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil || platformErr.Type != platformerrors.ErrorTypeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	issues, ok := platformErr.Context["files"].([]fileIssue)
	if !ok {
		t.Fatalf("error context missing per-file issues: %#v", platformErr.Context)
	}
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3: %+v", len(issues), issues)
	}
	rules := map[string]bool{}
	for _, issue := range issues {
		rules[issue.Rule] = true
	}
	for _, want := range []string{mediakey.RuleInvalidFilename, RuleFileTooLarge, RuleUnsupportedMime} {
		if !rules[want] {
			t.Errorf("missing issue rule %q in %+v", want, issues)
		}
	}

	// Validation must finish before any store call.
	if len(store.opened) != 0 {
		t.Errorf("sessions opened despite validation failure: %v", store.opened)
	}
}

func TestInitiateUploadInvalidUser(t *testing.T) {
	svc := newTestService(newFakeStore())
	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary: FileDescriptor{Filename: "a.mp4", MimeType: "video/mp4", SizeBytes: 1},
	}}}

	_, err := svc.InitiateUpload(context.Background(), "not/a/user", req)
	if got := ruleOf(t, err); got != mediakey.RuleInvalidUserID {
		t.Errorf("rule = %q, want %q", got, mediakey.RuleInvalidUserID)
	}
}

func TestInitiateUploadStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.openErr = context.DeadlineExceeded
	svc := newTestService(store)

	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary: FileDescriptor{Filename: "a.mp4", MimeType: "video/mp4", SizeBytes: 1},
	}}}

	_, err := svc.InitiateUpload(context.Background(), "alice", req)
	requireErrorType(t, err, platformerrors.ErrorTypeExternal)
}

func TestInitiateUploadPartCountBoundary(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	// Exactly two part sizes must not round up to three.
	req := InitiateUploadRequest{Groups: []UploadGroup{{
		Primary: FileDescriptor{Filename: "a.mp4", MimeType: "video/mp4", SizeBytes: mib(20)},
	}}}
	result, err := svc.InitiateUpload(context.Background(), "alice", req)
	if err != nil {
		t.Fatalf("InitiateUpload failed: %v", err)
	}
	if got := len(result.Groups[0].Primary.Parts); got != 2 {
		t.Errorf("parts = %d, want 2", got)
	}
}
