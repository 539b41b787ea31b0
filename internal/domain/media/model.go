package media

import (
	"time"

	"mediavault/internal/domain/mediakey"
)

// FileDescriptor describes one file a client wants to upload.
type FileDescriptor struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// UploadGroup pairs a primary asset with an optional thumbnail. The two share
// one group id and land in the same key directory.
type UploadGroup struct {
	Primary   FileDescriptor  `json:"primary"`
	Thumbnail *FileDescriptor `json:"thumbnail,omitempty"`
}

// InitiateUploadRequest opens multipart sessions for a batch of file groups.
type InitiateUploadRequest struct {
	Groups []UploadGroup `json:"files"`
}

// PresignedPart is one part-number/upload-URL pair.
type PresignedPart struct {
	PartNumber int32  `json:"part_number"`
	UploadURL  string `json:"upload_url"`
}

// UploadTarget is everything a client needs to upload one object and complete
// it later. The client must carry FileID, StorageKey, and SessionID forward to
// the completion call; the vault keeps no durable session registry.
type UploadTarget struct {
	FileID     string          `json:"file_id"`
	StorageKey string          `json:"storage_key"`
	SessionID  string          `json:"session_id"`
	Parts      []PresignedPart `json:"parts"`
	Filename   string          `json:"filename"`
	FileType   string          `json:"file_type"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// GroupUploadPlan is the initiate-upload output for one group.
type GroupUploadPlan struct {
	Primary   UploadTarget  `json:"primary"`
	Thumbnail *UploadTarget `json:"thumbnail,omitempty"`
}

// InitiateUploadResult carries one plan per requested group, in request order.
type InitiateUploadResult struct {
	Groups []GroupUploadPlan `json:"files"`
}

// PartDescriptor identifies one uploaded part at completion time.
type PartDescriptor struct {
	PartNumber   int32  `json:"part_number"`
	IntegrityTag string `json:"integrity_tag"`
}

// CompleteUploadRequest finalizes one multipart upload.
type CompleteUploadRequest struct {
	FileID     string           `json:"file_id"`
	StorageKey string           `json:"storage_key"`
	SessionID  string           `json:"session_id"`
	Parts      []PartDescriptor `json:"parts"`
}

// CompleteUploadResult reports the assembled object.
type CompleteUploadResult struct {
	FileID     string    `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	Location   string    `json:"location"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// MediaFileInfo is the read-side projection of one primary asset.
type MediaFileInfo struct {
	Key              string            `json:"key"`
	Filename         string            `json:"filename"`
	MediaType        mediakey.Category `json:"media_type"`
	SizeBytes        int64             `json:"size_bytes"`
	UploadedAt       time.Time         `json:"uploaded_at"`
	ReadURL          string            `json:"read_url"`
	ThumbnailReadURL *string           `json:"thumbnail_read_url"`
}

// ListRequest pages through a user's catalog.
type ListRequest struct {
	MediaType         mediakey.Category `json:"media_type,omitempty"`
	Limit             int               `json:"limit,omitempty"`
	ContinuationToken string            `json:"continuation_token,omitempty"`
}

// ListResult is one catalog page.
type ListResult struct {
	Files     []MediaFileInfo `json:"files"`
	HasMore   bool            `json:"has_more"`
	NextToken string          `json:"next_token,omitempty"`
}

// SearchRequest filters the catalog by filename substring.
type SearchRequest struct {
	Query             string            `json:"query"`
	MediaType         mediakey.Category `json:"media_type,omitempty"`
	Limit             int               `json:"limit,omitempty"`
	ContinuationToken string            `json:"continuation_token,omitempty"`
}

// DeleteRequest removes a batch of primary assets (and their thumbnails).
type DeleteRequest struct {
	FileKeys []string `json:"file_keys"`
}

// DeleteFailure reports one key that could not be removed.
type DeleteFailure struct {
	FileKey string `json:"file_key"`
	Error   string `json:"error"`
}

// DeleteResult aggregates per-key outcomes; one key's failure never aborts the
// batch.
type DeleteResult struct {
	Deleted        []string        `json:"deleted"`
	Failed         []DeleteFailure `json:"failed"`
	TotalRequested int             `json:"total_requested"`
	SuccessCount   int             `json:"success_count"`
	FailureCount   int             `json:"failure_count"`
}

// RenameRequest moves a primary asset (and thumbnail) to a new filename in the
// same group directory. The extension must not change.
type RenameRequest struct {
	FileKey     string `json:"file_key"`
	NewFilename string `json:"new_filename"`
}

// RenameResult reports the new key and fresh read URLs.
type RenameResult struct {
	OldKey           string  `json:"old_key"`
	NewKey           string  `json:"new_key"`
	Filename         string  `json:"filename"`
	ReadURL          string  `json:"read_url"`
	ThumbnailReadURL *string `json:"thumbnail_read_url"`
}
