package media

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by ObjectStore implementations when a key has
// no object behind it.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMeta is the metadata read back from the store for a single object.
type ObjectMeta struct {
	Key          string
	SizeBytes    int64
	ContentType  string
	LastModified time.Time
	UserMetadata map[string]string
}

// ObjectEntry is one listing row.
type ObjectEntry struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// ObjectPage is one page of a prefix listing.
type ObjectPage struct {
	Entries   []ObjectEntry
	Truncated bool
	NextToken string
}

// CompletedPart names one assembled part of a multipart upload.
type CompletedPart struct {
	PartNumber   int32
	IntegrityTag string
}

// ObjectStore abstracts the object storage backend. Implementations must make
// single-key copy and delete atomic; multi-key choreography and its partial
// failure handling live in the service. Multipart sessions and presigned URLs
// expire server-side; the vault never tracks or cancels them.
type ObjectStore interface {
	// OpenMultipart starts a multipart upload session for the key and
	// returns the store's session id.
	OpenMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error)

	// PresignPartUpload returns a presigned PUT URL for one part.
	PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error)

	// PresignRead returns a presigned GET URL for an object.
	PresignRead(ctx context.Context, key string, ttl time.Duration) (string, error)

	// AssembleMultipart finalizes the object from the named session and
	// ordered parts, returning the object location.
	AssembleMultipart(ctx context.Context, key, sessionID string, parts []CompletedPart) (string, error)

	// AbortMultipart discards an open session. Best-effort; callers log
	// failures rather than surfacing them.
	AbortMultipart(ctx context.Context, key, sessionID string) error

	// HeadObject returns object metadata, or ErrObjectNotFound.
	HeadObject(ctx context.Context, key string) (*ObjectMeta, error)

	// ListObjects returns one page of keys under a prefix.
	ListObjects(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*ObjectPage, error)

	// CopyObject copies srcKey to dstKey, replacing the stored user
	// metadata when metadata is non-nil.
	CopyObject(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error

	// DeleteObject removes a single key. Deleting a missing key is not an
	// error.
	DeleteObject(ctx context.Context, key string) error
}

// User metadata keys attached to every stored object.
const (
	MetaUserID           = "user-id"
	MetaGroupID          = "group-id"
	MetaOriginalFilename = "original-filename"
	MetaUploadedAt       = "uploaded-at"
)
