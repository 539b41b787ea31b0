// Package mediakey derives, parses, and validates the hierarchical storage
// keys the vault uses:
//
//	{prefix}/{userId}/{category}/{yyyy}/{mm}/{dd}/{groupId}/{filename}
//
// A companion thumbnail lives beside its primary asset under an extra
// thumbnail/ segment and shares the same group id. Keys are immutable once an
// object exists at them; a rename always produces a new key.
package mediakey

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxKeyLength caps the total key size accepted from callers.
	MaxKeyLength = 1024

	// ThumbnailSegment marks a companion asset inside a group directory.
	ThumbnailSegment = "thumbnail"

	// ThumbnailExtension is forced on every thumbnail key; thumbnails are
	// always JPEG regardless of the primary's extension.
	ThumbnailExtension = "jpg"
)

// Category is the media category segment of a key.
type Category string

const (
	CategoryVisual Category = "visual"
	CategoryAudio  Category = "audio"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	return c == CategoryVisual || c == CategoryAudio
}

// CategoryForMime derives the storage category from a declared MIME type.
// Audio types get their own branch; everything else, including video and
// images, is visual.
func CategoryForMime(mime string) Category {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "audio/") {
		return CategoryAudio
	}
	return CategoryVisual
}

// Validation rule codes surfaced in error details.
const (
	RuleInvalidFilename           = "INVALID_FILENAME"
	RuleInvalidUserID             = "INVALID_USER_ID"
	RuleInvalidKey                = "INVALID_KEY"
	RuleExtensionChangeNotAllowed = "EXTENSION_CHANGE_NOT_ALLOWED"
)

// KeyError is a sanitization or key-shape violation with a stable rule code.
type KeyError struct {
	Code    string
	Message string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Key is a parsed storage key.
type Key struct {
	Prefix      string
	UserID      string
	Category    Category
	Year        int
	Month       int
	Day         int
	GroupID     string
	Filename    string
	IsThumbnail bool
}

// Build derives the storage key for a primary asset.
func Build(prefix, userID string, category Category, date time.Time, groupID, filename string) Key {
	utc := date.UTC()
	return Key{
		Prefix:   prefix,
		UserID:   userID,
		Category: category,
		Year:     utc.Year(),
		Month:    int(utc.Month()),
		Day:      utc.Day(),
		GroupID:  groupID,
		Filename: filename,
	}
}

// String reassembles the key path.
func (k Key) String() string {
	var b strings.Builder
	b.Grow(MaxKeyLength / 4)
	fmt.Fprintf(&b, "%s/%s/%s/%04d/%02d/%02d/%s/",
		k.Prefix, k.UserID, k.Category, k.Year, k.Month, k.Day, k.GroupID)
	if k.IsThumbnail {
		b.WriteString(ThumbnailSegment)
		b.WriteByte('/')
	}
	b.WriteString(k.Filename)
	return b.String()
}

// Dir returns the group directory portion of the key, without a trailing slash.
func (k Key) Dir() string {
	return fmt.Sprintf("%s/%s/%s/%04d/%02d/%02d/%s",
		k.Prefix, k.UserID, k.Category, k.Year, k.Month, k.Day, k.GroupID)
}

// Thumbnail derives the companion thumbnail key for a primary asset: same
// group directory, thumbnail/ segment, primary's basename with the extension
// forced to jpg. Both ends of the pairing are derivable from the same
// {user, category, date, group} tuple, which keeps the one-group-two-objects
// invariant checkable without string splicing at call sites.
func (k Key) Thumbnail() Key {
	thumb := k
	thumb.IsThumbnail = true
	thumb.Filename = stem(k.Filename) + "." + ThumbnailExtension
	return thumb
}

// WithFilename returns a copy of the key pointing at a different final
// segment, used to derive a rename target.
func (k Key) WithFilename(filename string) Key {
	renamed := k
	renamed.Filename = filename
	return renamed
}

// Parse splits and validates a storage key. Thumbnail keys parse with
// IsThumbnail set.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, invalidKey("key is empty")
	}
	if len(raw) > MaxKeyLength {
		return Key{}, invalidKey("key exceeds maximum length")
	}
	if strings.ContainsRune(raw, 0) {
		return Key{}, invalidKey("key contains null bytes")
	}
	if ContainsTraversal(raw) {
		return Key{}, invalidKey("key contains path traversal sequence")
	}

	segments := strings.Split(raw, "/")
	if len(segments) != 8 && len(segments) != 9 {
		return Key{}, invalidKey("key does not match the expected shape")
	}
	for _, seg := range segments {
		if seg == "" {
			return Key{}, invalidKey("key contains empty path segments")
		}
	}

	key := Key{
		Prefix:  segments[0],
		UserID:  segments[1],
		GroupID: segments[6],
	}

	if !userIDPattern.MatchString(key.UserID) {
		return Key{}, invalidKey("key user segment is malformed")
	}

	key.Category = Category(segments[2])
	if !key.Category.Valid() {
		return Key{}, invalidKey("key category segment is malformed")
	}

	var err error
	if key.Year, err = dateSegment(segments[3], 4); err != nil {
		return Key{}, err
	}
	if key.Month, err = dateSegment(segments[4], 2); err != nil {
		return Key{}, err
	}
	if key.Day, err = dateSegment(segments[5], 2); err != nil {
		return Key{}, err
	}
	if key.Month < 1 || key.Month > 12 || key.Day < 1 || key.Day > 31 {
		return Key{}, invalidKey("key date segments are out of range")
	}

	if len(segments) == 9 {
		if segments[7] != ThumbnailSegment {
			return Key{}, invalidKey("key has an unexpected extra segment")
		}
		key.IsThumbnail = true
		key.Filename = segments[8]
	} else {
		key.Filename = segments[7]
	}

	if strings.HasPrefix(key.Filename, ".") || Extension(key.Filename) == "" {
		return Key{}, invalidKey("key filename segment is malformed")
	}

	return key, nil
}

// Validate checks that a caller-supplied key matches the expected shape.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}

// AuthorizeAccess reports whether the key's embedded user segment matches the
// authenticated user. Gate every operation that takes a caller-supplied key
// through this.
func AuthorizeAccess(raw, userID string) bool {
	key, err := Parse(raw)
	if err != nil {
		return false
	}
	return key.UserID == userID
}

// UserPrefix returns the listing prefix for all of a user's objects, or for
// one category when given.
func UserPrefix(prefix, userID string, category Category) string {
	if category == "" {
		return fmt.Sprintf("%s/%s/", prefix, userID)
	}
	return fmt.Sprintf("%s/%s/%s/", prefix, userID, category)
}

func dateSegment(seg string, width int) (int, error) {
	if len(seg) != width {
		return 0, invalidKey("key date segments are malformed")
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, invalidKey("key date segments are malformed")
	}
	return n, nil
}

func stem(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}

func invalidKey(message string) error {
	return &KeyError{Code: RuleInvalidKey, Message: message}
}
