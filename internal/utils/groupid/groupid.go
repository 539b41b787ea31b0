// Package groupid mints the identifiers shared by a primary asset and its
// thumbnail. They double as the file ids clients echo back at completion time,
// so they must be plain UUIDs.
package groupid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh group id.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether the string parses as a UUID.
func IsValid(value string) bool {
	_, err := uuid.Parse(strings.TrimSpace(value))
	return err == nil
}
