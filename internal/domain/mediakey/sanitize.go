package mediakey

import (
	"regexp"
	"strings"
)

// Traversal signatures rejected anywhere in a filename or key, matched
// case-insensitively. Covers the raw forms plus their single and double
// URL-encoded variants.
var traversalSignatures = []string{
	"../",
	"..\\",
	"..%2f",
	"..%5c",
	"%2e%2e/",
	"%2e%2e\\",
	"%2e%2e%2f",
	"%2e%2e%5c",
	"..%252f",
	"..%255c",
	"%252e%252e%252f",
	"%252e%252e%255c",
}

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	userIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	filenamePattern = regexp.MustCompile(`^[A-Za-z0-9 ._/-]*\.[A-Za-z0-9]+$`)
)

// defaultDeniedExtensions lists executable, script, and markup extensions that
// are never accepted, regardless of the MIME allowlist.
var defaultDeniedExtensions = []string{
	"exe", "dll", "so", "msi", "com", "scr", "pif", "bat", "cmd",
	"sh", "bash", "zsh", "ps1", "psm1", "vbs", "wsf",
	"js", "mjs", "jar", "php", "asp", "aspx", "jsp", "cgi", "pl", "py", "rb",
	"html", "htm", "xhtml", "svg", "xml",
}

// Policy configures filename sanitization. The denied-extension set and length
// cap are data, not code, so deployments can extend them via configuration.
type Policy struct {
	MaxNameLength    int
	DeniedExtensions map[string]struct{}
}

// DefaultPolicy returns the policy used when no overrides are configured.
func DefaultPolicy() Policy {
	return NewPolicy(255, nil)
}

// NewPolicy builds a Policy with the given filename length cap and any extra
// denied extensions on top of the built-in set.
func NewPolicy(maxNameLength int, extraDenied []string) Policy {
	if maxNameLength <= 0 {
		maxNameLength = 255
	}
	denied := make(map[string]struct{}, len(defaultDeniedExtensions)+len(extraDenied))
	for _, ext := range defaultDeniedExtensions {
		denied[ext] = struct{}{}
	}
	for _, ext := range extraDenied {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			denied[ext] = struct{}{}
		}
	}
	return Policy{MaxNameLength: maxNameLength, DeniedExtensions: denied}
}

// SanitizeFilename turns an untrusted name into a safe token or fails with
// ErrInvalidFilename. Forward slashes are permitted so a thumbnail/ sub-segment
// survives; backslashes never do. The function is idempotent over its own
// output.
func (p Policy) SanitizeFilename(input string) (string, error) {
	name := strings.TrimSpace(input)
	name = htmlTagPattern.ReplaceAllString(name, "")
	name = stripControlChars(name)
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.TrimSpace(name)

	if name == "" {
		return "", invalidFilename("filename is empty after sanitization")
	}
	if len(name) > p.MaxNameLength {
		return "", invalidFilename("filename exceeds maximum length")
	}
	if ContainsTraversal(name) {
		return "", invalidFilename("filename contains path traversal sequence")
	}
	if strings.HasPrefix(name, ".") {
		return "", invalidFilename("filename must not start with a dot")
	}

	ext := Extension(name)
	if ext == "" {
		return "", invalidFilename("filename must have an extension")
	}
	if _, denied := p.DeniedExtensions[ext]; denied {
		return "", invalidFilename("filename extension is not allowed")
	}
	if !filenamePattern.MatchString(name) {
		return "", invalidFilename("filename contains unsupported characters")
	}

	return name, nil
}

// SanitizeUserID validates a caller-supplied user identifier.
func SanitizeUserID(input string) (string, error) {
	id := strings.TrimSpace(input)
	if !userIDPattern.MatchString(id) {
		return "", &KeyError{Code: RuleInvalidUserID, Message: "user id must match [A-Za-z0-9_-]{1,128}"}
	}
	return id, nil
}

// ContainsTraversal reports whether any path traversal signature appears in
// the value, case-insensitively.
func ContainsTraversal(value string) bool {
	lower := strings.ToLower(value)
	for _, sig := range traversalSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Extension returns the lowercase extension without the leading dot, or empty
// when the final path segment has none.
func Extension(name string) string {
	base := name
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// ExtensionsMatch fails when the lowercase extensions of the two names differ.
func ExtensionsMatch(oldName, newName string) error {
	if Extension(oldName) != Extension(newName) {
		return &KeyError{
			Code:    RuleExtensionChangeNotAllowed,
			Message: "changing the file extension is not allowed",
		}
	}
	return nil
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func invalidFilename(message string) error {
	return &KeyError{Code: RuleInvalidFilename, Message: message}
}
