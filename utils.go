package cloudpad

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidKey reports whether key can address an object. Keys are opaque to
// the API; the only requirement is that they are not empty.
func IsValidKey(key string) bool {
	return key != ""
}

// IsValidStoragePath validates that a key can be mapped onto a file path by
// a filesystem-backed store.
// It checks that the path:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." segments (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain "." segments
//   - does not contain a backslash
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Spaces are allowed since editor file names commonly contain them.
func IsValidStoragePath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' {
		return false
	}

	if strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "//") {
		return false
	}

	if strings.Contains(p, `\`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == "." || segment == ".." {
			return false
		}
		if strings.TrimSpace(segment) == "" {
			return false
		}
	}

	for _, r := range p {
		if r == 0 || r < 0x20 || r == 0x7f || (unicode.IsSpace(r) && r != ' ') {
			return false
		}
	}

	return true
}
