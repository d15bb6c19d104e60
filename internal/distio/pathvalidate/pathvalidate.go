// Package pathvalidate rejects unsafe path components before they reach any
// filesystem lookup or URL-index resolution.
package pathvalidate

import (
	"fmt"
	"strings"
)

// Component checks a single path segment (a profile name, or one element of
// a request path) against the traversal/injection rules the HTTP surface
// must enforce before any lookup: no "..", no NUL byte, no leading
// separator, no drive letter.
func Component(s string) error {
	if s == "" {
		return fmt.Errorf("path component must not be empty")
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("path contains '..' (path traversal attempt)")
	}
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("path contains null byte")
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "\\") {
		return fmt.Errorf("absolute paths are not allowed")
	}
	if len(s) >= 2 && s[1] == ':' {
		return fmt.Errorf("drive letters are not allowed")
	}
	return nil
}
