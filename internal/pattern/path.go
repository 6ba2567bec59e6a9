package pattern

import (
	"fmt"
	"strings"
)

// NormalizePath canonicalizes a query path: forward-slash separated,
// repository-relative, no leading slash. Backslashes, empty segments and
// traversal segments are rejected rather than silently repaired.
func NormalizePath(path string) (string, error) {
	if strings.ContainsRune(path, '\\') {
		return "", fmt.Errorf("path %q contains a backslash", path)
	}

	trimmed := strings.TrimSpace(path)
	trimmed = strings.TrimPrefix(trimmed, "./")
	trimmed = strings.TrimPrefix(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return "", fmt.Errorf("empty path")
	}

	for _, part := range strings.Split(trimmed, "/") {
		switch part {
		case "":
			return "", fmt.Errorf("path %q contains an empty segment", path)
		case ".", "..":
			return "", fmt.Errorf("path %q contains a relative segment", path)
		}
	}

	return trimmed, nil
}
