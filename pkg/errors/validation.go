package errors

import (
	"strings"
	"unicode"
)

// maxFeatureIDLength bounds explicit ids so they stay usable as GeoJSON ids
// and Neo4j keys.
const maxFeatureIDLength = 256

// ValidateFeatureID validates an explicit feature id taken from an id(...)
// directive.
//
// The validation rules:
//   - No empty ids
//   - No whitespace or control characters
//   - No parentheses or commas (they cannot round-trip through markup)
//   - Maximum length of 256 characters
func ValidateFeatureID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidFeatureID, "feature id cannot be empty")
	}
	if len(id) > maxFeatureIDLength {
		return New(ErrCodeInvalidFeatureID, "feature id too long (max %d characters)", maxFeatureIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidFeatureID, "feature id %q contains whitespace or control characters", id)
		}
	}
	if strings.ContainsAny(id, "(),") {
		return New(ErrCodeInvalidFeatureID, "feature id %q contains markup delimiters", id)
	}
	return nil
}

// ValidatePath validates a manifest href for safety.
// It prevents path traversal out of the manifest directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a map URL.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
