package errors

import (
	"strings"
	"unicode"
)

// MaxTitleLength bounds node titles accepted from outline ingestion.
const MaxTitleLength = 1024

// ValidateID validates a node or outline identifier for safety.
// Identifiers end up in file names and store keys, so the rules reject
// anything that could be used for path traversal:
//   - No empty identifiers
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidPath, "id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateTitle checks that a node title is printable and bounded.
// Empty titles are allowed; the renderer shows a placeholder.
func ValidateTitle(title string) error {
	if len(title) > MaxTitleLength {
		return New(ErrCodeInvalidInput, "title too long (max %d bytes)", MaxTitleLength)
	}
	for _, r := range title {
		if r != '\t' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains invalid control characters")
		}
	}
	return nil
}
