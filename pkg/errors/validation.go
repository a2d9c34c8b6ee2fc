package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds module names.
const MaxNameLength = 256

// ValidateModuleName checks a module name before it is created.
//
// The rules are:
//   - No empty names
//   - Maximum length of [MaxNameLength] bytes
//   - No control characters
//   - No slashes, since hosts address modules by name in URL paths
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "module name must not be empty")
	}
	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidInput, "module name too long (max %d characters)", MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "module name contains control characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "module name must not contain slashes: %q", name)
	}
	return nil
}

// ValidatePath checks a document file path given on the command line or in
// configuration.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}
