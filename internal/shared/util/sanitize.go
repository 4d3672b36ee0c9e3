package util

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName rejects traversal patterns and anything that is not a bare file name.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || strings.Contains(s, "..") {
		return "", ErrInvalidFileName
	}
	if strings.ContainsAny(s, `/\`) || filepath.Base(s) != s {
		return "", ErrInvalidFileName
	}
	if strings.ContainsRune(s, 0) {
		return "", ErrInvalidFileName
	}
	return s, nil
}
