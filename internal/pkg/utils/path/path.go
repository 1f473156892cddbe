// Package path builds bucket object keys from caller supplied prefixes and
// client filenames.
package path

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyPath     = errors.New("key prefix cannot be empty")
	ErrInvalidPath   = errors.New("key prefix contains a control byte")
	ErrPathTraversal = errors.New("key prefix escapes its root")
)

// ValidatePrefix accepts "/" or a slash separated prefix whose segments are
// neither dot runs nor contain NUL.
func ValidatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return ErrEmptyPath
	case strings.ContainsRune(prefix, 0):
		return ErrInvalidPath
	}
	for seg := range strings.SplitSeq(prefix, "/") {
		if seg != "" && strings.Trim(seg, ".") == "" && seg != "." {
			return ErrPathTraversal
		}
	}
	return nil
}

// SanitizeFilename keeps only the base name of a client filename (either
// separator style) and neutralizes NUL bytes and leading dots.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "\x00", "_")
	switch {
	case name == "":
		return "upload"
	case name[0] == '.':
		return "file_" + name
	}
	return name
}

// ObjectKey builds "<prefix>/<yyyy>/<mm>/<id><ext>" for a stored upload. The
// month is taken in UTC and ext is lowercased.
func ObjectKey(prefix string, at time.Time, id uuid.UUID, ext string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	at = at.UTC()
	key := fmt.Sprintf("%04d/%02d/%s%s", at.Year(), int(at.Month()), id, strings.ToLower(ext))
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key, nil
}
