package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameRunes keeps object keys well under the 1024 byte S3 limit.
const maxFileNameRunes = 180

// ErrInvalidFileName is returned for names that are empty or try to escape
// the owner's namespace.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens separators to "_", drops control characters and
// shortens long names while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "", ErrInvalidFileName
	}
	if utf8.RuneCountInString(cleaned) > maxFileNameRunes {
		ext := path.Ext(cleaned)
		if utf8.RuneCountInString(ext) >= maxFileNameRunes {
			ext = ""
		}
		cleaned = Truncate(strings.TrimSuffix(cleaned, ext), maxFileNameRunes-utf8.RuneCountInString(ext)) + ext
	}
	return cleaned, nil
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
