package validation

import (
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxFilenameLength = 255

// SanitizeFilename reduces a client supplied name to its final path
// element and replaces control characters, quotes and separators with
// underscores. Unicode is kept. Empty results become "file".
func SanitizeFilename(name string) string {
	// Clients on Windows send backslash separated paths.
	name = name[strings.LastIndexAny(name, `/\`)+1:]

	name = strings.Map(func(r rune) rune {
		switch {
		case r < 32 || r == 127:
			return '_'
		case r == '"' || r == ':' || r == utf8.RuneError:
			return '_'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if strings.Trim(name, "_.") == "" {
		return "file"
	}
	if len(name) > maxFilenameLength {
		name = truncatePreservingExtension(name)
	}
	return name
}

func truncatePreservingExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength/2 {
		return truncateToBytes(name, maxFilenameLength)
	}
	return truncateToBytes(strings.TrimSuffix(name, ext), maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts s to at most n bytes on a rune boundary.
func truncateToBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ContentDisposition builds an attachment header for filename. Non-ASCII
// names are encoded per RFC 2231.
func ContentDisposition(filename string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": SanitizeFilename(filename)})
	if v == "" {
		return `attachment; filename="file"`
	}
	return v
}
