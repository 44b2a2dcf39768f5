package logger

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var shortEscapes = map[rune]string{
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// SanitizeForLog escapes control characters and Unicode line separators so
// caller-supplied text (command templates, filenames, process output) cannot
// forge log lines or drive the terminal. Printable Unicode is kept as is.
func SanitizeForLog(s string) string {
	if !needsEscape(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if esc, ok := shortEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		if !escaped(r) {
			b.WriteRune(r)
			continue
		}
		if r <= 0xff {
			b.WriteString(`\x`)
			if r < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strconv.FormatInt(int64(r), 16))
			continue
		}
		b.WriteString(`\u`)
		b.WriteString(strconv.FormatInt(int64(r), 16))
	}
	return b.String()
}

// escaped covers C0/C1 controls, DEL and U+2028/U+2029.
func escaped(r rune) bool {
	return unicode.IsControl(r) || r == '\u2028' || r == '\u2029'
}

func needsEscape(s string) bool {
	return strings.IndexFunc(s, escaped) >= 0
}

// Snippet returns at most n bytes of s, cut on a rune boundary and sanitized.
func Snippet(s string, n int) string {
	if len(s) > n {
		s = s[:n]
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return SanitizeForLog(s)
}
