// Package validation inspects client supplied upload metadata and content.
package validation

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

const sniffLen = 512

// SniffMediaType guesses the container of an upload from its first bytes.
// It knows the audio and video containers http.DetectContentType misses and
// falls back to it otherwise.
func SniffMediaType(r io.ReaderAt) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	buf = buf[:n]

	if mime := sniffContainer(buf); mime != "" {
		return mime, nil
	}
	return http.DetectContentType(buf), nil
}

// LooksLikeMedia reports whether a sniffed type could plausibly be fed to a
// media tool. Unknown binary data counts, since many raw streams have no
// magic number.
func LooksLikeMedia(mime string) bool {
	return strings.HasPrefix(mime, "audio/") ||
		strings.HasPrefix(mime, "video/") ||
		mime == "application/ogg" ||
		mime == "application/octet-stream"
}

func sniffContainer(buf []byte) string {
	switch {
	case bytes.HasPrefix(buf, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		if bytes.Contains(buf[:min(len(buf), 64)], []byte("webm")) {
			return "video/webm"
		}
		return "video/x-matroska"
	case bytes.HasPrefix(buf, []byte("fLaC")):
		return "audio/flac"
	case bytes.HasPrefix(buf, []byte("OggS")):
		return "audio/ogg"
	case bytes.HasPrefix(buf, []byte("ID3")):
		return "audio/mpeg"
	case len(buf) >= 12 && bytes.HasPrefix(buf, []byte("RIFF")):
		switch string(buf[8:12]) {
		case "WAVE":
			return "audio/wav"
		case "AVI ":
			return "video/x-msvideo"
		}
	case len(buf) >= 12 && string(buf[4:8]) == "ftyp":
		switch string(buf[8:12]) {
		case "qt  ":
			return "video/quicktime"
		case "M4A ", "M4B ":
			return "audio/mp4"
		default:
			return "video/mp4"
		}
	case len(buf) >= 2 && buf[0] == 0xFF:
		// MPEG audio frame sync: layer III, or layer 0 for AAC in ADTS.
		switch {
		case buf[1]&0xE6 == 0xE2:
			return "audio/mpeg"
		case buf[1]&0xF6 == 0xF0:
			return "audio/aac"
		}
	}
	return ""
}
