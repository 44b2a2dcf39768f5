package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/transcoder/internal/infrastructure/logger"
)

// ClientIP returns the caller's address. X-Forwarded-For is only honoured
// when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += int64(n)
	return n, err
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger logs every request when it arrives and when it completes,
// at a level that follows the response status.
func RequestLogger(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := logger.SanitizeForLog(r.URL.Path)
			ip := ClientIP(r, trustProxy)
			logger.Debug.Printf("%s %s from %s", r.Method, path, logger.SanitizeForLog(ip))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			l := logger.Info
			switch {
			case status >= 500:
				l = logger.Error
			case status >= 400:
				l = logger.Warn
			}
			l.Printf("%s %s %d %dB %s ip=%s", r.Method, path, status, rec.bytes, time.Since(start).Round(time.Millisecond), logger.SanitizeForLog(ip))
		})
	}
}
