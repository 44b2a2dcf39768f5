package http

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/transcoder/internal/adapter/http/middleware"
	"github.com/bnema/transcoder/internal/adapter/http/ratelimit"
	"github.com/bnema/transcoder/internal/service"
)

const (
	maxAuthFailures    = 5
	authFailureWindow  = 15 * time.Minute
	limiterPrunePeriod = time.Minute
)

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	handlers   *Handlers
	sseHandler *SSEHandler
	auth       Authenticator
	limiter    *ratelimit.FailureLimiter
	trustProxy bool
}

func NewServer(jobs JobService, auth Authenticator, eventBus *service.EventBus, uploadDir string, maxUploadBytes int64, trustProxy bool) *Server {
	mux := http.NewServeMux()

	limiter := ratelimit.NewFailureLimiter(
		maxAuthFailures,
		authFailureWindow,
		ratelimit.NewBackoff(15*time.Minute, 24*time.Hour, 2.0),
	)

	s := &Server{
		mux:        mux,
		handlers:   NewHandlers(jobs, uploadDir, maxUploadBytes),
		sseHandler: NewSSEHandler(eventBus, jobs),
		auth:       auth,
		limiter:    limiter,
		trustProxy: trustProxy,
	}

	s.registerRoutes()
	s.handler = middleware.SecurityHeaders(middleware.RequestLogger(trustProxy)(mux))

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handlers.Health())

	s.mux.HandleFunc("POST /api/ffmpeg/jobs/upload", s.protect(s.handlers.Upload()))
	s.mux.HandleFunc("GET /api/ffmpeg/jobs", s.protect(s.handlers.List()))
	s.mux.HandleFunc("GET /api/ffmpeg/jobs/{jobId}", s.protect(s.handlers.Status()))
	s.mux.HandleFunc("GET /api/ffmpeg/jobs/{jobId}/download", s.protect(s.handlers.Download()))
	s.mux.HandleFunc("GET /api/ffmpeg/jobs/{jobId}/events", s.protect(s.sseHandler.Events()))
	s.mux.HandleFunc("GET /api/ffmpeg/history", s.protect(s.handlers.History()))
}

func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return AuthMiddleware(s.auth, s.limiter, s.trustProxy, next)
}

// RunMaintenance prunes idle entries of the auth limiter until ctx ends.
func (s *Server) RunMaintenance(ctx context.Context) error {
	return s.limiter.Run(ctx, limiterPrunePeriod)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
