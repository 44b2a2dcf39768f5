package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/service"
)

const keepAliveInterval = 15 * time.Second

type SSEHandler struct {
	eventBus *service.EventBus
	jobs     JobService
}

func NewSSEHandler(eventBus *service.EventBus, jobs JobService) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		jobs:     jobs,
	}
}

// sseWrite writes one "status" event carrying view as JSON.
func sseWrite(w http.ResponseWriter, view domain.JobView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func sendKeepAlive(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Events streams the status of a job until it reaches a terminal state or
// the client goes away.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("jobId")

		// Subscribe first so no transition slips between the read and the
		// subscription.
		ch := h.eventBus.Subscribe(id)
		defer h.eventBus.Unsubscribe(id, ch)

		view, err := h.jobs.Status(id)
		if err != nil {
			writeServiceError(w, "events", err)
			return
		}

		// Streams outlive the server write timeout.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logger.Warn.Printf("events: clear write deadline: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := sseWrite(w, view); err != nil || view.Status.IsTerminal() {
			return
		}

		ctx := r.Context()
		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				if err := sendKeepAlive(w); err != nil {
					return
				}
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := sseWrite(w, ev); err != nil || ev.Status.IsTerminal() {
					return
				}
			}
		}
	}
}
