package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/transcoder/internal/adapter/http/validation"
	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/service"
)

const (
	// maxFieldBytes bounds the text fields of an upload form.
	maxFieldBytes = 16 << 10

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type JobService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (domain.Job, error)
	Status(id string) (domain.JobView, error)
	Download(id string) (service.Download, error)
	List() []domain.JobSummary
	History(ctx context.Context, limit int) ([]domain.Job, error)
	Stats() (running, queued, limit int)
}

type Handlers struct {
	jobs           JobService
	uploadDir      string
	maxUploadBytes int64
}

func NewHandlers(jobs JobService, uploadDir string, maxUploadBytes int64) *Handlers {
	return &Handlers{
		jobs:           jobs,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type submitResponse struct {
	Success bool             `json:"success"`
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Jobs   schedulerVM `json:"jobs"`
}

type schedulerVM struct {
	Running int `json:"running"`
	Queued  int `json:"queued"`
	Limit   int `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Message: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Anything it does
// not recognise is logged and reported without detail.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		logger.Warn.Printf("%s: %s", op, logger.SanitizeForLog(validationErr.Reason))
		writeError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Job not found.")
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, fmt.Sprintf("Job status is %s. Only available when %s.", conflictErr.Status, domain.JobStatusFinished))
	case errors.Is(err, domain.ErrOutputMissing):
		writeError(w, http.StatusInternalServerError, "Output file not found.")
	default:
		logger.Error.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		running, queued, limit := h.jobs.Stats()
		writeJSON(w, http.StatusOK, healthResponse{
			Status: "ok",
			Jobs:   schedulerVM{Running: running, Queued: queued, Limit: limit},
		})
	}
}

func (h *Handlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

		form, err := h.readUploadForm(r)
		defer form.cleanup()
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				logger.Warn.Printf("upload: body exceeds %d bytes", h.maxUploadBytes)
				writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			case errors.Is(err, errMalformedForm):
				logger.Warn.Printf("upload: %v", err)
				writeError(w, http.StatusBadRequest, "Expected a multipart/form-data body.")
			case errors.As(err, new(*fieldTooLongError)):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error.Printf("upload: store body: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error.")
			}
			return
		}

		switch {
		case form.uploadPath == "":
			logger.Warn.Printf("upload: no file provided")
			writeError(w, http.StatusBadRequest, "file (binary) is required.")
			return
		case strings.TrimSpace(form.fields["full_command"]) == "":
			logger.Warn.Printf("upload: missing full_command")
			writeError(w, http.StatusBadRequest, "full_command is required.")
			return
		case strings.TrimSpace(form.fields["output_extension"]) == "":
			logger.Warn.Printf("upload: missing output_extension")
			writeError(w, http.StatusBadRequest, "output_extension is required.")
			return
		}

		job, err := h.jobs.Submit(r.Context(), service.SubmitRequest{
			UploadPath:   form.uploadPath,
			OriginalName: form.filename,
			Template:     form.fields["full_command"],
			OutputExt:    form.fields["output_extension"],
		})
		if err != nil {
			writeServiceError(w, "upload", err)
			return
		}

		writeJSON(w, http.StatusAccepted, submitResponse{Success: true, JobID: job.ID, Status: job.Status})
	}
}

var errMalformedForm = errors.New("malformed multipart form")

type fieldTooLongError struct {
	name string
}

func (e *fieldTooLongError) Error() string {
	return e.name + " is too long."
}

type uploadForm struct {
	uploadPath string
	filename   string
	fields     map[string]string
}

// cleanup removes the spooled upload unless the service already moved it.
func (f *uploadForm) cleanup() {
	if f.uploadPath == "" {
		return
	}
	if err := os.Remove(f.uploadPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn.Printf("upload: remove temp file %s: %v", f.uploadPath, err)
	}
}

// readUploadForm streams the multipart body: the first "file" part is
// spooled to disk, the text fields are kept in memory, and anything else is
// skipped.
func (h *Handlers) readUploadForm(r *http.Request) (*uploadForm, error) {
	form := &uploadForm{fields: make(map[string]string)}

	mr, err := r.MultipartReader()
	if err != nil {
		return form, fmt.Errorf("%w: %v", errMalformedForm, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return form, err
			}
			return form, fmt.Errorf("%w: %v", errMalformedForm, err)
		}

		switch name := part.FormName(); name {
		case "file":
			if form.uploadPath == "" {
				err = h.spoolFile(form, part)
			}
		case "full_command", "output_extension":
			var b []byte
			b, err = io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err == nil && len(b) > maxFieldBytes {
				err = &fieldTooLongError{name: name}
			}
			form.fields[name] = string(b)
		}
		_ = part.Close()
		if err != nil {
			return form, err
		}
	}
}

func (h *Handlers) spoolFile(form *uploadForm, part *multipart.Part) error {
	tmp, err := os.CreateTemp(h.uploadDir, "upload-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	form.uploadPath = tmp.Name()

	n, err := io.Copy(tmp, part)
	if err != nil {
		_ = tmp.Close()
		return err
	}

	sniffed, sniffErr := validation.SniffMediaType(tmp)
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	form.filename = validation.SanitizeFilename(part.FileName())
	switch {
	case sniffErr != nil:
		logger.Warn.Printf("upload: sniff %s: %v", form.uploadPath, sniffErr)
	case !validation.LooksLikeMedia(sniffed):
		logger.Warn.Printf("upload: %s (%d bytes) does not look like media: %s", logger.SanitizeForLog(form.filename), n, sniffed)
	default:
		logger.Info.Printf("upload: received %s (%d bytes, %s)", logger.SanitizeForLog(form.filename), n, sniffed)
	}
	return nil
}

func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("jobId")
		logger.Debug.Printf("status requested for job %s", logger.SanitizeForLog(id))

		view, err := h.jobs.Status(id)
		if err != nil {
			writeServiceError(w, "status", err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *Handlers) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("jobId")

		dl, err := h.jobs.Download(id)
		if err != nil {
			writeServiceError(w, "download", err)
			return
		}

		f, err := os.Open(dl.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = domain.ErrOutputMissing
			}
			writeServiceError(w, "download", err)
			return
		}
		defer f.Close() //nolint:errcheck

		info, err := f.Stat()
		if err != nil {
			writeServiceError(w, "download", err)
			return
		}

		w.Header().Set("Content-Type", dl.MIMEType)
		w.Header().Set("Content-Disposition", validation.ContentDisposition(dl.Filename))
		logger.Info.Printf("download: streaming job %s (%d bytes)", logger.SanitizeForLog(id), info.Size())
		http.ServeContent(w, r, dl.Filename, info.ModTime(), f)
	}
}

func (h *Handlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := h.jobs.List()
		if jobs == nil {
			jobs = []domain.JobSummary{}
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer.")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		jobs, err := h.jobs.History(r.Context(), limit)
		if err != nil {
			writeServiceError(w, "history", err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}
