package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/transcoder/internal/command"
	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/port"
)

const defaultMIMEType = "application/octet-stream"

var inputExtPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// SubmitRequest describes an upload already written to disk.
type SubmitRequest struct {
	UploadPath   string
	OriginalName string
	Template     string
	OutputExt    string
}

// Download locates the output of a finished job.
type Download struct {
	Path     string
	Filename string
	MIMEType string
}

type JobServiceConfig struct {
	JobsDir           string
	AllowedExtensions []string
	MIMETypes         map[string]string
}

// JobService is the entry point used by transports: it validates
// submissions, registers jobs and hands them to the scheduler.
type JobService struct {
	registry  *Registry
	scheduler *Scheduler
	validator command.Validator
	archive   port.JobArchive
	jobsDir   string
	allowed   []string
	mimeTypes map[string]string
	newID     func() string
}

func NewJobService(
	registry *Registry,
	scheduler *Scheduler,
	validator command.Validator,
	archive port.JobArchive,
	cfg JobServiceConfig,
) *JobService {
	return &JobService{
		registry:  registry,
		scheduler: scheduler,
		validator: validator,
		archive:   archive,
		jobsDir:   cfg.JobsDir,
		allowed:   cfg.AllowedExtensions,
		mimeTypes: cfg.MIMETypes,
		newID:     uuid.NewString,
	}
}

// NormalizeExtension strips one leading dot and lowercases ext.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (domain.Job, error) {
	ext := NormalizeExtension(req.OutputExt)
	if ext == "" {
		return domain.Job{}, domain.NewValidationError("output_extension is required")
	}
	if !slices.Contains(s.allowed, ext) {
		logger.Warn.Printf("submit: unsupported extension %q", logger.SanitizeForLog(ext))
		return domain.Job{}, domain.NewValidationError("output_extension not supported. Allowed: %s", strings.Join(s.allowed, ", "))
	}

	if err := s.validator.Validate(req.Template); err != nil {
		return domain.Job{}, err
	}
	tmpl, err := command.Parse(req.Template)
	if err != nil {
		return domain.Job{}, domain.NewValidationError("full_command is empty")
	}

	id := s.newID()
	jobDir := JobDir(s.jobsDir, id)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return domain.Job{}, fmt.Errorf("create job directory: %w", err)
	}

	inputExt := filepath.Ext(req.OriginalName)
	if !inputExtPattern.MatchString(inputExt) {
		inputExt = ""
	}
	inputPath := filepath.Join(jobDir, "input"+inputExt)
	if err := moveFile(req.UploadPath, inputPath); err != nil {
		_ = os.RemoveAll(jobDir)
		return domain.Job{}, fmt.Errorf("move upload into job directory: %w", err)
	}
	logger.Info.Printf("job %s: input stored at %s", id, inputPath)

	job := domain.NewJob(id, jobDir, inputPath, ext)
	if err := s.registry.Create(job); err != nil {
		_ = os.RemoveAll(jobDir)
		return domain.Job{}, fmt.Errorf("register job: %w", err)
	}
	logger.Info.Printf("job %s: created (output=%s)", id, ext)

	s.scheduler.Submit(ctx, ExecutionTask{
		JobID:     id,
		Template:  tmpl,
		InputPath: inputPath,
		OutputExt: ext,
	})

	return *job, nil
}

func (s *JobService) Get(id string) (domain.Job, error) {
	return s.registry.Get(id)
}

func (s *JobService) Status(id string) (domain.JobView, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return domain.JobView{}, err
	}
	return job.View(), nil
}

func (s *JobService) List() []domain.JobSummary {
	return s.registry.List()
}

// Download returns the output of a FINISHED job, a *domain.ConflictError
// for any other status, or domain.ErrOutputMissing when the file is gone.
func (s *JobService) Download(id string) (Download, error) {
	job, err := s.registry.Get(id)
	if err != nil {
		return Download{}, err
	}
	if job.Status != domain.JobStatusFinished {
		return Download{}, &domain.ConflictError{JobID: job.ID, Status: job.Status}
	}
	if job.OutputPath == "" || !fileExists(job.OutputPath) {
		logger.Error.Printf("download: output missing for job %s: %s", job.ID, job.OutputPath)
		return Download{}, domain.ErrOutputMissing
	}

	mime, ok := s.mimeTypes[job.OutputExt]
	if !ok {
		mime = defaultMIMEType
	}
	return Download{
		Path:     job.OutputPath,
		Filename: "output." + job.OutputExt,
		MIMEType: mime,
	}, nil
}

// History lists archived jobs, newest first. Without an archive it is empty.
func (s *JobService) History(ctx context.Context, limit int) ([]domain.Job, error) {
	if s.archive == nil {
		return []domain.Job{}, nil
	}
	return s.archive.ListArchived(ctx, limit)
}

func (s *JobService) Stats() (running, queued, limit int) {
	running, queued = s.scheduler.Stats()
	return running, queued, s.scheduler.Limit()
}

// moveFile renames src to dst, copying when they sit on different
// filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
