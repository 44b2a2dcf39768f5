package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/bnema/transcoder/internal/command"
	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
	"github.com/bnema/transcoder/internal/port"
)

const (
	// errorStderrLimit bounds the stderr prefix copied into a job's error message.
	errorStderrLimit = 1000
	// stderrRetainLimit bounds how much stderr is kept in memory per job.
	stderrRetainLimit = 64 << 10
)

// ExecutionTask binds a registered job to the command that will produce
// its output.
type ExecutionTask struct {
	JobID     string
	Template  command.Template
	InputPath string
	OutputExt string
}

// JobDir is the private working directory of a job.
func JobDir(jobsDir, jobID string) string {
	return filepath.Join(jobsDir, "ffmpeg-job-"+jobID)
}

// Executor runs one task's external process and records the outcome on the
// job. Failures never propagate to the caller; they end up in the record.
type Executor struct {
	registry *Registry
	runner   port.ProcessRunner
	events   *EventBus
	tool     string
	jobsDir  string
}

type ExecutorOption func(*Executor)

// WithEvents publishes every status change of a job on bus.
func WithEvents(bus *EventBus) ExecutorOption {
	return func(e *Executor) { e.events = bus }
}

func NewExecutor(registry *Registry, runner port.ProcessRunner, tool, jobsDir string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		runner:   runner,
		tool:     tool,
		jobsDir:  jobsDir,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, task ExecutionTask) {
	id := task.JobID

	defer func() {
		if r := recover(); r != nil {
			logger.Error.Printf("job %s: executor panic: %v", id, r)
			e.fail(id, "internal error")
		}
	}()

	jobDir := JobDir(e.jobsDir, id)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		logger.Error.Printf("job %s: create job directory: %v", id, err)
		e.fail(id, fmt.Sprintf("create job directory: %v", err))
		return
	}

	outputPath, err := filepath.Abs(filepath.Join(jobDir, "output."+task.OutputExt))
	if err != nil {
		e.fail(id, fmt.Sprintf("resolve output path: %v", err))
		return
	}
	inputPath, err := filepath.Abs(task.InputPath)
	if err != nil {
		e.fail(id, fmt.Sprintf("resolve input path: %v", err))
		return
	}

	argv := task.Template.Resolve(inputPath, outputPath)
	if len(argv) == 0 || argv[0] != e.tool {
		logger.Error.Printf("job %s: invalid command, does not start with %s: %s", id, e.tool, logger.Snippet(task.Template.String(), 200))
		e.fail(id, fmt.Sprintf("invalid command: does not start with %s", e.tool))
		return
	}
	args := argv[1:]

	if err := e.registry.Update(id, (*domain.Job).MarkProcessing); err != nil {
		logger.Error.Printf("job %s: mark processing: %v", id, err)
		return
	}
	e.publish(id)
	logger.Info.Printf("job %s: starting %s with %d args", id, e.tool, len(args))

	stdout := &streamLog{jobID: id, name: "stdout"}
	stderr := &streamLog{jobID: id, name: "stderr", retain: stderrRetainLimit}

	exitCode, launchErr := e.runner.Run(ctx, e.tool, args, stdout, stderr)
	if launchErr != nil {
		logger.Error.Printf("job %s: spawn error: %v", id, launchErr)
		e.finish(id, func(j *domain.Job) error {
			return j.MarkFailed(fmt.Sprintf("spawn error: %v", launchErr))
		})
		return
	}

	stderrText := stderr.String()
	if exitCode == 0 && fileExists(outputPath) {
		duration := ParseDuration(stderrText)
		e.finish(id, func(j *domain.Job) error {
			return j.MarkFinished(outputPath, duration)
		})
		logger.Info.Printf("job %s: finished, output=%s duration=%s", id, outputPath, formatDuration(duration))
		return
	}

	prefix := truncate(stderrText, errorStderrLimit)
	logger.Error.Printf("job %s: %s exited with code %d: %s", id, e.tool, exitCode, logger.SanitizeForLog(prefix))
	e.finish(id, func(j *domain.Job) error {
		return j.MarkFailed(fmt.Sprintf("%s exited with code %d. stderr: %s", e.tool, exitCode, prefix))
	})
}

// fail moves a job to ERROR, passing through PROCESSING when it has not
// started yet.
func (e *Executor) fail(id, msg string) {
	e.finish(id, func(j *domain.Job) error {
		if j.Status == domain.JobStatusPending {
			if err := j.MarkProcessing(); err != nil {
				return err
			}
		}
		return j.MarkFailed(msg)
	})
}

func (e *Executor) finish(id string, fn func(*domain.Job) error) {
	if err := e.registry.Update(id, fn); err != nil {
		logger.Error.Printf("job %s: record outcome: %v", id, err)
		return
	}
	e.publish(id)
}

func (e *Executor) publish(id string) {
	if e.events == nil {
		return
	}
	if job, err := e.registry.Get(id); err == nil {
		e.events.Publish(job.View())
	}
}

var durationPattern = regexp.MustCompile(`(?i)Duration:\s+(\d+):(\d+):(\d+(?:\.\d+)?)`)

// ParseDuration extracts the first "Duration: HH:MM:SS[.frac]" from ffmpeg's
// stderr, rounded to whole seconds. It returns nil when none is present.
func ParseDuration(stderr string) *int {
	m := durationPattern.FindStringSubmatch(stderr)
	if m == nil {
		return nil
	}

	h, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil
	}

	total := int(math.Round(float64(h*3600+mins*60) + secs))
	return &total
}

// streamLog receives a process stream chunk by chunk, logs it at debug
// level and keeps up to retain bytes.
type streamLog struct {
	jobID  string
	name   string
	retain int
	buf    bytes.Buffer
}

func (s *streamLog) Write(p []byte) (int, error) {
	logger.Debug.Printf("job %s: %s: %s", s.jobID, s.name, logger.Snippet(string(p), 500))
	if room := s.retain - s.buf.Len(); room > 0 {
		if len(p) > room {
			s.buf.Write(p[:room])
		} else {
			s.buf.Write(p)
		}
	}
	return len(p), nil
}

func (s *streamLog) String() string {
	return s.buf.String()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatDuration(d *int) string {
	if d == nil {
		return "unknown"
	}
	return strconv.Itoa(*d) + "s"
}
