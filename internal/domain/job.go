package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFinished   JobStatus = "FINISHED"
	JobStatusError      JobStatus = "ERROR"
)

// IsTerminal reports whether no further transitions can leave the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

// Job is the record of one transcoding request.
type Job struct {
	ID              string     `json:"job_id"`
	Status          JobStatus  `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	WorkDir         string     `json:"-"`
	InputPath       string     `json:"-"`
	OutputPath      string     `json:"-"`
	OutputExt       string     `json:"output_extension"`
	DurationSeconds *int       `json:"duration_seconds"`
	ErrorMessage    string     `json:"error,omitempty"`
}

func NewJob(id, workDir, inputPath, outputExt string) *Job {
	return &Job{
		ID:        id,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
		WorkDir:   workDir,
		InputPath: inputPath,
		OutputExt: outputExt,
	}
}

func (j *Job) MarkProcessing() error {
	if err := j.transition(JobStatusProcessing); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.StartedAt = &now
	return nil
}

func (j *Job) MarkFinished(outputPath string, durationSeconds *int) error {
	if err := j.transition(JobStatusFinished); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.FinishedAt = &now
	j.OutputPath = outputPath
	j.DurationSeconds = durationSeconds
	return nil
}

func (j *Job) MarkFailed(msg string) error {
	if err := j.transition(JobStatusError); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.FinishedAt = &now
	j.ErrorMessage = msg
	return nil
}

func (j *Job) transition(to JobStatus) error {
	if !isValidTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

// isValidTransition enforces PENDING -> PROCESSING -> {FINISHED, ERROR}.
func isValidTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusFinished || to == JobStatusError
	default:
		return false
	}
}

// Summary is the listing projection of a job.
func (j Job) Summary() JobSummary {
	return JobSummary{ID: j.ID, Status: j.Status, CreatedAt: j.CreatedAt}
}

// View is the status projection of a job. Output details stay hidden
// until the job has finished.
func (j Job) View() JobView {
	v := JobView{
		ID:              j.ID,
		Status:          j.Status,
		DurationSeconds: j.DurationSeconds,
	}
	if j.Status == JobStatusFinished {
		ext := j.OutputExt
		v.OutputExt = &ext
	}
	return v
}

type JobSummary struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type JobView struct {
	ID              string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	DurationSeconds *int      `json:"duration_seconds"`
	OutputExt       *string   `json:"output_extension"`
}
