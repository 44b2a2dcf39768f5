package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job := NewJob("abc", "/tmp/ffmpeg-job-abc", "/tmp/ffmpeg-job-abc/input.mov", "mp3")

	assert.Equal(t, "abc", job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)
	assert.Empty(t, job.OutputPath)
	assert.Equal(t, "mp3", job.OutputExt)
}

func TestJob_HappyPath(t *testing.T) {
	job := NewJob("abc", "/w", "/w/input.mov", "mp3")

	require.NoError(t, job.MarkProcessing())
	require.NotNil(t, job.StartedAt)
	assert.False(t, job.StartedAt.Before(job.CreatedAt))

	d := 42
	require.NoError(t, job.MarkFinished("/w/output.mp3", &d))
	assert.Equal(t, JobStatusFinished, job.Status)
	assert.Equal(t, "/w/output.mp3", job.OutputPath)
	require.NotNil(t, job.FinishedAt)
	assert.False(t, job.FinishedAt.Before(*job.StartedAt))
	assert.Equal(t, 42, *job.DurationSeconds)
}

func TestJob_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(j *Job)
		apply   func(j *Job) error
		wantErr bool
	}{
		{
			name:    "pending to error skips processing",
			prepare: func(*Job) {},
			apply:   func(j *Job) error { return j.MarkFailed("boom") },
			wantErr: true,
		},
		{
			name:    "pending to finished skips processing",
			prepare: func(*Job) {},
			apply:   func(j *Job) error { return j.MarkFinished("/out", nil) },
			wantErr: true,
		},
		{
			name:    "processing twice",
			prepare: func(j *Job) { _ = j.MarkProcessing() },
			apply:   func(j *Job) error { return j.MarkProcessing() },
			wantErr: true,
		},
		{
			name:    "processing to error",
			prepare: func(j *Job) { _ = j.MarkProcessing() },
			apply:   func(j *Job) error { return j.MarkFailed("boom") },
		},
		{
			name: "finished is final",
			prepare: func(j *Job) {
				_ = j.MarkProcessing()
				_ = j.MarkFinished("/out", nil)
			},
			apply:   func(j *Job) error { return j.MarkFailed("late") },
			wantErr: true,
		},
		{
			name: "error is final",
			prepare: func(j *Job) {
				_ = j.MarkProcessing()
				_ = j.MarkFailed("boom")
			},
			apply:   func(j *Job) error { return j.MarkProcessing() },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("abc", "/w", "/w/in", "mp4")
			tt.prepare(job)
			before := job.Status

			err := tt.apply(job)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, before, job.Status, "status must not change on rejected transition")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJob_ViewHidesOutputUntilFinished(t *testing.T) {
	job := NewJob("abc", "/w", "/w/in", "mp3")
	assert.Nil(t, job.View().OutputExt)

	require.NoError(t, job.MarkProcessing())
	assert.Nil(t, job.View().OutputExt)

	require.NoError(t, job.MarkFinished("/w/output.mp3", nil))
	view := job.View()
	require.NotNil(t, view.OutputExt)
	assert.Equal(t, "mp3", *view.OutputExt)
	assert.Nil(t, view.DurationSeconds)
}

func TestJob_ViewOnError(t *testing.T) {
	job := NewJob("abc", "/w", "/w/in", "mp3")
	require.NoError(t, job.MarkProcessing())
	require.NoError(t, job.MarkFailed("exit 1"))

	view := job.View()
	assert.Equal(t, JobStatusError, view.Status)
	assert.Nil(t, view.OutputExt)
	assert.Empty(t, job.OutputPath)
	assert.Equal(t, "exit 1", job.ErrorMessage)
}

func TestConflictError(t *testing.T) {
	var err error = &ConflictError{JobID: "abc", Status: JobStatusProcessing}

	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Contains(t, err.Error(), "PROCESSING")
}
