package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/transcoder/internal/command"
	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/port/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, registry *Registry, jobsDir, ext string) ExecutionTask {
	t.Helper()

	id := "job-" + strings.ReplaceAll(t.Name(), "/", "_")
	dir := JobDir(jobsDir, id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	input := filepath.Join(dir, "input.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0644))

	require.NoError(t, registry.Create(domain.NewJob(id, dir, input, ext)))

	tmpl, err := command.Parse("ffmpeg -y -i {input} -vn {output}")
	require.NoError(t, err)

	return ExecutionTask{JobID: id, Template: tmpl, InputPath: input, OutputExt: ext}
}

func TestExecutor_Success(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")
	wantOutput := filepath.Join(JobDir(jobsDir, task.JobID), "output.mp3")

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, _ string, args []string, _ io.Writer, stderr io.Writer) {
			job, err := registry.Get(task.JobID)
			require.NoError(t, err)
			assert.Equal(t, domain.JobStatusProcessing, job.Status, "job must be PROCESSING while the process runs")
			assert.NotNil(t, job.StartedAt)

			assert.Equal(t, []string{"-y", "-i", task.InputPath, "-vn", wantOutput}, args)
			_, _ = io.WriteString(stderr, "Input #0, wav\n  Duration: 00:01:02.50, bitrate: 1411 kb/s\n")
			_ = os.WriteFile(args[len(args)-1], []byte("ID3"), 0644)
		}).
		Return(0, nil).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFinished, job.Status)
	assert.Equal(t, wantOutput, job.OutputPath)
	assert.Equal(t, "mp3", job.OutputExt)
	require.NotNil(t, job.DurationSeconds)
	assert.Equal(t, 63, *job.DurationSeconds)
	require.NotNil(t, job.FinishedAt)
	assert.False(t, job.FinishedAt.Before(*job.StartedAt))
	assert.Empty(t, job.ErrorMessage)
}

func TestExecutor_SuccessWithoutDuration(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "wav")

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, _ string, args []string, _ io.Writer, _ io.Writer) {
			_ = os.WriteFile(args[len(args)-1], []byte("RIFF"), 0644)
		}).
		Return(0, nil).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFinished, job.Status)
	assert.Nil(t, job.DurationSeconds)
}

func TestExecutor_ZeroExitWithoutOutput(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Return(0, nil).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.ErrorMessage, "exited with code 0")
	assert.Empty(t, job.OutputPath)
	assert.Nil(t, job.DurationSeconds)
	assert.NotNil(t, job.FinishedAt)
}

func TestExecutor_NonZeroExitTruncatesStderr(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")
	noise := strings.Repeat("x", 3000)

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, _ string, args []string, _ io.Writer, stderr io.Writer) {
			_, _ = io.WriteString(stderr, "Duration: 00:00:05.00\n"+noise)
			_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0644)
		}).
		Return(1, nil).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.True(t, strings.HasPrefix(job.ErrorMessage, "ffmpeg exited with code 1. stderr: Duration: 00:00:05.00"))
	prefix := strings.TrimPrefix(job.ErrorMessage, "ffmpeg exited with code 1. stderr: ")
	assert.Len(t, prefix, errorStderrLimit)
	assert.Empty(t, job.OutputPath, "a failed job never exposes an output path")
	assert.Nil(t, job.DurationSeconds)
}

func TestExecutor_LaunchFailure(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Return(-1, errors.New(`exec: "ffmpeg": executable file not found in $PATH`)).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.ErrorMessage, "spawn error:")
	assert.Contains(t, job.ErrorMessage, "executable file not found")
	assert.NotNil(t, job.FinishedAt)
	assert.Empty(t, job.OutputPath)
}

func TestExecutor_CommandForOtherTool(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")

	tmpl, err := command.Parse("ffmpeg.exe -i {input} {output}")
	require.NoError(t, err)
	task.Template = tmpl

	NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.ErrorMessage, "invalid command")
	assert.NotNil(t, job.StartedAt, "the failure still passes through PROCESSING")
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_PanicMarksJobFailed(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Run(func(context.Context, string, []string, io.Writer, io.Writer) {
			panic("runner exploded")
		}).
		Return(0, nil).
		Once()

	assert.NotPanics(t, func() {
		NewExecutor(registry, runner, "ffmpeg", jobsDir).Execute(context.Background(), task)
	})

	job, err := registry.Get(task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Equal(t, "internal error", job.ErrorMessage)
}

func TestExecutor_PublishesStatusChanges(t *testing.T) {
	registry := NewRegistry()
	runner := mocks.NewProcessRunnerMock(t)
	jobsDir := t.TempDir()
	task := newTestJob(t, registry, jobsDir, "mp3")
	bus := NewEventBus()
	events := bus.Subscribe(task.JobID)

	runner.EXPECT().Run(mock.Anything, "ffmpeg", mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, _ string, args []string, _ io.Writer, _ io.Writer) {
			_ = os.WriteFile(args[len(args)-1], []byte("ID3"), 0644)
		}).
		Return(0, nil).
		Once()

	NewExecutor(registry, runner, "ffmpeg", jobsDir, WithEvents(bus)).Execute(context.Background(), task)

	require.Len(t, events, 2)
	first, second := <-events, <-events
	assert.Equal(t, domain.JobStatusProcessing, first.Status)
	assert.Nil(t, first.OutputExt)
	assert.Equal(t, domain.JobStatusFinished, second.Status)
	require.NotNil(t, second.OutputExt)
	assert.Equal(t, "mp3", *second.OutputExt)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   *int
	}{
		{name: "whole seconds", stderr: "  Duration: 00:00:10, start: 0", want: intPtr(10)},
		{name: "fraction rounds down", stderr: "Duration: 00:00:10.49", want: intPtr(10)},
		{name: "fraction rounds up", stderr: "Duration: 00:00:10.50", want: intPtr(11)},
		{name: "hours and minutes", stderr: "Duration: 01:02:03.00", want: intPtr(3723)},
		{name: "case insensitive", stderr: "duration: 00:01:00.00", want: intPtr(60)},
		{name: "first occurrence wins", stderr: "Duration: 00:00:01.00\nDuration: 00:00:09.00", want: intPtr(1)},
		{name: "zero duration", stderr: "Duration: 00:00:00.00", want: intPtr(0)},
		{name: "N/A", stderr: "Duration: N/A, bitrate: N/A", want: nil},
		{name: "absent", stderr: "Press [q] to stop", want: nil},
		{name: "empty", stderr: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.stderr))
		})
	}
}

func TestStreamLog_RetainsBoundedPrefix(t *testing.T) {
	s := &streamLog{jobID: "j", name: "stderr", retain: 4}

	n, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "writes report full length even when not retained")
	assert.Equal(t, "abcd", s.String())
}

func intPtr(v int) *int { return &v }
