package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/transcoder/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func archivedJob(id string, status domain.JobStatus, finished time.Time) domain.Job {
	created := finished.Add(-time.Minute)
	started := finished.Add(-30 * time.Second)
	return domain.Job{
		ID:         id,
		Status:     status,
		OutputExt:  "mp3",
		CreatedAt:  created,
		StartedAt:  &started,
		FinishedAt: &finished,
	}
}

func TestStore_ArchiveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	done := archivedJob("done", domain.JobStatusFinished, base)
	d := 42
	done.DurationSeconds = &d
	failed := archivedJob("failed", domain.JobStatusError, base.Add(time.Hour))
	failed.ErrorMessage = "ffmpeg exited with code 1. stderr: boom"

	require.NoError(t, store.Archive(ctx, done))
	require.NoError(t, store.Archive(ctx, failed))

	jobs, err := store.ListArchived(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "failed", jobs[0].ID, "most recently finished first")
	assert.Equal(t, domain.JobStatusError, jobs[0].Status)
	assert.Equal(t, failed.ErrorMessage, jobs[0].ErrorMessage)
	assert.Nil(t, jobs[0].DurationSeconds)

	assert.Equal(t, "done", jobs[1].ID)
	require.NotNil(t, jobs[1].DurationSeconds)
	assert.Equal(t, 42, *jobs[1].DurationSeconds)
	assert.Equal(t, "mp3", jobs[1].OutputExt)
	assert.True(t, done.CreatedAt.Equal(jobs[1].CreatedAt))
	require.NotNil(t, jobs[1].FinishedAt)
	assert.True(t, base.Equal(*jobs[1].FinishedAt))
}

func TestStore_ArchiveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := archivedJob("a", domain.JobStatusFinished, time.Now())

	require.NoError(t, store.Archive(ctx, job))
	require.NoError(t, store.Archive(ctx, job))

	jobs, err := store.ListArchived(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestStore_ListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Archive(ctx, archivedJob(id, domain.JobStatusFinished, base.Add(time.Duration(i)*time.Minute))))
	}

	jobs, err := store.ListArchived(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "d", jobs[0].ID)
	assert.Equal(t, "c", jobs[1].ID)
}

func TestStore_EmptyHistory(t *testing.T) {
	store := newTestStore(t)

	jobs, err := store.ListArchived(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestStore_ReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Archive(ctx, archivedJob("a", domain.JobStatusFinished, time.Now())))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	jobs, err := store.ListArchived(ctx, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)
}
