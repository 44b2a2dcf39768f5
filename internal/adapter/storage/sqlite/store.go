package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store keeps a history of reaped jobs. It is write-mostly: records land
// here once their working directory is gone and are never loaded back into
// the live registry.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA cache_size = -2000", // 2MB
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "transcoder.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time; the reaper is the only one anyway.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Archive upserts job into the history table.
func (s *Store) Archive(ctx context.Context, job domain.Job) error {
	var duration sql.NullInt64
	if job.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: int64(*job.DurationSeconds), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO job_history
           (id, status, output_ext, duration_seconds, error_message, created_at, started_at, finished_at, archived_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Status),
		job.OutputExt,
		duration,
		job.ErrorMessage,
		job.CreatedAt.UnixMilli(),
		nullMillis(job.StartedAt),
		nullMillis(job.FinishedAt),
		s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("archive job %s: %w", job.ID, err)
	}
	return nil
}

// ListArchived returns up to limit archived jobs, most recently finished
// first. A non-positive limit selects the default.
func (s *Store) ListArchived(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, output_ext, duration_seconds, error_message, created_at, started_at, finished_at
           FROM job_history
          ORDER BY finished_at DESC, id ASC
          LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list archived jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Job{}
	for rows.Next() {
		var (
			job                   domain.Job
			status                string
			duration              sql.NullInt64
			createdMs             int64
			startedMs, finishedMs sql.NullInt64
		)
		if err := rows.Scan(&job.ID, &status, &job.OutputExt, &duration, &job.ErrorMessage, &createdMs, &startedMs, &finishedMs); err != nil {
			return nil, fmt.Errorf("scan archived job: %w", err)
		}
		job.Status = domain.JobStatus(status)
		job.CreatedAt = time.UnixMilli(createdMs).UTC()
		job.StartedAt = timeFromMillis(startedMs)
		job.FinishedAt = timeFromMillis(finishedMs)
		if duration.Valid {
			d := int(duration.Int64)
			job.DurationSeconds = &d
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

var _ port.JobArchive = (*Store)(nil)
