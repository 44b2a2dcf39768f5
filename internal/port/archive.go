package port

import (
	"context"

	"github.com/bnema/transcoder/internal/domain"
)

// JobArchive keeps a history of jobs removed from the in-memory registry.
// Archived jobs are never loaded back into the registry.
type JobArchive interface {
	Archive(ctx context.Context, job domain.Job) error
	ListArchived(ctx context.Context, limit int) ([]domain.Job, error)
}
