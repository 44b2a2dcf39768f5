package service

import (
	"slices"
	"sync"

	"github.com/bnema/transcoder/internal/domain"
)

// Registry is the in-memory owner of every job record. The map and the
// insertion order are guarded by mu; each record carries its own lock so
// updates to different jobs do not serialize on one another.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

type entry struct {
	mu  sync.RWMutex
	job domain.Job
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

func (r *Registry) Create(job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[job.ID]; ok {
		return domain.ErrJobExists
	}
	r.entries[job.ID] = &entry{job: *job}
	r.order = append(r.order, job.ID)
	return nil
}

// Get returns a copy of the record taken under its lock.
func (r *Registry) Get(id string) (domain.Job, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.job, nil
}

// Update applies fn to the live record. A failing fn leaves the record
// untouched.
func (r *Registry) Update(id string, fn func(*domain.Job) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.job
	if err := fn(&draft); err != nil {
		return err
	}
	e.job = draft
	return nil
}

// List returns summaries in submission order.
func (r *Registry) List() []domain.JobSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.JobSummary, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		e.mu.RLock()
		out = append(out, e.job.Summary())
		e.mu.RUnlock()
	}
	return out
}

// Terminal returns copies of every FINISHED or ERROR record.
func (r *Registry) Terminal() []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Job
	for _, id := range r.order {
		e := r.entries[id]
		e.mu.RLock()
		if e.job.Status.IsTerminal() {
			out = append(out, e.job)
		}
		e.mu.RUnlock()
	}
	return out
}

// Delete removes a record; unknown ids are ignored.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}
