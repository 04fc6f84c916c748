package source

import (
	"log/slog"
	"sync"

	"gradecheck/internal/shared/observability"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const DefaultRegistrySize = 256

// Registry caches loaded units for the submission currently being graded.
// Starting a different submission evicts everything, so a same-named file from
// a previous submission is never served.
type Registry struct {
	loader *Loader

	mu         sync.Mutex
	submission string
	units      *lru.Cache[string, *Unit]
}

func NewRegistry(loader *Loader, size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.New[string, *Unit](size)
	if err != nil {
		return nil, err
	}
	return &Registry{loader: loader, units: cache}, nil
}

// Begin switches the registry to submissionID. Calling it again with the same id
// keeps the cache.
func (r *Registry) Begin(submissionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.submission == submissionID {
		return
	}
	if n := r.units.Len(); n > 0 {
		slog.Debug("evicting previous submission", "submission", r.submission, "units", n)
	}
	r.units.Purge()
	r.submission = submissionID
}

// Submission returns the id passed to the last Begin.
func (r *Registry) Submission() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submission
}

// Load returns the cached unit for path or loads it. Failed loads are not cached.
func (r *Registry) Load(path string) (*Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if unit, ok := r.units.Get(path); ok {
		observability.RegistryHitsTotal.Inc()
		return unit, nil
	}
	unit, err := r.loader.Load(path)
	if err != nil {
		return nil, err
	}
	r.units.Add(path, unit)
	return unit, nil
}

// Evict drops path so the next Load rereads it.
func (r *Registry) Evict(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, path := range paths {
		r.units.Remove(path)
	}
}

// Fs is the filesystem units are read from.
func (r *Registry) Fs() afero.Fs {
	return r.loader.Fs()
}

// Len returns the number of cached units.
func (r *Registry) Len() int {
	return r.units.Len()
}
