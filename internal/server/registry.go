package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/snapflowhq/snapflow/internal/database"
	"github.com/snapflowhq/snapflow/internal/migrations"
)

// Registry opens and caches one store per project slug. Each project lives
// in its own SQLite database file under dir; migrations run at open so new
// schema rolls out lazily as projects are touched.
type Registry struct {
	dir    string
	mu     sync.RWMutex
	stores map[string]*SQLiteStore
}

func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:    dir,
		stores: make(map[string]*SQLiteStore),
	}
}

func (r *Registry) Get(ctx context.Context, slug string) (*SQLiteStore, error) {
	r.mu.RLock()
	s, ok := r.stores[slug]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if s, ok := r.stores[slug]; ok {
		return s, nil
	}

	s, err := r.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	r.stores[slug] = s
	return s, nil
}

func (r *Registry) Create(ctx context.Context, slug string) (*SQLiteStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[slug]; ok {
		return s, nil
	}

	s, err := r.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	r.stores[slug] = s
	return s, nil
}

func (r *Registry) open(ctx context.Context, slug string) (*SQLiteStore, error) {
	dbPath := filepath.Join(r.dir, slug+".db")
	db, err := database.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening project db %q: %w", slug, err)
	}
	if err := migrations.Project(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating project db %q: %w", slug, err)
	}
	return NewSQLiteStore(db), nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for slug, s := range r.stores {
		s.db.Close()
		delete(r.stores, slug)
	}
	return nil
}
