package file

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/aretw0/circuitry/pkg/domain"
)

// DefaultDir is used when New is given an empty path.
var DefaultDir = filepath.Join(".circuitry")

// Store implements ports.SnapshotStore using the local filesystem.
// It stores snapshots as JSON files under BasePath/snapshots.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".circuitry".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &Store{BasePath: basePath}
}

func (s *Store) dir() string { return filepath.Join(s.BasePath, "snapshots") }

// Save persists the snapshot atomically.
func (s *Store) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	return writeJSON(s.dir(), name, snap)
}

// Load reads a snapshot file.
func (s *Store) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := readJSON(s.dir(), name, &snap, domain.ErrSnapshotNotFound); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, name string) error {
	return remove(s.dir(), name)
}

// List returns the snapshot names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	out, err := names(s.dir())
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// TemplateStore implements ports.TemplateStore using one JSON file per template
// under BasePath/circuits.
type TemplateStore struct {
	BasePath string
}

// NewTemplateStore creates a TemplateStore with the given base path.
// If basePath is empty, it defaults to ".circuitry".
func NewTemplateStore(basePath string) *TemplateStore {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &TemplateStore{BasePath: basePath}
}

func (s *TemplateStore) dir() string { return filepath.Join(s.BasePath, "circuits") }

// Save persists the template atomically.
func (s *TemplateStore) Save(ctx context.Context, tpl domain.Template) error {
	return writeJSON(s.dir(), tpl.ID, tpl)
}

// Load reads a template file.
func (s *TemplateStore) Load(ctx context.Context, id string) (domain.Template, error) {
	var tpl domain.Template
	if err := readJSON(s.dir(), id, &tpl, domain.ErrTemplateNotFound); err != nil {
		return domain.Template{}, err
	}
	return tpl, nil
}

// List reads every template, ordered by SavedAt then ID.
func (s *TemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	ids, err := names(s.dir())
	if err != nil {
		return nil, err
	}

	out := make([]domain.Template, 0, len(ids))
	for _, id := range ids {
		tpl, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.Before(out[j].SavedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the template file.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	return remove(s.dir(), id)
}
