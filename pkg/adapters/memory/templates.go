package memory

import (
	"context"
	"sync"

	"github.com/aretw0/circuitry/pkg/domain"
)

// TemplateStore implements ports.TemplateStore in memory.
// Safe for concurrent use.
type TemplateStore struct {
	mu    sync.RWMutex
	data  map[string]domain.Template
	order []string
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		data: make(map[string]domain.Template),
	}
}

// Save stores a deep copy so later edits by the caller cannot reach the store.
func (s *TemplateStore) Save(ctx context.Context, tpl domain.Template) error {
	copied := tpl.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[tpl.ID]; !exists {
		s.order = append(s.order, tpl.ID)
	}
	s.data[tpl.ID] = copied
	return nil
}

// Load returns a copy of the stored template.
func (s *TemplateStore) Load(ctx context.Context, id string) (domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.data[id]
	if !ok {
		return domain.Template{}, domain.ErrTemplateNotFound
	}
	return tpl.Clone(), nil
}

// List returns copies in save order.
func (s *TemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Clone())
	}
	return out, nil
}

// Delete removes the template.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return nil
	}
	delete(s.data, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
