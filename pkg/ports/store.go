package ports

import (
	"context"

	"github.com/aretw0/circuitry/pkg/domain"
)

// TemplateStore persists saved circuits.
// Templates are immutable once saved; saving an existing id replaces it wholesale.
type TemplateStore interface {
	// Save persists the template under its ID.
	Save(ctx context.Context, tpl domain.Template) error

	// Load retrieves a template.
	// Returns domain.ErrTemplateNotFound if the id does not exist.
	Load(ctx context.Context, id string) (domain.Template, error)

	// List returns every template in save order.
	List(ctx context.Context) ([]domain.Template, error)

	// Delete removes a template. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// SnapshotStore persists whole workbench snapshots by name.
type SnapshotStore interface {
	Save(ctx context.Context, name string, snap domain.Snapshot) error

	// Load returns domain.ErrSnapshotNotFound if the name does not exist.
	Load(ctx context.Context, name string) (domain.Snapshot, error)

	Delete(ctx context.Context, name string) error

	// List returns the snapshot names.
	List(ctx context.Context) ([]string, error)
}
