package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/circuitry/internal/logging"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Workbench is what Checkpoint and Resume need from a workbench.
type Workbench interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Restore(ctx context.Context, snap domain.Snapshot) error
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates snapshot access. Per-name locks are reference counted
// and dropped once nobody holds or waits for them.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. A nil locker is ignored.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates the entry for name and takes a reference.
// The caller locks entry.mu and calls release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// active reports how many names currently have a lock entry.
func (m *Manager) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock runs fn while holding the lock for name.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "snapshot:"+name, m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The request context may already be done; the lock must still go.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"snapshot", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load reads a snapshot.
func (m *Manager) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, name)
		return err
	})
	return snap, err
}

// Save writes a snapshot.
func (m *Manager) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Save(ctx, name, snap)
	})
}

// Delete removes a snapshot.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Checkpoint captures wb and stores it under name.
func (m *Manager) Checkpoint(ctx context.Context, name string, wb Workbench) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		if snap, err = wb.Snapshot(ctx); err != nil {
			return err
		}
		return m.store.Save(ctx, name, snap)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	m.logger.Info("snapshot saved", "snapshot", name, "nodes", len(snap.Nodes), "circuits", len(snap.Circuits))
	return snap, nil
}

// Resume replaces wb's contents with the snapshot stored under name.
func (m *Manager) Resume(ctx context.Context, name string, wb Workbench) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, name)
		if err != nil {
			return err
		}
		if err := wb.Restore(ctx, snap); err != nil {
			return fmt.Errorf("snapshot %q: %w", name, err)
		}
		m.logger.Info("snapshot restored", "snapshot", name, "nodes", len(snap.Nodes))
		return nil
	})
}
