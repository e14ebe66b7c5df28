package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/circuitry/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "circuitry:"

// farFuture is the index score of entries that never expire (2100-01-01).
const farFuture = 4102444800

type settings struct {
	prefix string
	ttl    time.Duration
}

// Option configures a Redis store.
type Option func(*settings)

// WithTTL sets the expiration for snapshots. Templates never expire.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

func newSettings(opts []Option) settings {
	s := settings{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewClient opens a client for New-style constructors.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// Store implements ports.SnapshotStore using Redis.
type Store struct {
	client *backend.Client
	settings
}

// New creates a new Redis snapshot store with options.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(NewClient(address, password, db), opts...)
}

// NewFromClient creates a new Redis snapshot store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	return &Store{client: client, settings: newSettings(opts)}
}

func (s *Store) key(name string) string { return s.prefix + "snapshot:" + name }

func (s *Store) indexKey() string { return s.prefix + "snapshot:index" }

// Save persists the snapshot and indexes it by expiry.
func (s *Store) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(name), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a snapshot.
func (s *Store) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns live snapshot names, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return names, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// TemplateStore implements ports.TemplateStore using Redis.
// The index is a sorted set scored by save time, which gives List its order.
type TemplateStore struct {
	client *backend.Client
	settings
}

// NewTemplateStore creates a new Redis template store with options.
func NewTemplateStore(address, password string, db int, opts ...Option) *TemplateStore {
	return NewTemplateStoreFromClient(NewClient(address, password, db), opts...)
}

// NewTemplateStoreFromClient creates a new Redis template store from an existing client.
func NewTemplateStoreFromClient(client *backend.Client, opts ...Option) *TemplateStore {
	return &TemplateStore{client: client, settings: newSettings(opts)}
}

func (s *TemplateStore) key(id string) string { return s.prefix + "circuit:" + id }

func (s *TemplateStore) indexKey() string { return s.prefix + "circuit:index" }

// Save persists the template.
func (s *TemplateStore) Save(ctx context.Context, tpl domain.Template) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(tpl.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(tpl.SavedAt.UnixMilli()),
		Member: tpl.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a template.
func (s *TemplateStore) Load(ctx context.Context, id string) (domain.Template, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Template{}, domain.ErrTemplateNotFound
		}
		return domain.Template{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var tpl domain.Template
	if err := json.Unmarshal(val, &tpl); err != nil {
		return domain.Template{}, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return tpl, nil
}

// List returns every template in save order.
func (s *TemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Template{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}

	out := make([]domain.Template, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a value; the key was removed outside this store.
			continue
		}
		var tpl domain.Template
		if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template %s: %w", ids[i], err)
		}
		out = append(out, tpl)
	}
	return out, nil
}

// Delete removes the template and its index entry.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}
