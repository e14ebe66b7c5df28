package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/circuitry"
	"github.com/aretw0/circuitry/pkg/adapters/file"
	"github.com/aretw0/circuitry/pkg/adapters/memory"
	"github.com/aretw0/circuitry/pkg/adapters/redis"
	"github.com/aretw0/circuitry/pkg/loader"
	"github.com/aretw0/circuitry/pkg/observability"
	"github.com/aretw0/circuitry/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreKind selects where circuits and snapshots are kept.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

// Options are the flags shared by every command that builds a workbench.
type Options struct {
	File        string
	Sets        []string
	Store       StoreKind
	StoreDir    string
	RedisAddr   string
	RedisPrefix string
	MaxDepth    int
}

// Env is a ready workbench plus the stores behind it.
type Env struct {
	Bench     *circuitry.Workbench
	Snapshots ports.SnapshotStore
	Locker    ports.DistributedLocker
	Metrics   *observability.Metrics

	closers []func() error
}

// Close releases store connections.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Setup builds a workbench from opts: stores, metrics and logging hooks, then the
// description file and --set assignments, if any.
func Setup(ctx context.Context, opts Options, logger *slog.Logger) (*Env, error) {
	env := &Env{}

	var templates ports.TemplateStore
	switch opts.Store {
	case StoreMemory, "":
		templates = memory.NewTemplateStore()
		env.Snapshots = memory.NewStore()
		env.Locker = memory.NewLocker()
	case StoreFile:
		dir := opts.StoreDir
		if dir == "" {
			dir = file.DefaultDir
		}
		templates = file.NewTemplateStore(dir)
		env.Snapshots = file.New(dir)
		env.Locker = memory.NewLocker()
	case StoreRedis:
		var redisOpts []redis.Option
		if opts.RedisPrefix != "" {
			redisOpts = append(redisOpts, redis.WithPrefix(opts.RedisPrefix))
		}
		client := redis.NewClient(opts.RedisAddr, "", 0)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.RedisAddr, err)
		}
		templates = redis.NewTemplateStoreFromClient(client, redisOpts...)
		env.Snapshots = redis.NewFromClient(client, redisOpts...)
		prefix := opts.RedisPrefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		env.Locker = redis.NewLocker(client, prefix)
		env.closers = append(env.closers, client.Close)
	default:
		return nil, fmt.Errorf("unknown store %q (want memory, file or redis)", opts.Store)
	}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	env.Metrics = metrics

	benchOpts := []circuitry.Option{
		circuitry.WithLogger(logger),
		circuitry.WithTemplateStore(templates),
		circuitry.WithLifecycleHooks(metrics.Hooks()),
		circuitry.WithLifecycleHooks(observability.LoggingHooks(logger)),
	}
	if opts.MaxDepth > 0 {
		benchOpts = append(benchOpts, circuitry.WithMaxDepth(opts.MaxDepth))
	}
	env.Bench = circuitry.New(benchOpts...)

	if opts.File != "" {
		snap, err := loader.Load(opts.File)
		if err != nil {
			env.Close()
			return nil, err
		}
		if err := env.Bench.Restore(ctx, snap); err != nil {
			env.Close()
			return nil, fmt.Errorf("%s: %w", opts.File, err)
		}
		logger.Info("circuit loaded", "file", opts.File, "nodes", len(snap.Nodes), "circuits", len(snap.Circuits))
	}

	for _, s := range opts.Sets {
		id, v, err := ParseAssignment(s)
		if err != nil {
			env.Close()
			return nil, err
		}
		if err := env.Bench.SetInput(ctx, id, v); err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}
