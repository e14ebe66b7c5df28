package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/circuitry/pkg/adapters/redis"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisTemplateStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunTemplateStoreContract(t, redis.NewTemplateStoreFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("bench:"))

	require.NoError(t, store.Save(context.Background(), "s1", domain.Snapshot{}))
	assert.True(t, mr.Exists("bench:snapshot:s1"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short-lived", domain.Snapshot{}))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "short-lived")

	// Key expiry in miniredis follows its own clock.
	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "short-lived")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	// Index pruning compares scores against time.Now.
	time.Sleep(1200 * time.Millisecond)
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
