package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/circuitry/internal/logging"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in     string
		id     string
		want   bool
		hasErr bool
	}{
		{in: "a=true", id: "a", want: true},
		{in: "a=0", id: "a", want: false},
		{in: " b = ON ", id: "b", want: true},
		{in: "b=off", id: "b", want: false},
		{in: "c", id: "c", want: true},
		{in: "=true", hasErr: true},
		{in: "a=maybe", hasErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, v, err := ParseAssignment(tt.in)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.want, v)
		})
	}
}

func outValue(t *testing.T, env *Env, id string) bool {
	t.Helper()
	n, ok := env.Bench.Node(id)
	require.True(t, ok)
	v, _ := n.Data.Value(domain.HandleOutput)
	return v
}

func TestSetup_LoadsFileAndAppliesSets(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx, Options{
		File: "testdata/and.yaml",
		Sets: []string{"a=1", "b"},
	}, logging.NewNop())
	require.NoError(t, err)
	defer env.Close()

	assert.True(t, outValue(t, env, "out"))

	_, err = Setup(ctx, Options{File: "testdata/and.yaml", Sets: []string{"ghost=1"}}, logging.NewNop())
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = Setup(ctx, Options{File: "testdata/missing.yaml"}, logging.NewNop())
	assert.Error(t, err)
}

func TestSetup_Stores(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		env, err := Setup(ctx, Options{Store: StoreFile, StoreDir: dir, File: "testdata/and.yaml"}, logging.NewNop())
		require.NoError(t, err)
		defer env.Close()

		_, err = env.Bench.SaveCurrent(ctx, "and")
		require.NoError(t, err)

		again, err := Setup(ctx, Options{Store: StoreFile, StoreDir: dir}, logging.NewNop())
		require.NoError(t, err)
		circuits, err := again.Bench.Circuits(ctx)
		require.NoError(t, err)
		require.Len(t, circuits, 1)
		assert.Equal(t, "and", circuits[0].Name)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		env, err := Setup(ctx, Options{Store: StoreRedis, RedisAddr: mr.Addr(), RedisPrefix: "test:"}, logging.NewNop())
		require.NoError(t, err)
		defer env.Close()

		snap, err := env.Bench.Snapshot(ctx)
		require.NoError(t, err)
		require.NoError(t, env.Snapshots.Save(ctx, "empty", snap))
		assert.True(t, mr.Exists("test:snapshot:empty"))

		unlock, err := env.Locker.Lock(ctx, "empty", time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("unreachable redis", func(t *testing.T) {
		_, err := Setup(ctx, Options{Store: StoreRedis, RedisAddr: "127.0.0.1:1"}, logging.NewNop())
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Setup(ctx, Options{Store: "s3"}, logging.NewNop())
		assert.Error(t, err)
	})
}

func TestWriteReport(t *testing.T) {
	env, err := Setup(context.Background(), Options{File: "testdata/and.yaml", Sets: []string{"a", "b"}}, logging.NewNop())
	require.NoError(t, err)
	g := env.Bench.Graph()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, g, FormatText, false))
	assert.Contains(t, buf.String(), "output out")
	assert.Contains(t, buf.String(), "ON")
	assert.NotContains(t, buf.String(), "\x1b[")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, g, FormatMarkdown, false))
	assert.True(t, strings.HasPrefix(buf.String(), "# Circuit state"))

	buf.Reset()
	require.NoError(t, WriteReport(&buf, g, FormatJSON, false))
	var decoded domain.Graph
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Nodes, 4)

	assert.Error(t, WriteReport(&buf, g, "yaml", false))
}
