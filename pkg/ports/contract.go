package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractTemplate(id, name string) domain.Template {
	nodes := []*domain.Node{
		{ID: "a", Kind: domain.KindInput, Data: &domain.InputData{}},
		{ID: "n", Kind: domain.KindGate, Data: &domain.GateData{Operation: domain.OpNOT}},
		{ID: "o", Kind: domain.KindOutput, Position: domain.Position{X: 40, Y: 8}, Data: &domain.OutputData{Output: true}},
	}
	edges := []domain.Edge{
		{ID: "e1", Source: "a", SourceHandle: domain.HandleOutput, Target: "n", TargetHandle: domain.HandleInput1},
		{ID: "e2", Source: "n", SourceHandle: domain.HandleOutput, Target: "o", TargetHandle: domain.HandleOutput},
	}
	return domain.NewTemplate(id, name, nodes, edges, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

// RunTemplateStoreContract runs a suite of tests to verify that a TemplateStore
// implementation adheres to the defined interface contract.
func RunTemplateStoreContract(t *testing.T, store TemplateStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		tpl := contractTemplate("tpl-"+suffix, "inverter")
		require.NoError(t, store.Save(ctx, tpl))

		loaded, err := store.Load(ctx, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, tpl.Name, loaded.Name)
		assert.True(t, tpl.SavedAt.Equal(loaded.SavedAt))
		assert.Equal(t, tpl.Edges, loaded.Edges)
		require.Len(t, loaded.Nodes, 3)
		assert.Equal(t, tpl.Nodes[1].Data, loaded.Nodes[1].Data)
		assert.Equal(t, tpl.Nodes[2].Position, loaded.Nodes[2].Position)
	})

	t.Run("Loaded copy is detached", func(t *testing.T) {
		tpl := contractTemplate("detached-"+suffix, "inverter")
		require.NoError(t, store.Save(ctx, tpl))

		first, err := store.Load(ctx, tpl.ID)
		require.NoError(t, err)
		first.Nodes[0].Data.Set(domain.HandleOutput, true)
		first.Edges[0].Target = "elsewhere"

		second, err := store.Load(ctx, tpl.ID)
		require.NoError(t, err)
		v, _ := second.Nodes[0].Data.Value(domain.HandleOutput)
		assert.False(t, v)
		assert.Equal(t, "n", second.Edges[0].Target)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+suffix)
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})

	t.Run("List keeps save order", func(t *testing.T) {
		id1, id2 := "order-1-"+suffix, "order-2-"+suffix
		first := contractTemplate(id1, "first")
		second := contractTemplate(id2, "second")
		second.SavedAt = first.SavedAt.Add(time.Second)
		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))

		list, err := store.List(ctx)
		require.NoError(t, err)
		pos := map[string]int{}
		for i, tpl := range list {
			pos[tpl.ID] = i
		}
		require.Contains(t, pos, id1)
		require.Contains(t, pos, id2)
		assert.Less(t, pos[id1], pos[id2])
	})

	t.Run("Delete", func(t *testing.T) {
		tpl := contractTemplate("delete-"+suffix, "gone")
		require.NoError(t, store.Save(ctx, tpl))
		require.NoError(t, store.Delete(ctx, tpl.ID))

		_, err := store.Load(ctx, tpl.ID)
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound, "Load after Delete should return ErrTemplateNotFound")
		assert.NoError(t, store.Delete(ctx, tpl.ID), "Delete is idempotent")
	})
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")

	tpl := contractTemplate("tpl", "inverter")
	snap := domain.Snapshot{
		Nodes: []*domain.Node{
			{ID: "x", Kind: domain.KindInput, Data: &domain.InputData{Output: true}},
			{ID: "c", Kind: domain.KindCircuit, Data: domain.Instantiate(tpl, "c")},
		},
		Edges: []domain.Edge{
			{ID: "w", Source: "x", SourceHandle: domain.HandleOutput, Target: "c", TargetHandle: domain.ScopedID("a", "c")},
		},
		Circuits: []domain.Template{tpl},
	}

	t.Run("Save and Load", func(t *testing.T) {
		name := "snap-" + suffix
		require.NoError(t, store.Save(ctx, name, snap))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, snap.Edges, loaded.Edges)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, snap.Nodes[1].Data, loaded.Nodes[1].Data)
		require.Len(t, loaded.Circuits, 1)
		assert.Equal(t, "inverter", loaded.Circuits[0].Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+suffix)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		name := "delete-" + suffix
		require.NoError(t, store.Save(ctx, name, snap))
		require.NoError(t, store.Delete(ctx, name))

		_, err := store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		n1, n2 := "list-1-"+suffix, "list-2-"+suffix
		require.NoError(t, store.Save(ctx, n1, snap))
		require.NoError(t, store.Save(ctx, n2, snap))
		defer func() {
			_ = store.Delete(ctx, n1)
			_ = store.Delete(ctx, n2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, n1)
		assert.Contains(t, names, n2)
	})
}
