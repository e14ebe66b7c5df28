package loader_test

import (
	"context"
	"testing"

	"github.com/aretw0/circuitry/internal/runtime"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settle(t *testing.T, snap domain.Snapshot) *domain.Graph {
	t.Helper()
	g := snap.Graph()
	_, err := runtime.NewEngine().Propagate(context.Background(), g)
	require.NoError(t, err)
	return g
}

func out(t *testing.T, g *domain.Graph, id string) bool {
	t.Helper()
	n := g.Node(id)
	require.NotNil(t, n, id)
	v, _ := n.Data.Value(domain.HandleOutput)
	return v
}

func TestLoad_YAMLFullAdder(t *testing.T) {
	snap, err := loader.Load("testdata/full_adder.yaml")
	require.NoError(t, err)
	require.Len(t, snap.Circuits, 2)
	assert.Equal(t, "half_adder", snap.Circuits[0].ID)

	fa := snap.Graph().Node("fa")
	require.NotNil(t, fa)
	assert.Equal(t, domain.Position{X: 200, Y: 40}, fa.Position)
	data := fa.Data.(*domain.CircuitData)
	assert.Contains(t, data.Inputs, "cin@fa")
	assert.NotNil(t, data.Graph().Node("h1@fa"))
	assert.Equal(t, "sum@fa", snap.Edges[3].SourceHandle)

	// 1 + 1 + 0 = 10b
	g := settle(t, snap)
	assert.False(t, out(t, g, "s"))
	assert.True(t, out(t, g, "co"))

	g.Node("r").Data.Set(domain.HandleOutput, true)
	_, err = runtime.NewEngine().Propagate(context.Background(), g)
	require.NoError(t, err)
	assert.True(t, out(t, g, "s"))
	assert.True(t, out(t, g, "co"))
}

func TestLoad_JSON(t *testing.T) {
	snap, err := loader.Load("testdata/nand.json")
	require.NoError(t, err)
	assert.Equal(t, "result", snap.Edges[2].ID)
	assert.Equal(t, "e1", snap.Edges[0].ID)

	g := settle(t, snap)
	assert.False(t, out(t, g, "z"), "weakly typed \"true\" still drives q high")
}

func TestLoad_HCL(t *testing.T) {
	snap, err := loader.Load("testdata/inverter.hcl")
	require.NoError(t, err)
	assert.Equal(t, 120.0, snap.Graph().Node("inv").Position.X)

	g := settle(t, snap)
	assert.False(t, out(t, g, "z"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "unknown node in edge",
			src:  "nodes: [{id: a, type: input}]\nedges: [{from: a, to: b}]",
			want: domain.ErrNodeNotFound,
		},
		{
			name: "unknown operation",
			src:  "nodes: [{id: g, type: gate, operation: maj}]",
			want: domain.ErrUnknownOperation,
		},
		{
			name: "unknown kind",
			src:  "nodes: [{id: g, type: latch}]",
			want: domain.ErrUnknownKind,
		},
		{
			name: "undeclared circuit",
			src:  "nodes: [{id: c, type: circuit, circuit: nope}]",
			want: domain.ErrTemplateNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Parse([]byte(tt.src), loader.FormatYAML, "inline.yaml")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	invalid := []string{
		"nodes: [{id: a, type: input, colour: red}]",
		"nodes: [{id: a.b, type: input}]",
		"nodes: [{id: a, type: input}, {id: a, type: output}]",
		"nodes: [{id: a, type: input}, {id: g, type: gate, operation: and}]\nedges: [{from: a, to: g}]",
		"nodes: [{id: a, type: input}, {id: g, type: gate, operation: not}]\nedges: [{from: a, to: g.input2}]",
	}
	for _, src := range invalid {
		_, err := loader.Parse([]byte(src), loader.FormatYAML, "inline.yaml")
		assert.Error(t, err, src)
	}

	_, err := loader.Parse([]byte(`node "a" {`), loader.FormatHCL, "broken.hcl")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, loader.FormatJSON, loader.FormatFromPath("x.JSON"))
	assert.Equal(t, loader.FormatHCL, loader.FormatFromPath("dir/x.hcl"))
	assert.Equal(t, loader.FormatYAML, loader.FormatFromPath("x.yml"))
}

func TestLoad_ExampleCircuits(t *testing.T) {
	tests := []struct {
		path string
		want map[string]bool
	}{
		{"../../examples/circuits/full_adder.yaml", map[string]bool{"sum": false, "cout": false}},
		{"../../examples/circuits/xor_from_nand.json", map[string]bool{"y": true}},
		{"../../examples/circuits/majority.hcl", map[string]bool{"y": true}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			snap, err := loader.Load(tt.path)
			require.NoError(t, err)
			g := settle(t, snap)
			for id, want := range tt.want {
				assert.Equal(t, want, out(t, g, id), id)
			}
		})
	}
}
