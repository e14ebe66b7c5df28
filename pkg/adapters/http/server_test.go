package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/circuitry"
	"github.com/aretw0/circuitry/pkg/adapters/memory"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	bench := circuitry.New(circuitry.WithIDGenerator(sequence()))
	s := New(bench, opts...)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeNode(t *testing.T, w *httptest.ResponseRecorder) *domain.Node {
	t.Helper()
	var n domain.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n), w.Body.String())
	return &n
}

func placeNode(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/nodes", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeNode(t, w).ID
}

func connectNodes(t *testing.T, h http.Handler, src, dst, handle string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"source":%q,"sourceHandle":"output","target":%q,"targetHandle":%q}`, src, dst, handle)
	return do(t, h, http.MethodPost, "/edges", body)
}

func value(t *testing.T, h http.Handler, id string) bool {
	t.Helper()
	w := do(t, h, http.MethodGet, "/nodes/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	v, _ := decodeNode(t, w).Data.Value(domain.HandleOutput)
	return v
}

func TestHealthAndInfo(t *testing.T) {
	s := newServer(t)

	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/info", "")
	assert.Contains(t, w.Body.String(), strings.TrimSpace(circuitry.Version))
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t)
	w := do(t, s, http.MethodOptions, "/edges", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestToggleReachesOutput(t *testing.T) {
	s := newServer(t)
	a := placeNode(t, s, `{"type":"input"}`)
	b := placeNode(t, s, `{"type":"input"}`)
	g := placeNode(t, s, `{"type":"gate","operation":"and","position":{"x":10,"y":20}}`)
	out := placeNode(t, s, `{"type":"output"}`)

	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, g, "input1").Code)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, b, g, "input2").Code)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, g, out, "").Code)
	assert.False(t, value(t, s, out))

	w := do(t, s, http.MethodPost, "/nodes/"+a+"/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	v, _ := decodeNode(t, w).Data.Value(domain.HandleOutput)
	assert.True(t, v)
	assert.False(t, value(t, s, out))

	w = do(t, s, http.MethodPut, "/nodes/"+b+"/value", `{"value":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, value(t, s, out))

	w = do(t, s, http.MethodPost, "/nodes/"+g+"/toggle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	a := placeNode(t, s, `{"type":"input"}`)
	p := placeNode(t, s, `{"type":"gate","operation":"OR"}`)
	q := placeNode(t, s, `{"type":"gate","operation":"NOT"}`)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, p, "input1").Code)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, p, q, "input1").Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"driven handle", http.MethodPost, "/edges", fmt.Sprintf(`{"source":%q,"target":%q,"targetHandle":"input1"}`, q, p), http.StatusConflict},
		{"loop", http.MethodPost, "/edges", fmt.Sprintf(`{"source":%q,"target":%q,"targetHandle":"input2"}`, q, p), http.StatusUnprocessableEntity},
		{"missing endpoint", http.MethodPost, "/edges", `{"source":"ghost","target":"n1"}`, http.StatusNotFound},
		{"bad body", http.MethodPost, "/edges", `{`, http.StatusBadRequest},
		{"unknown operation", http.MethodPost, "/nodes", `{"type":"gate","operation":"maj"}`, http.StatusBadRequest},
		{"circuit via /nodes", http.MethodPost, "/nodes", `{"type":"circuit"}`, http.StatusBadRequest},
		{"toggle unknown", http.MethodPost, "/nodes/ghost/toggle", "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/nodes/ghost", "", http.StatusNotFound},
		{"unknown template", http.MethodPost, "/circuits/ghost/instances", "", http.StatusNotFound},
		{"unnamed circuit", http.MethodPost, "/circuits", `{"name":" "}`, http.StatusBadRequest},
		{"no snapshot store", http.MethodPost, "/snapshots/x", "", http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	// The rejected loop left the graph alone.
	w := do(t, s, http.MethodGet, "/graph", "")
	var g domain.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Len(t, g.Edges, 2)
}

func TestDeleteCascades(t *testing.T) {
	s := newServer(t)
	a := placeNode(t, s, `{"type":"input"}`)
	out := placeNode(t, s, `{"type":"output"}`)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, out, "").Code)

	w := do(t, s, http.MethodDelete, "/nodes/"+a, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, s.Bench.Edges())
	assert.Len(t, s.Bench.Nodes(), 1)
}

func TestCircuitsAndInstances(t *testing.T) {
	s := newServer(t)
	a := placeNode(t, s, `{"type":"input"}`)
	n := placeNode(t, s, `{"type":"gate","operation":"NOT"}`)
	out := placeNode(t, s, `{"type":"output"}`)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, n, "input1").Code)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, n, out, "").Code)

	w := do(t, s, http.MethodPost, "/circuits", `{"name":"inverter"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var tpl domain.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tpl))
	assert.Equal(t, "inverter", tpl.Name)

	require.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, "/clear", "").Code)
	assert.Empty(t, s.Bench.Nodes())

	w = do(t, s, http.MethodPost, "/circuits/"+tpl.ID+"/instances", `{"position":{"x":5,"y":5}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inst := decodeNode(t, w)
	assert.Equal(t, domain.KindCircuit, inst.Kind)
	data := inst.Data.(*domain.CircuitData)
	assert.Contains(t, data.Inputs, domain.ScopedID(a, inst.ID))
	assert.Contains(t, data.Outputs, domain.ScopedID(out, inst.ID))

	w = do(t, s, http.MethodGet, "/circuits", "")
	var listed []domain.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestSnapshots(t *testing.T) {
	s := newServer(t, WithSnapshotStore(memory.NewStore()), WithLocker(memory.NewLocker()))
	a := placeNode(t, s, `{"type":"input"}`)
	out := placeNode(t, s, `{"type":"output"}`)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, out, "").Code)
	do(t, s, http.MethodPost, "/nodes/"+a+"/toggle", "")

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/snapshots/demo", "").Code)
	s.Bench.Clear()

	w := do(t, s, http.MethodPut, "/snapshots/demo", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, value(t, s, out))

	w = do(t, s, http.MethodGet, "/snapshots", "")
	assert.JSONEq(t, `["demo"]`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPut, "/snapshots/missing", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/snapshots/demo", "").Code)
}

func TestSimulateAndValidate(t *testing.T) {
	s := newServer(t)
	a := placeNode(t, s, `{"type":"input"}`)
	out := placeNode(t, s, `{"type":"output"}`)
	require.Equal(t, http.StatusCreated, connectNodes(t, s, a, out, "").Code)

	w := do(t, s, http.MethodPost, "/simulate", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.PassReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Deliveries)

	w = do(t, s, http.MethodGet, "/validate", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	bench := circuitry.New(circuitry.WithLifecycleHooks(m.Hooks()))
	s := New(bench, WithMetricsHandler(m.Handler()))
	defer s.Close()

	do(t, s, http.MethodPost, "/simulate", "")
	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `circuitry_passes_total{result="ok"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	s := newServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?watch=nodes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = reader.ReadString('\n') // data: connected
	_, _ = reader.ReadString('\n')

	id := placeNode(t, s, `{"type":"input"}`)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "), line)

	var diff domain.GraphDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &diff))
	require.Len(t, diff.Nodes, 1)
	assert.Equal(t, id, diff.Nodes[0].ID)
}

func TestMatchesWatch(t *testing.T) {
	edgesOnly := `{"edges":[{"id":"e","source":"a","sourceHandle":"output","target":"b","targetHandle":"output"}]}`
	assert.False(t, matchesWatch(edgesOnly, []string{"nodes"}))
	assert.True(t, matchesWatch(edgesOnly, []string{"nodes", " edges"}))
	assert.True(t, matchesWatch(`{"removed_nodes":["x"]}`, []string{"nodes"}))
}
