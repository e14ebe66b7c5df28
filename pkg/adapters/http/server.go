package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/circuitry"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/aretw0/circuitry/pkg/ports"
	"github.com/aretw0/circuitry/pkg/session"
	"github.com/go-chi/chi/v5"
)

// DefaultLockTTL bounds how long a snapshot write may hold its lock.
const DefaultLockTTL = 10 * time.Second

// Server exposes a Workbench as a JSON API.
type Server struct {
	Bench    *circuitry.Workbench
	Streams  *StreamManager
	Sessions *session.Manager

	snapshots ports.SnapshotStore
	locker    ports.DistributedLocker
	metrics   http.Handler
	logger    *slog.Logger
	router    chi.Router
	unwatch   func()
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotStore enables the /snapshots routes.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(s *Server) { s.snapshots = store }
}

// WithLocker serializes snapshot writes across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Server) { s.locker = locker }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New wires the routes and starts forwarding workbench diffs to SSE clients.
// Call Close to stop forwarding.
func New(bench *circuitry.Workbench, opts ...Option) *Server {
	s := &Server{
		Bench:  bench,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	if s.snapshots != nil {
		s.Sessions = session.NewManager(s.snapshots,
			session.WithLocker(s.locker),
			session.WithLockTTL(DefaultLockTTL),
			session.WithLogger(s.logger),
		)
	}

	s.unwatch = bench.Watch(func(diff *domain.GraphDiff) {
		payload, err := json.Marshal(diff)
		if err != nil {
			s.logger.Error("failed to encode diff", "error", err)
			return
		}
		s.Streams.Broadcast(string(payload))
	})

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/validate", s.Validate)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/simulate", s.Simulate)
	r.Post("/clear", s.Clear)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.PlaceNode)
		r.Get("/{id}", s.GetNode)
		r.Delete("/{id}", s.DeleteNode)
		r.Post("/{id}/toggle", s.ToggleNode)
		r.Put("/{id}/value", s.SetValue)
	})
	r.Post("/edges", s.Connect)

	r.Route("/circuits", func(r chi.Router) {
		r.Get("/", s.ListCircuits)
		r.Post("/", s.SaveCircuit)
		r.Post("/{id}/instances", s.PlaceCircuit)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.ListSnapshots)
		r.Post("/{name}", s.SaveSnapshot)
		r.Put("/{name}", s.RestoreSnapshot)
		r.Delete("/{name}", s.DeleteSnapshot)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops forwarding diffs. Connected SSE clients stay open until they disconnect.
func (s *Server) Close() {
	s.unwatch()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "circuitry-http",
		"version": strings.TrimSpace(circuitry.Version),
	})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Bench.Graph())
}

// GetNode handles GET /nodes/{id}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := s.Bench.Node(id)
	if !ok {
		s.writeError(w, fmt.Errorf("node %q: %w", id, domain.ErrNodeNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

type placeNodeRequest struct {
	Type      string          `json:"type"`
	Operation string          `json:"operation,omitempty"`
	Position  domain.Position `json:"position"`
}

// PlaceNode handles POST /nodes for input, output and gate nodes.
func (s *Server) PlaceNode(w http.ResponseWriter, r *http.Request) {
	var body placeNodeRequest
	if !s.decode(w, r, &body) {
		return
	}

	kind, err := domain.ParseKind(strings.ToLower(body.Type))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var op domain.Operation
	if kind == domain.KindGate {
		if op, err = domain.ParseOperation(body.Operation); err != nil {
			s.writeError(w, err)
			return
		}
	}

	n, err := s.Bench.PlaceBasicNode(r.Context(), kind, op, body.Position)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n)
}

// DeleteNode handles DELETE /nodes/{id}.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.Bench.Node(id); !ok {
		s.writeError(w, fmt.Errorf("node %q: %w", id, domain.ErrNodeNotFound))
		return
	}
	if err := s.Bench.DeleteNode(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleNode handles POST /nodes/{id}/toggle and answers with the updated node.
func (s *Server) ToggleNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := s.Bench.Node(id)
	if !ok {
		s.writeError(w, fmt.Errorf("node %q: %w", id, domain.ErrNodeNotFound))
		return
	}
	if n.Kind != domain.KindInput {
		s.writeError(w, fmt.Errorf("node %q is a %s, not an input: %w", id, n.Kind, domain.ErrUnknownKind))
		return
	}
	if err := s.Bench.ToggleInputNode(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	n, _ = s.Bench.Node(id)
	s.writeJSON(w, http.StatusOK, n)
}

// SetValue handles PUT /nodes/{id}/value with {"value": bool}.
func (s *Server) SetValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value bool `json:"value"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Bench.SetInput(r.Context(), id, body.Value); err != nil {
		s.writeError(w, err)
		return
	}
	n, _ := s.Bench.Node(id)
	s.writeJSON(w, http.StatusOK, n)
}

// Connect handles POST /edges.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var conn domain.Connection
	if !s.decode(w, r, &conn) {
		return
	}
	edge, err := s.Bench.Connect(r.Context(), conn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, edge)
}

// ListCircuits handles GET /circuits.
func (s *Server) ListCircuits(w http.ResponseWriter, r *http.Request) {
	circuits, err := s.Bench.Circuits(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if circuits == nil {
		circuits = []domain.Template{}
	}
	s.writeJSON(w, http.StatusOK, circuits)
}

// SaveCircuit handles POST /circuits, saving the current graph under a name.
func (s *Server) SaveCircuit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	tpl, err := s.Bench.SaveCurrent(r.Context(), body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tpl)
}

// PlaceCircuit handles POST /circuits/{id}/instances. The body is optional.
func (s *Server) PlaceCircuit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position domain.Position `json:"position"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	n, err := s.Bench.PlaceSavedCircuit(r.Context(), chi.URLParam(r, "id"), body.Position)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n)
}

// Clear handles POST /clear.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	s.Bench.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Simulate handles POST /simulate.
func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	report, err := s.Bench.Simulate(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// Validate handles GET /validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	findings := s.Bench.Validate()
	if findings == nil {
		findings = []*domain.ValidationError{}
	}
	s.writeJSON(w, http.StatusOK, findings)
}

// ListSnapshots handles GET /snapshots.
func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	names, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// SaveSnapshot handles POST /snapshots/{name}, storing the current workbench.
func (s *Server) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	name := chi.URLParam(r, "name")
	snap, err := s.Sessions.Checkpoint(r.Context(), name, s.Bench)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"name":     name,
		"nodes":    len(snap.Nodes),
		"circuits": len(snap.Circuits),
	})
}

// RestoreSnapshot handles PUT /snapshots/{name}, replacing the workbench with a stored snapshot.
func (s *Server) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	if err := s.Sessions.Resume(r.Context(), chi.URLParam(r, "name"), s.Bench); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Bench.Graph())
}

// DeleteSnapshot handles DELETE /snapshots/{name}.
func (s *Server) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /events (SSE). Every message is a JSON graph diff.
// ?watch=nodes,edges keeps only diffs touching the listed parts.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watchList []string
	if q := r.URL.Query().Get("watch"); q != "" {
		watchList = strings.Split(q, ",")
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE client connected", "watch", watchList)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !matchesWatch(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matchesWatch(msg string, watchList []string) bool {
	var diff domain.GraphDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "nodes":
			if len(diff.Nodes) > 0 || len(diff.RemovedNodes) > 0 {
				return true
			}
		case "edges":
			if len(diff.Edges) > 0 || len(diff.RemovedEdges) > 0 {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func (s *Server) requireSessions(w http.ResponseWriter) bool {
	if s.Sessions == nil {
		http.Error(w, "snapshot store not configured", http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

// statusFor maps domain sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrHandleDriven):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrMaxDepthExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrUnknownOperation):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
