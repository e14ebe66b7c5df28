package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/circuitry"
	"github.com/aretw0/circuitry/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the current graph as JSON.
const GraphURI = "circuitry://graph"

// Server exposes a Workbench as MCP tools.
type Server struct {
	bench     *circuitry.Workbench
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer registers every tool and resource for bench.
func NewServer(bench *circuitry.Workbench, opts ...Option) *Server {
	s := &Server{
		bench:     bench,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer("circuitry-mcp", strings.TrimSpace(circuitry.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on Stdin/Stdout until the client goes away.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over HTTP+SSE until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// PlaceNodeArgs are the arguments of place_node.
type PlaceNodeArgs struct {
	Type      string  `json:"type"`
	Operation string  `json:"operation,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// PlaceCircuitArgs are the arguments of place_circuit.
type PlaceCircuitArgs struct {
	CircuitID string  `json:"circuit_id"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// ConnectArgs are the arguments of connect.
type ConnectArgs struct {
	Source       string `json:"source"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// NodeArgs name a single node.
type NodeArgs struct {
	NodeID string `json:"node_id"`
}

// SetInputArgs are the arguments of set_input.
type SetInputArgs struct {
	NodeID string `json:"node_id"`
	Value  bool   `json:"value"`
}

// SaveCircuitArgs are the arguments of save_circuit.
type SaveCircuitArgs struct {
	Name string `json:"name"`
}

// NodeResult reports a placed or changed node.
type NodeResult struct {
	ID      string          `json:"id" jsonschema_description:"Node id"`
	Type    domain.NodeKind `json:"type" jsonschema_description:"input, output, gate or circuit"`
	Value   bool            `json:"value" jsonschema_description:"Current output value, if the node has a single output"`
	Inputs  []string        `json:"inputs,omitempty" jsonschema_description:"Input pin ids of a circuit instance"`
	Outputs []string        `json:"outputs,omitempty" jsonschema_description:"Output pin ids of a circuit instance"`
}

// StatusResult acknowledges commands with no other result.
type StatusResult struct {
	Status string `json:"status"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get every node and edge on the workbench, with current values."),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("place_node",
		mcp.WithDescription("Place an input, output or gate node. Gates need an operation."),
		mcp.WithString("type", mcp.Required(), mcp.Enum("input", "output", "gate"), mcp.Description("Node type")),
		mcp.WithString("operation", mcp.Description("Gate operation: AND, OR, NOT, XOR, NAND or NOR")),
		mcp.WithNumber("x", mcp.Description("Canvas x position")),
		mcp.WithNumber("y", mcp.Description("Canvas y position")),
		mcp.WithOutputSchema[NodeResult](),
	), mcp.NewStructuredToolHandler(s.handlePlaceNode))

	s.mcpServer.AddTool(mcp.NewTool("place_circuit",
		mcp.WithDescription("Place a new instance of a saved circuit."),
		mcp.WithString("circuit_id", mcp.Required(), mcp.Description("Saved circuit id, see list_circuits")),
		mcp.WithNumber("x", mcp.Description("Canvas x position")),
		mcp.WithNumber("y", mcp.Description("Canvas y position")),
		mcp.WithOutputSchema[NodeResult](),
	), mcp.NewStructuredToolHandler(s.handlePlaceCircuit))

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Wire a source pin to a target pin. Fails if the target is already driven or the wire would close a loop."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("source_handle", mcp.Description("Source pin: output, or a circuit output pin id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("target_handle", mcp.Description("Target pin: input1, input2, output, or a circuit input pin id")),
		mcp.WithOutputSchema[domain.Edge](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("toggle_input",
		mcp.WithDescription("Flip an input node and propagate."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Input node id")),
		mcp.WithOutputSchema[NodeResult](),
	), mcp.NewStructuredToolHandler(s.handleToggleInput))

	s.mcpServer.AddTool(mcp.NewTool("set_input",
		mcp.WithDescription("Drive an input node to a value and propagate."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Input node id")),
		mcp.WithBoolean("value", mcp.Required(), mcp.Description("New value")),
		mcp.WithOutputSchema[NodeResult](),
	), mcp.NewStructuredToolHandler(s.handleSetInput))

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and every wire touching it."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id")),
	), mcp.NewStructuredToolHandler(s.handleDeleteNode))

	s.mcpServer.AddTool(mcp.NewTool("save_circuit",
		mcp.WithDescription("Save the whole workbench as a reusable circuit."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Circuit name")),
	), mcp.NewStructuredToolHandler(s.handleSaveCircuit))

	s.mcpServer.AddTool(mcp.NewTool("list_circuits",
		mcp.WithDescription("List saved circuits with their pins."),
	), s.handleListCircuits)

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Report wiring problems without changing anything."),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("clear",
		mcp.WithDescription("Remove every node and wire. Saved circuits are kept."),
	), mcp.NewStructuredToolHandler(s.handleClear))
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.bench.Graph())
}

func (s *Server) handleListCircuits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	circuits, err := s.bench.Circuits(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list circuits failed: %v", err)), nil
	}
	type summary struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Inputs  []string `json:"inputs"`
		Outputs []string `json:"outputs"`
	}
	out := make([]summary, 0, len(circuits))
	for _, t := range circuits {
		out = append(out, summary{ID: t.ID, Name: t.Name, Inputs: t.InputPins(), Outputs: t.OutputPins()})
	}
	return jsonResult(out)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	findings := s.bench.Validate()
	if findings == nil {
		findings = []*domain.ValidationError{}
	}
	return jsonResult(findings)
}

func (s *Server) handlePlaceNode(ctx context.Context, request mcp.CallToolRequest, args PlaceNodeArgs) (NodeResult, error) {
	kind, err := domain.ParseKind(strings.ToLower(args.Type))
	if err != nil {
		return NodeResult{}, err
	}
	var op domain.Operation
	if kind == domain.KindGate {
		if op, err = domain.ParseOperation(args.Operation); err != nil {
			return NodeResult{}, err
		}
	}
	n, err := s.bench.PlaceBasicNode(ctx, kind, op, domain.Position{X: args.X, Y: args.Y})
	if err != nil {
		return NodeResult{}, fmt.Errorf("place node failed: %w", err)
	}
	s.logger.Debug("MCP place_node", "node_id", n.ID, "type", kind)
	return nodeResult(n), nil
}

func (s *Server) handlePlaceCircuit(ctx context.Context, request mcp.CallToolRequest, args PlaceCircuitArgs) (NodeResult, error) {
	n, err := s.bench.PlaceSavedCircuit(ctx, args.CircuitID, domain.Position{X: args.X, Y: args.Y})
	if err != nil {
		return NodeResult{}, err
	}
	return nodeResult(n), nil
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args ConnectArgs) (domain.Edge, error) {
	return s.bench.Connect(ctx, domain.Connection{
		Source:       args.Source,
		SourceHandle: defaultHandle(args.SourceHandle),
		Target:       args.Target,
		TargetHandle: args.TargetHandle,
	})
}

func (s *Server) handleToggleInput(ctx context.Context, request mcp.CallToolRequest, args NodeArgs) (NodeResult, error) {
	n, ok := s.bench.Node(args.NodeID)
	if !ok {
		return NodeResult{}, fmt.Errorf("node %q: %w", args.NodeID, domain.ErrNodeNotFound)
	}
	v, _ := n.Data.Value(domain.HandleOutput)
	return s.handleSetInput(ctx, request, SetInputArgs{NodeID: args.NodeID, Value: !v})
}

func (s *Server) handleSetInput(ctx context.Context, request mcp.CallToolRequest, args SetInputArgs) (NodeResult, error) {
	if err := s.bench.SetInput(ctx, args.NodeID, args.Value); err != nil {
		return NodeResult{}, err
	}
	n, _ := s.bench.Node(args.NodeID)
	return nodeResult(n), nil
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest, args NodeArgs) (StatusResult, error) {
	if _, ok := s.bench.Node(args.NodeID); !ok {
		return StatusResult{}, fmt.Errorf("node %q: %w", args.NodeID, domain.ErrNodeNotFound)
	}
	if err := s.bench.DeleteNode(ctx, args.NodeID); err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Status: "deleted"}, nil
}

func (s *Server) handleSaveCircuit(ctx context.Context, request mcp.CallToolRequest, args SaveCircuitArgs) (domain.Template, error) {
	if strings.TrimSpace(args.Name) == "" {
		return domain.Template{}, fmt.Errorf("name is required")
	}
	return s.bench.SaveCurrent(ctx, args.Name)
}

func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (StatusResult, error) {
	s.bench.Clear()
	return StatusResult{Status: "cleared"}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Current Workbench Graph",
		mcp.WithMIMEType("application/json"),
	), s.handleReadGraph)
}

func (s *Server) handleReadGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.bench.Graph())
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

// -- Helpers --

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func nodeResult(n *domain.Node) NodeResult {
	r := NodeResult{ID: n.ID, Type: n.Kind}
	r.Value, _ = n.Data.Value(domain.HandleOutput)
	if c, ok := n.Data.(*domain.CircuitData); ok {
		r.Inputs = slices.Sorted(maps.Keys(c.Inputs))
		r.Outputs = slices.Sorted(maps.Keys(c.Outputs))
	}
	return r
}

func defaultHandle(h string) string {
	if h == "" {
		return domain.HandleOutput
	}
	return h
}
