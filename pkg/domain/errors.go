package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycleDetected is returned when a pass would walk a feedback loop.
var ErrCycleDetected = errors.New("cycle detected")

// ErrNodeNotFound is returned when a command names a node that does not exist.
var ErrNodeNotFound = errors.New("node not found")

// ErrTemplateNotFound is returned when a saved circuit cannot be found in the store.
var ErrTemplateNotFound = errors.New("circuit template not found")

// ErrSnapshotNotFound is returned when a named snapshot cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrHandleDriven is returned when connecting onto a target handle that already has a driver.
var ErrHandleDriven = errors.New("target handle already driven")

// ErrUnknownKind is returned for node kinds outside input, output, gate and circuit.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrUnknownOperation is returned for gate operations outside the truth table.
var ErrUnknownOperation = errors.New("unknown gate operation")

// ErrMaxDepthExceeded is returned when circuit nesting or walk depth exceeds the engine bound.
var ErrMaxDepthExceeded = errors.New("max propagation depth exceeded")

// CycleError carries the node ids that form the loop, first id repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// Severity ranks a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a single finding about a graph. It does not stop a pass on its own.
type ValidationError struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (e *ValidationError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("%s: node '%s': %s", e.Severity, e.NodeID, e.Message)
	case e.EdgeID != "":
		return fmt.Sprintf("%s: edge '%s': %s", e.Severity, e.EdgeID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }
