package semgraph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrGraphLoad      = errors.New("graph load error")
	ErrNodeNotFound   = errors.New("node not found")
	ErrDuplicateNode  = errors.New("duplicate node")
	ErrSelfLoop       = errors.New("self-loop not allowed")
	ErrNegativeWeight = errors.New("negative edge weight")
	ErrInvalidMode    = errors.New("invalid propagation mode")
)

// GraphError provides structured error information for graph construction.
type GraphError struct {
	Op     string // Operation that failed (e.g., "NewGraph")
	Entity string // "node", "edge" or "duality"
	ID     string // Offending identifier
	Cause  error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// GraphLoadError reports that a node the audit requires is absent, either
// from the graph or from the propagation view built over it. It is fatal.
type GraphLoadError struct {
	Op     string
	NodeID string
	Mode   Mode // empty when the node is missing from the base graph
	Cause  error
}

// Error implements the error interface.
func (e *GraphLoadError) Error() string {
	if e.Mode != "" {
		return fmt.Sprintf("%s: node %q not present in %s view: %v", e.Op, e.NodeID, e.Mode, e.Cause)
	}
	return fmt.Sprintf("%s: node %q: %v", e.Op, e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *GraphLoadError) Unwrap() error {
	return e.Cause
}

// Is matches ErrGraphLoad as well as the wrapped cause.
func (e *GraphLoadError) Is(target error) bool {
	return target == ErrGraphLoad
}
