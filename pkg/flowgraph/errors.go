package flowgraph

import (
	"errors"
	"fmt"
)

// Build errors, returned by Compile.
var (
	ErrNoEntryPoint  = errors.New("entry point not set")
	ErrEntryNotFound = errors.New("entry point node not found")
	ErrNodeNotFound  = errors.New("node not found")
	ErrNoPathToEnd   = errors.New("no path to END from entry")
)

// Run errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrMaxIterations = errors.New("exceeded maximum iterations")
	// ErrRunIDRequired means checkpointing was requested without WithRunID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrInvalidRouterResult is an empty route.
	ErrInvalidRouterResult = errors.New("router returned empty string")
	// ErrRouterTargetNotFound is a route to an unknown node, or a conditional
	// entry route outside the declared targets.
	ErrRouterTargetNotFound = errors.New("router returned unknown node")
)

// located is implemented by run errors that know where the run stopped.
type located interface {
	error
	stoppedAt() string
}

// NodeError is a node function's returned error.
type NodeError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error     { return e.Err }
func (e *NodeError) stoppedAt() string { return e.NodeID }

// PanicError is a recovered panic from a node or router. Stack is the
// goroutine stack at recovery.
type PanicError struct {
	NodeID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

func (e *PanicError) stoppedAt() string { return e.NodeID }

// CancellationError reports that the run's context ended. State holds the
// state at that point; WasExecuting tells whether NodeID had started.
type CancellationError struct {
	NodeID       string
	State        any
	Cause        error
	WasExecuting bool
}

func (e *CancellationError) Error() string {
	when := "before"
	if e.WasExecuting {
		when = "during"
	}
	return fmt.Sprintf("cancelled %s node %s: %v", when, e.NodeID, e.Cause)
}

func (e *CancellationError) Unwrap() error     { return e.Cause }
func (e *CancellationError) stoppedAt() string { return e.NodeID }

// RouterError is a route that could not be followed. FromNode is START for
// the conditional entry.
type RouterError struct {
	FromNode string
	Returned string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

func (e *RouterError) Unwrap() error     { return e.Err }
func (e *RouterError) stoppedAt() string { return e.FromNode }

// MaxIterationsError stops a run that would execute more than Max nodes.
type MaxIterationsError struct {
	Max        int
	LastNodeID string
	State      any
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

func (e *MaxIterationsError) Unwrap() error     { return ErrMaxIterations }
func (e *MaxIterationsError) stoppedAt() string { return e.LastNodeID }

// CheckpointError is a failed checkpoint write. Op is "serialize", "marshal"
// or "save".
type CheckpointError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// lastNodeOf names the node a run stopped at, for logging. Errors that do
// not carry a node fall back to the last node on path.
func lastNodeOf(err error, path []string) string {
	var loc located
	if errors.As(err, &loc) {
		return loc.stoppedAt()
	}
	if len(path) > 0 {
		return path[len(path)-1]
	}
	return ""
}
