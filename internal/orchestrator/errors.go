package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
)

// PreconditionError aborts a plan before any mutation. The canonical case
// is active sessions found by the session check; the whole plan stops with
// a dedicated report instead of a generic failure.
type PreconditionError struct {
	Reason   string
	Sessions []sessions.Session
}

func (e *PreconditionError) Error() string {
	if len(e.Sessions) == 0 {
		return e.Reason
	}
	descriptions := make([]string, len(e.Sessions))
	for i, s := range e.Sessions {
		descriptions[i] = s.String()
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(descriptions, ", "))
}

// NodeTimeoutError reports a fan-out that did not converge before its
// deadline, with the per-node breakdown of who never reached the target
// state.
type NodeTimeoutError struct {
	Op      string
	Timeout time.Duration
	Pending map[string]string // node -> last observed state
}

func (e *NodeTimeoutError) Error() string {
	nodes := make([]string, 0, len(e.Pending))
	for node := range e.Pending {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	parts := make([]string, len(nodes))
	for i, node := range nodes {
		parts[i] = fmt.Sprintf("%s (%s)", node, e.Pending[node])
	}
	return fmt.Sprintf("%s timed out after %v; pending: %s", e.Op, e.Timeout, strings.Join(parts, ", "))
}

// SkipError short-circuits a stage body when a precondition check finds the
// work already done. The stage ends Skipped, a success-equivalent state,
// and no live work is performed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns a SkipError for use from stage bodies.
func Skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}
