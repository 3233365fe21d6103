package targets

import (
	"context"
	"fmt"

	"github.com/Cray-HPE/sat-sub000/internal/platform/hsm"
)

// Scope describes which nodes a stage wants, before resolution.
type Scope struct {
	// Roles selects nodes by inventory role (e.g. "Management",
	// "Compute", "Application").
	Roles []string

	// SubRoles selects management nodes by subrole ("Master", "Storage",
	// "Worker").
	SubRoles []string

	// Include lists explicit node identifiers.
	Include []string

	// Exclude lists node identifiers to leave untouched. Names outside
	// the resolved membership are allowed; operators keep standing
	// exclude lists that mention nodes not in every scope.
	Exclude []string

	// ExcludeLocal bars the controlling node from the set. Node power
	// stages always set this: the orchestrator must not power off the
	// node it runs on.
	ExcludeLocal bool
}

// Resolver turns Scopes into Sets using the hardware inventory. It holds no
// orchestration state and never mutates anything outside the Set it
// returns.
type Resolver struct {
	inventory hsm.Inventory
	localNode string
	warnf     func(format string, args ...any)
}

// NewResolver creates a Resolver. warnf receives warnings about dropped
// unknown identifiers; nil disables them.
func NewResolver(inventory hsm.Inventory, localNode string, warnf func(format string, args ...any)) *Resolver {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &Resolver{inventory: inventory, localNode: localNode, warnf: warnf}
}

// LocalNode returns the controlling node's identifier.
func (r *Resolver) LocalNode() string { return r.localNode }

// Resolve builds the concrete target set for scope.
func (r *Resolver) Resolve(ctx context.Context, scope Scope) (*Set, error) {
	set := NewSet()

	// Exclusions first so role members never transit through the set.
	if scope.ExcludeLocal {
		set.Exclude(r.localNode)
	}
	for _, node := range scope.Exclude {
		set.Exclude(node)
	}

	for _, role := range scope.Roles {
		nodes, err := r.inventory.NodesByRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", role, err)
		}
		for _, node := range nodes {
			set.Add(node)
		}
	}

	for _, subRole := range scope.SubRoles {
		nodes, err := r.inventory.NodesBySubRole(ctx, subRole)
		if err != nil {
			return nil, fmt.Errorf("resolve subrole %s: %w", subRole, err)
		}
		for _, node := range nodes {
			set.Add(node)
		}
	}

	if len(scope.Include) > 0 {
		known, err := r.knownNodes(ctx)
		if err != nil {
			return nil, err
		}
		for _, node := range scope.Include {
			if _, ok := known[node]; !ok {
				r.warnf("ignoring unknown node %q in target list", node)
				continue
			}
			set.Add(node)
		}
	}

	return set, nil
}

func (r *Resolver) knownNodes(ctx context.Context) (map[string]struct{}, error) {
	nodes, err := r.inventory.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory nodes: %w", err)
	}
	known := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		known[node] = struct{}{}
	}
	return known, nil
}
