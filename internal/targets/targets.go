// Package targets resolves a stage's node scope into the concrete set of
// node identifiers the stage operates on.
package targets

import (
	"sort"
)

// Set is a deduplicated set of node identifiers with its exclusions.
// Order is irrelevant; Members returns a sorted slice for stable output.
type Set struct {
	members  map[string]struct{}
	excluded map[string]struct{}
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{
		members:  make(map[string]struct{}),
		excluded: make(map[string]struct{}),
	}
}

// Add puts node in the set unless it is excluded.
func (s *Set) Add(node string) {
	if _, ok := s.excluded[node]; ok {
		return
	}
	s.members[node] = struct{}{}
}

// Exclude removes node from the set and bars it from being re-added.
func (s *Set) Exclude(node string) {
	s.excluded[node] = struct{}{}
	delete(s.members, node)
}

// Contains reports set membership.
func (s *Set) Contains(node string) bool {
	_, ok := s.members[node]
	return ok
}

// Excluded reports whether node is barred from the set.
func (s *Set) Excluded(node string) bool {
	_, ok := s.excluded[node]
	return ok
}

// Len returns the member count.
func (s *Set) Len() int { return len(s.members) }

// Members returns the sorted member identifiers.
func (s *Set) Members() []string {
	members := make([]string, 0, len(s.members))
	for node := range s.members {
		members = append(members, node)
	}
	sort.Strings(members)
	return members
}
