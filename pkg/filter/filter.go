// Package filter narrows the visible node set. It is a read-only view over
// graph nodes: nothing here touches the store.
package filter

import (
	"fmt"
	"time"

	"github.com/kittclouds/plankitt/pkg/graph"
)

// Criteria is what the shell's filter bar sends. Zero fields do not filter.
type Criteria struct {
	Text       string           `json:"text,omitempty"`
	Types      []graph.NodeType `json:"types,omitempty"`
	Completed  *bool            `json:"completed,omitempty"`
	Priorities []graph.Priority `json:"priorities,omitempty"`
	DueFrom    string           `json:"dueFrom,omitempty"`
	DueTo      string           `json:"dueTo,omitempty"`
}

// IsZero reports whether c lets every node through.
func (c Criteria) IsZero() bool {
	return c.Text == "" && len(c.Types) == 0 && c.Completed == nil &&
		len(c.Priorities) == 0 && c.DueFrom == "" && c.DueTo == ""
}

// dueRange parses DueFrom/DueTo. Zero times mean unbounded.
func (c Criteria) dueRange() (from, to time.Time, err error) {
	if c.DueFrom != "" {
		if from, err = time.Parse(graph.DateLayout, c.DueFrom); err != nil {
			return from, to, fmt.Errorf("invalid dueFrom %q: %w", c.DueFrom, err)
		}
	}
	if c.DueTo != "" {
		if to, err = time.Parse(graph.DateLayout, c.DueTo); err != nil {
			return from, to, fmt.Errorf("invalid dueTo %q: %w", c.DueTo, err)
		}
	}
	return from, to, nil
}

// ============================================================================
// Predicates
// ============================================================================

// Predicate decides whether a node is visible.
type Predicate func(graph.Node) bool

// All lets every node through.
func All() Predicate { return func(graph.Node) bool { return true } }

// And holds when every p holds.
func And(ps ...Predicate) Predicate {
	return func(n graph.Node) bool {
		for _, p := range ps {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Or holds when any p holds.
func Or(ps ...Predicate) Predicate {
	return func(n graph.Node) bool {
		for _, p := range ps {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(n graph.Node) bool { return !p(n) }
}

// Text matches nodes whose title or description contains every query term.
func Text(query string) Predicate {
	m := NewMatcher(query)
	return func(n graph.Node) bool {
		return m.Match(n.Data.Title, n.Data.Description)
	}
}

// TypeIn matches nodes of any of the given types.
func TypeIn(types ...graph.NodeType) Predicate {
	set := make(map[graph.NodeType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(n graph.Node) bool { return set[n.Type] }
}

// CompletedIs matches on the completed flag.
func CompletedIs(done bool) Predicate {
	return func(n graph.Node) bool { return n.Data.Completed == done }
}

// PriorityIn matches nodes with any of the given priorities. PriorityNone
// matches nodes without a priority.
func PriorityIn(ps ...graph.Priority) Predicate {
	set := make(map[graph.Priority]bool, len(ps))
	for _, p := range ps {
		set[p] = true
	}
	return func(n graph.Node) bool { return set[n.Data.Priority] }
}

// DueBetween matches nodes due within [from, to], inclusive. A zero bound is
// open. Nodes without a due date never match.
func DueBetween(from, to time.Time) Predicate {
	return func(n graph.Node) bool {
		due, ok := n.Data.Due()
		if !ok {
			return false
		}
		if !from.IsZero() && due.Before(from) {
			return false
		}
		if !to.IsZero() && due.After(to) {
			return false
		}
		return true
	}
}

// Predicate composes the criteria into one predicate.
func (c Criteria) Predicate() (Predicate, error) {
	var ps []Predicate
	if len(c.Types) > 0 {
		ps = append(ps, TypeIn(c.Types...))
	}
	if c.Completed != nil {
		ps = append(ps, CompletedIs(*c.Completed))
	}
	if len(c.Priorities) > 0 {
		ps = append(ps, PriorityIn(c.Priorities...))
	}
	if c.DueFrom != "" || c.DueTo != "" {
		from, to, err := c.dueRange()
		if err != nil {
			return nil, err
		}
		ps = append(ps, DueBetween(from, to))
	}
	if c.Text != "" {
		ps = append(ps, Text(c.Text))
	}
	if len(ps) == 0 {
		return All(), nil
	}
	return And(ps...), nil
}

// Keep returns the nodes p accepts, in their original order.
func Keep(nodes []graph.Node, p Predicate) []graph.Node {
	out := make([]graph.Node, 0, len(nodes))
	for _, n := range nodes {
		if p(n) {
			out = append(out, n)
		}
	}
	return out
}

// Apply filters nodes by criteria. Facets narrow the candidates through a
// bitmap index first; the text predicate only runs on what is left.
func Apply(nodes []graph.Node, c Criteria) ([]graph.Node, error) {
	if c.IsZero() {
		return append([]graph.Node(nil), nodes...), nil
	}
	from, to, err := c.dueRange()
	if err != nil {
		return nil, err
	}

	idx := NewIndex(nodes)
	candidates := idx.Select(c.Types, c.Completed, c.Priorities)

	var ps []Predicate
	if c.DueFrom != "" || c.DueTo != "" {
		ps = append(ps, DueBetween(from, to))
	}
	if c.Text != "" {
		ps = append(ps, Text(c.Text))
	}
	rest := And(ps...)

	out := make([]graph.Node, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		n := nodes[it.Next()]
		if rest(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
