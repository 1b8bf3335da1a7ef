package loader

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kittclouds/plankitt/pkg/graph"
)

var validate = validator.New()

// Validate checks a document and reports the first violation as a
// LoadRejected *graph.Error naming the collection, index and id. Nodes are
// checked before connections.
func Validate(p Payload) error {
	ids := make(map[string]struct{}, len(p.Nodes))

	for i, n := range p.Nodes {
		if err := validate.Struct(n); err != nil {
			return graph.LoadRejected("nodes", i, n.ID, describe(err))
		}
		if strings.TrimSpace(n.Data.Title) == "" {
			return graph.LoadRejected("nodes", i, n.ID, "title is blank")
		}
		if !n.Position.IsFinite() {
			return graph.LoadRejected("nodes", i, n.ID, "position is not finite")
		}
		if !finiteSize(n.Width) || !finiteSize(n.Height) {
			return graph.LoadRejected("nodes", i, n.ID, "size must be positive")
		}
		if _, dup := ids[n.ID]; dup {
			return graph.LoadRejected("nodes", i, n.ID, "duplicate node id")
		}
		ids[n.ID] = struct{}{}
	}

	connIDs := make(map[string]struct{}, len(p.Connections))
	for i, c := range p.Connections {
		if err := validate.Struct(c); err != nil {
			return graph.LoadRejected("connections", i, c.ID, describe(err))
		}
		if _, dup := connIDs[c.ID]; dup {
			return graph.LoadRejected("connections", i, c.ID, "duplicate connection id")
		}
		connIDs[c.ID] = struct{}{}
		if c.SourceID == c.TargetID {
			return graph.LoadRejected("connections", i, c.ID, "self-loop")
		}
		if _, ok := ids[c.SourceID]; !ok {
			return graph.LoadRejected("connections", i, c.ID, fmt.Sprintf("unknown source %q", c.SourceID))
		}
		if _, ok := ids[c.TargetID]; !ok {
			return graph.LoadRejected("connections", i, c.ID, fmt.Sprintf("unknown target %q", c.TargetID))
		}
	}
	return nil
}

// finiteSize accepts zero (use the default) or a positive finite value.
func finiteSize(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// describe turns the first validator failure into a short message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	e := verrs[0]
	field := fieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath drops the struct name from a validator namespace and lowercases
// the rest: "NodeDoc.Data.Title" becomes "data.title".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// Load validates p and replaces the store's contents in one step. On any
// error the store is unchanged.
func Load(s *graph.Store, p Payload) error {
	if err := Validate(p); err != nil {
		return err
	}
	nodes, conns := p.Graph()
	return s.LoadData(nodes, conns)
}

// Export snapshots the store as a document. The document must pass Validate,
// so a graph that could not be loaded back (an untitled node, say) returns
// the LoadRejected error instead.
func Export(s *graph.Store) (Payload, error) {
	p := FromGraph(s.Nodes(), s.Connections())
	if err := Validate(p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
