package graph

import (
	"sort"
	"time"
)

// OutgoingConnections returns connections leaving the node, in creation order.
func (s *Store) OutgoingConnections(id string) []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.outbound[id])
}

// IncomingConnections returns connections entering the node, in creation order.
func (s *Store) IncomingConnections(id string) []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.inbound[id])
}

func (s *Store) collect(set map[string]struct{}) []Connection {
	if len(set) == 0 {
		return nil
	}
	result := make([]Connection, 0, len(set))
	for _, cid := range s.connOrder {
		if _, ok := set[cid]; ok {
			result = append(result, *s.conns[cid])
		}
	}
	return result
}

// Neighbors returns all nodes connected to the given node (both directions).
func (s *Store) Neighbors(id string) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Node

	// Outbound neighbors
	for cid := range s.outbound[id] {
		target := s.conns[cid].TargetID
		if !seen[target] {
			seen[target] = true
			result = append(result, *s.nodes[target])
		}
	}

	// Inbound neighbors
	for cid := range s.inbound[id] {
		source := s.conns[cid].SourceID
		if !seen[source] {
			seen[source] = true
			result = append(result, *s.nodes[source])
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// ConnectionCount returns the number of connections.
func (s *Store) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// OrphanNodes returns nodes with no connections, in draw order.
func (s *Store) OrphanNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orphans []Node
	for _, id := range s.order {
		if len(s.outbound[id]) == 0 && len(s.inbound[id]) == 0 {
			orphans = append(orphans, *s.nodes[id])
		}
	}
	return orphans
}

// DegreeCentrality computes (in+out)/(2*(n-1)) for each node. Parallel
// connections each count.
func (s *Store) DegreeCentrality() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.nodes)
	result := make(map[string]float64, n)
	if n <= 1 {
		for id := range s.nodes {
			result[id] = 0.0
		}
		return result
	}

	normalizer := 2.0 * float64(n-1)
	for id := range s.nodes {
		result[id] = float64(len(s.outbound[id])+len(s.inbound[id])) / normalizer
	}
	return result
}

// =============================================================================
// Read-only projections
// =============================================================================

// CalendarEntry is what the calendar export collaborator gets per dated node.
type CalendarEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate"`
}

// CalendarEntries projects every node with a due date, ordered by date then id.
func (s *Store) CalendarEntries() []CalendarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []CalendarEntry
	for _, id := range s.order {
		n := s.nodes[id]
		if n.Data.DueDate == "" {
			continue
		}
		entries = append(entries, CalendarEntry{
			ID:          n.ID,
			Title:       n.Data.Title,
			Description: n.Data.Description,
			DueDate:     n.Data.DueDate,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DueDate != entries[j].DueDate {
			return entries[i].DueDate < entries[j].DueDate
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Stats summarises the plan for reporting views.
type Stats struct {
	Nodes           int              `json:"nodes"`
	Connections     int              `json:"connections"`
	ByType          map[NodeType]int `json:"byType"`
	Completed       int              `json:"completed"`
	CompletionRatio float64          `json:"completionRatio"`
	Overdue         int              `json:"overdue"`
	Orphans         int              `json:"orphans"`
}

// Stats computes plan statistics. A node is overdue when it is not completed
// and its due date is before today's date.
func (s *Store) Stats(today time.Time) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Nodes:       len(s.nodes),
		Connections: len(s.conns),
		ByType:      make(map[NodeType]int, len(NodeTypes)),
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	for id, n := range s.nodes {
		st.ByType[n.Type]++
		if n.Data.Completed {
			st.Completed++
		} else if due, ok := n.Data.Due(); ok && due.Before(day) {
			st.Overdue++
		}
		if len(s.outbound[id]) == 0 && len(s.inbound[id]) == 0 {
			st.Orphans++
		}
	}
	if st.Nodes > 0 {
		st.CompletionRatio = float64(st.Completed) / float64(st.Nodes)
	}
	return st
}
