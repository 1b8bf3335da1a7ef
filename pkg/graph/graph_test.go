package graph

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// seqIDs returns a deterministic id generator.
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func mustAdd(t *testing.T, s *Store, typ NodeType, x, y float64) Node {
	t.Helper()
	n, err := s.AddNode(typ, Position{X: x, Y: y})
	if err != nil {
		t.Fatalf("AddNode(%s) failed: %v", typ, err)
	}
	return n
}

func TestGraphBasics(t *testing.T) {
	s := NewStore()

	goal := mustAdd(t, s, TypeGoal, 100, 100)
	if s.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", s.NodeCount())
	}
	if sel := s.Selection(); sel.NodeID != goal.ID {
		t.Errorf("selected node = %q, want %q", sel.NodeID, goal.ID)
	}

	task := mustAdd(t, s, TypeTask, 300, 100)
	if s.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", s.NodeCount())
	}

	if _, err := s.AddConnection(goal.ID, task.ID, ""); err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}
	if s.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", s.ConnectionCount())
	}

	if err := s.DeleteNode(goal.ID); err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}
	if s.NodeCount() != 1 {
		t.Errorf("NodeCount after delete = %d, want 1", s.NodeCount())
	}
	if s.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount after cascade = %d, want 0", s.ConnectionCount())
	}
}

func TestSelfLoopRejected(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeGoal, 0, 0)

	_, err := s.AddConnection(a.ID, a.ID, "")
	if !errors.Is(err, ErrConnectionRejected) {
		t.Fatalf("err = %v, want ConnectionRejected", err)
	}
	if s.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0", s.ConnectionCount())
	}
}

func TestUnknownEndpointRejected(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeGoal, 0, 0)

	if _, err := s.AddConnection(a.ID, "ghost", ""); !errors.Is(err, ErrConnectionRejected) {
		t.Errorf("unknown target: err = %v, want ConnectionRejected", err)
	}
	if _, err := s.AddConnection("ghost", a.ID, ""); !errors.Is(err, ErrConnectionRejected) {
		t.Errorf("unknown source: err = %v, want ConnectionRejected", err)
	}
}

func TestParallelConnectionsAllowed(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeGoal, 0, 0)
	b := mustAdd(t, s, TypeTask, 300, 0)

	c1, err := s.AddConnection(a.ID, b.ID, "requires")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := s.AddConnection(a.ID, b.ID, "informs")
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID == c2.ID {
		t.Error("parallel connections share an id")
	}
	if got := len(s.OutgoingConnections(a.ID)); got != 2 {
		t.Errorf("outgoing = %d, want 2", got)
	}
	if got := len(s.Neighbors(a.ID)); got != 1 {
		t.Errorf("neighbors = %d, want 1", got)
	}
}

func TestOutgoingIncoming(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeGoal, 0, 0)
	b := mustAdd(t, s, TypeMilestone, 300, 0)

	if _, err := s.AddConnection(a.ID, b.ID, "leads to"); err != nil {
		t.Fatal(err)
	}

	outgoing := s.OutgoingConnections(a.ID)
	if len(outgoing) != 1 {
		t.Fatalf("outgoing = %d, want 1", len(outgoing))
	}
	if outgoing[0].Label != "leads to" {
		t.Errorf("Label = %s, want 'leads to'", outgoing[0].Label)
	}
	if incoming := s.IncomingConnections(b.ID); len(incoming) != 1 {
		t.Errorf("incoming = %d, want 1", len(incoming))
	}
}

func TestOrphanNodes(t *testing.T) {
	s := NewStore()
	connected := mustAdd(t, s, TypeGoal, 0, 0)
	orphan := mustAdd(t, s, TypeNote, 0, 200)
	target := mustAdd(t, s, TypeTask, 300, 0)

	if _, err := s.AddConnection(connected.ID, target.ID, ""); err != nil {
		t.Fatal(err)
	}

	orphans := s.OrphanNodes()
	if len(orphans) != 1 {
		t.Fatalf("orphan count = %d, want 1", len(orphans))
	}
	if orphans[0].ID != orphan.ID {
		t.Errorf("orphan = %s, want %s", orphans[0].ID, orphan.ID)
	}
}

func TestDegreeCentrality(t *testing.T) {
	s := NewStore()
	hub := mustAdd(t, s, TypeGoal, 0, 0)
	var leaves []Node
	for i := 0; i < 3; i++ {
		leaves = append(leaves, mustAdd(t, s, TypeTask, 300, float64(i)*150))
	}
	for _, leaf := range leaves {
		if _, err := s.AddConnection(hub.ID, leaf.ID, ""); err != nil {
			t.Fatal(err)
		}
	}

	centrality := s.DegreeCentrality()
	if centrality[hub.ID] <= centrality[leaves[0].ID] {
		t.Error("hub should have higher centrality than leaf nodes")
	}
	if centrality[hub.ID] != 0.5 {
		t.Errorf("hub centrality = %v, want 0.5", centrality[hub.ID])
	}
}

func TestCalendarEntries(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeMilestone, 0, 0)
	b := mustAdd(t, s, TypeTask, 0, 0)
	mustAdd(t, s, TypeNote, 0, 0)

	late, early := "2026-12-01", "2026-11-01"
	title := "Record demo"
	if err := s.UpdateNode(a.ID, NodePatch{DueDate: &late}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateNode(b.ID, NodePatch{DueDate: &early, Title: &title}); err != nil {
		t.Fatal(err)
	}

	entries := s.CalendarEntries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ID != b.ID || entries[0].Title != title {
		t.Errorf("first entry = %+v, want %s", entries[0], b.ID)
	}
}

func TestStats(t *testing.T) {
	s := NewStore()
	a := mustAdd(t, s, TypeTask, 0, 0)
	b := mustAdd(t, s, TypeTask, 0, 0)
	c := mustAdd(t, s, TypeGoal, 0, 0)

	done := true
	past := "2026-01-01"
	if err := s.UpdateNode(a.ID, NodePatch{Completed: &done, DueDate: &past}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateNode(b.ID, NodePatch{DueDate: &past}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddConnection(c.ID, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	st := s.Stats(time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC))
	if st.Nodes != 3 || st.Connections != 1 {
		t.Errorf("counts = %d/%d, want 3/1", st.Nodes, st.Connections)
	}
	if st.ByType[TypeTask] != 2 || st.ByType[TypeGoal] != 1 {
		t.Errorf("ByType = %v", st.ByType)
	}
	if st.Completed != 1 || st.Overdue != 1 || st.Orphans != 1 {
		t.Errorf("completed/overdue/orphans = %d/%d/%d, want 1/1/1", st.Completed, st.Overdue, st.Orphans)
	}
}
