package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Invariants
// =============================================================================

func assertIntegrity(t *testing.T, s *Store) {
	t.Helper()
	ids := make(map[string]bool)
	for _, n := range s.Nodes() {
		require.False(t, ids[n.ID], "duplicate node id %s", n.ID)
		ids[n.ID] = true
		require.Greater(t, n.Width, 0.0)
		require.Greater(t, n.Height, 0.0)
	}
	for _, c := range s.Connections() {
		require.True(t, ids[c.SourceID], "dangling source %s on %s", c.SourceID, c.ID)
		require.True(t, ids[c.TargetID], "dangling target %s on %s", c.TargetID, c.ID)
	}
	sel := s.Selection()
	require.False(t, sel.NodeID != "" && sel.ConnectionID != "", "both selections set")
}

func TestRandomOperationsKeepIntegrity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewStore()

	for step := 0; step < 2000; step++ {
		nodes := s.Nodes()
		conns := s.Connections()

		switch op := rng.Intn(6); {
		case op == 0 || len(nodes) < 2:
			_, err := s.AddNode(NodeTypes[rng.Intn(len(NodeTypes))], Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000})
			require.NoError(t, err)
		case op == 1 || op == 2:
			a := nodes[rng.Intn(len(nodes))]
			b := nodes[rng.Intn(len(nodes))]
			_, err := s.AddConnection(a.ID, b.ID, "")
			if a.ID == b.ID {
				require.ErrorIs(t, err, ErrConnectionRejected)
			} else {
				require.NoError(t, err)
			}
		case op == 3:
			require.NoError(t, s.DeleteNode(nodes[rng.Intn(len(nodes))].ID))
		case op == 4 && len(conns) > 0:
			require.NoError(t, s.SelectConnection(conns[rng.Intn(len(conns))].ID))
		default:
			require.NoError(t, s.SelectNode(nodes[rng.Intn(len(nodes))].ID))
		}
		assertIntegrity(t, s)
	}
}

func TestSelectionIsMutuallyExclusive(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})
	b, _ := s.AddNode(TypeTask, Position{X: 300})
	c, err := s.AddConnection(a.ID, b.ID, "")
	require.NoError(t, err)

	require.NoError(t, s.SelectConnection(c.ID))
	assert.Equal(t, Selection{ConnectionID: c.ID}, s.Selection())

	require.NoError(t, s.SelectNode(a.ID))
	assert.Equal(t, Selection{NodeID: a.ID}, s.Selection())

	require.NoError(t, s.SelectConnection(c.ID))
	assert.Equal(t, Selection{ConnectionID: c.ID}, s.Selection())

	require.NoError(t, s.SelectNode(""))
	assert.Equal(t, Selection{ConnectionID: c.ID}, s.Selection(), "clearing node keeps connection")

	assert.True(t, IsNotFound(s.SelectNode("missing")))
	assert.Equal(t, Selection{ConnectionID: c.ID}, s.Selection())
}

func TestDeleteClearsSelection(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})
	b, _ := s.AddNode(TypeTask, Position{X: 300})
	c, _ := s.AddConnection(a.ID, b.ID, "")

	require.NoError(t, s.SelectConnection(c.ID))
	require.NoError(t, s.DeleteNode(b.ID))
	assert.Equal(t, Selection{}, s.Selection(), "cascaded connection selection is cleared")

	require.NoError(t, s.SelectNode(a.ID))
	require.NoError(t, s.DeleteNode(a.ID))
	assert.Equal(t, Selection{}, s.Selection())
}

func TestNotFoundIsBenign(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})
	require.NoError(t, s.DeleteNode(a.ID))

	rev := s.Revision()
	assert.True(t, IsNotFound(s.DeleteNode(a.ID)))
	assert.True(t, IsNotFound(s.DeleteConnection("nope")))
	title := "x"
	assert.True(t, IsNotFound(s.UpdateNode(a.ID, NodePatch{Title: &title})))
	assert.Equal(t, rev, s.Revision(), "failed operations do not mutate")
}

func TestUpdateNodeMergesAndResizes(t *testing.T) {
	s := NewStore()
	n, _ := s.AddNode(TypeTask, Position{X: 10, Y: 20})
	assert.Equal(t, DefaultNodeHeight, n.Height)
	assert.Equal(t, "", n.Data.Title)

	title := "Book studio time"
	prio := PriorityHigh
	require.NoError(t, s.UpdateNode(n.ID, NodePatch{Title: &title, Priority: &prio}))

	got, ok := s.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, title, got.Data.Title)
	assert.Equal(t, PriorityHigh, got.Data.Priority)
	assert.Equal(t, DefaultNodeHeightExtended, got.Height)
	assert.Equal(t, Position{X: 10, Y: 20}, got.Position)

	none := PriorityNone
	require.NoError(t, s.UpdateNode(n.ID, NodePatch{Priority: &none}))
	got, _ = s.Node(n.ID)
	assert.Equal(t, DefaultNodeHeight, got.Height)

	require.NoError(t, s.MoveNode(n.ID, Position{X: -5, Y: 7}))
	got, _ = s.Node(n.ID)
	assert.Equal(t, Position{X: -5, Y: 7}, got.Position)
}

func TestAddNodeRejectsUnknownType(t *testing.T) {
	s := NewStore()
	_, err := s.AddNode(NodeType("idea"), Position{})
	assert.Error(t, err)
	assert.Equal(t, 0, s.NodeCount())
}

// =============================================================================
// Bulk load
// =============================================================================

func TestLoadDataIsAtomic(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})
	b, _ := s.AddNode(TypeTask, Position{X: 300})
	_, err := s.AddConnection(a.ID, b.ID, "")
	require.NoError(t, err)
	before := s.Snapshot()

	err = s.LoadData(
		[]Node{{ID: "n1", Type: TypeGoal, Width: 200, Height: 80, Data: NodeData{Title: "Goal"}}},
		[]Connection{{ID: "c1", SourceID: "n1", TargetID: "ghost"}},
	)
	require.ErrorIs(t, err, ErrLoadRejected)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "connections", lerr.Field)
	assert.Equal(t, 0, lerr.Index)

	assert.Equal(t, before, s.Snapshot(), "rejected load leaves store untouched")
}

func TestLoadDataRejections(t *testing.T) {
	node := func(id string) Node { return Node{ID: id, Type: TypeTask, Width: 1, Height: 1} }

	cases := []struct {
		name  string
		nodes []Node
		conns []Connection
		field string
		index int
	}{
		{"duplicate node", []Node{node("a"), node("a")}, nil, "nodes", 1},
		{"empty node id", []Node{node("")}, nil, "nodes", 0},
		{"bad type", []Node{{ID: "a", Type: "idea"}}, nil, "nodes", 0},
		{"self loop", []Node{node("a")}, []Connection{{ID: "c", SourceID: "a", TargetID: "a"}}, "connections", 0},
		{"duplicate connection", []Node{node("a"), node("b")}, []Connection{
			{ID: "c", SourceID: "a", TargetID: "b"},
			{ID: "c", SourceID: "b", TargetID: "a"},
		}, "connections", 1},
		{"missing source", []Node{node("a")}, []Connection{{ID: "c", SourceID: "x", TargetID: "a"}}, "connections", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			err := s.LoadData(tc.nodes, tc.conns)
			var lerr *Error
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, KindLoadRejected, lerr.Kind)
			assert.Equal(t, tc.field, lerr.Field)
			assert.Equal(t, tc.index, lerr.Index)
			assert.Equal(t, 0, s.NodeCount())
		})
	}
}

func TestLoadDataReplacesAndResets(t *testing.T) {
	s := NewStore(WithIDGenerator(seqIDs("local")))
	a, _ := s.AddNode(TypeGoal, Position{})
	require.NoError(t, s.EnterMode(DraggingNode(a.ID)))

	err := s.LoadData(
		[]Node{
			{ID: "n1", Type: TypeGoal, Data: NodeData{Title: "Goal", Priority: PriorityLow}},
			{ID: "n2", Type: TypeTask, Width: 240, Height: 90, Data: NodeData{Title: "Task"}},
		},
		[]Connection{{ID: "c1", SourceID: "n1", TargetID: "n2", Label: "needs"}},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, s.NodeCount())
	assert.Equal(t, 1, s.ConnectionCount())
	assert.Equal(t, Selection{}, s.Selection())
	assert.True(t, s.Mode().IsIdle())

	n1, _ := s.Node("n1")
	assert.Equal(t, DefaultNodeHeightExtended, n1.Height, "missing size gets the default")
	n2, _ := s.Node("n2")
	assert.Equal(t, 240.0, n2.Width)

	s.ClearCanvas()
	assert.Equal(t, 0, s.NodeCount())
	assert.Equal(t, 0, s.ConnectionCount())
}

// =============================================================================
// Mode
// =============================================================================

func TestModeTransitions(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})

	require.NoError(t, s.EnterMode(Connecting(a.ID)))
	assert.Error(t, s.EnterMode(Panning()), "gestures only start from idle")
	assert.Equal(t, Connecting(a.ID), s.Mode())

	s.ResetMode()
	require.NoError(t, s.EnterMode(Panning()))
	s.ResetMode()

	assert.True(t, IsNotFound(s.EnterMode(DraggingNode("missing"))))
	assert.True(t, s.Mode().IsIdle())
}

func TestDeletingModeNodeReturnsToIdle(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})

	require.NoError(t, s.EnterMode(DraggingNode(a.ID)))
	require.NoError(t, s.DeleteNode(a.ID))
	assert.Equal(t, Idle(), s.Mode())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode(TypeGoal, Position{})

	snap := s.Snapshot()
	snap.Nodes[0].Data.Title = "mutated"

	got, _ := s.Node(a.ID)
	assert.Equal(t, "", got.Data.Title)
}
