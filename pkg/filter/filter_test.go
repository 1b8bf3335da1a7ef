package filter

import (
	"testing"
	"time"

	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func plan() []graph.Node {
	mk := func(id string, t graph.NodeType, title, desc, due string, p graph.Priority, done bool) graph.Node {
		return graph.Node{ID: id, Type: t, Data: graph.NodeData{
			Title: title, Description: desc, DueDate: due, Priority: p, Completed: done,
		}}
	}
	return []graph.Node{
		mk("g", graph.TypeGoal, "Staff engineer", "Platform leadership", "2027-06-01", graph.PriorityHigh, false),
		mk("m", graph.TypeMilestone, "Kubernetes certification", "", "2026-12-15", graph.PriorityMedium, false),
		mk("t1", graph.TypeTask, "Design review portfolio", "Collect design docs", "2026-11-01", graph.PriorityHigh, true),
		mk("t2", graph.TypeTask, "Mentor two juniors", "", "", graph.PriorityNone, false),
		mk("r", graph.TypeResource, "Kubernetes book", "Reference for the certification", "", graph.PriorityLow, false),
		mk("n", graph.TypeNote, "Thoughts", "Portfolio ideas for the review", "", graph.PriorityNone, true),
	}
}

func boolPtr(b bool) *bool { return &b }

// =============================================================================
// Text matching
// =============================================================================

func TestTermsDropStopWords(t *testing.T) {
	terms := Terms("The Kubernetes book!")
	assert.Contains(t, terms, "kubernetes")
	assert.NotContains(t, terms, "the")
	assert.Equal(t, []string{"portfolio"}, Terms("portfolio PORTFOLIO"))
	assert.Equal(t, []string{"kubernetes"}, Terms("kube kubernetes"), "contained terms collapse")
	assert.Empty(t, Terms("  ...  "))
	assert.NotEmpty(t, Terms("the"), "a query of only stop words keeps them")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "don't stop me now", Normalize("Don’t  STOP, me-now"))
}

func TestMatcherRequiresAllTerms(t *testing.T) {
	m := NewMatcher("kubernetes certification")
	assert.True(t, m.Match("Kubernetes certification"))
	assert.True(t, m.Match("Kubernetes book", "Reference for the certification"), "terms may span title and description")
	assert.False(t, m.Match("Kubernetes book"))

	assert.True(t, NewMatcher("").Match("anything"))
	assert.True(t, NewMatcher("PORT").Match("portfolio"), "substring, case-insensitive")
}

// =============================================================================
// Predicates
// =============================================================================

func TestPredicates(t *testing.T) {
	nodes := plan()

	assert.Equal(t, []string{"t1", "t2"}, ids(Keep(nodes, TypeIn(graph.TypeTask))))
	assert.Equal(t, []string{"t1", "n"}, ids(Keep(nodes, CompletedIs(true))))
	assert.Equal(t, []string{"t2", "n"}, ids(Keep(nodes, PriorityIn(graph.PriorityNone))))
	assert.Equal(t, []string{"m", "r"}, ids(Keep(nodes, Text("kubernetes"))))
	assert.Equal(t, []string{"t1", "n"}, ids(Keep(nodes, Text("portfolio review"))))

	from := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"m", "t1"}, ids(Keep(nodes, DueBetween(from, to))), "inclusive bounds")
	assert.Equal(t, []string{"g", "m", "t1"}, ids(Keep(nodes, DueBetween(time.Time{}, time.Time{}))))

	combined := And(TypeIn(graph.TypeTask, graph.TypeNote), Not(CompletedIs(true)))
	assert.Equal(t, []string{"t2"}, ids(Keep(nodes, combined)))

	either := Or(TypeIn(graph.TypeGoal), PriorityIn(graph.PriorityLow))
	assert.Equal(t, []string{"g", "r"}, ids(Keep(nodes, either)))
}

func TestCriteriaPredicateMatchesApply(t *testing.T) {
	nodes := plan()
	cases := []Criteria{
		{},
		{Types: []graph.NodeType{graph.TypeTask, graph.TypeMilestone}},
		{Completed: boolPtr(false)},
		{Priorities: []graph.Priority{graph.PriorityHigh}},
		{DueFrom: "2026-11-02"},
		{DueTo: "2026-12-15", Completed: boolPtr(false)},
		{Text: "portfolio", Types: []graph.NodeType{graph.TypeNote}},
		{Text: "missing term"},
	}

	for _, c := range cases {
		p, err := c.Predicate()
		require.NoError(t, err)
		got, err := Apply(nodes, c)
		require.NoError(t, err)
		assert.Equal(t, ids(Keep(nodes, p)), ids(got), "%+v", c)
	}
}

func TestApply(t *testing.T) {
	nodes := plan()

	got, err := Apply(nodes, Criteria{Types: []graph.NodeType{graph.TypeTask}, Completed: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, ids(got))

	got, err = Apply(nodes, Criteria{})
	require.NoError(t, err)
	assert.Len(t, got, len(nodes))

	got[0].Data.Title = "mutated"
	assert.Equal(t, "Staff engineer", nodes[0].Data.Title, "result is a copy")

	_, err = Apply(nodes, Criteria{DueFrom: "soon"})
	assert.Error(t, err)
	_, err = Criteria{DueTo: "31/12/2026"}.Predicate()
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	idx := NewIndex(plan())
	assert.Equal(t, 6, idx.Len())
	assert.Equal(t, 2, idx.Count(graph.TypeTask))
	assert.Equal(t, 0, idx.Count(graph.NodeType("idea")))

	sel := idx.Select([]graph.NodeType{graph.TypeTask, graph.TypeNote}, boolPtr(true), nil)
	assert.Equal(t, []uint32{2, 5}, sel.ToArray())

	sel = idx.Select(nil, nil, []graph.Priority{graph.PriorityHigh, graph.PriorityLow})
	assert.Equal(t, []uint32{0, 2, 4}, sel.ToArray())

	sel = idx.Select([]graph.NodeType{graph.NodeType("idea")}, nil, nil)
	assert.True(t, sel.IsEmpty())
}
