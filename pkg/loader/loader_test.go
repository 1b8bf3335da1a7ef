package loader

import (
	"math"
	"testing"
	"time"

	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `{
  "nodes": [
    {"id": "g", "type": "goal", "position": {"x": 400, "y": 100},
     "data": {"title": "Senior engineer", "priority": "high", "dueDate": "2027-06-01", "completed": false}},
    {"id": "t", "type": "task", "position": {"x": 80, "y": 100}, "width": 220, "height": 90,
     "data": {"title": "Write design docs", "completed": true}}
  ],
  "connections": [
    {"id": "c", "sourceId": "t", "targetId": "g", "label": "leads to"}
  ]
}`

const samplePlanYAML = `
nodes:
  - id: g
    type: goal
    position: {x: 400, y: 100}
    data:
      title: Senior engineer
      priority: high
      dueDate: "2027-06-01"
  - id: t
    type: task
    position: {x: 80, y: 100}
    width: 220
    height: 90
    data:
      title: Write design docs
      completed: true
connections:
  - id: c
    sourceId: t
    targetId: g
    label: leads to
`

func validPayload() Payload {
	return Payload{
		Nodes: []NodeDoc{
			{ID: "a", Type: graph.TypeGoal, Data: DataDoc{Title: "A"}},
			{ID: "b", Type: graph.TypeTask, Position: graph.Position{X: 300}, Data: DataDoc{Title: "B"}},
		},
		Connections: []ConnectionDoc{{ID: "c", SourceID: "a", TargetID: "b"}},
	}
}

func TestDecodeJSONAndYAMLAgree(t *testing.T) {
	pj, err := Decode([]byte(samplePlan), FormatJSON)
	require.NoError(t, err)
	py, err := Decode([]byte(samplePlanYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, pj, py)
	require.NoError(t, Validate(pj))
	assert.Equal(t, 220.0, pj.Nodes[1].Width)
	assert.Equal(t, graph.PriorityHigh, pj.Nodes[0].Data.Priority)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte("{nodes"), FormatJSON)
	assert.Error(t, err)
	_, err = Decode([]byte("nodes: ["), FormatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte("{}"), Format("xml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("plan.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("dir/plan.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("plan.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("plan"))
}

func TestValidateReportsFirstViolation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *Payload)
		field  string
		index  int
		reason string
	}{
		{"missing title", func(p *Payload) { p.Nodes[1].Data.Title = "" }, "nodes", 1, "data.title is required"},
		{"blank title", func(p *Payload) { p.Nodes[0].Data.Title = "   " }, "nodes", 0, "title is blank"},
		{"bad type", func(p *Payload) { p.Nodes[1].Type = "idea" }, "nodes", 1, "type must be one of"},
		{"bad priority", func(p *Payload) { p.Nodes[0].Data.Priority = "urgent" }, "nodes", 0, "data.priority"},
		{"bad date", func(p *Payload) { p.Nodes[0].Data.DueDate = "next week" }, "nodes", 0, "data.duedate"},
		{"nan position", func(p *Payload) { p.Nodes[1].Position.X = math.NaN() }, "nodes", 1, "not finite"},
		{"infinite position", func(p *Payload) { p.Nodes[0].Position.Y = math.Inf(-1) }, "nodes", 0, "not finite"},
		{"negative width", func(p *Payload) { p.Nodes[0].Width = -1 }, "nodes", 0, "width"},
		{"duplicate node", func(p *Payload) { p.Nodes[1].ID = "a" }, "nodes", 1, "duplicate"},
		{"dangling target", func(p *Payload) { p.Connections[0].TargetID = "zzz" }, "connections", 0, "unknown target"},
		{"self loop", func(p *Payload) { p.Connections[0].TargetID = "a" }, "connections", 0, "self-loop"},
		{"missing connection id", func(p *Payload) { p.Connections[0].ID = "" }, "connections", 0, "id is required"},
		{"first of several", func(p *Payload) {
			p.Nodes[0].Type = "idea"
			p.Connections[0].TargetID = "zzz"
		}, "nodes", 0, "type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)

			err := Validate(p)
			require.ErrorIs(t, err, graph.ErrLoadRejected)
			var lerr *graph.Error
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, tc.field, lerr.Field)
			assert.Equal(t, tc.index, lerr.Index)
			assert.Contains(t, lerr.Reason, tc.reason)
		})
	}
}

func TestLoadIsAtomic(t *testing.T) {
	s := graph.NewStore()
	require.NoError(t, Load(s, validPayload()))
	require.Equal(t, 2, s.NodeCount())
	before := s.Snapshot()

	bad := validPayload()
	bad.Nodes = append(bad.Nodes, NodeDoc{ID: "x", Type: graph.TypeNote})
	assert.ErrorIs(t, Load(s, bad), graph.ErrLoadRejected)
	assert.Equal(t, before, s.Snapshot())
}

func TestExportRejectsUnloadableGraph(t *testing.T) {
	s := graph.NewStore()
	n, err := s.AddNode(graph.TypeGoal, graph.Position{X: 10, Y: 10})
	require.NoError(t, err)

	_, err = Export(s)
	var gerr *graph.Error
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, graph.ErrLoadRejected)
	assert.Equal(t, "nodes", gerr.Field)
	assert.Equal(t, n.ID, gerr.ID)
}

func TestExportRoundTrip(t *testing.T) {
	p, err := Decode([]byte(samplePlan), FormatJSON)
	require.NoError(t, err)

	s := graph.NewStore()
	require.NoError(t, Load(s, p))

	out, err := Export(s)
	require.NoError(t, err)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "g", out.Nodes[0].ID)
	assert.Equal(t, graph.DefaultNodeWidth, out.Nodes[0].Width, "default size filled in")
	assert.Equal(t, graph.DefaultNodeHeightExtended, out.Nodes[0].Height)
	assert.Equal(t, p.Nodes[1], out.Nodes[1])
	assert.Equal(t, p.Connections, out.Connections)

	data, err := Encode(out, FormatYAML)
	require.NoError(t, err)
	again, err := Decode(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

// =============================================================================
// Templates
// =============================================================================

func TestBuiltinTemplatesInstantiate(t *testing.T) {
	today := time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)
	for _, tmpl := range Builtin() {
		t.Run(tmpl.Key, func(t *testing.T) {
			p, err := Instantiate(tmpl, today)
			require.NoError(t, err)
			assert.Len(t, p.Nodes, len(tmpl.Nodes))
			assert.Len(t, p.Connections, len(tmpl.Links))
			require.NoError(t, Validate(p))

			s := graph.NewStore()
			require.NoError(t, Load(s, p))
		})
	}
}

func TestInstantiateIsDeterministicButFresh(t *testing.T) {
	tmpl, ok := Lookup("career-switch")
	require.True(t, ok)
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	a, err := Instantiate(tmpl, today)
	require.NoError(t, err)
	b, err := Instantiate(tmpl, today)
	require.NoError(t, err)

	for i := range a.Nodes {
		assert.NotEqual(t, a.Nodes[i].ID, b.Nodes[i].ID)
		x, y := a.Nodes[i], b.Nodes[i]
		x.ID, y.ID = "", ""
		assert.Equal(t, x, y)
	}
	for i := range a.Connections {
		assert.NotEqual(t, a.Connections[i].ID, b.Connections[i].ID)
		assert.Equal(t, a.Connections[i].Label, b.Connections[i].Label)
	}

	assert.Equal(t, "2027-04-16", a.Nodes[0].Data.DueDate, "goal due in 180 days")
	assert.Equal(t, "", a.Nodes[2].Data.DueDate)
	assert.Equal(t, graph.Position{X: 80 + 3*300, Y: 80 + 150}, a.Nodes[0].Position)
}

func TestInstantiateRejectsBrokenTemplate(t *testing.T) {
	_, err := Instantiate(Template{
		Key:   "broken",
		Nodes: []TemplateNode{{Key: "a", Type: graph.TypeGoal, Title: "A"}},
		Links: []TemplateLink{{From: "a", To: "missing"}},
	}, time.Now())
	assert.Error(t, err)

	_, err = Instantiate(Template{
		Key:   "dup",
		Nodes: []TemplateNode{{Key: "a", Type: graph.TypeGoal, Title: "A"}, {Key: "a", Type: graph.TypeTask, Title: "B"}},
	}, time.Now())
	assert.Error(t, err)

	_, ok := Lookup("nope")
	assert.False(t, ok)
}
