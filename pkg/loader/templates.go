package loader

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/plankitt/pkg/graph"
)

// Template layout grid, in world units.
const (
	originX       = 80.0
	originY       = 80.0
	columnSpacing = 300.0
	rowSpacing    = 150.0
)

// TemplateNode is one node of a template. DueInDays is relative to the day
// the template is applied; zero means no due date.
type TemplateNode struct {
	Key         string         `json:"key" yaml:"key"`
	Type        graph.NodeType `json:"type" yaml:"type"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    graph.Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueInDays   int            `json:"dueInDays,omitempty" yaml:"dueInDays,omitempty"`
	Column      int            `json:"column" yaml:"column"`
	Row         int            `json:"row" yaml:"row"`
}

// TemplateLink connects two template nodes by key.
type TemplateLink struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Template is a parameterised starter plan.
type Template struct {
	Key         string         `json:"key" yaml:"key"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Nodes       []TemplateNode `json:"nodes" yaml:"nodes"`
	Links       []TemplateLink `json:"links" yaml:"links"`
}

// Instantiate turns a template into a document. Due dates are computed from
// today; every call mints fresh ids, so applying a template twice yields
// equal structure with distinct ids.
func Instantiate(t Template, today time.Time) (Payload, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	ids := make(map[string]string, len(t.Nodes))

	p := Payload{
		Nodes:       make([]NodeDoc, 0, len(t.Nodes)),
		Connections: make([]ConnectionDoc, 0, len(t.Links)),
	}

	for _, tn := range t.Nodes {
		if _, dup := ids[tn.Key]; dup {
			return Payload{}, fmt.Errorf("template %s: duplicate node key %q", t.Key, tn.Key)
		}
		id := uuid.NewString()
		ids[tn.Key] = id

		data := DataDoc{
			Title:       tn.Title,
			Description: tn.Description,
			Priority:    tn.Priority,
		}
		if tn.DueInDays != 0 {
			data.DueDate = day.AddDate(0, 0, tn.DueInDays).Format(graph.DateLayout)
		}
		w, h := graph.DefaultSize(graph.NodeData{DueDate: data.DueDate, Priority: data.Priority})

		p.Nodes = append(p.Nodes, NodeDoc{
			ID:   id,
			Type: tn.Type,
			Position: graph.Position{
				X: originX + float64(tn.Column)*columnSpacing,
				Y: originY + float64(tn.Row)*rowSpacing,
			},
			Width:  w,
			Height: h,
			Data:   data,
		})
	}

	for _, l := range t.Links {
		from, ok1 := ids[l.From]
		to, ok2 := ids[l.To]
		if !ok1 || !ok2 {
			return Payload{}, fmt.Errorf("template %s: link %s -> %s references an unknown key", t.Key, l.From, l.To)
		}
		p.Connections = append(p.Connections, ConnectionDoc{
			ID:       uuid.NewString(),
			SourceID: from,
			TargetID: to,
			Label:    l.Label,
		})
	}

	if err := Validate(p); err != nil {
		return Payload{}, fmt.Errorf("template %s: %w", t.Key, err)
	}
	return p, nil
}

// Lookup finds a built-in template by key.
func Lookup(key string) (Template, bool) {
	for _, t := range Builtin() {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}

// Builtin returns the shipped templates, sorted by key.
func Builtin() []Template {
	ts := []Template{
		{
			Key:         "career-switch",
			Name:        "Career switch",
			Description: "Move into a new field: learn, build proof, then apply.",
			Nodes: []TemplateNode{
				{Key: "goal", Type: graph.TypeGoal, Title: "Land a role in the new field", Priority: graph.PriorityHigh, DueInDays: 180, Column: 3, Row: 1},
				{Key: "learn", Type: graph.TypeMilestone, Title: "Fundamentals covered", DueInDays: 60, Column: 1, Row: 0},
				{Key: "course", Type: graph.TypeResource, Title: "Pick a structured course", Column: 0, Row: 0},
				{Key: "portfolio", Type: graph.TypeMilestone, Title: "Portfolio with three projects", DueInDays: 120, Column: 2, Row: 1},
				{Key: "project", Type: graph.TypeTask, Title: "Build first project", Priority: graph.PriorityMedium, DueInDays: 90, Column: 1, Row: 1},
				{Key: "network", Type: graph.TypeTask, Title: "Reach out to five people in the field", Priority: graph.PriorityMedium, DueInDays: 30, Column: 1, Row: 2},
				{Key: "notes", Type: graph.TypeNote, Title: "Why this switch", Description: "Motivation and constraints", Column: 0, Row: 2},
			},
			Links: []TemplateLink{
				{From: "course", To: "learn", Label: "supports"},
				{From: "learn", To: "portfolio"},
				{From: "project", To: "portfolio"},
				{From: "portfolio", To: "goal", Label: "leads to"},
				{From: "network", To: "goal", Label: "leads to"},
			},
		},
		{
			Key:         "promotion",
			Name:        "Promotion",
			Description: "Grow into the next level in your current role.",
			Nodes: []TemplateNode{
				{Key: "goal", Type: graph.TypeGoal, Title: "Promotion to the next level", Priority: graph.PriorityHigh, DueInDays: 365, Column: 2, Row: 1},
				{Key: "expectations", Type: graph.TypeTask, Title: "Agree on expectations with manager", Priority: graph.PriorityHigh, DueInDays: 14, Column: 0, Row: 0},
				{Key: "scope", Type: graph.TypeMilestone, Title: "Lead a cross-team project", DueInDays: 180, Column: 1, Row: 1},
				{Key: "mentor", Type: graph.TypeResource, Title: "Find a mentor one level up", Column: 0, Row: 2},
				{Key: "review", Type: graph.TypeMilestone, Title: "Mid-year review", DueInDays: 182, Column: 1, Row: 2},
			},
			Links: []TemplateLink{
				{From: "expectations", To: "scope"},
				{From: "mentor", To: "scope", Label: "supports"},
				{From: "scope", To: "goal", Label: "leads to"},
				{From: "review", To: "goal"},
			},
		},
		{
			Key:         "skill",
			Name:        "Learn a skill",
			Description: "A single skill broken into practice steps.",
			Nodes: []TemplateNode{
				{Key: "goal", Type: graph.TypeGoal, Title: "Be productive with the skill", DueInDays: 90, Column: 2, Row: 0},
				{Key: "basics", Type: graph.TypeTask, Title: "Work through the basics", DueInDays: 21, Column: 0, Row: 0},
				{Key: "practice", Type: graph.TypeTask, Title: "Practice weekly", Priority: graph.PriorityLow, Column: 1, Row: 0},
				{Key: "book", Type: graph.TypeResource, Title: "Reference book", Column: 0, Row: 1},
			},
			Links: []TemplateLink{
				{From: "basics", To: "practice"},
				{From: "book", To: "basics", Label: "supports"},
				{From: "practice", To: "goal"},
			},
		},
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Key < ts[j].Key })
	return ts
}
