package render

import "github.com/kittclouds/plankitt/pkg/graph"

// Style is the colouring of one node type.
type Style struct {
	Fill   string `json:"fill" toml:"fill" validate:"required,hexcolor"`
	Stroke string `json:"stroke" toml:"stroke" validate:"required,hexcolor"`
}

// Theme maps node types to styles.
type Theme map[graph.NodeType]Style

var fallback = Style{Fill: "#f3f4f6", Stroke: "#6b7280"}

// DefaultTheme is the stock palette.
func DefaultTheme() Theme {
	return Theme{
		graph.TypeGoal:      {Fill: "#ede9fe", Stroke: "#7c3aed"},
		graph.TypeMilestone: {Fill: "#fef3c7", Stroke: "#d97706"},
		graph.TypeTask:      {Fill: "#dbeafe", Stroke: "#2563eb"},
		graph.TypeResource:  {Fill: "#dcfce7", Stroke: "#16a34a"},
		graph.TypeNote:      {Fill: "#f3f4f6", Stroke: "#6b7280"},
	}
}

// Style returns the style for t, falling back to a neutral grey.
func (th Theme) Style(t graph.NodeType) Style {
	if s, ok := th[t]; ok {
		return s
	}
	return fallback
}
