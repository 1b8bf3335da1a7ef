// Package render derives a drawable scene from graph state and a viewport.
// It never mutates either; the shell paints the scene and forwards gestures
// to the interaction controller.
package render

import (
	"math"

	"github.com/kittclouds/plankitt/pkg/geometry"
	"github.com/kittclouds/plankitt/pkg/graph"
)

// GridSize is the default world-space spacing of background grid lines.
const GridSize = 20.0

// CanvasMargin is added past the furthest node when sizing the canvas.
const CanvasMargin = 200.0

// Input is everything a frame depends on. Nodes is the visible set, which
// may be a filtered subset of the store; Connections is always the full list.
type Input struct {
	Nodes       []graph.Node
	Connections []graph.Connection
	Selection   graph.Selection
	Viewport    geometry.Viewport
	ViewSize    geometry.Point
	Preview     *geometry.Line
}

// Grid describes the background grid in screen space.
type Grid struct {
	Spacing float64        `json:"spacing"`
	Phase   geometry.Point `json:"phase"`
}

// Edge is a drawable connection in world space.
type Edge struct {
	ID       string          `json:"id"`
	SourceID string          `json:"sourceId"`
	TargetID string          `json:"targetId"`
	Path     geometry.Bezier `json:"-"`
	D        string          `json:"d"`
	Label    string          `json:"label,omitempty"`
	LabelAt  geometry.Point  `json:"labelAt"`
	Selected bool            `json:"selected"`
}

// Card is a drawable node in world space.
type Card struct {
	ID          string         `json:"id"`
	Type        graph.NodeType `json:"type"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Fill        string         `json:"fill"`
	Stroke      string         `json:"stroke"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	DueDate     string         `json:"dueDate,omitempty"`
	Priority    graph.Priority `json:"priority,omitempty"`
	Completed   bool           `json:"completed"`
	Selected    bool           `json:"selected"`
	Handle      geometry.Point `json:"handle"`
}

// Scene is one rendered frame. Edges and Cards are in world coordinates and
// are drawn inside Transform; Grid is in screen coordinates.
type Scene struct {
	Transform geometry.Viewport `json:"transform"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Grid      Grid              `json:"grid"`
	Edges     []Edge            `json:"edges"`
	Cards     []Card            `json:"cards"`
	Preview   *geometry.Line    `json:"preview,omitempty"`
	Skipped   int               `json:"skipped"`
}

// Renderer turns Input into a Scene using a theme.
type Renderer struct {
	theme    Theme
	gridSize float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithGridSize overrides the world-space grid spacing.
func WithGridSize(size float64) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.gridSize = size
		}
	}
}

// New creates a renderer.
func New(theme Theme, opts ...Option) *Renderer {
	r := &Renderer{theme: theme, gridSize: GridSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render builds a frame. Connections with an endpoint outside the visible
// node set are skipped and counted.
func (r *Renderer) Render(in Input) Scene {
	scale := in.Viewport.Scale
	if scale <= 0 {
		scale = 1
	}

	sc := Scene{
		Transform: in.Viewport,
		Grid:      grid(in.Viewport, r.gridSize),
		Edges:     make([]Edge, 0, len(in.Connections)),
		Cards:     make([]Card, 0, len(in.Nodes)),
		Preview:   in.Preview,
	}

	visible := make(map[string]graph.Node, len(in.Nodes))
	var b geometry.Bounds
	for _, n := range in.Nodes {
		visible[n.ID] = n
		b.Extend(n.Bounds())
	}

	for _, c := range in.Connections {
		src, ok1 := visible[c.SourceID]
		dst, ok2 := visible[c.TargetID]
		if !ok1 || !ok2 {
			sc.Skipped++
			continue
		}
		path := geometry.EdgePath(src.Center(), dst.Center())
		sc.Edges = append(sc.Edges, Edge{
			ID:       c.ID,
			SourceID: c.SourceID,
			TargetID: c.TargetID,
			Path:     path,
			D:        path.SVG(),
			Label:    c.Label,
			LabelAt:  path.Midpoint(),
			Selected: c.ID == in.Selection.ConnectionID,
		})
	}

	for _, n := range in.Nodes {
		style := r.theme.Style(n.Type)
		sc.Cards = append(sc.Cards, Card{
			ID:          n.ID,
			Type:        n.Type,
			X:           n.Position.X,
			Y:           n.Position.Y,
			Width:       n.Width,
			Height:      n.Height,
			Fill:        style.Fill,
			Stroke:      style.Stroke,
			Title:       n.Data.Title,
			Description: n.Data.Description,
			DueDate:     n.Data.DueDate,
			Priority:    n.Data.Priority,
			Completed:   n.Data.Completed,
			Selected:    n.ID == in.Selection.NodeID,
			Handle:      n.Handle().Center,
		})
	}

	sc.Width = 2 * in.ViewSize.X / scale
	sc.Height = 2 * in.ViewSize.Y / scale
	if !b.Empty() {
		sc.Width = math.Max(sc.Width, b.MaxX+CanvasMargin)
		sc.Height = math.Max(sc.Height, b.MaxY+CanvasMargin)
	}
	return sc
}

// grid computes screen-space spacing and phase so the lines track the pan.
func grid(v geometry.Viewport, size float64) Grid {
	spacing := size * v.Scale
	if spacing <= 0 {
		return Grid{}
	}
	return Grid{
		Spacing: spacing,
		Phase:   geometry.Point{X: mod(v.Offset.X, spacing), Y: mod(v.Offset.Y, spacing)},
	}
}

func mod(a, m float64) float64 {
	r := math.Mod(a, m)
	if r < 0 {
		r += m
	}
	return r
}
