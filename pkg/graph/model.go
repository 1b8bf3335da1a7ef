// Package graph is the canonical in-memory model of a career plan: typed
// nodes on a 2D canvas joined by directed, labelled connections.
package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/plankitt/pkg/geometry"
)

// NodeType is the fixed set of node kinds.
type NodeType string

const (
	TypeGoal      NodeType = "goal"
	TypeMilestone NodeType = "milestone"
	TypeTask      NodeType = "task"
	TypeResource  NodeType = "resource"
	TypeNote      NodeType = "note"
)

// NodeTypes lists every type in toolbar order.
var NodeTypes = []NodeType{TypeGoal, TypeMilestone, TypeTask, TypeResource, TypeNote}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case TypeGoal, TypeMilestone, TypeTask, TypeResource, TypeNote:
		return true
	}
	return false
}

// ParseNodeType parses a node type, case-insensitively.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// Priority is an optional node priority.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is unset or one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DateLayout is the format of NodeData.DueDate.
const DateLayout = "2006-01-02"

// Position is a node's top-left corner in world coordinates.
type Position = geometry.Point

// NodeData is the user-editable content of a node.
type NodeData struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Priority    Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Completed   bool     `json:"completed" yaml:"completed"`
}

// Due parses DueDate. ok is false when no valid date is set.
func (d NodeData) Due() (t time.Time, ok bool) {
	if d.DueDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, d.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Node is a typed, positioned entity on the canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Data     NodeData `json:"data"`
}

// Bounds is the node's box in world space.
func (n Node) Bounds() geometry.Rect {
	return geometry.Rect{X: n.Position.X, Y: n.Position.Y, Width: n.Width, Height: n.Height}
}

// Center is the anchor point edges attach to.
func (n Node) Center() geometry.Point {
	return n.Bounds().Center()
}

// HandleRadius is the radius of the connect handle, in world units.
const HandleRadius = 8.0

// Handle is the connect handle on the node's right edge.
func (n Node) Handle() geometry.Circle {
	return geometry.Circle{
		Center: geometry.Point{X: n.Position.X + n.Width, Y: n.Position.Y + n.Height/2},
		Radius: HandleRadius,
	}
}

// Sizes used for new nodes.
const (
	DefaultNodeWidth          = 200.0
	DefaultNodeHeight         = 80.0
	DefaultNodeHeightExtended = 110.0
)

// Sizing controls the default node box.
type Sizing struct {
	Width          float64
	Height         float64
	ExtendedHeight float64
}

// DefaultSizing returns the stock node dimensions.
func DefaultSizing() Sizing {
	return Sizing{Width: DefaultNodeWidth, Height: DefaultNodeHeight, ExtendedHeight: DefaultNodeHeightExtended}
}

// Size returns the box for a node carrying d. Nodes showing a priority or a
// due date get the taller card.
func (s Sizing) Size(d NodeData) (width, height float64) {
	if d.Priority != PriorityNone || d.DueDate != "" {
		return s.Width, s.ExtendedHeight
	}
	return s.Width, s.Height
}

// DefaultSize is DefaultSizing().Size(d).
func DefaultSize(d NodeData) (width, height float64) {
	return DefaultSizing().Size(d)
}

// Connection is a directed edge between two nodes, by id.
type Connection struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Label    string `json:"label,omitempty"`
}

// Plan is the persisted aggregate.
type Plan struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
}

// NodePatch is a field-level update. Nil fields are left alone.
type NodePatch struct {
	Position    *Position `json:"position,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// touchesSize reports whether the patch changes fields that drive the default size.
func (p NodePatch) touchesSize() bool {
	return p.DueDate != nil || p.Priority != nil
}

func (p NodePatch) apply(n *Node) {
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Title != nil {
		n.Data.Title = *p.Title
	}
	if p.Description != nil {
		n.Data.Description = *p.Description
	}
	if p.DueDate != nil {
		n.Data.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		n.Data.Priority = *p.Priority
	}
	if p.Completed != nil {
		n.Data.Completed = *p.Completed
	}
	if p.Width != nil && *p.Width > 0 {
		n.Width = *p.Width
	}
	if p.Height != nil && *p.Height > 0 {
		n.Height = *p.Height
	}
}
