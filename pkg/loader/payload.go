// Package loader decodes, validates and exports plan documents, and
// instantiates built-in plan templates.
package loader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kittclouds/plankitt/pkg/graph"
	"gopkg.in/yaml.v3"
)

// Payload is the import/export document: {nodes, connections}.
type Payload struct {
	Nodes       []NodeDoc       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionDoc `json:"connections" yaml:"connections"`
}

// NodeDoc is a node as it appears in a document.
type NodeDoc struct {
	ID       string         `json:"id" yaml:"id" validate:"required"`
	Type     graph.NodeType `json:"type" yaml:"type" validate:"required,oneof=goal milestone task resource note"`
	Position graph.Position `json:"position" yaml:"position"`
	Width    float64        `json:"width,omitempty" yaml:"width,omitempty" validate:"gte=0"`
	Height   float64        `json:"height,omitempty" yaml:"height,omitempty" validate:"gte=0"`
	Data     DataDoc        `json:"data" yaml:"data"`
}

// DataDoc is the editable content of a node document.
type DataDoc struct {
	Title       string         `json:"title" yaml:"title" validate:"required"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string         `json:"dueDate,omitempty" yaml:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Priority    graph.Priority `json:"priority,omitempty" yaml:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	Completed   bool           `json:"completed" yaml:"completed"`
}

// ConnectionDoc is a connection as it appears in a document.
type ConnectionDoc struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	SourceID string `json:"sourceId" yaml:"sourceId" validate:"required"`
	TargetID string `json:"targetId" yaml:"targetId" validate:"required"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a document. It does not validate.
func Decode(data []byte, f Format) (Payload, error) {
	var p Payload
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Payload{}, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &p); err != nil {
			return Payload{}, fmt.Errorf("failed to decode json: %w", err)
		}
	default:
		return Payload{}, fmt.Errorf("unsupported format %q", f)
	}
	return p, nil
}

// Encode serialises a document.
func Encode(p Payload, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatJSON, "":
		return json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// Graph converts the document into store entities.
func (p Payload) Graph() ([]graph.Node, []graph.Connection) {
	nodes := make([]graph.Node, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = graph.Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Width:    n.Width,
			Height:   n.Height,
			Data: graph.NodeData{
				Title:       n.Data.Title,
				Description: n.Data.Description,
				DueDate:     n.Data.DueDate,
				Priority:    n.Data.Priority,
				Completed:   n.Data.Completed,
			},
		}
	}
	conns := make([]graph.Connection, len(p.Connections))
	for i, c := range p.Connections {
		conns[i] = graph.Connection(c)
	}
	return nodes, conns
}

// FromGraph builds a document from store entities.
func FromGraph(nodes []graph.Node, conns []graph.Connection) Payload {
	p := Payload{
		Nodes:       make([]NodeDoc, len(nodes)),
		Connections: make([]ConnectionDoc, len(conns)),
	}
	for i, n := range nodes {
		p.Nodes[i] = NodeDoc{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Width:    n.Width,
			Height:   n.Height,
			Data: DataDoc{
				Title:       n.Data.Title,
				Description: n.Data.Description,
				DueDate:     n.Data.DueDate,
				Priority:    n.Data.Priority,
				Completed:   n.Data.Completed,
			},
		}
	}
	for i, c := range conns {
		p.Connections[i] = ConnectionDoc(c)
	}
	return p
}
