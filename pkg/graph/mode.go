package graph

import "fmt"

// ModeKind names an interaction mode.
type ModeKind int

const (
	ModeIdle ModeKind = iota
	ModePanning
	ModeDraggingNode
	ModeConnecting
)

func (k ModeKind) String() string {
	names := []string{"idle", "panning", "dragging", "connecting"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// MarshalText encodes the mode kind by name.
func (k ModeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Mode is the single active interaction mode. NodeID is set for
// DraggingNode (the dragged node) and Connecting (the source node).
type Mode struct {
	Kind   ModeKind `json:"kind"`
	NodeID string   `json:"nodeId,omitempty"`
}

// Idle is the resting mode.
func Idle() Mode { return Mode{Kind: ModeIdle} }

// Panning is the canvas pan mode.
func Panning() Mode { return Mode{Kind: ModePanning} }

// DraggingNode is the node drag mode.
func DraggingNode(id string) Mode { return Mode{Kind: ModeDraggingNode, NodeID: id} }

// Connecting is the connect gesture from source id.
func Connecting(id string) Mode { return Mode{Kind: ModeConnecting, NodeID: id} }

func (m Mode) String() string {
	if m.NodeID == "" {
		return m.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", m.Kind, m.NodeID)
}

// IsIdle reports whether no gesture is active.
func (m Mode) IsIdle() bool { return m.Kind == ModeIdle }
