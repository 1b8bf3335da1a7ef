package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store owns the nodes and connections of one open plan, plus the current
// selection and interaction mode. Nodes live in an arena keyed by id;
// connections reference them by id only.
//
// All reads return copies; the only way to change state is through the
// mutation methods, which keep the invariants:
//   - node ids and connection ids are unique
//   - every connection's endpoints exist (deleting a node cascades)
//   - at most one of selected node / selected connection is set
//   - the mode never refers to a node that no longer exists
type Store struct {
	mu sync.RWMutex

	nodes map[string]*Node
	order []string // draw order; last is topmost

	conns     map[string]*Connection
	connOrder []string

	// Adjacency: NodeID -> set of connection ids
	outbound map[string]map[string]struct{}
	inbound  map[string]map[string]struct{}

	selectedNode string
	selectedConn string
	mode         Mode
	revision     uint64

	sizing Sizing
	newID  func() string
	log    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSizing overrides the default node dimensions.
func WithSizing(sz Sizing) Option {
	return func(s *Store) { s.sizing = sz }
}

// WithIDGenerator overrides id generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sizing: DefaultSizing(),
		newID:  func() string { return uuid.New().String() },
		log:    zap.NewNop(),
	}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// reset empties the graph. Caller holds the lock.
func (s *Store) reset() {
	s.nodes = make(map[string]*Node)
	s.order = nil
	s.conns = make(map[string]*Connection)
	s.connOrder = nil
	s.outbound = make(map[string]map[string]struct{})
	s.inbound = make(map[string]map[string]struct{})
	s.selectedNode = ""
	s.selectedConn = ""
	s.mode = Idle()
}

func (s *Store) bump() { s.revision++ }

// =============================================================================
// Nodes
// =============================================================================

// AddNode creates a node of type t at pos with an empty title and the default
// size, and selects it. It fails only for an unknown type.
func (s *Store) AddNode(t NodeType, pos Position) (Node, error) {
	if !t.Valid() {
		return Node{}, fmt.Errorf("unknown node type %q", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Node{ID: s.newID(), Type: t, Position: pos}
	n.Width, n.Height = s.sizing.Size(n.Data)

	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	s.selectedNode = n.ID
	s.selectedConn = ""
	s.bump()

	s.log.Debug("node added", zap.String("id", n.ID), zap.String("type", string(t)))
	return *n, nil
}

// UpdateNode merges patch into the node. Blank titles must be rejected by the
// caller before reaching the store.
func (s *Store) UpdateNode(id string, patch NodePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return notFound("node", id)
	}

	patch.apply(n)
	if patch.touchesSize() && patch.Width == nil && patch.Height == nil {
		n.Width, n.Height = s.sizing.Size(n.Data)
	}
	s.bump()
	return nil
}

// MoveNode sets a node's position.
func (s *Store) MoveNode(id string, pos Position) error {
	return s.UpdateNode(id, NodePatch{Position: &pos})
}

// DeleteNode removes the node and every connection touching it.
func (s *Store) DeleteNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return notFound("node", id)
	}

	cascade := make([]string, 0, len(s.outbound[id])+len(s.inbound[id]))
	for cid := range s.outbound[id] {
		cascade = append(cascade, cid)
	}
	for cid := range s.inbound[id] {
		cascade = append(cascade, cid)
	}
	for _, cid := range cascade {
		s.removeConnection(cid)
	}

	delete(s.nodes, id)
	delete(s.outbound, id)
	delete(s.inbound, id)
	s.order = removeID(s.order, id)

	if s.selectedNode == id {
		s.selectedNode = ""
	}
	if s.mode.NodeID == id {
		s.mode = Idle()
	}
	s.bump()

	s.log.Debug("node deleted", zap.String("id", id), zap.Int("cascaded", len(cascade)))
	return nil
}

// =============================================================================
// Connections
// =============================================================================

// AddConnection links source to target. Self-loops and unknown endpoints
// are rejected. Several connections between the same pair are allowed.
func (s *Store) AddConnection(sourceID, targetID, label string) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sourceID == targetID {
		return Connection{}, rejectConnection(sourceID, "a node cannot connect to itself")
	}
	if _, ok := s.nodes[sourceID]; !ok {
		return Connection{}, rejectConnection(sourceID, "source node does not exist")
	}
	if _, ok := s.nodes[targetID]; !ok {
		return Connection{}, rejectConnection(targetID, "target node does not exist")
	}

	c := &Connection{ID: s.newID(), SourceID: sourceID, TargetID: targetID, Label: label}
	s.insertConnection(c)
	s.bump()

	s.log.Debug("connection added",
		zap.String("id", c.ID), zap.String("source", sourceID), zap.String("target", targetID))
	return *c, nil
}

// UpdateConnectionLabel changes a connection's label.
func (s *Store) UpdateConnectionLabel(id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return notFound("connection", id)
	}
	c.Label = label
	s.bump()
	return nil
}

// DeleteConnection removes a connection.
func (s *Store) DeleteConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return notFound("connection", id)
	}
	s.removeConnection(id)
	s.bump()
	return nil
}

// insertConnection adds c and its adjacency entries. Caller holds the lock.
func (s *Store) insertConnection(c *Connection) {
	s.conns[c.ID] = c
	s.connOrder = append(s.connOrder, c.ID)

	if s.outbound[c.SourceID] == nil {
		s.outbound[c.SourceID] = make(map[string]struct{})
	}
	s.outbound[c.SourceID][c.ID] = struct{}{}

	// Maintain reverse index
	if s.inbound[c.TargetID] == nil {
		s.inbound[c.TargetID] = make(map[string]struct{})
	}
	s.inbound[c.TargetID][c.ID] = struct{}{}
}

// removeConnection drops a connection and its adjacency entries. Caller holds the lock.
func (s *Store) removeConnection(id string) {
	c, ok := s.conns[id]
	if !ok {
		return
	}
	delete(s.outbound[c.SourceID], id)
	delete(s.inbound[c.TargetID], id)
	delete(s.conns, id)
	s.connOrder = removeID(s.connOrder, id)
	if s.selectedConn == id {
		s.selectedConn = ""
	}
}

// =============================================================================
// Selection & mode
// =============================================================================

// Selection is the current selection; at most one field is set.
type Selection struct {
	NodeID       string `json:"selectedNodeId,omitempty"`
	ConnectionID string `json:"selectedConnectionId,omitempty"`
}

// SelectNode selects a node, clearing any selected connection. An empty id
// clears the node selection.
func (s *Store) SelectNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.nodes[id]; !ok {
			return notFound("node", id)
		}
		s.selectedConn = ""
	}
	s.selectedNode = id
	s.bump()
	return nil
}

// SelectConnection selects a connection, clearing any selected node. An empty
// id clears the connection selection.
func (s *Store) SelectConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.conns[id]; !ok {
			return notFound("connection", id)
		}
		s.selectedNode = ""
	}
	s.selectedConn = id
	s.bump()
	return nil
}

// ClearSelection drops both selections.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedNode = ""
	s.selectedConn = ""
	s.bump()
}

// Selection returns the current selection.
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Selection{NodeID: s.selectedNode, ConnectionID: s.selectedConn}
}

// Mode returns the active interaction mode.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// EnterMode starts a gesture. Gestures can only start from Idle, and
// node-bound modes need an existing node.
func (s *Store) EnterMode(m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.IsIdle() {
		s.mode = m
		return nil
	}
	if !s.mode.IsIdle() {
		return fmt.Errorf("cannot enter %s while %s", m, s.mode)
	}
	if m.Kind == ModeDraggingNode || m.Kind == ModeConnecting {
		if _, ok := s.nodes[m.NodeID]; !ok {
			return notFound("node", m.NodeID)
		}
	}
	s.mode = m
	return nil
}

// ResetMode returns to Idle.
func (s *Store) ResetMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Idle()
}

// =============================================================================
// Bulk load
// =============================================================================

// LoadData replaces the whole graph. The incoming set is checked first
// (unique ids, valid types, resolvable endpoints, no self-loops); on failure
// the store keeps its previous state and a LoadRejected error names the first
// violation. Non-positive sizes are replaced by the default size.
func (s *Store) LoadData(nodes []Node, conns []Connection) error {
	nodeSet := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return LoadRejected("nodes", i, "", "node id is required")
		}
		if _, dup := nodeSet[n.ID]; dup {
			return LoadRejected("nodes", i, n.ID, "duplicate node id")
		}
		if !n.Type.Valid() {
			return LoadRejected("nodes", i, n.ID, fmt.Sprintf("unknown node type %q", n.Type))
		}
		nodeSet[n.ID] = struct{}{}
	}

	connSet := make(map[string]struct{}, len(conns))
	for i, c := range conns {
		if c.ID == "" {
			return LoadRejected("connections", i, "", "connection id is required")
		}
		if _, dup := connSet[c.ID]; dup {
			return LoadRejected("connections", i, c.ID, "duplicate connection id")
		}
		if c.SourceID == c.TargetID {
			return LoadRejected("connections", i, c.ID, "connection is a self-loop")
		}
		if _, ok := nodeSet[c.SourceID]; !ok {
			return LoadRejected("connections", i, c.ID, fmt.Sprintf("source node %q does not exist", c.SourceID))
		}
		if _, ok := nodeSet[c.TargetID]; !ok {
			return LoadRejected("connections", i, c.ID, fmt.Sprintf("target node %q does not exist", c.TargetID))
		}
		connSet[c.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for _, n := range nodes {
		copy := n
		if copy.Width <= 0 || copy.Height <= 0 {
			copy.Width, copy.Height = s.sizing.Size(copy.Data)
		}
		s.nodes[copy.ID] = &copy
		s.order = append(s.order, copy.ID)
	}
	for _, c := range conns {
		copy := c
		s.insertConnection(&copy)
	}
	s.bump()

	s.log.Debug("graph loaded", zap.Int("nodes", len(nodes)), zap.Int("connections", len(conns)))
	return nil
}

// ClearCanvas empties the graph.
func (s *Store) ClearCanvas() {
	// An empty payload always validates.
	_ = s.LoadData(nil, nil)
}

// =============================================================================
// Reads
// =============================================================================

// Node returns a copy of the node with id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Connection returns a copy of the connection with id.
func (s *Store) Connection(id string) (Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Nodes returns all nodes in draw order.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodesLocked()
}

func (s *Store) nodesLocked() []Node {
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.nodes[id])
	}
	return out
}

// Connections returns all connections in creation order.
func (s *Store) Connections() []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectionsLocked()
}

func (s *Store) connectionsLocked() []Connection {
	out := make([]Connection, 0, len(s.connOrder))
	for _, id := range s.connOrder {
		out = append(out, *s.conns[id])
	}
	return out
}

// Revision increases on every mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Selection   Selection    `json:"selection"`
	Mode        Mode         `json:"mode"`
	Revision    uint64       `json:"revision"`
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Nodes:       s.nodesLocked(),
		Connections: s.connectionsLocked(),
		Selection:   Selection{NodeID: s.selectedNode, ConnectionID: s.selectedConn},
		Mode:        s.mode,
		Revision:    s.revision,
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
