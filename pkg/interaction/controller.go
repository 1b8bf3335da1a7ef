package interaction

import (
	"github.com/kittclouds/plankitt/pkg/geometry"
	"github.com/kittclouds/plankitt/pkg/graph"
	"go.uber.org/zap"
)

// Controller drives one canvas. It owns the viewport; the graph store owns
// nodes, connections, selection and the active mode.
type Controller struct {
	store  *graph.Store
	limits geometry.Limits
	log    *zap.Logger

	viewport geometry.Viewport
	size     geometry.Point // visible canvas width/height in screen px

	anchor  geometry.Point // last pointer position during pan/drag (screen)
	pointer geometry.Point // live pointer position while connecting (world)
}

// New creates a controller over store.
func New(store *graph.Store, limits geometry.Limits, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:    store,
		limits:   limits,
		log:      log,
		viewport: geometry.DefaultViewport(),
	}
}

// Viewport returns the current viewport.
func (c *Controller) Viewport() geometry.Viewport { return c.viewport }

// SetViewport replaces the viewport, clamping its scale.
func (c *Controller) SetViewport(v geometry.Viewport) {
	v.Scale = geometry.Clamp(v.Scale, c.limits.MinScale, c.limits.MaxScale)
	c.viewport = v
}

// ResetViewport restores scale 1 with no pan.
func (c *Controller) ResetViewport() {
	c.viewport = geometry.DefaultViewport()
}

// SetViewportSize records the visible canvas size, used for keyboard zoom.
func (c *Controller) SetViewportSize(width, height float64) {
	c.size = geometry.Point{X: width, Y: height}
}

// ViewportSize returns the visible canvas size.
func (c *Controller) ViewportSize() geometry.Point { return c.size }

// Mode returns the active mode.
func (c *Controller) Mode() graph.Mode { return c.store.Mode() }

// ConnectPreview returns the live connect line in world coordinates, from the
// source node's handle to the pointer. ok is false outside Connecting.
func (c *Controller) ConnectPreview() (line geometry.Line, ok bool) {
	m := c.store.Mode()
	if m.Kind != graph.ModeConnecting {
		return geometry.Line{}, false
	}
	src, found := c.store.Node(m.NodeID)
	if !found {
		return geometry.Line{}, false
	}
	return geometry.Line{From: src.Handle().Center, To: c.pointer}, true
}

// HitTest resolves a screen point against the nodes in draw order. The last
// (topmost) node under the point wins; within a node its connect handle
// takes precedence over its body.
func (c *Controller) HitTest(screen geometry.Point) Target {
	world := geometry.ScreenToWorld(screen, c.viewport)
	nodes := c.store.Nodes()

	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Handle().Contains(world) {
			return Target{Kind: TargetHandle, NodeID: nodes[i].ID}
		}
		if nodes[i].Bounds().Contains(world) {
			return Target{Kind: TargetNode, NodeID: nodes[i].ID}
		}
	}
	return Target{Kind: TargetCanvas}
}

// =============================================================================
// Pointer
// =============================================================================

// PointerDown starts a gesture. Presses arriving mid-gesture are ignored.
func (c *Controller) PointerDown(e PointerEvent) error {
	if !c.store.Mode().IsIdle() {
		return nil
	}

	p := e.Point()
	hit := c.HitTest(p)

	switch hit.Kind {
	case TargetHandle:
		if e.Button != ButtonLeft {
			return nil
		}
		c.pointer = geometry.ScreenToWorld(p, c.viewport)
		return c.enter(graph.Connecting(hit.NodeID))

	case TargetNode:
		if e.Button != ButtonLeft {
			return nil
		}
		if err := c.store.SelectNode(hit.NodeID); err != nil {
			return err
		}
		c.anchor = p
		return c.enter(graph.DraggingNode(hit.NodeID))

	default:
		if e.Button == ButtonMiddle || (e.Button == ButtonLeft && e.Modifiers.pans()) {
			c.anchor = p
			return c.enter(graph.Panning())
		}
		if e.Button == ButtonLeft {
			c.store.ClearSelection()
		}
		return nil
	}
}

// PointerMove advances the active gesture.
func (c *Controller) PointerMove(e PointerEvent) error {
	p := e.Point()
	m := c.store.Mode()

	switch m.Kind {
	case graph.ModePanning:
		c.viewport = geometry.Pan(c.viewport, p.X-c.anchor.X, p.Y-c.anchor.Y)
		c.anchor = p

	case graph.ModeDraggingNode:
		return c.drag(m.NodeID, p)

	case graph.ModeConnecting:
		c.pointer = geometry.ScreenToWorld(p, c.viewport)
	}
	return nil
}

// PointerUp ends the active gesture. A connect gesture released over another
// node creates the connection; a rejected connection is returned so the
// shell can show it, and the mode still returns to Idle.
func (c *Controller) PointerUp(e PointerEvent) error {
	p := e.Point()
	m := c.store.Mode()

	switch m.Kind {
	case graph.ModePanning:
		c.leave(m)

	case graph.ModeDraggingNode:
		err := c.drag(m.NodeID, p)
		c.leave(m)
		return err

	case graph.ModeConnecting:
		c.leave(m)
		hit := c.HitTest(p)
		if hit.Kind == TargetCanvas || hit.NodeID == m.NodeID {
			c.log.Debug("connect cancelled", zap.String("source", m.NodeID))
			return nil
		}
		conn, err := c.store.AddConnection(m.NodeID, hit.NodeID, "")
		if err != nil {
			c.log.Info("connection rejected", zap.Error(err))
			return err
		}
		c.log.Debug("connected", zap.String("id", conn.ID))
	}
	return nil
}

// drag moves the dragged node by the pointer delta since the last event.
func (c *Controller) drag(id string, p geometry.Point) error {
	delta := geometry.ScreenDeltaToWorld(p.X-c.anchor.X, p.Y-c.anchor.Y, c.viewport)
	c.anchor = p
	if delta.X == 0 && delta.Y == 0 {
		return nil
	}

	n, ok := c.store.Node(id)
	if !ok {
		c.store.ResetMode()
		return nil
	}
	err := c.store.MoveNode(id, n.Position.Add(delta))
	if graph.IsNotFound(err) {
		c.store.ResetMode()
		return nil
	}
	return err
}

// =============================================================================
// Wheel & keyboard
// =============================================================================

// Wheel zooms one step about the cursor.
func (c *Controller) Wheel(e WheelEvent) {
	switch {
	case e.DeltaY < 0:
		c.zoom(1, geometry.Point{X: e.X, Y: e.Y})
	case e.DeltaY > 0:
		c.zoom(-1, geometry.Point{X: e.X, Y: e.Y})
	}
}

// ZoomIn zooms one step about the viewport centre.
func (c *Controller) ZoomIn() { c.zoom(1, c.center()) }

// ZoomOut zooms out one step about the viewport centre.
func (c *Controller) ZoomOut() { c.zoom(-1, c.center()) }

func (c *Controller) zoom(delta float64, at geometry.Point) {
	c.viewport = geometry.ZoomAt(c.viewport, delta, at, c.limits)
}

func (c *Controller) center() geometry.Point {
	return geometry.Point{X: c.size.X / 2, Y: c.size.Y / 2}
}

// Key handles keyboard shortcuts.
func (c *Controller) Key(e KeyEvent) error {
	if e.InEditable {
		return nil
	}

	switch e.Key {
	case "Delete", "Backspace":
		return c.DeleteSelection()
	case "Escape":
		c.Cancel()
	case "+", "=":
		c.ZoomIn()
	case "-", "_":
		c.ZoomOut()
	case "0":
		c.ResetViewport()
	}
	return nil
}

// Cancel abandons any gesture and clears the selection.
func (c *Controller) Cancel() {
	if m := c.store.Mode(); !m.IsIdle() {
		c.leave(m)
	}
	c.store.ClearSelection()
}

// DeleteSelection removes the selected node or connection. Deleting
// something already gone is a no-op.
func (c *Controller) DeleteSelection() error {
	sel := c.store.Selection()

	var err error
	switch {
	case sel.NodeID != "":
		err = c.store.DeleteNode(sel.NodeID)
	case sel.ConnectionID != "":
		err = c.store.DeleteConnection(sel.ConnectionID)
	default:
		return nil
	}
	if graph.IsNotFound(err) {
		c.log.Debug("delete of missing entity ignored", zap.Error(err))
		return nil
	}
	return err
}

// =============================================================================
// Mode bookkeeping
// =============================================================================

func (c *Controller) enter(m graph.Mode) error {
	if err := c.store.EnterMode(m); err != nil {
		return err
	}
	c.log.Debug("mode", zap.Stringer("to", m))
	return nil
}

func (c *Controller) leave(from graph.Mode) {
	c.store.ResetMode()
	c.log.Debug("mode", zap.Stringer("from", from), zap.String("to", "idle"))
}
