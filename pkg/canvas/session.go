// Package canvas wires one open plan together: the graph store, the
// interaction controller, the renderer, the active filter and related-node
// suggestions. It is the single entry point the shell bindings talk to.
package canvas

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kittclouds/plankitt/pkg/filter"
	"github.com/kittclouds/plankitt/pkg/geometry"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/interaction"
	"github.com/kittclouds/plankitt/pkg/loader"
	"github.com/kittclouds/plankitt/pkg/render"
	"github.com/kittclouds/plankitt/pkg/vector"
	"go.uber.org/zap"
)

var (
	// ErrStaleLoad is returned when a load completes after a newer one began.
	ErrStaleLoad = errors.New("load superseded by a newer load")
	// ErrBlankTitle rejects an update that would leave a node untitled.
	ErrBlankTitle = errors.New("title must not be blank")
	// ErrUnknownTemplate is returned by ApplyTemplate for an unknown key.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrNoSuggestions is returned when no vector store is configured.
	ErrNoSuggestions = errors.New("related-node suggestions are not enabled")
)

// LoadTicket identifies one asynchronous load. Only the most recently
// issued ticket may commit.
type LoadTicket uint64

// Session is one open canvas. All methods are safe for concurrent use; the
// shell normally calls them from a single event loop.
type Session struct {
	mu sync.Mutex

	store    *graph.Store
	ctrl     *interaction.Controller
	renderer *render.Renderer
	vectors  *vector.Store
	criteria filter.Criteria

	latest    LoadTicket
	committed LoadTicket

	now func() time.Time
	log *zap.Logger
}

type options struct {
	limits   geometry.Limits
	sizing   graph.Sizing
	theme    render.Theme
	gridSize float64
	vectors  *vector.Store
	now      func() time.Time
	log      *zap.Logger
	newID    func() string
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger shared by the session's components.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithLimits sets the zoom limits.
func WithLimits(l geometry.Limits) Option { return func(o *options) { o.limits = l } }

// WithSizing sets the default node box.
func WithSizing(sz graph.Sizing) Option { return func(o *options) { o.sizing = sz } }

// WithTheme sets the card palette.
func WithTheme(th render.Theme) Option { return func(o *options) { o.theme = th } }

// WithGridSize sets the background grid spacing in world units.
func WithGridSize(size float64) Option { return func(o *options) { o.gridSize = size } }

// WithVectors enables related-node suggestions backed by vs.
func WithVectors(vs *vector.Store) Option { return func(o *options) { o.vectors = vs } }

// WithClock sets the clock used for due-date reporting and templates.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDGenerator overrides node and connection id minting.
func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

// New creates an empty session.
func New(opts ...Option) *Session {
	o := options{
		limits:   geometry.DefaultLimits(),
		sizing:   graph.DefaultSizing(),
		theme:    render.DefaultTheme(),
		gridSize: render.GridSize,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	storeOpts := []graph.Option{graph.WithLogger(o.log), graph.WithSizing(o.sizing)}
	if o.newID != nil {
		storeOpts = append(storeOpts, graph.WithIDGenerator(o.newID))
	}
	store := graph.NewStore(storeOpts...)

	return &Session{
		store:    store,
		ctrl:     interaction.New(store, o.limits, o.log),
		renderer: render.New(o.theme, render.WithGridSize(o.gridSize)),
		vectors:  o.vectors,
		now:      o.now,
		log:      o.log,
	}
}

// Store exposes the underlying graph store for read-only queries.
func (s *Session) Store() *graph.Store { return s.store }

// =============================================================================
// Input events
// =============================================================================

// PointerDown forwards a press to the controller.
func (s *Session) PointerDown(e interaction.PointerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerDown(e)
}

// PointerMove forwards pointer motion to the controller.
func (s *Session) PointerMove(e interaction.PointerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerMove(e)
}

// PointerUp forwards a release. A rejected connection is returned as user
// feedback; the gesture has already ended.
func (s *Session) PointerUp(e interaction.PointerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerUp(e)
}

// Wheel forwards a wheel event.
func (s *Session) Wheel(e interaction.WheelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Wheel(e)
}

// Key forwards a keyboard shortcut.
func (s *Session) Key(e interaction.KeyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ctrl.Key(e)
	s.pruneVectors()
	return err
}

// SetViewportSize records the visible canvas size in screen pixels.
func (s *Session) SetViewportSize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetViewportSize(width, height)
}

// Viewport returns the current viewport.
func (s *Session) Viewport() geometry.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Viewport()
}

// SetViewport replaces the viewport, clamping its scale.
func (s *Session) SetViewport(v geometry.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetViewport(v)
}

// =============================================================================
// Editing
// =============================================================================

// AddNode creates a node at a world position and selects it.
func (s *Session) AddNode(t graph.NodeType, pos graph.Position) (graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddNode(t, pos)
}

// UpdateNode applies an inspector edit. Blank titles are rejected; edits to
// a node that no longer exists are ignored.
func (s *Session) UpdateNode(id string, patch graph.NodePatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrBlankTitle
	}
	if patch.DueDate != nil && *patch.DueDate != "" {
		if _, err := time.Parse(graph.DateLayout, *patch.DueDate); err != nil {
			return fmt.Errorf("invalid due date %q: %w", *patch.DueDate, err)
		}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *patch.Priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignoreMissing(s.store.UpdateNode(id, patch))
}

// DeleteNode removes a node, its connections and its embedding. Deleting a
// missing node is a no-op.
func (s *Session) DeleteNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ignoreMissing(s.store.DeleteNode(id))
	s.pruneVectors()
	return err
}

// AddConnection links two nodes.
func (s *Session) AddConnection(sourceID, targetID, label string) (graph.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddConnection(sourceID, targetID, label)
}

// UpdateConnectionLabel relabels a connection. Missing connections are ignored.
func (s *Session) UpdateConnectionLabel(id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignoreMissing(s.store.UpdateConnectionLabel(id, label))
}

// DeleteConnection removes a connection. Missing connections are ignored.
func (s *Session) DeleteConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignoreMissing(s.store.DeleteConnection(id))
}

// SelectNode selects a node, or clears the node selection for "".
func (s *Session) SelectNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SelectNode(id)
}

// SelectConnection selects a connection, or clears it for "".
func (s *Session) SelectConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SelectConnection(id)
}

// Clear empties the canvas. Any pending load is superseded.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.committed = s.latest
	s.store.ClearCanvas()
	s.pruneVectors()
}

func (s *Session) ignoreMissing(err error) error {
	if graph.IsNotFound(err) {
		s.log.Debug("edit of missing entity ignored", zap.Error(err))
		return nil
	}
	return err
}

// =============================================================================
// Loading
// =============================================================================

// BeginLoad starts an asynchronous load and supersedes any load in flight.
func (s *Session) BeginLoad() LoadTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// CompleteLoad commits p if t is still the newest ticket. Stale completions
// return ErrStaleLoad and leave the canvas untouched; invalid documents
// return a LoadRejected error and also leave it untouched.
func (s *Session) CompleteLoad(t LoadTicket, p loader.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(t, p)
}

func (s *Session) commit(t LoadTicket, p loader.Payload) error {
	if t != s.latest || t == s.committed {
		s.log.Debug("stale load discarded", zap.Uint64("ticket", uint64(t)), zap.Uint64("latest", uint64(s.latest)))
		return ErrStaleLoad
	}
	if err := loader.Load(s.store, p); err != nil {
		return err
	}
	s.committed = t
	s.pruneVectors()
	s.log.Debug("load committed", zap.Uint64("ticket", uint64(t)), zap.Int("nodes", len(p.Nodes)))
	return nil
}

// LoadData replaces the canvas synchronously. A rejected document changes
// nothing, so pending tickets stay valid.
func (s *Session) LoadData(p loader.Payload) error {
	if err := loader.Validate(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.commit(s.latest, p)
}

// Export returns the current graph as a document. It fails with a
// LoadRejected error when the graph could not be loaded back.
func (s *Session) Export() (loader.Payload, error) {
	return loader.Export(s.store)
}

// Plan packages the current graph as a persistable plan. Like Export it
// refuses graphs OpenPlan would reject.
func (s *Session) Plan(id, title, description string) (graph.Plan, error) {
	snap := s.store.Snapshot()
	if err := loader.Validate(loader.FromGraph(snap.Nodes, snap.Connections)); err != nil {
		return graph.Plan{}, err
	}
	return graph.Plan{
		ID:          id,
		Title:       title,
		Description: description,
		Nodes:       snap.Nodes,
		Connections: snap.Connections,
		UpdatedAt:   s.now().UnixMilli(),
	}, nil
}

// OpenPlan loads a stored plan, validating it like any other document.
func (s *Session) OpenPlan(p graph.Plan) error {
	return s.LoadData(loader.FromGraph(p.Nodes, p.Connections))
}

// =============================================================================
// Templates
// =============================================================================

// Templates lists the built-in templates.
func (s *Session) Templates() []loader.Template {
	return loader.Builtin()
}

// ApplyTemplate replaces the canvas with a fresh instance of a template.
func (s *Session) ApplyTemplate(key string) error {
	t, ok := loader.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	p, err := loader.Instantiate(t, s.now())
	if err != nil {
		return err
	}
	return s.LoadData(p)
}

// =============================================================================
// Views
// =============================================================================

// State is everything the shell needs besides the rendered scene.
type State struct {
	graph.Snapshot
	Viewport geometry.Viewport `json:"viewport"`
	Filter   filter.Criteria   `json:"filter"`
}

// State returns a consistent copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Snapshot: s.store.Snapshot(),
		Viewport: s.ctrl.Viewport(),
		Filter:   s.criteria,
	}
}

// SetFilter changes which nodes are visible. Invalid criteria are rejected
// and the previous filter stays active.
func (s *Session) SetFilter(c filter.Criteria) error {
	if _, err := c.Predicate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
	return nil
}

// Visible returns the nodes that pass the active filter, in draw order.
func (s *Session) Visible() ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible()
}

func (s *Session) visible() ([]graph.Node, error) {
	return filter.Apply(s.store.Nodes(), s.criteria)
}

// Render builds the current frame.
func (s *Session) Render() (render.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.visible()
	if err != nil {
		return render.Scene{}, err
	}
	in := render.Input{
		Nodes:       nodes,
		Connections: s.store.Connections(),
		Selection:   s.store.Selection(),
		Viewport:    s.ctrl.Viewport(),
		ViewSize:    s.ctrl.ViewportSize(),
	}
	if line, ok := s.ctrl.ConnectPreview(); ok {
		in.Preview = &line
	}
	return s.renderer.Render(in), nil
}

// RenderSVG writes the current frame as SVG. With no viewport size recorded
// the whole canvas is drawn.
func (s *Session) RenderSVG(w io.Writer) error {
	sc, err := s.Render()
	if err != nil {
		return err
	}
	size := s.ctrl.ViewportSize()
	width, height := size.X, size.Y
	if width <= 0 || height <= 0 {
		scale := sc.Transform.Scale
		if scale <= 0 {
			scale = 1
		}
		width = sc.Width*scale + sc.Transform.Offset.X
		height = sc.Height*scale + sc.Transform.Offset.Y
	}
	return render.WriteSVG(w, sc, width, height)
}

// Calendar lists the nodes with a due date.
func (s *Session) Calendar() []graph.CalendarEntry {
	return s.store.CalendarEntries()
}

// Stats summarises the plan as of today.
func (s *Session) Stats() graph.Stats {
	return s.store.Stats(s.now())
}

// =============================================================================
// Related-node suggestions
// =============================================================================

// IndexEmbedding stores the shell-computed embedding of a node.
func (s *Session) IndexEmbedding(id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors == nil {
		return ErrNoSuggestions
	}
	if _, ok := s.store.Node(id); !ok {
		return &graph.Error{Kind: graph.KindNotFound, ID: id, Reason: "node not found"}
	}
	return s.vectors.Put(id, vec)
}

// Related returns up to k nodes whose embeddings are closest to the node's.
func (s *Session) Related(id string, k int) ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors == nil {
		return nil, ErrNoSuggestions
	}
	ids, err := s.vectors.Related(id, k)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Node, 0, len(ids))
	for _, rid := range ids {
		if n, ok := s.store.Node(rid); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// SaveSuggestions persists the embedding index.
func (s *Session) SaveSuggestions() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vectors == nil {
		return nil
	}
	return s.vectors.Save()
}

// pruneVectors drops embeddings of nodes that no longer exist.
func (s *Session) pruneVectors() {
	if s.vectors == nil {
		return
	}
	for _, id := range s.vectors.IDs() {
		if _, ok := s.store.Node(id); !ok {
			s.vectors.Remove(id)
		}
	}
}
