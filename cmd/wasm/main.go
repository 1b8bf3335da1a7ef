//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"syscall/js"

	"github.com/hack-pad/hackpadfs/indexeddb"
	"github.com/kittclouds/plankitt/internal/config"
	"github.com/kittclouds/plankitt/internal/logging"
	"github.com/kittclouds/plankitt/internal/store"
	"github.com/kittclouds/plankitt/pkg/canvas"
	"github.com/kittclouds/plankitt/pkg/filter"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/interaction"
	"github.com/kittclouds/plankitt/pkg/loader"
	"github.com/kittclouds/plankitt/pkg/vector"
	"go.uber.org/zap"
)

// Version info
const Version = "0.1.0"

// Global state
var session *canvas.Session
var plans store.Storer
var planFiles *store.PlanFiles
var log = zap.NewNop()

func main() {
	session = canvas.New()
	plans = store.NewMemStore()
	println("[PlanKitt] WASM Ready v" + Version)

	// Register exports
	js.Global().Set("PlanKitt", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(initialize),
		// Input
		"pointerDown":     js.FuncOf(pointerDown),
		"pointerMove":     js.FuncOf(pointerMove),
		"pointerUp":       js.FuncOf(pointerUp),
		"wheel":           js.FuncOf(wheel),
		"key":             js.FuncOf(key),
		"setViewportSize": js.FuncOf(setViewportSize),
		// Editing
		"addNode":               js.FuncOf(addNode),
		"updateNode":            js.FuncOf(updateNode),
		"deleteNode":            js.FuncOf(deleteNode),
		"addConnection":         js.FuncOf(addConnection),
		"updateConnectionLabel": js.FuncOf(updateConnectionLabel),
		"deleteConnection":      js.FuncOf(deleteConnection),
		"select":                js.FuncOf(selectEntity),
		"clear":                 js.FuncOf(clearCanvas),
		// Loading
		"loadData":     js.FuncOf(loadData),
		"beginLoad":    js.FuncOf(beginLoad),
		"completeLoad": js.FuncOf(completeLoad),
		"exportData":   js.FuncOf(exportData),
		// Views
		"snapshot":  js.FuncOf(snapshot),
		"render":    js.FuncOf(renderScene),
		"renderSVG": js.FuncOf(renderSVG),
		"setFilter": js.FuncOf(setFilter),
		"calendar":  js.FuncOf(calendar),
		"stats":     js.FuncOf(stats),
		// Templates
		"templates":     js.FuncOf(templates),
		"applyTemplate": js.FuncOf(applyTemplate),
		// Related nodes
		"indexEmbedding": js.FuncOf(indexEmbedding),
		"related":        js.FuncOf(related),
		"saveVectors":    js.FuncOf(saveVectors),
		// Plans
		"savePlan":           js.FuncOf(savePlan),
		"openPlan":           js.FuncOf(openPlan),
		"listPlans":          js.FuncOf(listPlans),
		"planVersions":       js.FuncOf(planVersions),
		"restorePlanVersion": js.FuncOf(restorePlanVersion),
	}))

	select {}
}

// getVersion returns the module version
func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize rebuilds the session from configuration and opens the
// IndexedDB-backed plan files and embedding index.
// Args: [configJSON string] - optional, overlays the defaults
func initialize(this js.Value, args []js.Value) interface{} {
	var raw []byte
	if len(args) > 0 && args[0].Type() == js.TypeString {
		raw = []byte(args[0].String())
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return errorResult(err.Error())
	}
	log = logging.Must(cfg.Log.Level, cfg.Log.Format)

	fs, err := indexeddb.NewFS(context.Background(), "plankitt", indexeddb.Options{})
	if err != nil {
		return errorResult("failed to create idb fs: " + err.Error())
	}

	vectors, err := vector.NewStore(fs, cfg.Store.VectorPath, log)
	if err != nil {
		return errorResult("failed to load vector store: " + err.Error())
	}

	planFiles, err = store.NewPlanFiles(fs, cfg.Store.PlanDir)
	if err != nil {
		return errorResult(err.Error())
	}

	session = canvas.New(
		canvas.WithLogger(log),
		canvas.WithLimits(cfg.Limits()),
		canvas.WithSizing(cfg.Sizing()),
		canvas.WithTheme(cfg.Theme),
		canvas.WithGridSize(cfg.Canvas.GridSize),
		canvas.WithVectors(vectors),
	)
	plans = store.NewMemStore()

	log.Info("initialized", zap.String("version", Version), zap.Int("embeddings", vectors.Len()))
	return successResult("initialized")
}

// =============================================================================
// Input
// =============================================================================

// pointerDown: [eventJSON string] {x, y, button, modifiers{shift,alt,ctrl,meta}}
func pointerDown(this js.Value, args []js.Value) interface{} {
	return pointer(args, session.PointerDown)
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	return pointer(args, session.PointerMove)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return pointer(args, session.PointerUp)
}

func pointer(args []js.Value, fn func(interaction.PointerEvent) error) interface{} {
	var e interaction.PointerEvent
	if err := decodeArg(args, 0, &e); err != nil {
		return errorResult(err.Error())
	}
	if err := fn(e); err != nil {
		return errorFrom(err)
	}
	return successResult("ok")
}

// wheel: [eventJSON string] {x, y, deltaY}
func wheel(this js.Value, args []js.Value) interface{} {
	var e interaction.WheelEvent
	if err := decodeArg(args, 0, &e); err != nil {
		return errorResult(err.Error())
	}
	session.Wheel(e)
	return jsonResult(session.Viewport())
}

// key: [eventJSON string] {key, inEditable}
func key(this js.Value, args []js.Value) interface{} {
	var e interaction.KeyEvent
	if err := decodeArg(args, 0, &e); err != nil {
		return errorResult(err.Error())
	}
	if err := session.Key(e); err != nil {
		return errorFrom(err)
	}
	return successResult("ok")
}

// setViewportSize: [width number, height number]
func setViewportSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: width, height")
	}
	session.SetViewportSize(args[0].Float(), args[1].Float())
	return successResult("ok")
}

// =============================================================================
// Editing
// =============================================================================

// addNode: [type string, x number, y number] (world coordinates)
func addNode(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: type, x, y")
	}
	t, err := graph.ParseNodeType(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	n, err := session.AddNode(t, graph.Position{X: args[1].Float(), Y: args[2].Float()})
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(n)
}

// updateNode: [id string, patchJSON string]
func updateNode(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id, patchJSON")
	}
	var patch graph.NodePatch
	if err := decodeArg(args, 1, &patch); err != nil {
		return errorResult(err.Error())
	}
	if err := session.UpdateNode(args[0].String(), patch); err != nil {
		return errorFrom(err)
	}
	return successResult("updated")
}

// deleteNode: [id string]
func deleteNode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	if err := session.DeleteNode(args[0].String()); err != nil {
		return errorFrom(err)
	}
	return successResult("deleted")
}

// addConnection: [sourceId string, targetId string, label string (optional)]
func addConnection(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2+ args: sourceId, targetId, [label]")
	}
	label := ""
	if len(args) > 2 && args[2].Type() == js.TypeString {
		label = args[2].String()
	}
	c, err := session.AddConnection(args[0].String(), args[1].String(), label)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(c)
}

// updateConnectionLabel: [id string, label string]
func updateConnectionLabel(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id, label")
	}
	if err := session.UpdateConnectionLabel(args[0].String(), args[1].String()); err != nil {
		return errorFrom(err)
	}
	return successResult("updated")
}

// deleteConnection: [id string]
func deleteConnection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	if err := session.DeleteConnection(args[0].String()); err != nil {
		return errorFrom(err)
	}
	return successResult("deleted")
}

// select: [kind "node"|"connection", id string] - empty id clears
func selectEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: kind, id")
	}
	var err error
	switch args[0].String() {
	case "node":
		err = session.SelectNode(args[1].String())
	case "connection":
		err = session.SelectConnection(args[1].String())
	default:
		return errorResult("kind must be node or connection")
	}
	if err != nil {
		return errorFrom(err)
	}
	return successResult("selected")
}

func clearCanvas(this js.Value, args []js.Value) interface{} {
	session.Clear()
	return successResult("cleared")
}

// =============================================================================
// Loading
// =============================================================================

// loadData: [payload string, format "json"|"yaml" (optional)]
func loadData(this js.Value, args []js.Value) interface{} {
	p, err := decodePayload(args, 0)
	if err != nil {
		return errorResult(err.Error())
	}
	if err := session.LoadData(p); err != nil {
		return errorFrom(err)
	}
	return successResult("loaded")
}

// beginLoad returns a ticket for a load the shell is about to fetch.
func beginLoad(this js.Value, args []js.Value) interface{} {
	return float64(session.BeginLoad())
}

// completeLoad: [ticket number, payload string, format (optional)]
func completeLoad(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2+ args: ticket, payload, [format]")
	}
	p, err := decodePayload(args, 1)
	if err != nil {
		return errorResult(err.Error())
	}
	if err := session.CompleteLoad(canvas.LoadTicket(args[0].Int()), p); err != nil {
		return errorFrom(err)
	}
	return successResult("loaded")
}

// exportData: [format "json"|"yaml" (optional)]
func exportData(this js.Value, args []js.Value) interface{} {
	format := loader.FormatJSON
	if len(args) > 0 && args[0].Type() == js.TypeString {
		format = loader.Format(args[0].String())
	}
	p, err := session.Export()
	if err != nil {
		return errorFrom(err)
	}
	data, err := loader.Encode(p, format)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

// =============================================================================
// Views
// =============================================================================

func snapshot(this js.Value, args []js.Value) interface{} {
	return jsonResult(session.State())
}

func renderScene(this js.Value, args []js.Value) interface{} {
	sc, err := session.Render()
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(sc)
}

func renderSVG(this js.Value, args []js.Value) interface{} {
	var b strings.Builder
	if err := session.RenderSVG(&b); err != nil {
		return errorFrom(err)
	}
	return b.String()
}

// setFilter: [criteriaJSON string] - "{}" clears
func setFilter(this js.Value, args []js.Value) interface{} {
	var c filter.Criteria
	if err := decodeArg(args, 0, &c); err != nil {
		return errorResult(err.Error())
	}
	if err := session.SetFilter(c); err != nil {
		return errorFrom(err)
	}
	return successResult("filtered")
}

func calendar(this js.Value, args []js.Value) interface{} {
	return jsonResult(session.Calendar())
}

func stats(this js.Value, args []js.Value) interface{} {
	return jsonResult(session.Stats())
}

// =============================================================================
// Templates
// =============================================================================

func templates(this js.Value, args []js.Value) interface{} {
	return jsonResult(session.Templates())
}

// applyTemplate: [key string]
func applyTemplate(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: key")
	}
	if err := session.ApplyTemplate(args[0].String()); err != nil {
		return errorFrom(err)
	}
	return successResult("applied")
}

// =============================================================================
// Related nodes
// =============================================================================

// indexEmbedding: [id string, vectorJSON string]
func indexEmbedding(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id (string), vectorJSON (string)")
	}
	var vec []float32
	if err := decodeArg(args, 1, &vec); err != nil {
		return errorResult("invalid vector json: " + err.Error())
	}
	if err := session.IndexEmbedding(args[0].String(), vec); err != nil {
		return errorFrom(err)
	}
	return successResult("indexed")
}

// related: [id string, k int]
// Returns: JSON array of nodes
func related(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id (string), k (int)")
	}
	nodes, err := session.Related(args[0].String(), args[1].Int())
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(nodes)
}

// saveVectors persists the embedding index to IndexedDB
func saveVectors(this js.Value, args []js.Value) interface{} {
	if err := session.SaveSuggestions(); err != nil {
		return errorResult("save failed: " + err.Error())
	}
	return successResult("saved")
}

// =============================================================================
// Plans
// =============================================================================

// savePlan: [id string, title string, description string (optional)]
// Stores a new version and mirrors it to IndexedDB.
func savePlan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2+ args: id, title, [description]")
	}
	desc := ""
	if len(args) > 2 && args[2].Type() == js.TypeString {
		desc = args[2].String()
	}

	p, err := session.Plan(args[0].String(), args[1].String(), desc)
	if err != nil {
		return errorFrom(err)
	}
	rec := &store.PlanRecord{Plan: p}
	if err := plans.UpdatePlan(rec, "save"); err != nil {
		return errorResult(err.Error())
	}
	if planFiles != nil {
		if _, err := planFiles.Export(rec, loader.FormatJSON); err != nil {
			return errorResult(err.Error())
		}
	}
	return jsonResult(map[string]interface{}{"id": rec.ID, "version": rec.Version})
}

// openPlan: [id string]
// Loads the current version, falling back to the IndexedDB copy.
func openPlan(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	id := args[0].String()

	rec, err := plans.GetPlan(id)
	if err != nil {
		return errorResult(err.Error())
	}
	if rec == nil && planFiles != nil {
		if rec, err = planFiles.Import(id + ".json"); err != nil {
			return errorFrom(err)
		}
		if err := plans.UpsertPlan(rec); err != nil {
			return errorResult(err.Error())
		}
	}
	if rec == nil {
		return errorResult("plan not found: " + id)
	}

	if err := session.OpenPlan(rec.Plan); err != nil {
		return errorFrom(err)
	}
	return jsonResult(rec)
}

// listPlans returns the plan files known to IndexedDB.
func listPlans(this js.Value, args []js.Value) interface{} {
	if planFiles == nil {
		return errorResult("not initialized")
	}
	names, err := planFiles.List()
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(names)
}

// planVersions: [id string]
func planVersions(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	versions, err := plans.ListPlanVersions(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(versions)
}

// restorePlanVersion: [id string, version int]
func restorePlanVersion(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: id, version")
	}
	id := args[0].String()
	if err := plans.RestorePlanVersion(id, args[1].Int()); err != nil {
		return errorResult(err.Error())
	}
	return openPlan(this, args[:1])
}

// =============================================================================
// Helpers
// =============================================================================

func decodeArg(args []js.Value, i int, v interface{}) error {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return errors.New("missing JSON argument")
	}
	return json.Unmarshal([]byte(args[i].String()), v)
}

func decodePayload(args []js.Value, i int) (loader.Payload, error) {
	if len(args) <= i {
		return loader.Payload{}, errors.New("missing payload argument")
	}
	format := loader.FormatJSON
	if len(args) > i+1 && args[i+1].Type() == js.TypeString {
		format = loader.Format(args[i+1].String())
	}
	return loader.Decode([]byte(args[i].String()), format)
}

func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}

// Helper: Create error result, keeping store error detail for the shell
func errorFrom(err error) interface{} {
	var gerr *graph.Error
	if errors.As(err, &gerr) {
		result := map[string]interface{}{
			"error":  err.Error(),
			"detail": gerr,
		}
		jsonBytes, _ := json.Marshal(result)
		return string(jsonBytes)
	}
	return errorResult(err.Error())
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
