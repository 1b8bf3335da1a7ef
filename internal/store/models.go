// Package store persists career plans. Every save of a plan is kept as a
// version row (temporal table pattern), so earlier layouts can be inspected
// and restored.
package store

import (
	"encoding/json"
	"time"

	"github.com/kittclouds/plankitt/pkg/graph"
)

// PlanRecord is one stored version of a plan.
type PlanRecord struct {
	graph.Plan

	Version int `json:"version"`

	// Temporal fields for version tracking
	ValidFrom    int64  `json:"validFrom"`
	ValidTo      *int64 `json:"validTo,omitempty"`
	IsCurrent    bool   `json:"isCurrent"`
	ChangeReason string `json:"changeReason,omitempty"`
}

// clone deep-copies r so callers never share slices with the store.
func (r *PlanRecord) clone() *PlanRecord {
	c := *r
	if r.Nodes != nil {
		c.Nodes = make([]graph.Node, len(r.Nodes))
		copy(c.Nodes, r.Nodes)
	}
	if r.Connections != nil {
		c.Connections = make([]graph.Connection, len(r.Connections))
		copy(c.Connections, r.Connections)
	}
	if r.ValidTo != nil {
		v := *r.ValidTo
		c.ValidTo = &v
	}
	return &c
}

// Storer defines the interface for plan persistence.
// This allows swapping between MemStore (testing) and SQLiteStore (production).
type Storer interface {
	// Plans - Basic CRUD
	UpsertPlan(plan *PlanRecord) error
	GetPlan(id string) (*PlanRecord, error)
	DeletePlan(id string) error
	ListPlans() ([]*PlanRecord, error)
	CountPlans() (int, error)

	// Plans - Version-aware operations
	CreatePlan(plan *PlanRecord) error
	UpdatePlan(plan *PlanRecord, reason string) error
	GetPlanVersion(id string, version int) (*PlanRecord, error)
	ListPlanVersions(id string) ([]*PlanRecord, error)
	GetPlanAtTime(id string, timestamp int64) (*PlanRecord, error)
	RestorePlanVersion(id string, version int) error

	// Lifecycle
	Close() error
}

// nowMillis is the store clock.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// stampCreate fills version-1 defaults.
func stampCreate(p *PlanRecord) {
	if p.CreatedAt == 0 {
		p.CreatedAt = nowMillis()
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = p.CreatedAt
	}
	p.Version = 1
	p.ValidFrom = p.CreatedAt
	p.ValidTo = nil
	p.IsCurrent = true
}

// ToJSON converts a store model to JSON bytes.
func ToJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// FromJSON parses JSON bytes into a store model.
func FromJSON[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
