package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Storer for testing.
type MemStore struct {
	mu       sync.RWMutex
	versions map[string][]*PlanRecord // oldest first
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		versions: make(map[string][]*PlanRecord),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

func (s *MemStore) current(id string) *PlanRecord {
	vs := s.versions[id]
	if len(vs) == 0 {
		return nil
	}
	return vs[len(vs)-1]
}

// push closes the current version at ts and appends next as the new one.
func (s *MemStore) push(next *PlanRecord, ts int64) {
	if cur := s.current(next.ID); cur != nil {
		cur.IsCurrent = false
		v := ts
		cur.ValidTo = &v
	}
	s.versions[next.ID] = append(s.versions[next.ID], next.clone())
}

// =============================================================================
// Plan CRUD
// =============================================================================

func (s *MemStore) CreatePlan(plan *PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.versions[plan.ID]) > 0 {
		return fmt.Errorf("plan %s already exists", plan.ID)
	}
	stampCreate(plan)
	s.push(plan, plan.ValidFrom)
	return nil
}

func (s *MemStore) UpdatePlan(plan *PlanRecord, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current(plan.ID)
	if cur == nil {
		stampCreate(plan)
		s.push(plan, plan.ValidFrom)
		return nil
	}

	if plan.UpdatedAt == 0 {
		plan.UpdatedAt = nowMillis()
	}
	plan.Version = cur.Version + 1
	plan.CreatedAt = cur.CreatedAt // Preserve original creation time
	plan.ValidFrom = plan.UpdatedAt
	plan.ValidTo = nil
	plan.IsCurrent = true
	plan.ChangeReason = reason

	s.push(plan, plan.UpdatedAt)
	return nil
}

func (s *MemStore) UpsertPlan(plan *PlanRecord) error {
	s.mu.RLock()
	exists := s.current(plan.ID) != nil
	s.mu.RUnlock()

	if !exists {
		return s.CreatePlan(plan)
	}
	return s.UpdatePlan(plan, "upsert")
}

func (s *MemStore) GetPlan(id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cur := s.current(id); cur != nil {
		return cur.clone(), nil
	}
	return nil, nil
}

func (s *MemStore) GetPlanVersion(id string, version int) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[id] {
		if v.Version == version {
			return v.clone(), nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListPlanVersions(id string) ([]*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.versions[id]
	result := make([]*PlanRecord, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		result = append(result, vs[i].clone())
	}
	return result, nil
}

func (s *MemStore) GetPlanAtTime(id string, timestamp int64) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[id] {
		if v.ValidFrom <= timestamp && (v.ValidTo == nil || *v.ValidTo > timestamp) {
			return v.clone(), nil
		}
	}
	return nil, nil
}

func (s *MemStore) RestorePlanVersion(id string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old *PlanRecord
	for _, v := range s.versions[id] {
		if v.Version == version {
			old = v
			break
		}
	}
	if old == nil {
		return fmt.Errorf("plan %s has no version %d", id, version)
	}

	now := nowMillis()
	restored := old.clone()
	restored.Version = s.current(id).Version + 1
	restored.UpdatedAt = now
	restored.ValidFrom = now
	restored.ValidTo = nil
	restored.IsCurrent = true
	restored.ChangeReason = "restore"

	s.push(restored, now)
	return nil
}

func (s *MemStore) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.versions, id)
	return nil
}

func (s *MemStore) ListPlans() ([]*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*PlanRecord, 0, len(s.versions))
	for id := range s.versions {
		result = append(result, s.current(id).clone())
	}
	sortPlans(result)
	return result, nil
}

func (s *MemStore) CountPlans() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions), nil
}

// sortPlans orders by most recently updated, then id.
func sortPlans(ps []*PlanRecord) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].UpdatedAt != ps[j].UpdatedAt {
			return ps[i].UpdatedAt > ps[j].UpdatedAt
		}
		return ps[i].ID < ps[j].ID
	})
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
