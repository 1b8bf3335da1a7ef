// Package vector suggests related nodes from shell-supplied embeddings using
// an HNSW cosine index persisted on a hackpadfs filesystem.
package vector

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector" // fogfish/hnsw/vector alias, imports kshard/vector
	"github.com/hack-pad/hackpadfs"
	kvector "github.com/kshard/vector"
	"go.uber.org/zap"
)

// ErrUnknownNode is returned by Related for a node without an embedding.
var ErrUnknownNode = errors.New("node has no embedding")

// Store maps node ids onto HNSW keys. The index cannot delete, so replaced or
// removed embeddings are tombstoned and filtered out of results.
type Store struct {
	Index *hnsw.HNSW[vector.VF32]
	FS    hackpadfs.FS
	Path  string

	mu   sync.RWMutex
	keys map[string]uint32 // node id -> live key
	ids  []string          // key -> node id
	dead map[uint32]bool
	vecs map[string][]float32
	log  *zap.Logger
}

// snapshot is the persisted form.
type snapshot struct {
	Nodes hnsw.Nodes[vector.VF32]
	IDs   []string
	Dead  []uint32
	Vecs  map[string][]float32
}

// NewStore opens the index at path, or starts an empty one when the file
// does not exist yet.
func NewStore(fs hackpadfs.FS, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{FS: fs, Path: path, log: log}

	err := s.Load()
	switch {
	case err == nil:
		log.Debug("vector index loaded", zap.String("path", path), zap.Int("nodes", len(s.keys)))
	case errors.Is(err, hackpadfs.ErrNotExist):
		s.reset()
	default:
		return nil, err
	}
	return s, nil
}

func (s *Store) reset() {
	s.Index = hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
	s.keys = make(map[string]uint32)
	s.ids = nil
	s.dead = make(map[uint32]bool)
	s.vecs = make(map[string][]float32)
}

// Len returns the number of nodes with a live embedding.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// IDs returns the node ids with a live embedding, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Put sets the embedding for a node, replacing any previous one. All
// embeddings must share one dimension.
func (s *Store) Put(id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty node id")
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dim := s.dim(); dim > 0 && len(vec) != dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
	}

	if old, ok := s.keys[id]; ok {
		s.dead[old] = true
	}
	key := uint32(len(s.ids))
	s.ids = append(s.ids, id)
	s.keys[id] = key
	s.vecs[id] = append([]float32(nil), vec...)

	s.Index.Insert(vector.VF32{Key: key, Vec: vec})
	return nil
}

// Remove drops a node's embedding. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[id]; ok {
		s.dead[key] = true
		delete(s.keys, id)
		delete(s.vecs, id)
	}
}

// Search returns up to k node ids nearest to vec.
func (s *Store) Search(vec []float32, k int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search(vec, k, "")
}

// Related returns up to k nodes nearest to the given node, excluding itself.
func (s *Store) Related(id string, k int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vec, ok := s.vecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return s.search(vec, k, id)
}

func (s *Store) search(vec []float32, k int, exclude string) ([]string, error) {
	if k <= 0 || len(s.keys) == 0 {
		return nil, nil
	}
	if dim := s.dim(); len(vec) != dim {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
	}

	// Over-fetch to make up for tombstones and the excluded node.
	want := k + len(s.dead) + 1
	ef := want * 2
	if ef < 100 {
		ef = 100
	}

	query := vector.VF32{Vec: vec} // Key ignored in Search distance calc
	results := s.Index.Search(query, want, ef)

	out := make([]string, 0, k)
	seen := make(map[string]bool, k)
	for _, r := range results {
		if s.dead[r.Key] || int(r.Key) >= len(s.ids) {
			continue
		}
		id := s.ids[r.Key]
		if id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// dim is the dimension of the indexed vectors, or 0 for an empty index.
func (s *Store) dim() int {
	if s.Index.Size() > 0 {
		return len(s.Index.Head().Vec)
	}
	return 0
}

// Save persists the index to FS.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Index == nil {
		return nil
	}

	snap := snapshot{
		Nodes: s.Index.Nodes(),
		IDs:   s.ids,
		Vecs:  s.vecs,
	}
	for key := range s.dead {
		snap.Dead = append(snap.Dead, key)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := hackpadfs.WriteFullFile(s.FS, s.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	s.log.Debug("vector index saved", zap.String("path", s.Path), zap.Int("bytes", buf.Len()))
	return nil
}

// Load reads the index from FS, replacing the in-memory state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := hackpadfs.ReadFile(s.FS, s.Path)
	if err != nil {
		return err
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(content)).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	s.Index = hnsw.FromNodes[vector.VF32](
		vector.SurfaceVF32(kvector.Cosine()),
		snap.Nodes,
	)
	s.ids = snap.IDs
	s.vecs = snap.Vecs
	if s.vecs == nil {
		s.vecs = make(map[string][]float32)
	}
	s.dead = make(map[uint32]bool, len(snap.Dead))
	for _, key := range snap.Dead {
		s.dead[key] = true
	}
	s.keys = make(map[string]uint32, len(s.vecs))
	for key, id := range s.ids {
		if !s.dead[uint32(key)] {
			s.keys[id] = uint32(key)
		}
	}
	return nil
}
