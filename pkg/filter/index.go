package filter

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/kittclouds/plankitt/pkg/graph"
)

// Index holds one bitmap per facet value over node ordinals (positions in
// the slice it was built from).
type Index struct {
	all        *roaring.Bitmap
	byType     map[graph.NodeType]*roaring.Bitmap
	byPriority map[graph.Priority]*roaring.Bitmap
	completed  *roaring.Bitmap
}

// NewIndex builds the facet bitmaps for nodes.
func NewIndex(nodes []graph.Node) *Index {
	idx := &Index{
		all:        roaring.New(),
		byType:     make(map[graph.NodeType]*roaring.Bitmap),
		byPriority: make(map[graph.Priority]*roaring.Bitmap),
		completed:  roaring.New(),
	}

	for i, n := range nodes {
		ord := uint32(i)
		idx.all.Add(ord)
		bucket(idx.byType, n.Type).Add(ord)
		bucket(idx.byPriority, n.Data.Priority).Add(ord)
		if n.Data.Completed {
			idx.completed.Add(ord)
		}
	}
	return idx
}

func bucket[K comparable](m map[K]*roaring.Bitmap, k K) *roaring.Bitmap {
	bm, ok := m[k]
	if !ok {
		bm = roaring.New()
		m[k] = bm
	}
	return bm
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int { return int(idx.all.GetCardinality()) }

// Count returns how many nodes have type t.
func (idx *Index) Count(t graph.NodeType) int {
	if bm, ok := idx.byType[t]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// Select intersects the facets. Empty slices and a nil completed flag do not
// narrow the result.
func (idx *Index) Select(types []graph.NodeType, completed *bool, priorities []graph.Priority) *roaring.Bitmap {
	result := idx.all.Clone()

	if len(types) > 0 {
		result.And(union(idx.byType, types))
	}
	if len(priorities) > 0 {
		result.And(union(idx.byPriority, priorities))
	}
	if completed != nil {
		if *completed {
			result.And(idx.completed)
		} else {
			result.AndNot(idx.completed)
		}
	}
	return result
}

func union[K comparable](m map[K]*roaring.Bitmap, keys []K) *roaring.Bitmap {
	out := roaring.New()
	for _, k := range keys {
		if bm, ok := m[k]; ok {
			out.Or(bm)
		}
	}
	return out
}
