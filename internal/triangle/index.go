package triangle

// Index maps a pair id to the triangles that reference it. It is built once and
// only read afterwards, so it is safe for concurrent readers.
type Index struct {
	buckets map[uint32][]*Triangle
}

// NewIndex files every triangle under each of its three pair ids.
func NewIndex(tris []*Triangle) *Index {
	idx := &Index{buckets: make(map[uint32][]*Triangle)}
	for _, t := range tris {
		for _, id := range t.Pairs {
			idx.buckets[id] = append(idx.buckets[id], t)
		}
	}
	return idx
}

// Affected returns the triangles referencing pair id.
func (idx *Index) Affected(id uint32) []*Triangle {
	return idx.buckets[id]
}

// PairIDs returns every pair id referenced by at least one triangle.
func (idx *Index) PairIDs() []uint32 {
	ids := make([]uint32, 0, len(idx.buckets))
	for id := range idx.buckets {
		ids = append(ids, id)
	}
	return ids
}

// Len is the number of tracked pairs.
func (idx *Index) Len() int {
	return len(idx.buckets)
}
