package brush

// Outline is a disposable cache of the visible edges of a brush mesh, used
// for wireframe display. It is rebuilt only when the source hash changes.
type Outline struct {
	// VisibleOuterLines holds vertex index pairs, one pair per edge.
	VisibleOuterLines []int32
	Hash              uint64
}

// NewOutline builds the outline of b.
func NewOutline(b *Blob) *Outline {
	o := &Outline{}
	o.Update(b)
	return o
}

// Update rebuilds the outline if b differs from the blob it was built
// from. It reports whether a rebuild happened.
func (o *Outline) Update(b *Blob) bool {
	if !b.IsCreated() {
		changed := o.Hash != 0 || len(o.VisibleOuterLines) != 0
		o.Reset()
		return changed
	}
	if b.Hash() == o.Hash && o.VisibleOuterLines != nil {
		return false
	}
	// A fresh slice; callers may still hold the previous lines.
	o.VisibleOuterLines = OuterLines(b.Mesh(), nil)
	o.Hash = b.Hash()
	return true
}

// Reset drops the cached lines.
func (o *Outline) Reset() {
	o.VisibleOuterLines = nil
	o.Hash = 0
}

// OuterLines appends one vertex pair per undirected edge of m to dst. Of
// the two half-edges of an edge only the one whose origin index is greater
// than its destination index is emitted.
func OuterLines(m *Mesh, dst []int32) []int32 {
	if m.IsEmpty() {
		return dst
	}
	for pi, p := range m.Polygons {
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			v0 := m.HalfEdges[e].VertexIndex
			v1 := m.HalfEdges[m.NextEdge(int32(pi), e)].VertexIndex
			if v0 > v1 {
				dst = append(dst, v0, v1)
			}
		}
	}
	return dst
}
