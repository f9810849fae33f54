package brush

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Blob is an immutable, validated snapshot of a brush mesh as stored in
// the tree. Its contents never change after NewBlob; Dispose drops the
// arrays and is safe to call more than once.
type Blob struct {
	mesh *Mesh
	hash uint64
}

// NewBlob freezes a copy of m.
func NewBlob(m *Mesh) *Blob {
	c := m.Clone()
	return &Blob{mesh: c, hash: StructuralHash(c)}
}

// Mesh returns the frozen mesh. Callers must not modify it.
func (b *Blob) Mesh() *Mesh {
	if b == nil {
		return nil
	}
	return b.mesh
}

// Hash returns the structural hash of the blob contents.
func (b *Blob) Hash() uint64 {
	if b == nil {
		return 0
	}
	return b.hash
}

// IsCreated reports whether the blob still holds its arrays.
func (b *Blob) IsCreated() bool {
	return b != nil && b.mesh != nil
}

// Dispose releases the mesh arrays.
func (b *Blob) Dispose() {
	if b == nil {
		return
	}
	b.mesh = nil
}

// StructuralHash hashes vertices, half-edges and polygons of m. Planes and
// bounds are derived data and are left out.
func StructuralHash(m *Mesh) uint64 {
	if m == nil {
		return 0
	}
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putU64(uint64(len(m.Vertices)))
	for _, v := range m.Vertices {
		putU64(math.Float64bits(v.X))
		putU64(math.Float64bits(v.Y))
		putU64(math.Float64bits(v.Z))
	}
	putU64(uint64(len(m.HalfEdges)))
	for _, e := range m.HalfEdges {
		putU64(uint64(uint32(e.VertexIndex))<<32 | uint64(uint32(e.TwinIndex)))
	}
	putU64(uint64(len(m.Polygons)))
	for _, p := range m.Polygons {
		putU64(uint64(uint32(p.FirstEdge))<<32 | uint64(uint32(p.EdgeCount)))
		putU64(uint64(uint32(p.SurfaceID))<<32 | uint64(uint32(p.LayerID)))
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// BlobID is a stable handle into a Registry. The low 32 bits index the
// slot, the high 32 bits carry the slot generation so handles to released
// slots never resolve again.
type BlobID uint64

// InvalidBlobID is the zero handle; it never resolves.
const InvalidBlobID BlobID = 0

func makeBlobID(slot, gen uint32) BlobID { return BlobID(uint64(gen)<<32 | uint64(slot)) }

func (id BlobID) slot() uint32 { return uint32(id) }
func (id BlobID) gen() uint32  { return uint32(id >> 32) }

func (id BlobID) String() string {
	return fmt.Sprintf("blob(%d:%d)", id.slot(), id.gen())
}

// ErrUnknownBlob is returned for handles that are invalid or released.
var ErrUnknownBlob = errors.New("unknown or released brush blob")

type registrySlot struct {
	blob *Blob
	gen  uint32
}

// Registry is an index-based arena of blobs shared by the tree and its
// evaluators. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	slots []registrySlot
	free  []uint32
}

// NewRegistry returns an empty registry. Slot 0 is reserved so that the
// zero BlobID is never valid.
func NewRegistry() *Registry {
	return &Registry{slots: make([]registrySlot, 1)}
}

// Register stores b and returns its handle.
func (r *Registry) Register(b *Blob) BlobID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.free); n > 0 {
		slot := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[slot]
		s.blob = b
		return makeBlobID(slot, s.gen)
	}
	r.slots = append(r.slots, registrySlot{blob: b, gen: 1})
	return makeBlobID(uint32(len(r.slots)-1), 1)
}

// Get resolves a handle.
func (r *Registry) Get(id BlobID) (*Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot := id.slot()
	if slot == 0 || int(slot) >= len(r.slots) {
		return nil, ErrUnknownBlob
	}
	s := r.slots[slot]
	if s.blob == nil || s.gen != id.gen() {
		return nil, ErrUnknownBlob
	}
	return s.blob, nil
}

// Release disposes the blob behind id and recycles its slot. Releasing an
// unknown or already released handle is a no-op.
func (r *Registry) Release(id BlobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := id.slot()
	if slot == 0 || int(slot) >= len(r.slots) {
		return
	}
	s := &r.slots[slot]
	if s.blob == nil || s.gen != id.gen() {
		return
	}
	s.blob.Dispose()
	s.blob = nil
	s.gen++
	r.free = append(r.free, slot)
}

// Len returns the number of live blobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots) - 1 - len(r.free)
}
