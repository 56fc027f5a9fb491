package core

import "fmt"

const (
	// ChunkSize is the edge length, in cells, of one streamed chunk column.
	ChunkSize = 32

	// FaceCount is fixed: the planet is a cube projected onto a sphere.
	FaceCount = 6

	// CoreLayers is the depth of the unbreakable core band.
	CoreLayers = 6

	// MinResolution and MaxResolution bound Resize.
	MinResolution = 8
	MaxResolution = 16384

	// DefaultSeed is the fixed terrain seed.
	DefaultSeed uint32 = 42
)

// BlockID addresses one voxel. Layer grows outward from the planet center.
type BlockID struct {
	Face  uint8
	Layer uint32
	U     uint32
	V     uint32
}

// Chunk returns the chunk column that owns the block.
func (id BlockID) Chunk() ChunkKey {
	return ChunkKey{Face: id.Face, UIdx: id.U / ChunkSize, VIdx: id.V / ChunkSize}
}

func (id BlockID) String() string {
	return fmt.Sprintf("block(f%d l%d u%d v%d)", id.Face, id.Layer, id.U, id.V)
}

// ChunkKey groups a ChunkSize x ChunkSize column of blocks on one face.
type ChunkKey struct {
	Face uint8
	UIdx uint32
	VIdx uint32
}

// Origin returns the grid coordinate of the chunk's first cell.
func (k ChunkKey) Origin() (u, v uint32) {
	return k.UIdx * ChunkSize, k.VIdx * ChunkSize
}

// Neighbors returns the four planar neighbors on the same face. Indices
// below zero wrap to keys that never hold edits.
func (k ChunkKey) Neighbors() [4]ChunkKey {
	return [4]ChunkKey{
		{Face: k.Face, UIdx: k.UIdx - 1, VIdx: k.VIdx},
		{Face: k.Face, UIdx: k.UIdx + 1, VIdx: k.VIdx},
		{Face: k.Face, UIdx: k.UIdx, VIdx: k.VIdx - 1},
		{Face: k.Face, UIdx: k.UIdx, VIdx: k.VIdx + 1},
	}
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("chunk/%d/%d/%d", k.Face, k.UIdx, k.VIdx)
}

// LodKey is a coarse square tile used at distance. Size is always larger
// than ChunkSize.
type LodKey struct {
	Face uint8
	X    uint32
	Y    uint32
	Size uint32
}

// Overlaps reports whether the tile footprint intersects the chunk's.
func (k LodKey) Overlaps(c ChunkKey) bool {
	if k.Face != c.Face {
		return false
	}
	cu, cv := c.Origin()
	return k.X < cu+ChunkSize && k.X+k.Size > cu &&
		k.Y < cv+ChunkSize && k.Y+k.Size > cv
}

func (k LodKey) String() string {
	return fmt.Sprintf("lod/%d/%d/%d/%d", k.Face, k.X, k.Y, k.Size)
}

// ChunkMods is the sparse edit overlay of one chunk. An id is never held
// by both sets.
type ChunkMods struct {
	Mined  map[BlockID]struct{}
	Placed map[BlockID]struct{}
}

// NewChunkMods returns an empty overlay.
func NewChunkMods() *ChunkMods {
	return &ChunkMods{
		Mined:  make(map[BlockID]struct{}),
		Placed: make(map[BlockID]struct{}),
	}
}

// IsMined reports whether id was dug out of the natural terrain.
func (m *ChunkMods) IsMined(id BlockID) bool {
	_, ok := m.Mined[id]
	return ok
}

// IsPlaced reports whether id was added on top of the natural terrain.
func (m *ChunkMods) IsPlaced(id BlockID) bool {
	_, ok := m.Placed[id]
	return ok
}

// Empty reports whether the overlay holds no edits.
func (m *ChunkMods) Empty() bool {
	return len(m.Mined) == 0 && len(m.Placed) == 0
}

// Clone deep-copies both sets.
func (m *ChunkMods) Clone() *ChunkMods {
	c := &ChunkMods{
		Mined:  make(map[BlockID]struct{}, len(m.Mined)),
		Placed: make(map[BlockID]struct{}, len(m.Placed)),
	}
	for id := range m.Mined {
		c.Mined[id] = struct{}{}
	}
	for id := range m.Placed {
		c.Placed[id] = struct{}{}
	}
	return c
}
