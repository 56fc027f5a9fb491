package streaming

import "voxelplanet/core"

// KeyKind tags which half of AnyKey is meaningful.
type KeyKind uint8

const (
	KindChunk KeyKind = iota
	KindLod
)

func (k KeyKind) String() string {
	if k == KindLod {
		return "lod"
	}
	return "chunk"
}

// AnyKey identifies a resident mesh of either granularity. It is
// comparable and used as a map key by the fade animator.
type AnyKey struct {
	Kind  KeyKind
	Chunk core.ChunkKey
	Lod   core.LodKey
}

// ChunkOf wraps a chunk key.
func ChunkOf(k core.ChunkKey) AnyKey { return AnyKey{Kind: KindChunk, Chunk: k} }

// LodOf wraps a tile key.
func LodOf(k core.LodKey) AnyKey { return AnyKey{Kind: KindLod, Lod: k} }

func (k AnyKey) String() string {
	if k.Kind == KindLod {
		return k.Lod.String()
	}
	return k.Chunk.String()
}
