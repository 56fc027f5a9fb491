package core

import (
	"sort"
)

// Planet is the editable voxel world: a deterministic heightmap plus a
// sparse per-chunk overlay of mined and placed blocks. It is owned by the
// controlling goroutine; workers only ever see a Snapshot.
type Planet struct {
	resolution uint32
	seed       uint32
	// HasCore protects the innermost CoreLayers from RemoveBlock.
	HasCore bool

	terrain *Heightmap
	chunks  map[ChunkKey]*ChunkMods
}

// NewPlanet generates the terrain for res with the given seed.
func NewPlanet(res, seed uint32) *Planet {
	if res < MinResolution {
		res = MinResolution
	}
	if res > MaxResolution {
		res = MaxResolution
	}
	return &Planet{
		resolution: res,
		seed:       seed,
		HasCore:    true,
		terrain:    GenerateHeightmap(res, seed),
		chunks:     make(map[ChunkKey]*ChunkMods),
	}
}

// Resolution returns the number of cells per face edge, which is also the
// number of layers.
func (p *Planet) Resolution() uint32 { return p.resolution }

// Seed returns the terrain seed.
func (p *Planet) Seed() uint32 { return p.seed }

// Terrain returns the shared heightmap.
func (p *Planet) Terrain() *Heightmap { return p.terrain }

// TerrainHeight returns the natural surface layer of a column.
func (p *Planet) TerrainHeight(face uint8, u, v uint32) uint32 {
	return p.terrain.Height(face, u, v)
}

// Mods returns the overlay of a chunk, if it has any edits. The returned
// value must be treated as read-only.
func (p *Planet) Mods(key ChunkKey) (*ChunkMods, bool) {
	m, ok := p.chunks[key]
	return m, ok
}

// EditCount returns the total number of mined plus placed blocks.
func (p *Planet) EditCount() int {
	n := 0
	for _, m := range p.chunks {
		n += len(m.Mined) + len(m.Placed)
	}
	return n
}

// Exists reports whether a voxel is solid. Placed wins over mined, which
// wins over the natural terrain.
func (p *Planet) Exists(id BlockID) bool {
	if m, ok := p.chunks[id.Chunk()]; ok {
		if m.IsPlaced(id) {
			return true
		}
		if m.IsMined(id) {
			return false
		}
	}
	return id.Layer <= p.terrain.Height(id.Face, id.U, id.V)
}

// AddBlock places a block. If the block had been mined this restores the
// natural terrain instead of recording a placement.
func (p *Planet) AddBlock(id BlockID) {
	key := id.Chunk()
	m := p.modsFor(key)
	if m.IsMined(id) {
		delete(m.Mined, id)
	} else {
		m.Placed[id] = struct{}{}
	}
	p.prune(key, m)
}

// RemoveBlock digs a block out. It is a silent no-op inside the protected
// core band.
func (p *Planet) RemoveBlock(id BlockID) {
	if p.HasCore && id.Layer < CoreLayers {
		return
	}
	key := id.Chunk()
	m := p.modsFor(key)
	if m.IsPlaced(id) {
		delete(m.Placed, id)
	} else if id.Layer < p.resolution {
		m.Mined[id] = struct{}{}
	}
	p.prune(key, m)
}

func (p *Planet) modsFor(key ChunkKey) *ChunkMods {
	m, ok := p.chunks[key]
	if !ok {
		m = NewChunkMods()
		p.chunks[key] = m
	}
	return m
}

func (p *Planet) prune(key ChunkKey, m *ChunkMods) {
	if m.Empty() {
		delete(p.chunks, key)
	}
}

// Resize grows the resolution by 1.2x (at least one cell, at most
// MaxResolution) or shrinks it by 1.2x (never below MinResolution). Edits
// are discarded and the heightmap is regenerated.
func (p *Planet) Resize(grow bool) {
	res := p.resolution
	if grow {
		next := uint32(float32(res) * 1.2)
		if next < res+1 {
			next = res + 1
		}
		if next > MaxResolution {
			next = MaxResolution
		}
		res = next
	} else {
		next := uint32(float32(res) / 1.2)
		if next < MinResolution {
			next = MinResolution
		}
		res = next
	}

	p.resolution = res
	p.chunks = make(map[ChunkKey]*ChunkMods)
	p.terrain = GenerateHeightmap(res, p.seed)
}

// Snapshot returns an immutable view for worker goroutines. The heightmap
// is shared; only the edit overlay is copied.
func (p *Planet) Snapshot() *Planet {
	chunks := make(map[ChunkKey]*ChunkMods, len(p.chunks))
	for k, m := range p.chunks {
		chunks[k] = m.Clone()
	}
	return &Planet{
		resolution: p.resolution,
		seed:       p.seed,
		HasCore:    p.HasCore,
		terrain:    p.terrain,
		chunks:     chunks,
	}
}

// ChunkEdits is the overlay of one chunk in a WorldState.
type ChunkEdits struct {
	Key    ChunkKey  `json:"key" yaml:"key"`
	Mined  []BlockID `json:"mined,omitempty" yaml:"mined,omitempty"`
	Placed []BlockID `json:"placed,omitempty" yaml:"placed,omitempty"`
}

// WorldState is everything needed to rebuild a Planet. The heightmap is
// never part of it; it is regenerated from resolution and seed.
type WorldState struct {
	Resolution uint32       `json:"resolution" yaml:"resolution"`
	Seed       uint32       `json:"seed" yaml:"seed"`
	HasCore    bool         `json:"hasCore" yaml:"has_core"`
	Edits      []ChunkEdits `json:"edits,omitempty" yaml:"edits,omitempty"`
}

// State captures the planet as a WorldState with edits in a stable order.
func (p *Planet) State() WorldState {
	st := WorldState{Resolution: p.resolution, Seed: p.seed, HasCore: p.HasCore}
	for k, m := range p.chunks {
		st.Edits = append(st.Edits, ChunkEdits{
			Key:    k,
			Mined:  sortedIDs(m.Mined),
			Placed: sortedIDs(m.Placed),
		})
	}
	sort.Slice(st.Edits, func(i, j int) bool {
		return chunkLess(st.Edits[i].Key, st.Edits[j].Key)
	})
	return st
}

// RestorePlanet rebuilds a planet from a WorldState. Edits that would
// violate the mined/placed exclusivity keep the placement.
func RestorePlanet(st WorldState) *Planet {
	p := NewPlanet(st.Resolution, st.Seed)
	p.HasCore = st.HasCore
	for _, e := range st.Edits {
		for _, id := range e.Mined {
			m := p.modsFor(id.Chunk())
			m.Mined[id] = struct{}{}
		}
		for _, id := range e.Placed {
			m := p.modsFor(id.Chunk())
			delete(m.Mined, id)
			m.Placed[id] = struct{}{}
		}
	}
	return p
}

func sortedIDs(set map[BlockID]struct{}) []BlockID {
	if len(set) == 0 {
		return nil
	}
	out := make([]BlockID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return BlockLess(out[i], out[j]) })
	return out
}

// BlockLess orders ids by face, layer, v, then u.
func BlockLess(a, b BlockID) bool {
	if a.Face != b.Face {
		return a.Face < b.Face
	}
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}
	if a.V != b.V {
		return a.V < b.V
	}
	return a.U < b.U
}

func chunkLess(a, b ChunkKey) bool {
	if a.Face != b.Face {
		return a.Face < b.Face
	}
	if a.VIdx != b.VIdx {
		return a.VIdx < b.VIdx
	}
	return a.UIdx < b.UIdx
}
