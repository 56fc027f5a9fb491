package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfaceOf(p *Planet, face uint8, u, v uint32) BlockID {
	return BlockID{Face: face, Layer: p.TerrainHeight(face, u, v), U: u, V: v}
}

func assertExclusive(t *testing.T, p *Planet) {
	t.Helper()
	for key, m := range p.chunks {
		assert.False(t, m.Empty(), "%v kept an empty overlay", key)
		for id := range m.Mined {
			assert.False(t, m.IsPlaced(id), "%v is both mined and placed", id)
		}
	}
}

func TestHeightmapDeterministic(t *testing.T) {
	a := GenerateHeightmap(40, DefaultSeed)
	b := GenerateHeightmap(40, DefaultSeed)
	require.Equal(t, a.Len(), 6*40*40)
	assert.Equal(t, a.heights, b.heights)

	for _, h := range a.heights {
		assert.GreaterOrEqual(t, h, uint16(1))
		assert.LessOrEqual(t, h, uint16(20+24))
	}

	c := GenerateHeightmap(40, DefaultSeed+1)
	assert.NotEqual(t, a.heights, c.heights)
}

func TestHeightmapMatchesSerialColumns(t *testing.T) {
	const res = 33
	hm := GenerateHeightmap(res, DefaultSeed)
	gen := NewNoiseGenerator(DefaultSeed)
	settings := DefaultTerrainSettings(res)
	for face := uint8(0); face < FaceCount; face++ {
		for v := uint32(0); v < res; v++ {
			for u := uint32(0); u < res; u++ {
				require.Equal(t, uint32(columnHeight(gen, settings, face, u, v, res)), hm.Height(face, u, v),
					"face %d (%d,%d)", face, u, v)
			}
		}
	}
}

func TestHeightClampsPastLastColumn(t *testing.T) {
	hm := GenerateHeightmap(16, DefaultSeed)
	assert.Equal(t, hm.Height(3, 15, 15), hm.Height(3, 16, 16))
	assert.Equal(t, hm.Height(3, 15, 7), hm.Height(3, 99, 7))
}

func TestExistsFollowsTerrain(t *testing.T) {
	p := NewPlanet(32, DefaultSeed)
	top := surfaceOf(p, 4, 10, 12)

	assert.True(t, p.Exists(top))
	below := top
	below.Layer--
	assert.True(t, p.Exists(below))
	above := top
	above.Layer++
	assert.False(t, p.Exists(above))
}

func TestAddRemoveToggle(t *testing.T) {
	p := NewPlanet(32, DefaultSeed)
	top := surfaceOf(p, 0, 5, 5)
	air := top
	air.Layer += 2

	p.AddBlock(air)
	assert.True(t, p.Exists(air))
	assertExclusive(t, p)

	p.RemoveBlock(air)
	assert.False(t, p.Exists(air))
	assert.Zero(t, p.EditCount(), "add then remove must restore the overlay")

	p.RemoveBlock(top)
	assert.False(t, p.Exists(top))
	assertExclusive(t, p)

	p.AddBlock(top)
	assert.True(t, p.Exists(top))
	assert.Zero(t, p.EditCount(), "re-adding a mined block un-mines it")
}

func TestAddThenRemoveRestoresUnderground(t *testing.T) {
	p := NewPlanet(32, DefaultSeed)
	id := surfaceOf(p, 2, 20, 3)
	id.Layer -= 3
	require.GreaterOrEqual(t, id.Layer, uint32(CoreLayers))

	p.AddBlock(id)
	assert.True(t, p.Exists(id))
	p.RemoveBlock(id)
	assert.True(t, p.Exists(id), "natural rock stays solid")
	assert.Zero(t, p.EditCount())
}

func TestCoreIsProtected(t *testing.T) {
	p := NewPlanet(32, DefaultSeed)
	id := BlockID{Face: 1, Layer: CoreLayers - 1, U: 4, V: 4}

	p.RemoveBlock(id)
	assert.True(t, p.Exists(id))
	assert.Zero(t, p.EditCount())

	p.HasCore = false
	p.RemoveBlock(id)
	assert.False(t, p.Exists(id))
}

func TestRemoveAboveTopLayerIgnored(t *testing.T) {
	p := NewPlanet(16, DefaultSeed)
	p.RemoveBlock(BlockID{Face: 0, Layer: 16, U: 1, V: 1})
	assert.Zero(t, p.EditCount())
}

func TestEditsAcrossChunkBoundary(t *testing.T) {
	p := NewPlanet(96, DefaultSeed)
	a := surfaceOf(p, 5, ChunkSize-1, 40)
	b := surfaceOf(p, 5, ChunkSize, 40)
	p.RemoveBlock(a)
	p.RemoveBlock(b)

	_, ok := p.Mods(ChunkKey{Face: 5, UIdx: 0, VIdx: 1})
	assert.True(t, ok)
	_, ok = p.Mods(ChunkKey{Face: 5, UIdx: 1, VIdx: 1})
	assert.True(t, ok)
	assert.Equal(t, 2, p.EditCount())
}

func TestResizeClamps(t *testing.T) {
	tests := []struct {
		name string
		from uint32
		grow bool
		want uint32
	}{
		{"grow small adds one", 8, true, 9},
		{"grow by factor", 50, true, 60},
		{"shrink by factor", 13, false, 10},
		{"shrink floors at minimum", 9, false, MinResolution},
		{"minimum stays", MinResolution, false, MinResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanet(tt.from, DefaultSeed)
			p.AddBlock(BlockID{Face: 0, Layer: tt.from - 1, U: 0, V: 0})
			p.Resize(tt.grow)
			assert.Equal(t, tt.want, p.Resolution())
			assert.Equal(t, tt.want, p.Terrain().Resolution())
			assert.Zero(t, p.EditCount())
		})
	}
}

func TestSnapshotIsolation(t *testing.T) {
	p := NewPlanet(32, DefaultSeed)
	id := surfaceOf(p, 3, 7, 9)
	p.RemoveBlock(id)

	snap := p.Snapshot()
	assert.Same(t, p.Terrain(), snap.Terrain())

	p.AddBlock(id)
	other := surfaceOf(p, 3, 8, 9)
	p.RemoveBlock(other)

	assert.False(t, snap.Exists(id))
	assert.True(t, snap.Exists(other))
	assert.True(t, p.Exists(id))
	assert.False(t, p.Exists(other))
}

func TestStateRestore(t *testing.T) {
	p := NewPlanet(40, DefaultSeed)
	mined := surfaceOf(p, 1, 2, 3)
	placed := surfaceOf(p, 4, 33, 33)
	placed.Layer++
	p.RemoveBlock(mined)
	p.AddBlock(placed)

	st := p.State()
	require.Len(t, st.Edits, 2)
	assert.Equal(t, uint8(1), st.Edits[0].Key.Face)

	q := RestorePlanet(st)
	assert.Equal(t, p.Resolution(), q.Resolution())
	assert.False(t, q.Exists(mined))
	assert.True(t, q.Exists(placed))
	assert.Equal(t, p.EditCount(), q.EditCount())
	assert.Equal(t, st, q.State())
}
