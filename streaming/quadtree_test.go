package streaming

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/core"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want uint32 }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {49, 64}, {64, 64}, {200, 256}, {16384, 16384},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPowerOfTwo(tt.in), "in=%d", tt.in)
	}
}

func TestLodFactorSteps(t *testing.T) {
	tests := []struct {
		size uint32
		want float64
	}{
		{32, 18}, {64, 12}, {128, 7}, {256, 5}, {512, 4}, {4096, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LodFactor(tt.size), "size=%d", tt.size)
	}
}

// surfaceViewer returns a point just above the terrain of a column.
func surfaceViewer(p *core.Planet, face uint8, u, v uint32) mgl64.Vec3 {
	id := core.BlockID{Face: face, Layer: p.TerrainHeight(face, u, v) + 2, U: u, V: v}
	return core.BlockCenter(id, p.Resolution())
}

func assertCovered(t *testing.T, res uint32, req Requirements) {
	t.Helper()
	counts := make([][]uint8, core.FaceCount)
	for f := range counts {
		counts[f] = make([]uint8, res*res)
	}
	mark := func(face uint8, x, y, size uint32) {
		for v := y; v < min(y+size, res); v++ {
			for u := x; u < min(x+size, res); u++ {
				counts[face][v*res+u]++
			}
		}
	}
	for k := range req.Chunks {
		u, v := k.Origin()
		mark(k.Face, u, v, core.ChunkSize)
	}
	for k := range req.Lods {
		require.Greater(t, k.Size, uint32(core.ChunkSize))
		mark(k.Face, k.X, k.Y, k.Size)
	}
	for f := range counts {
		for i, c := range counts[f] {
			require.Equal(t, uint8(1), c, "face %d cell %d covered %d times", f, i, c)
		}
	}
}

func TestRequiredCoversEveryFaceOnce(t *testing.T) {
	const res = 200
	p := core.NewPlanet(res, core.DefaultSeed)

	viewers := map[string]mgl64.Vec3{
		"far away":      {0, 50 * res, 0},
		"on face 0":     surfaceViewer(p, 0, 100, 100),
		"near an edge":  surfaceViewer(p, 3, 199, 5),
		"in a corner":   surfaceViewer(p, 5, 0, 0),
		"planet center": {},
	}
	for name, viewer := range viewers {
		t.Run(name, func(t *testing.T) {
			assertCovered(t, res, Required(res, viewer))
		})
	}
}

func TestRequiredRefinesUnderViewer(t *testing.T) {
	const res = 512
	p := core.NewPlanet(res, core.DefaultSeed)
	viewer := surfaceViewer(p, 2, 300, 77)

	req := Required(res, viewer)
	_, ok := req.Chunks[core.ChunkKey{Face: 2, UIdx: 300 / core.ChunkSize, VIdx: 77 / core.ChunkSize}]
	assert.True(t, ok, "the chunk under the viewer is always at full detail")
	assert.NotEmpty(t, req.Lods, "distant parts use tiles")

	far := Required(res, mgl64.Vec3{0, 0, 100 * res})
	assert.Empty(t, far.Chunks)
	assert.Len(t, far.Lods, core.FaceCount)
}

func TestRequiredSmallPlanetIsAllChunks(t *testing.T) {
	const res = 20
	req := Required(res, mgl64.Vec3{0, 1000, 0})
	assert.Len(t, req.Chunks, core.FaceCount)
	assert.Empty(t, req.Lods)
	assertCovered(t, res, req)
}
