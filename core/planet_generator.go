package core

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Heightmap stores the natural surface layer of every (face,u,v) column.
// It is built once per resolution and never mutated afterwards, so planet
// snapshots and mesh workers share one instance by pointer.
type Heightmap struct {
	heights    []uint16
	resolution uint32
	seed       uint32
}

// GenerateHeightmap evaluates the terrain noise for all 6*res^2 columns.
// Rows are filled concurrently, at most GOMAXPROCS at a time; every cell is
// a pure function of its address, so the result is bit-identical for a
// given seed and resolution.
func GenerateHeightmap(res, seed uint32) *Heightmap {
	hm := &Heightmap{
		heights:    make([]uint16, FaceCount*int(res)*int(res)),
		resolution: res,
		seed:       seed,
	}
	gen := NewNoiseGenerator(seed)
	settings := DefaultTerrainSettings(res)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for face := uint8(0); face < FaceCount; face++ {
		for v := uint32(0); v < res; v++ {
			face, v := face, v
			g.Go(func() error {
				for u := uint32(0); u < res; u++ {
					hm.heights[hm.index(face, u, v)] = columnHeight(gen, settings, face, u, v, res)
				}
				return nil
			})
		}
	}
	// Row jobs cannot fail; Wait only joins them.
	_ = g.Wait()
	return hm
}

// columnHeight is the natural surface layer of one column.
func columnHeight(gen *NoiseGenerator, s NoiseSettings, face uint8, u, v, res uint32) uint16 {
	n := gen.Sample(Direction(face, u, v, res), s)
	return uint16(math.Max(1, float64(res)/2+n*s.Amplitude))
}

func (h *Heightmap) index(face uint8, u, v uint32) int {
	r := int(h.resolution)
	return int(face)*r*r + int(v)*r + int(u)
}

// Height returns the natural surface layer. Coordinates past the last
// column clamp to it, which lets grid corners (u == res) sample safely.
func (h *Heightmap) Height(face uint8, u, v uint32) uint32 {
	if h.resolution == 0 {
		return 0
	}
	if u >= h.resolution {
		u = h.resolution - 1
	}
	if v >= h.resolution {
		v = h.resolution - 1
	}
	return uint32(h.heights[h.index(face, u, v)])
}

// Resolution returns the grid size the map was generated for.
func (h *Heightmap) Resolution() uint32 { return h.resolution }

// Seed returns the seed the map was generated from.
func (h *Heightmap) Seed() uint32 { return h.seed }

// Len returns the number of stored columns.
func (h *Heightmap) Len() int { return len(h.heights) }
