package rendering

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

const (
	// LodGrid is the number of cells per tile edge.
	LodGrid = 64
	lodRow  = LodGrid + 1

	steepThreshold = 0.85
	skirtFactor    = 0.15
	minSkirtDepth  = 4
	maxSkirtDepth  = 500
)

// LodVertexCount and LodIndexCount are the fixed buffer sizes of every
// tile: the grid plus four skirt rows.
const (
	LodVertexCount = lodRow*lodRow + 4*lodRow
	LodIndexCount  = LodGrid*LodGrid*6 + 4*LodGrid*6
)

// BuildLod renders a tile as a heightmap surface. Samples are taken on
// global grid indices so that the central-difference normals at a tile edge
// match those of the neighboring tile.
func BuildLod(key core.LodKey, p *core.Planet) *Mesh {
	res := p.Resolution()
	terrain := p.Terrain()

	cell := func(g int64, origin uint32) uint32 {
		step := g * int64(key.Size) / LodGrid
		return uint32(clamp64(int64(origin)+step, 0, int64(res)))
	}
	sample := func(gx, gy int64) mgl64.Vec3 {
		u, v := cell(gx, key.X), cell(gy, key.Y)
		return core.PositionFor(key.Face, u, v, terrain.Height(key.Face, u, v), res)
	}

	mesh := &Mesh{
		Vertices: make([]Vertex, 0, LodVertexCount),
		Indices:  make([]uint32, 0, LodIndexCount),
	}

	for gy := int64(0); gy <= LodGrid; gy++ {
		for gx := int64(0); gx <= LodGrid; gx++ {
			pos := sample(gx, gy)
			up := core.SafeNormalize(pos)

			tu := sample(gx+1, gy).Sub(sample(gx-1, gy))
			tv := sample(gx, gy+1).Sub(sample(gx, gy-1))
			normal := normalizeOr(tu.Cross(tv), up)
			if normal.Dot(up) < 0 {
				normal = normal.Mul(-1)
			}

			h := terrain.Height(key.Face, cell(gx, key.X), cell(gy, key.Y))
			var color mgl32.Vec3
			switch {
			case p.HasCore && h < core.CoreLayers:
				color = core.LodCoreColor
			case math.Abs(normal.Dot(up)) < steepThreshold:
				color = core.LodSteepColor
			default:
				color = core.LodFlatColor
			}

			mesh.Vertices = append(mesh.Vertices, Vertex{Pos: vec32(pos), Color: color, Normal: vec32(normal)})
		}
	}

	for y := uint32(0); y < LodGrid; y++ {
		for x := uint32(0); x < LodGrid; x++ {
			tl := y*lodRow + x
			tr := tl + 1
			bl := (y+1)*lodRow + x
			br := bl + 1
			mesh.Indices = append(mesh.Indices, tl, bl, tr, tr, bl, br)
		}
	}

	depth := SkirtDepth(key.Size, res)
	edge := func(fixed uint32, alongX bool) [lodRow]uint32 {
		var idx [lodRow]uint32
		for i := uint32(0); i < lodRow; i++ {
			if alongX {
				idx[i] = fixed*lodRow + i
			} else {
				idx[i] = i*lodRow + fixed
			}
		}
		return idx
	}
	mesh.addSkirt(edge(0, true), depth, false)
	mesh.addSkirt(edge(LodGrid, true), depth, true)
	mesh.addSkirt(edge(0, false), depth, true)
	mesh.addSkirt(edge(LodGrid, false), depth, false)

	return mesh
}

// SkirtDepth is how far tile edges are extruded toward the center, in
// world units.
func SkirtDepth(size, res uint32) float64 {
	radius := core.LayerRadius(float64(res/2), res)
	phys := float64(size) / float64(res) * radius
	return math.Min(math.Max(phys*skirtFactor, minSkirtDepth), maxSkirtDepth)
}

// addSkirt copies an edge row of surface vertices downward and stitches it
// to the original row. reverse flips the winding so each skirt faces out.
func (m *Mesh) addSkirt(row [lodRow]uint32, depth float64, reverse bool) {
	base := uint32(len(m.Vertices))
	for _, src := range row {
		v := m.Vertices[src]
		p := vec64(v.Pos)
		v.Pos = vec32(p.Sub(core.SafeNormalize(p).Mul(depth)))
		m.Vertices = append(m.Vertices, v)
	}
	for i := uint32(0); i < lodRow-1; i++ {
		s1, s2 := row[i], row[i+1]
		k1, k2 := base+i, base+i+1
		if reverse {
			m.Indices = append(m.Indices, s1, k2, k1, s1, s2, k2)
		} else {
			m.Indices = append(m.Indices, s1, k1, k2, s1, k2, s2)
		}
	}
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
