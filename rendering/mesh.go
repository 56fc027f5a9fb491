package rendering

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Vertex is one interleaved vertex: position, color, normal.
type Vertex struct {
	Pos    mgl32.Vec3
	Color  mgl32.Vec3
	Normal mgl32.Vec3
}

const (
	// FloatsPerVertex is the interleaved stride in float32s.
	FloatsPerVertex = 9
	// VertexBytes and IndexBytes are the GPU footprint used for memory stats.
	VertexBytes = FloatsPerVertex * 4
	IndexBytes  = 4
)

// Mesh is CPU-side geometry ready for upload. Indices describe triangles,
// or line segments when Lines is set.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Lines    bool
}

// Empty reports whether there is nothing to draw.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Indices) == 0
}

// ByteSize estimates the uploaded size of the buffers.
func (m *Mesh) ByteSize() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)*VertexBytes + len(m.Indices)*IndexBytes
}

// Interleave flattens the vertices into the position/color/normal layout
// the renderer uploads.
func (m *Mesh) Interleave() []float32 {
	out := make([]float32, 0, len(m.Vertices)*FloatsPerVertex)
	for _, v := range m.Vertices {
		out = append(out,
			v.Pos[0], v.Pos[1], v.Pos[2],
			v.Color[0], v.Color[1], v.Color[2],
			v.Normal[0], v.Normal[1], v.Normal[2])
	}
	return out
}

// Bounds returns the center of the axis-aligned box around the vertices and
// the half length of its diagonal.
func (m *Mesh) Bounds() (mgl64.Vec3, float64) {
	if m == nil || len(m.Vertices) == 0 {
		return mgl64.Vec3{}, 0
	}
	lo := vec64(m.Vertices[0].Pos)
	hi := lo
	for _, v := range m.Vertices[1:] {
		p := vec64(v.Pos)
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	return center, hi.Sub(lo).Len() * 0.5
}

// addQuad appends four corners as two triangles (0,1,2 and 2,3,0). Radial
// quads use the direction of their centroid as normal; the rest use the
// winding's cross product.
func (m *Mesh) addQuad(pos [4]mgl64.Vec3, colors [4]mgl32.Vec3, radial bool) {
	var normal mgl64.Vec3
	if radial {
		normal = pos[0].Add(pos[1]).Add(pos[2]).Add(pos[3]).Mul(0.25)
	} else {
		normal = pos[1].Sub(pos[0]).Cross(pos[2].Sub(pos[0]))
	}
	n := vec32(normalizeOr(normal, pos[0]))

	base := uint32(len(m.Vertices))
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, Vertex{Pos: vec32(pos[i]), Color: colors[i], Normal: n})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+3, base)
}

func normalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if l := v.Len(); l > 1e-12 {
		return v.Mul(1 / l)
	}
	if l := fallback.Len(); l > 1e-12 {
		return fallback.Mul(1 / l)
	}
	return mgl64.Vec3{0, 1, 0}
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
