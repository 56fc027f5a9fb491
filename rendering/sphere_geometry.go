package rendering

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

var (
	avatarColor = mgl32.Vec3{0, 0.5, 1}
	guideColor  = mgl32.Vec3{1, 1, 1}
	debugColor  = mgl32.Vec3{1, 0, 0}
)

// Cylinder builds the avatar stand-in: an open tube of the given radius
// standing on the origin along +Y, capped at the top.
func Cylinder(radius, height float32, segments int) *Mesh {
	if segments < 3 {
		segments = 16
	}
	m := &Mesh{}
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		x := float32(math.Cos(theta)) * radius
		z := float32(math.Sin(theta)) * radius
		n := mgl32.Vec3{x, 0, z}.Normalize()
		m.Vertices = append(m.Vertices,
			Vertex{Pos: mgl32.Vec3{x, 0, z}, Color: avatarColor, Normal: n},
			Vertex{Pos: mgl32.Vec3{x, height, z}, Color: avatarColor, Normal: n})
	}
	for i := 0; i < segments; i++ {
		b1 := uint32(i * 2)
		t1, b2, t2 := b1+1, b1+2, b1+3
		m.Indices = append(m.Indices, b1, t1, b2, b2, t1, t2)
	}

	center := uint32(len(m.Vertices))
	up := mgl32.Vec3{0, 1, 0}
	m.Vertices = append(m.Vertices, Vertex{Pos: mgl32.Vec3{0, height, 0}, Color: avatarColor, Normal: up})
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		x := float32(math.Cos(theta)) * radius
		z := float32(math.Sin(theta)) * radius
		m.Vertices = append(m.Vertices, Vertex{Pos: mgl32.Vec3{x, height, z}, Color: avatarColor, Normal: up})
	}
	for i := uint32(0); i < uint32(segments); i++ {
		m.Indices = append(m.Indices, center, center+1+i, center+2+i)
	}
	return m
}

// SphereGuide builds a UV sphere, used to show the nominal surface radius.
func SphereGuide(radius float32, segments int) *Mesh {
	if segments <= 0 {
		segments = 64
	}
	m := &Mesh{}
	for y := 0; y <= segments; y++ {
		theta := float64(y) / float64(segments) * math.Pi
		for x := 0; x <= segments; x++ {
			phi := float64(x) / float64(segments) * 2 * math.Pi
			n := mgl32.Vec3{
				float32(math.Cos(phi) * math.Sin(theta)),
				float32(math.Cos(theta)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			m.Vertices = append(m.Vertices, Vertex{Pos: n.Mul(radius), Color: guideColor, Normal: n})
		}
	}
	row := uint32(segments + 1)
	for y := uint32(0); y < uint32(segments); y++ {
		for x := uint32(0); x < uint32(segments); x++ {
			i := y*row + x
			m.Indices = append(m.Indices, i, i+row, i+row+1, i+row+1, i+1, i)
		}
	}
	return m
}

// Crosshair is a screen-space plus sign two percent of the view wide.
func Crosshair() *Mesh {
	const s = 0.02
	n := mgl32.Vec3{0, 0, 1}
	return &Mesh{
		Vertices: []Vertex{
			{Pos: mgl32.Vec3{-s, 0, 0}, Color: guideColor, Normal: n},
			{Pos: mgl32.Vec3{s, 0, 0}, Color: guideColor, Normal: n},
			{Pos: mgl32.Vec3{0, -s, 0}, Color: guideColor, Normal: n},
			{Pos: mgl32.Vec3{0, s, 0}, Color: guideColor, Normal: n},
		},
		Indices: []uint32{0, 1, 2, 3},
		Lines:   true,
	}
}

// DebugRange is the half-width, in cells, of the collision debug cube.
const DebugRange = 2

var boxEdges = [12][2]uint32{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// CollisionDebug outlines every block around pos whose center the solver
// treats as solid. Boxes are shrunk toward their center so the shaved
// margin stays visible.
func CollisionDebug(pos mgl64.Vec3, res uint32, solid func(mgl64.Vec3) bool) *Mesh {
	m := &Mesh{Lines: true}
	center, ok := core.AddressFor(pos, res)
	if !ok {
		return m
	}

	span := func(c uint32) (int64, int64) {
		return max(int64(c)-DebugRange, 0), min(int64(c)+DebugRange, int64(res)-1)
	}
	u0, u1 := span(center.U)
	v0, v1 := span(center.V)
	l0, l1 := span(center.Layer)

	const shrink = 0.9
	n := mgl32.Vec3{0, 1, 0}
	for l := l0; l <= l1; l++ {
		for v := v0; v <= v1; v++ {
			for u := u0; u <= u1; u++ {
				id := core.BlockID{Face: center.Face, Layer: uint32(l), U: uint32(u), V: uint32(v)}
				if !solid(core.BlockCenter(id, res)) {
					continue
				}
				corner := func(du, dv, dl uint32) mgl64.Vec3 {
					return core.PositionFor(id.Face, id.U+du, id.V+dv, id.Layer+dl, res)
				}
				corners := [8]mgl64.Vec3{
					corner(0, 0, 0), corner(1, 0, 0), corner(1, 1, 0), corner(0, 1, 0),
					corner(0, 0, 1), corner(1, 0, 1), corner(1, 1, 1), corner(0, 1, 1),
				}
				var mid mgl64.Vec3
				for _, c := range corners {
					mid = mid.Add(c)
				}
				mid = mid.Mul(0.125)

				base := uint32(len(m.Vertices))
				for _, c := range corners {
					p := mid.Add(c.Sub(mid).Mul(shrink))
					m.Vertices = append(m.Vertices, Vertex{Pos: vec32(p), Color: debugColor, Normal: n})
				}
				for _, e := range boxEdges {
					m.Indices = append(m.Indices, base+e[0], base+e[1])
				}
			}
		}
	}
	return m
}
