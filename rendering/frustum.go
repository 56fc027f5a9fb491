package rendering

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Frustum holds the six clip planes of a view-projection matrix as
// (normal, distance) with normals pointing inward.
type Frustum struct {
	planes [6]mgl32.Vec4
}

// NewFrustum extracts the planes from a combined projection*view matrix.
func NewFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	f := Frustum{planes: [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}}
	for i, p := range f.planes {
		if l := p.Vec3().Len(); l > 0 {
			f.planes[i] = p.Mul(1 / l)
		}
	}
	return f
}

// SphereVisible reports whether a bounding sphere touches the frustum.
func (f Frustum) SphereVisible(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.planes {
		if p.Vec3().Dot(center)+p[3] < -radius {
			return false
		}
	}
	return true
}
