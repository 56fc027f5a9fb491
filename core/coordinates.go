package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// K is the radial growth constant of the layer mapping. Changing it
// redefines every layer<->radius pair, so it must be versioned if it is
// ever exposed outside the process.
const K = 0.85

const invSqrt2 = math.Sqrt2 / 2

// DefaultUp is the axis used whenever a direction cannot be derived
// (zero-length vectors at the planet center).
var DefaultUp = mgl64.Vec3{0, 1, 0}

// SafeNormalize returns v scaled to unit length, or DefaultUp when v is
// too short to carry a direction.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return DefaultUp
	}
	return v.Mul(1 / l)
}

// CubeToSphere maps a point on the unit cube surface onto the unit sphere.
// Unlike a plain normalize it keeps cell areas close to uniform near the
// cube edges.
func CubeToSphere(x, y, z float64) mgl64.Vec3 {
	x2, y2, z2 := x*x, y*y, z*z
	return mgl64.Vec3{
		x * math.Sqrt(1-y2*0.5-z2*0.5+y2*z2/3),
		y * math.Sqrt(1-z2*0.5-x2*0.5+z2*x2/3),
		z * math.Sqrt(1-x2*0.5-y2*0.5+x2*y2/3),
	}
}

// Cubize is the algebraic inverse of CubeToSphere for a unit-length point.
// The dominant axis snaps to +-1; the other two are recovered by solving a
// quadratic.
func Cubize(p mgl64.Vec3) mgl64.Vec3 {
	ax, ay, az := math.Abs(p[0]), math.Abs(p[1]), math.Abs(p[2])
	switch {
	case ay >= ax && ay >= az:
		x, z := invertPair(p[0], p[2])
		return mgl64.Vec3{x, signOne(p[1]), z}
	case ax >= ay && ax >= az:
		y, z := invertPair(p[1], p[2])
		return mgl64.Vec3{signOne(p[0]), y, z}
	default:
		x, y := invertPair(p[0], p[1])
		return mgl64.Vec3{x, y, signOne(p[2])}
	}
}

func invertPair(a, b float64) (float64, float64) {
	a2 := a * a * 2
	b2 := b * b * 2
	inner := -a2 + b2 - 3
	innerSqrt := -math.Sqrt(math.Max(0, inner*inner-12*a2))

	var ra, rb float64
	if a != 0 {
		ra = math.Sqrt(math.Max(0, innerSqrt+a2-b2+3)) * invSqrt2
	}
	if b != 0 {
		rb = math.Sqrt(math.Max(0, innerSqrt-a2+b2+3)) * invSqrt2
	}
	ra = math.Min(ra, 1)
	rb = math.Min(rb, 1)
	if a < 0 {
		ra = -ra
	}
	if b < 0 {
		rb = -rb
	}
	return ra, rb
}

func signOne(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}

// faceToCube places face-local coordinates in [-1,1] on the unit cube.
//
//	0:+Y (a=x, b=z)  1:-Y (a=x, b=z)
//	2:+X (a=y, b=z)  3:-X (a=y, b=z)
//	4:+Z (a=x, b=y)  5:-Z (a=x, b=y)
func faceToCube(face uint8, a, b float64) (x, y, z float64) {
	switch face {
	case 0:
		return a, 1, b
	case 1:
		return a, -1, b
	case 2:
		return 1, a, b
	case 3:
		return -1, a, b
	case 4:
		return a, b, 1
	default:
		return a, b, -1
	}
}

// cubeToFace is the inverse of faceToCube for a point already on the cube.
func cubeToFace(c mgl64.Vec3) (face uint8, a, b float64) {
	ax, ay, az := math.Abs(c[0]), math.Abs(c[1]), math.Abs(c[2])
	switch {
	case ay >= ax && ay >= az:
		if c[1] > 0 {
			return 0, c[0], c[2]
		}
		return 1, c[0], c[2]
	case ax >= ay && ax >= az:
		if c[0] > 0 {
			return 2, c[1], c[2]
		}
		return 3, c[1], c[2]
	default:
		if c[2] > 0 {
			return 4, c[0], c[1]
		}
		return 5, c[0], c[1]
	}
}

// gridToLocal converts a grid line index into the [-1,1] face range. The
// two face borders are pinned exactly so neighbouring faces share corners.
func gridToLocal(i float64, res uint32) float64 {
	rf := float64(res)
	switch i {
	case 0:
		return -1
	case rf:
		return 1
	}
	return (i*2 - rf) / rf
}

// LayerRadius returns the inner radius of a layer:
// (res/2) * exp(K * (layer/(res/2) - 1)).
func LayerRadius(layer float64, res uint32) float64 {
	s := float64(res) / 2
	return s * math.Exp(K*(layer/s-1))
}

// LayerAt inverts LayerRadius, returning the fractional layer at distance.
func LayerAt(dist float64, res uint32) float64 {
	s := float64(res) / 2
	return s * (1 + math.Log(dist/s)/K)
}

// MinRadius is the smallest addressable distance from the center.
func MinRadius(res uint32) float64 {
	return float64(res) / 2 * math.Exp(-K)
}

// Direction returns the unit vector through grid corner (u,v) of a face.
func Direction(face uint8, u, v, res uint32) mgl64.Vec3 {
	x, y, z := faceToCube(face, gridToLocal(float64(u), res), gridToLocal(float64(v), res))
	return SafeNormalize(CubeToSphere(x, y, z))
}

// PositionFor returns the world position of grid corner (u,v) on the inner
// surface of layer.
func PositionFor(face uint8, u, v, layer, res uint32) mgl64.Vec3 {
	return Direction(face, u, v, res).Mul(LayerRadius(float64(layer), res))
}

// BlockCenter returns the world position of the middle of a voxel.
func BlockCenter(id BlockID, res uint32) mgl64.Vec3 {
	rf := float64(res)
	a := ((float64(id.U)+0.5)*2 - rf) / rf
	b := ((float64(id.V)+0.5)*2 - rf) / rf
	x, y, z := faceToCube(id.Face, a, b)
	dir := SafeNormalize(CubeToSphere(x, y, z))
	return dir.Mul(LayerRadius(float64(id.Layer)+0.5, res))
}

// AddressFor resolves a world position to the voxel containing it.
func AddressFor(pos mgl64.Vec3, res uint32) (BlockID, bool) {
	id, _, ok := LocalCoords(pos, res)
	return id, ok
}

// LocalCoords resolves a world position to its voxel plus the fractional
// offset inside that voxel: x along u, y along v, z along the layer, each
// in [0,1). It reports false below MinRadius or outside [0,res) layers.
func LocalCoords(pos mgl64.Vec3, res uint32) (BlockID, mgl64.Vec3, bool) {
	dist := pos.Len()
	if res == 0 || dist < MinRadius(res) || math.IsNaN(dist) {
		return BlockID{}, mgl64.Vec3{}, false
	}

	layerF := LayerAt(dist, res)
	layer := math.Floor(layerF)
	if layer < 0 || layer >= float64(res) {
		return BlockID{}, mgl64.Vec3{}, false
	}

	face, a, b := cubeToFace(Cubize(SafeNormalize(pos)))

	rf := float64(res)
	uRaw := (a*rf + rf) / 2
	vRaw := (b*rf + rf) / 2
	u := math.Floor(uRaw)
	v := math.Floor(vRaw)
	local := mgl64.Vec3{uRaw - u, vRaw - v, layerF - layer}

	id := BlockID{
		Face:  face,
		Layer: uint32(layer),
		U:     uint32(clampInt(int64(u), 0, int64(res)-1)),
		V:     uint32(clampInt(int64(v), 0, int64(res)-1)),
	}
	return id, local, true
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
