package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

// Avatar dimensions and world constants, in world units (one unit is
// roughly one block at the surface).
const (
	Gravity      = 12.0
	PlayerHeight = 1.8
	EyeHeight    = 1.6
	PlayerRadius = 0.3
	StepHeight   = 0.6

	// shaveMargin is the fraction of a block near an open face that
	// counts as air, so the avatar does not snag on exposed edges.
	shaveMargin = 0.05
	waistHeight = 0.9
	groundProbe = 0.1
	escapeSpeed = 4.0
)

var stepHeights = [...]float64{0.3, StepHeight}

// UpVector is the local "up" at pos: the normalized position.
func UpVector(pos mgl64.Vec3) mgl64.Vec3 {
	return core.SafeNormalize(pos)
}

// AlignToPlanet rotates rotation so that its local +Y matches up.
func AlignToPlanet(rotation mgl64.Quat, up mgl64.Vec3) mgl64.Quat {
	current := rotation.Rotate(mgl64.Vec3{0, 1, 0})
	diff := mgl64.QuatBetweenVectors(current, up)
	return diff.Mul(rotation).Normalize()
}

// IsSolid reports whether a point is inside collidable material. Points
// below the addressable shell are solid. Near a face whose neighbor is
// empty, the outer 5% of the block is treated as air.
func IsSolid(f core.Field, pos mgl64.Vec3) bool {
	res := f.Resolution()
	id, local, ok := core.LocalCoords(pos, res)
	if !ok {
		return pos.Len() < core.MinRadius(res)
	}
	if !f.Exists(id) {
		return false
	}

	openAt := func(n core.BlockID) bool { return !f.Exists(n) }

	switch {
	case local.X() < shaveMargin && id.U > 0:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer, U: id.U - 1, V: id.V}) {
			return false
		}
	case local.X() > 1-shaveMargin && id.U < res-1:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer, U: id.U + 1, V: id.V}) {
			return false
		}
	}
	switch {
	case local.Y() < shaveMargin && id.V > 0:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer, U: id.U, V: id.V - 1}) {
			return false
		}
	case local.Y() > 1-shaveMargin && id.V < res-1:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer, U: id.U, V: id.V + 1}) {
			return false
		}
	}
	switch {
	case local.Z() < shaveMargin && id.Layer > 0:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer - 1, U: id.U, V: id.V}) {
			return false
		}
	case local.Z() > 1-shaveMargin && id.Layer < res-1:
		if openAt(core.BlockID{Face: id.Face, Layer: id.Layer + 1, U: id.U, V: id.V}) {
			return false
		}
	}
	return true
}

// GridAxes returns two horizontal directions at pos aligned with the voxel
// grid of the dominant cube face, so wall probes line up with block walls.
func GridAxes(up, pos mgl64.Vec3) (right, fwd mgl64.Vec3) {
	ax, ay, az := math.Abs(pos.X()), math.Abs(pos.Y()), math.Abs(pos.Z())
	rigid := mgl64.Vec3{0, 1, 0}
	if ay >= ax && ay >= az {
		rigid = mgl64.Vec3{1, 0, 0}
	}

	right = up.Cross(rigid)
	if right.LenSqr() < 1e-6 {
		right = orthogonal(up)
	}
	right = right.Normalize()
	return right, up.Cross(right).Normalize()
}

func orthogonal(v mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(v.X()) > math.Abs(v.Z()) {
		return mgl64.Vec3{-v.Y(), v.X(), 0}
	}
	return mgl64.Vec3{0, -v.Z(), v.Y()}
}

// CheckCollision tests the avatar's body at pos: four heights (feet,
// waist, eyes, head), each probed at its center and at ±radius along both
// grid axes.
func CheckCollision(f core.Field, pos mgl64.Vec3) bool {
	up := UpVector(pos)
	rightDir, fwdDir := GridAxes(up, pos)
	right := rightDir.Mul(PlayerRadius)
	fwd := fwdDir.Mul(PlayerRadius)

	for _, h := range [...]float64{0, waistHeight, EyeHeight, PlayerHeight} {
		c := pos.Add(up.Mul(h))
		if IsSolid(f, c) ||
			IsSolid(f, c.Add(right)) || IsSolid(f, c.Sub(right)) ||
			IsSolid(f, c.Add(fwd)) || IsSolid(f, c.Sub(fwd)) {
			return true
		}
	}
	return false
}

// Movement is the outcome of one SolveMovement step.
type Movement struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Grounded bool
}

// SolveMovement advances the avatar by velocity over dt against the field.
// Horizontal motion slides along walls one grid axis at a time, vertical
// motion lands or bumps, blocked walking tries to step up, and an avatar
// left embedded in terrain is pushed outward. Flying ignores collision.
func SolveMovement(f core.Field, start, velocity mgl64.Vec3, dt float64, flying bool) Movement {
	if flying {
		return Movement{Position: start.Add(velocity.Mul(dt)), Velocity: velocity}
	}

	up := UpVector(start)
	vertSpeed := velocity.Dot(up)
	vertVel := up.Mul(vertSpeed)
	horzVel := velocity.Sub(vertVel)
	horzSpeed := horzVel.Len()

	pos := start
	finalHorz := horzVel

	if horzSpeed > 0.001 {
		desired := pos.Add(horzVel.Mul(dt))
		if !CheckCollision(f, desired) {
			pos = desired
		} else {
			gridRight, gridFwd := GridAxes(up, pos)
			vRight := gridRight.Mul(horzVel.Dot(gridRight))
			vFwd := gridFwd.Mul(horzVel.Dot(gridFwd))

			moved := false
			if next := pos.Add(vRight.Mul(dt)); !CheckCollision(f, next) {
				pos = next
				moved = true
			} else {
				finalHorz = finalHorz.Sub(vRight)
			}
			if next := pos.Add(vFwd.Mul(dt)); !CheckCollision(f, next) {
				pos = next
				moved = true
			} else {
				finalHorz = finalHorz.Sub(vFwd)
			}
			if !moved {
				finalHorz = mgl64.Vec3{}
			}
		}
	}

	vel := finalHorz.Add(vertVel)
	grounded := false

	if IsSolid(f, pos.Sub(up.Mul(groundProbe))) && vertSpeed <= 0 {
		grounded = true
		vel = vel.Sub(vertVel)
	} else {
		next := pos.Add(vertVel.Mul(dt))
		if !CheckCollision(f, next) {
			pos = next
		} else {
			grounded = vertSpeed <= 0
			vel = vel.Sub(vertVel)
		}
	}

	if grounded && horzSpeed > 0.001 && finalHorz.Len() < horzSpeed*0.5 {
		ahead := horzVel.Mul(PlayerRadius * 1.5 / horzSpeed)
		for _, h := range stepHeights {
			lifted := pos.Add(up.Mul(h))
			if !CheckCollision(f, lifted) && !CheckCollision(f, lifted.Add(ahead)) {
				pos = lifted
				vel = horzVel
				break
			}
		}
	}

	if CheckCollision(f, pos) {
		pos = pos.Add(up.Mul(escapeSpeed * dt))
	}

	return Movement{Position: pos, Velocity: vel, Grounded: grounded}
}

// SpawnPoint returns a position clearance units above the natural terrain
// in direction dir. Directions that do not resolve to a column fall back to
// 20 units above the mid radius.
func SpawnPoint(p *core.Planet, dir mgl64.Vec3, clearance float64) mgl64.Vec3 {
	dir = core.SafeNormalize(dir)
	res := p.Resolution()
	probe := dir.Mul(float64(res) / 2)
	if id, ok := core.AddressFor(probe, res); ok {
		h := p.TerrainHeight(id.Face, id.U, id.V)
		return dir.Mul(core.LayerRadius(float64(h), res) + clearance)
	}
	return dir.Mul(float64(res)/2 + 20)
}
