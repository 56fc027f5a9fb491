package rendering

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/core"
)

func testViewProj() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(80), 16.0/9, 0.1, 1000)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func TestFrustumCulling(t *testing.T) {
	f := NewFrustum(testViewProj())

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"in front", mgl32.Vec3{0, 0, 0}, 1, true},
		{"behind camera", mgl32.Vec3{0, 0, 20}, 1, false},
		{"straddles near plane", mgl32.Vec3{0, 0, 11}, 2, true},
		{"far off to the side", mgl32.Vec3{500, 0, 0}, 1, false},
		{"beyond far plane", mgl32.Vec3{0, 0, -2000}, 1, false},
		{"large sphere reaching in", mgl32.Vec3{500, 0, 0}, 600, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.SphereVisible(tt.center, tt.radius))
		})
	}
}

func TestScreenRayCenterLooksForward(t *testing.T) {
	origin, dir := ScreenRay(testViewProj(), 0, 0)

	assert.InDelta(t, 1, dir.Len(), 1e-6)
	assert.InDelta(t, -1, dir[2], 1e-4)
	assert.InDelta(t, 9.9, origin[2], 1e-2, "origin sits on the near plane")

	_, right := ScreenRay(testViewProj(), 0.5, 0)
	assert.Positive(t, right[0])
	_, up := ScreenRay(testViewProj(), 0, 0.5)
	assert.Positive(t, up[1])
}

func TestCylinderShape(t *testing.T) {
	m := Cylinder(0.3, 1.8, 16)
	require.False(t, m.Empty())
	assert.False(t, m.Lines)
	assert.Zero(t, len(m.Indices)%3)

	for _, v := range m.Vertices {
		assert.GreaterOrEqual(t, v.Pos[1], float32(0))
		assert.LessOrEqual(t, v.Pos[1], float32(1.8))
		assert.LessOrEqual(t, mgl32.Vec2{v.Pos[0], v.Pos[2]}.Len(), float32(0.3)+1e-5)
	}
	assert.Len(t, m.Vertices, 17*2+1+17)
	assert.Len(t, m.Indices, 16*6+16*3)
	assert.Equal(t, len(Cylinder(1, 1, 0).Vertices), len(Cylinder(1, 1, 16).Vertices))
}

func TestSphereGuideRadius(t *testing.T) {
	m := SphereGuide(24.5, 32)
	require.False(t, m.Empty())
	for _, v := range m.Vertices {
		assert.InDelta(t, 24.5, v.Pos.Len(), 1e-3)
	}
}

func TestCrosshairIsLines(t *testing.T) {
	m := Crosshair()
	assert.True(t, m.Lines)
	assert.Len(t, m.Indices, 4)
	for _, v := range m.Vertices {
		assert.LessOrEqual(t, v.Pos.Len(), float32(0.02))
	}
}

func TestCollisionDebugBoxes(t *testing.T) {
	const res = 64
	pos := core.BlockCenter(core.BlockID{Face: 1, Layer: 30, U: 20, V: 20}, res)

	all := CollisionDebug(pos, res, func(mgl64.Vec3) bool { return true })
	assert.True(t, all.Lines)
	side := 2*DebugRange + 1
	assert.Len(t, all.Indices, side*side*side*24)

	none := CollisionDebug(pos, res, func(mgl64.Vec3) bool { return false })
	assert.True(t, none.Empty())

	floor := core.BlockCenter(core.BlockID{Face: 1, Layer: 0, U: 20, V: 20}, res)
	clipped := CollisionDebug(floor, res, func(mgl64.Vec3) bool { return true })
	assert.Len(t, clipped.Indices, (DebugRange+1)*side*side*24)

	corner := core.BlockCenter(core.BlockID{Face: 1, Layer: 0, U: 0, V: 20}, res)
	cornered := CollisionDebug(corner, res, func(mgl64.Vec3) bool { return true })
	assert.Len(t, cornered.Vertices, (DebugRange+1)*side*(DebugRange+1)*8)
}
