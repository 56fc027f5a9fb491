package rendering

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ScreenRay unprojects a point in normalized device coordinates into a
// world-space ray. (0,0) is the center of the view, where the reticle is.
func ScreenRay(viewProj mgl32.Mat4, ndcX, ndcY float32) (origin, dir mgl64.Vec3) {
	inv := viewProj.Inv()

	nearWorld := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	farWorld := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	if nearWorld[3] != 0 {
		nearWorld = nearWorld.Mul(1 / nearWorld[3])
	}
	if farWorld[3] != 0 {
		farWorld = farWorld.Mul(1 / farWorld[3])
	}

	origin = vec64(nearWorld.Vec3())
	dir = normalizeOr(vec64(farWorld.Vec3()).Sub(origin), mgl64.Vec3{0, 0, -1})
	return origin, dir
}
