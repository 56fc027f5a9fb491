package core

import "github.com/go-gl/mathgl/mgl64"

// Field is the read-only solid query shared by the raycaster and the
// movement solver. *Planet satisfies it, and so does any snapshot.
type Field interface {
	Resolution() uint32
	Exists(id BlockID) bool
}

const (
	// RayStep is the march length; blocks are roughly one unit across.
	RayStep = 0.25
	// RayMinRadius stops a ray that reaches the planet center.
	RayMinRadius = 0.5
	// DefaultReach is the first-person edit distance.
	DefaultReach = 8.0
)

// RayHit is the result of Raycast.
type RayHit struct {
	Block    BlockID
	Distance float64
}

// Raycast marches from origin along dir for up to reach units. In remove
// mode it returns the first solid block. In place mode it returns the last
// empty cell before the first solid block, which is where a new block would
// go; a ray that hits before passing any empty cell returns false.
func Raycast(f Field, origin, dir mgl64.Vec3, reach float64, place bool) (RayHit, bool) {
	dir = SafeNormalize(dir)
	res := f.Resolution()

	var last RayHit
	haveLast := false
	for dist := 0.0; dist < reach; dist += RayStep {
		p := origin.Add(dir.Mul(dist))
		if p.Len() < RayMinRadius {
			break
		}
		id, ok := AddressFor(p, res)
		if !ok {
			continue
		}
		if f.Exists(id) {
			if place {
				return last, haveLast
			}
			return RayHit{Block: id, Distance: dist}, true
		}
		if place {
			last = RayHit{Block: id, Distance: dist}
			haveLast = true
		}
	}
	return RayHit{}, false
}
