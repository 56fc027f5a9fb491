package core

import "github.com/go-gl/mathgl/mgl32"

// MaterialType is the surface class a block is shaded as. The planet stores
// no per-voxel material; it is derived from the block's position.
type MaterialType uint8

const (
	MatCore MaterialType = iota // unbreakable core rock
	MatGrass                    // natural surface block
	MatDirt                     // everything else, including placed blocks
)

var materialNames = [...]string{"core", "grass", "dirt"}

func (m MaterialType) String() string {
	if int(m) < len(materialNames) {
		return materialNames[m]
	}
	return "unknown"
}

// Base colors used by the chunk mesher.
var materialColors = [...]mgl32.Vec3{
	MatCore:  {0.2, 0.2, 0.2},
	MatGrass: {0.1, 0.7, 0.1},
	MatDirt:  {0.6, 0.4, 0.2},
}

// Color returns the unlit base color.
func (m MaterialType) Color() mgl32.Vec3 {
	if int(m) < len(materialColors) {
		return materialColors[m]
	}
	return materialColors[MatDirt]
}

// MaterialOf classifies a block. naturalHeight is the terrain height of the
// block's column.
func MaterialOf(id BlockID, naturalHeight uint32, hasCore bool) MaterialType {
	switch {
	case hasCore && id.Layer < CoreLayers:
		return MatCore
	case id.Layer == naturalHeight:
		return MatGrass
	default:
		return MatDirt
	}
}

// Tile colors for LOD meshes, which are shaded by slope instead.
var (
	LodFlatColor  = mgl32.Vec3{0.1, 0.8, 0.1}
	LodSteepColor = mgl32.Vec3{0.075, 0.6, 0.075}
	LodCoreColor  = mgl32.Vec3{0.2, 0.22, 0.25}
)
