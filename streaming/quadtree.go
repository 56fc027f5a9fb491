package streaming

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

// Requirements is the set of meshes a viewpoint needs. Every face cell is
// covered by exactly one chunk or tile.
type Requirements struct {
	Chunks map[core.ChunkKey]struct{}
	Lods   map[core.LodKey]struct{}
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n == 0).
func NextPowerOfTwo(n uint32) uint32 {
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

// LodFactor scales a node's radius into its split distance. Smaller nodes
// get larger factors so detail ramps up sharply near the viewer.
func LodFactor(size uint32) float64 {
	switch {
	case size <= core.ChunkSize:
		return 18
	case size <= core.ChunkSize*2:
		return 12
	case size <= core.ChunkSize*4:
		return 7
	case size <= core.ChunkSize*8:
		return 5
	default:
		return 4
	}
}

// Required walks the implicit per-face quadtree for a viewer position.
func Required(res uint32, viewer mgl64.Vec3) Requirements {
	req := Requirements{
		Chunks: make(map[core.ChunkKey]struct{}),
		Lods:   make(map[core.LodKey]struct{}),
	}
	w := quadWalker{
		res:       res,
		viewer:    viewer,
		midRadius: core.LayerRadius(float64(res/2), res),
		req:       req,
	}
	w.viewerID, w.haveViewer = core.AddressFor(viewer, res)

	root := NextPowerOfTwo(res)
	for face := uint8(0); face < core.FaceCount; face++ {
		w.visit(face, 0, 0, root)
	}
	return req
}

type quadWalker struct {
	res        uint32
	viewer     mgl64.Vec3
	viewerID   core.BlockID
	haveViewer bool
	midRadius  float64
	req        Requirements
}

func (w *quadWalker) visit(face uint8, x, y, size uint32) {
	if x >= w.res || y >= w.res {
		return
	}

	cu := min(x+size/2, w.res-1)
	cv := min(y+size/2, w.res-1)
	center := core.PositionFor(face, cu, cv, w.res/2, w.res)
	dist := center.Sub(w.viewer).Len()

	if w.haveViewer && w.viewerID.Face == face &&
		w.viewerID.U >= x && w.viewerID.U < x+size &&
		w.viewerID.V >= y && w.viewerID.V < y+size {
		dist = 0
	}

	nodeRadius := float64(size) * w.midRadius / float64(w.res)
	if dist < nodeRadius*LodFactor(size) && size > core.ChunkSize {
		half := size / 2
		w.visit(face, x, y, half)
		w.visit(face, x+half, y, half)
		w.visit(face, x, y+half, half)
		w.visit(face, x+half, y+half, half)
		return
	}

	if size <= core.ChunkSize {
		key := core.ChunkKey{Face: face, UIdx: x / core.ChunkSize, VIdx: y / core.ChunkSize}
		if u, v := key.Origin(); u < w.res && v < w.res {
			w.req.Chunks[key] = struct{}{}
		}
		return
	}
	w.req.Lods[core.LodKey{Face: face, X: x, Y: y, Size: size}] = struct{}{}
}
