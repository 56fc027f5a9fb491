package rendering

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

const (
	// MaxSlopeFill bounds how far down a cliff wall is filled with candidates.
	MaxSlopeFill = 20
	// SkyProbe is the number of layers probed above a block for sky light.
	SkyProbe = 8

	shadowLight = 0.15
	bottomShade = 0.4
	sideShade   = 0.8
)

var aoLevels = [4]float32{1.0, 0.8, 0.6, 0.4}

// ambientOcclusion darkens a top-face corner. The diagonal only counts when
// at least one of the two edge neighbors occludes too.
func ambientOcclusion(side1, side2, corner bool) float32 {
	occ := 0
	if side1 {
		occ++
	}
	if side2 {
		occ++
	}
	if corner && (side1 || side2) {
		occ++
	}
	return aoLevels[occ]
}

// BuildChunk extracts the exposed block faces of one chunk column. The
// result has no vertices when nothing in the chunk is visible.
func BuildChunk(key core.ChunkKey, p *core.Planet) *Mesh {
	res := p.Resolution()
	uStart, vStart := key.Origin()
	uEnd := min(uStart+core.ChunkSize, res)
	vEnd := min(vStart+core.ChunkSize, res)

	heightAt := func(u, v uint32) uint32 {
		if u >= res || v >= res {
			return 0
		}
		return p.TerrainHeight(key.Face, u, v)
	}

	candidates := make(map[core.BlockID]struct{})
	for u := uStart; u < uEnd; u++ {
		for v := vStart; v < vEnd; v++ {
			h := heightAt(u, v)
			if h == 0 {
				continue
			}
			candidates[core.BlockID{Face: key.Face, Layer: h, U: u, V: v}] = struct{}{}

			lowest := h
			if u > 0 {
				lowest = min(lowest, heightAt(u-1, v))
			}
			if u < res-1 {
				lowest = min(lowest, heightAt(u+1, v))
			}
			if v > 0 {
				lowest = min(lowest, heightAt(u, v-1))
			}
			if v < res-1 {
				lowest = min(lowest, heightAt(u, v+1))
			}
			if lowest < h {
				bottom := lowest
				if h > MaxSlopeFill && h-MaxSlopeFill > bottom {
					bottom = h - MaxSlopeFill
				}
				for l := bottom + 1; l < h; l++ {
					candidates[core.BlockID{Face: key.Face, Layer: l, U: u, V: v}] = struct{}{}
				}
			}
		}
	}

	if mods, ok := p.Mods(key); ok {
		for id := range mods.Placed {
			candidates[id] = struct{}{}
		}
		addMinedCandidates(mods, candidates, res)
	}
	for _, nk := range key.Neighbors() {
		if mods, ok := p.Mods(nk); ok {
			addMinedCandidates(mods, candidates, res)
		}
	}

	ids := make([]core.BlockID, 0, len(candidates))
	for id := range candidates {
		if id.Face != key.Face || id.U < uStart || id.U >= uEnd || id.V < vStart || id.V >= vEnd {
			continue
		}
		if p.Exists(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return core.BlockLess(ids[i], ids[j]) })

	mesh := &Mesh{}
	for _, id := range ids {
		addVoxel(mesh, id, p)
	}
	return mesh
}

// addMinedCandidates queues the six neighbors of every mined block, since
// digging exposes faces around the hole.
func addMinedCandidates(mods *core.ChunkMods, candidates map[core.BlockID]struct{}, res uint32) {
	for id := range mods.Mined {
		n := id
		n.Layer++
		candidates[n] = struct{}{}
		if id.Layer > 0 {
			n = id
			n.Layer--
			candidates[n] = struct{}{}
		}
		if id.U > 0 {
			n = id
			n.U--
			candidates[n] = struct{}{}
		}
		if id.U < res-1 {
			n = id
			n.U++
			candidates[n] = struct{}{}
		}
		if id.V > 0 {
			n = id
			n.V--
			candidates[n] = struct{}{}
		}
		if id.V < res-1 {
			n = id
			n.V++
			candidates[n] = struct{}{}
		}
	}
}

func addVoxel(m *Mesh, id core.BlockID, p *core.Planet) {
	res := p.Resolution()

	// Neighbor lookup in face-local steps. Anything below layer 0 is solid;
	// cells past the face edge are treated as open.
	solid := func(dl, du, dv int64) bool {
		l := int64(id.Layer) + dl
		u := int64(id.U) + du
		v := int64(id.V) + dv
		if l >= 0 && u >= 0 && u < int64(res) && v >= 0 && v < int64(res) {
			return p.Exists(core.BlockID{Face: id.Face, Layer: uint32(l), U: uint32(u), V: uint32(v)})
		}
		return l < 0
	}

	hasTop := solid(1, 0, 0)
	hasBottom := solid(-1, 0, 0)
	hasRight := solid(0, 1, 0)
	hasLeft := solid(0, -1, 0)
	hasBack := solid(0, 0, 1)
	hasFront := solid(0, 0, -1)
	if hasTop && hasBottom && hasLeft && hasRight && hasFront && hasBack {
		return
	}

	light := float32(1)
	for i := int64(1); i <= SkyProbe; i++ {
		if solid(i, 0, 0) {
			light = shadowLight
			break
		}
	}
	natural := p.TerrainHeight(id.Face, id.U, id.V)
	if id.Layer >= natural {
		light = 1
	}

	base := core.MaterialOf(id, natural, p.HasCore).Color().Mul(light)
	shade := func(f float32) mgl32.Vec3 { return base.Mul(f) }

	corner := func(du, dv, dl uint32) mgl64.Vec3 {
		return core.PositionFor(id.Face, id.U+du, id.V+dv, id.Layer+dl, res)
	}
	iBL, iBR, iTL, iTR := corner(0, 0, 0), corner(1, 0, 0), corner(0, 1, 0), corner(1, 1, 0)
	oBL, oBR, oTL, oTR := corner(0, 0, 1), corner(1, 0, 1), corner(0, 1, 1), corner(1, 1, 1)

	if !hasTop {
		above := func(du, dv int64) bool { return solid(1, du, dv) }
		aoBL := ambientOcclusion(above(-1, 0), above(0, -1), above(-1, -1))
		aoBR := ambientOcclusion(above(1, 0), above(0, -1), above(1, -1))
		aoTR := ambientOcclusion(above(1, 0), above(0, 1), above(1, 1))
		aoTL := ambientOcclusion(above(-1, 0), above(0, 1), above(-1, 1))
		m.addQuad([4]mgl64.Vec3{oBL, oBR, oTR, oTL},
			[4]mgl32.Vec3{shade(aoBL), shade(aoBR), shade(aoTR), shade(aoTL)}, true)
	}

	if !hasBottom {
		c := shade(bottomShade)
		m.addQuad([4]mgl64.Vec3{iTL, iTR, iBR, iBL}, [4]mgl32.Vec3{c, c, c, c}, true)
	}

	c := shade(sideShade)
	sides := [4]mgl32.Vec3{c, c, c, c}
	if !hasFront {
		m.addQuad([4]mgl64.Vec3{iBL, iBR, oBR, oBL}, sides, false)
	}
	if !hasBack {
		m.addQuad([4]mgl64.Vec3{oTL, oTR, iTR, iTL}, sides, false)
	}
	if !hasLeft {
		m.addQuad([4]mgl64.Vec3{iTL, iBL, oBL, oTL}, sides, false)
	}
	if !hasRight {
		m.addQuad([4]mgl64.Vec3{iBR, iTR, oTR, oBR}, sides, false)
	}
}
