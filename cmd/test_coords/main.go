package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

func main() {
	res := flag.Uint("res", 49, "Planet resolution")
	seed := flag.Uint("seed", 42, "Terrain seed")
	flag.Parse()
	r := uint32(*res)

	fmt.Println("=== Coordinate System Test ===")
	fmt.Println()

	// Test 1: Layer radii
	fmt.Println("Test 1: Layer radii")
	for _, layer := range []uint32{0, r / 4, r / 2, 3 * r / 4, r - 1} {
		rad := core.LayerRadius(float64(layer), r)
		back := core.LayerAt(rad, r)
		fmt.Printf("  layer %4d: radius %10.3f  thickness %7.4f  inverse %.4f\n",
			layer, rad, core.LayerRadius(float64(layer)+1, r)-rad, back)
	}
	fmt.Printf("  min radius %.4f\n\n", core.MinRadius(r))

	// Test 2: Face centers
	fmt.Println("Test 2: Face centers")
	for face := uint8(0); face < 6; face++ {
		d := core.Direction(face, r/2, r/2, r)
		fmt.Printf("  face %d: (%6.3f, %6.3f, %6.3f)\n", face, d[0], d[1], d[2])
	}
	fmt.Println()

	// Test 3: Address round trips
	fmt.Println("Test 3: Block center round trips")
	failures := 0
	checked := 0
	for face := uint8(0); face < 6; face++ {
		for _, u := range []uint32{0, r / 3, r - 1} {
			for _, v := range []uint32{0, r / 2, r - 1} {
				for _, layer := range []uint32{1, r / 2, r - 2} {
					id := core.BlockID{Face: face, Layer: layer, U: u, V: v}
					back, ok := core.AddressFor(core.BlockCenter(id, r), r)
					checked++
					if !ok || back != id {
						failures++
						fmt.Printf("  MISMATCH %+v -> %+v (ok=%v)\n", id, back, ok)
					}
				}
			}
		}
	}
	fmt.Printf("  %d/%d addresses survived the round trip\n\n", checked-failures, checked)

	// Test 4: Seam directions
	fmt.Println("Test 4: Cube edge continuity")
	for _, p := range []mgl64.Vec3{{1, 1, 0}, {1, 1, 1}, {-1, 0, 1}} {
		dir := p.Normalize().Mul(core.LayerRadius(float64(r)/2, r))
		id, local, ok := core.LocalCoords(dir, r)
		fmt.Printf("  %v -> face %d (%d,%d) layer %d local (%.2f, %.2f, %.2f) ok=%v\n",
			p, id.Face, id.U, id.V, id.Layer, local[0], local[1], local[2], ok)
	}
	fmt.Println()

	// Test 5: Terrain
	fmt.Println("Test 5: Terrain heights")
	p := core.NewPlanet(r, uint32(*seed))
	lo, hi, sum := uint32(math.MaxUint32), uint32(0), 0.0
	for face := uint8(0); face < 6; face++ {
		for u := uint32(0); u < r; u++ {
			for v := uint32(0); v < r; v++ {
				h := p.TerrainHeight(face, u, v)
				lo, hi = min(lo, h), max(hi, h)
				sum += float64(h)
			}
		}
	}
	fmt.Printf("  min %d  max %d  mean %.2f  (surface layer %d)\n", lo, hi, sum/float64(6*r*r), r/2)
}
