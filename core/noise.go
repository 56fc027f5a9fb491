package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NoiseSettings shapes the layered gradient noise used for terrain.
type NoiseSettings struct {
	Frequency   float64
	Amplitude   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Offset      mgl64.Vec3
}

// DefaultTerrainSettings scales feature size with the planet resolution so
// the silhouette looks alike at every size.
func DefaultTerrainSettings(res uint32) NoiseSettings {
	return NoiseSettings{
		Frequency:   float64(res) / 100,
		Amplitude:   24,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2,
	}
}

// NoiseGenerator evaluates improved gradient noise from a seeded
// permutation table.
type NoiseGenerator struct {
	perm [512]uint8
}

// NewNoiseGenerator shuffles the permutation table with a 32-bit LCG so the
// output depends only on the seed.
func NewNoiseGenerator(seed uint32) *NoiseGenerator {
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	state := seed
	for i := 255; i >= 1; i-- {
		state = state*1664525 + 1013904223
		j := int(state % uint32(i+1))
		p[i], p[j] = p[j], p[i]
	}

	g := &NoiseGenerator{}
	for i := 0; i < 256; i++ {
		g.perm[i] = p[i]
		g.perm[i+256] = p[i]
	}
	return g
}

// Sample sums the configured octaves at pos and normalizes by the total
// amplitude, so the result stays in [0,1].
func (g *NoiseGenerator) Sample(pos mgl64.Vec3, s NoiseSettings) float64 {
	if s.Octaves <= 1 {
		return g.base(pos.Mul(s.Frequency).Add(s.Offset))
	}

	var total, totalAmp float64
	amp := 1.0
	freq := s.Frequency
	for i := 0; i < s.Octaves; i++ {
		total += g.base(pos.Mul(freq).Add(s.Offset)) * amp
		totalAmp += amp
		amp *= s.Persistence
		freq *= s.Lacunarity
	}
	if totalAmp <= 0 {
		return 0
	}
	return total / totalAmp
}

func (g *NoiseGenerator) base(p mgl64.Vec3) float64 {
	return (g.noise(p[0], p[1], p[2]) + 1) * 0.5
}

func (g *NoiseGenerator) noise(px, py, pz float64) float64 {
	fx, fy, fz := math.Floor(px), math.Floor(py), math.Floor(pz)

	xi := int(fx) & 255
	yi := int(fy) & 255
	zi := int(fz) & 255

	x, y, z := px-fx, py-fy, pz-fz
	u, v, w := fade(x), fade(y), fade(z)

	p := &g.perm
	a := int(p[xi]) + yi
	aa := int(p[a]) + zi
	ab := int(p[a+1]) + zi
	b := int(p[xi+1]) + yi
	ba := int(p[b]) + zi
	bb := int(p[b+1]) + zi

	return lerp(w,
		lerp(v,
			lerp(u, grad(p[aa], x, y, z), grad(p[ba], x-1, y, z)),
			lerp(u, grad(p[ab], x, y-1, z), grad(p[bb], x-1, y-1, z))),
		lerp(v,
			lerp(u, grad(p[aa+1], x, y, z-1), grad(p[ba+1], x-1, y, z-1)),
			lerp(u, grad(p[ab+1], x, y-1, z-1), grad(p[bb+1], x-1, y-1, z-1))))
}

func fade(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(t, a, b float64) float64 { return a + t*(b-a) }

func grad(hash uint8, x, y, z float64) float64 {
	h := hash & 15
	u := y
	if h < 8 {
		u = x
	}
	var v float64
	switch {
	case h < 4:
		v = y
	case h == 12 || h == 14:
		v = x
	default:
		v = z
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
