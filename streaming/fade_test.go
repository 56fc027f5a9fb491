package streaming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voxelplanet/core"
)

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(-1))
	assert.Equal(t, 0.0, Smoothstep(0))
	assert.Equal(t, 0.5, Smoothstep(0.5))
	assert.Equal(t, 1.0, Smoothstep(1))
	assert.Equal(t, 1.0, Smoothstep(3))
}

func TestFadeSpawnIsMonotonic(t *testing.T) {
	f := NewFadeAnimator(2 * time.Second)
	key := ChunkOf(core.ChunkKey{Face: 1, UIdx: 2})
	t0 := time.Unix(1000, 0)
	f.Spawn(key, t0)

	prev := float32(-1)
	for ms := 0; ms <= 2500; ms += 50 {
		o := f.Opacity(key, t0.Add(time.Duration(ms)*time.Millisecond))
		assert.GreaterOrEqual(t, o, prev)
		assert.GreaterOrEqual(t, o, float32(0))
		assert.LessOrEqual(t, o, float32(1))
		prev = o
	}
	assert.Equal(t, float32(1), prev)
}

func TestFadeRetireIsMonotonic(t *testing.T) {
	f := NewFadeAnimator(0)
	assert.Equal(t, DefaultFadeDuration, f.Duration())

	key := LodOf(core.LodKey{Face: 2, Size: 64})
	t0 := time.Unix(1000, 0)
	f.Retire(Resident{Key: key}, t0)
	assert.True(t, f.IsRetiring(key))

	prev := float32(2)
	for ms := 0; ms < 2000; ms += 50 {
		o := f.Opacity(key, t0.Add(time.Duration(ms)*time.Millisecond))
		assert.LessOrEqual(t, o, prev)
		assert.GreaterOrEqual(t, o, float32(0))
		prev = o
	}

	fading := f.Advance(t0.Add(time.Second))
	if assert.Len(t, fading, 1) {
		assert.Equal(t, key, fading[0].Key)
		assert.InDelta(t, 0.5, fading[0].Opacity, 1e-6)
	}
	assert.Empty(t, f.Advance(t0.Add(2*time.Second)))
	assert.False(t, f.IsRetiring(key))
	assert.Equal(t, float32(1), f.Opacity(key, t0.Add(3*time.Second)))
}

func TestFadeSpawnRevivesRetiring(t *testing.T) {
	f := NewFadeAnimator(time.Second)
	key := ChunkOf(core.ChunkKey{Face: 0})
	t0 := time.Unix(0, 0)

	f.Retire(Resident{Key: key}, t0)
	f.Spawn(key, t0.Add(500*time.Millisecond))

	assert.False(t, f.IsRetiring(key))
	assert.True(t, f.IsSpawning(key))
	assert.Zero(t, f.Retiring())
	assert.Equal(t, float32(0), f.Opacity(key, t0.Add(500*time.Millisecond)))

	f.Advance(t0.Add(2 * time.Second))
	assert.False(t, f.IsSpawning(key))
}
