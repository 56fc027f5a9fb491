package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/config"
	"voxelplanet/physics"
)

func landed(t *testing.T, s *Session, now time.Time) {
	t.Helper()
	for i := 0; i < 600 && !s.Player.Grounded; i++ {
		s.Step(1.0/60, physics.Input{}, now)
	}
	require.True(t, s.Player.Grounded, "avatar never landed")
}

func TestSessionSpawnsAboveTerrain(t *testing.T) {
	s := New(config.Default(), nil, nil)
	defer s.Streamer.Wait()

	top := s.Player.Position.Len()
	landed(t, s, time.Unix(0, 0))
	assert.Less(t, s.Player.Position.Len(), top)
	assert.Greater(t, s.Streamer.Stats().PendingChunks+s.Streamer.Stats().Chunks, 0)
}

func TestSessionEditAtReticle(t *testing.T) {
	s := New(config.Default(), nil, nil)
	defer s.Streamer.Wait()
	now := time.Unix(0, 0)
	landed(t, s, now)

	s.Player.Pitch = -physics.PitchLimit
	id, ok := s.Edit(true, now)
	require.True(t, ok, "looking at the ground")
	assert.False(t, s.Planet.Exists(id))

	placed, ok := s.Edit(false, now)
	require.True(t, ok)
	assert.True(t, s.Planet.Exists(placed))
}

func TestSessionResizeRespawns(t *testing.T) {
	s := New(config.Default(), nil, nil)
	now := time.Unix(0, 0)
	landed(t, s, now)
	s.Streamer.Wait()

	s.Resize(true)
	assert.Equal(t, uint32(58), s.Planet.Resolution())
	assert.Zero(t, s.Planet.EditCount())
	assert.Zero(t, s.Streamer.Stats().Chunks)
	assert.Zero(t, s.Player.Velocity.Len())
	assert.False(t, physics.CheckCollision(s.Planet, s.Player.Position))
}

func TestSessionToggleFly(t *testing.T) {
	s := New(config.Default(), nil, nil)
	defer s.Streamer.Wait()
	require.True(t, s.ToggleFly())

	start := s.Player.Position
	s.Step(0.05, physics.Input{}, time.Unix(0, 0))
	assert.Equal(t, start, s.Player.Position, "flying without input hovers")
	assert.False(t, s.ToggleFly())
}
