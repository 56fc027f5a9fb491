package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/streaming"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, streaming.DefaultConfig(), s.StreamerConfig())
	assert.Equal(t, 6*2*2, s.SurfaceChunks())
	assert.Contains(t, s.Summary(), "resolution 49")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	s, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planet.yaml")
	doc := `
world:
  resolution: 200
  seed: 7
streaming:
  fade_duration: 500ms
  max_lod_jobs: 2
server:
  addr: "127.0.0.1:9000"
  broadcast_interval: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), s.World.Resolution)
	assert.Equal(t, uint32(7), s.World.Seed)
	assert.Equal(t, 500*time.Millisecond, s.Streaming.FadeDuration)
	assert.Equal(t, int64(2), s.StreamerConfig().MaxLodJobs)
	assert.Equal(t, "127.0.0.1:9000", s.Server.Addr)
	assert.Equal(t, time.Second, s.Server.BroadcastInterval)

	// Untouched keys keep their defaults.
	assert.Equal(t, int64(12), s.Streaming.MaxChunkJobs)
	assert.Equal(t, 5.0, s.Player.MoveSpeed)
	assert.Equal(t, 6*7*7, s.SurfaceChunks())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		doc   string
		isErr error
	}{
		{name: "malformed yaml", doc: "world: [1, 2"},
		{name: "resolution too small", doc: "world:\n  resolution: 4\n", isErr: ErrInvalid},
		{name: "empty addr", doc: "server:\n  addr: \"\"\n", isErr: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			if tt.isErr != nil {
				assert.ErrorIs(t, err, tt.isErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"resolution too large", func(s *Settings) { s.World.Resolution = 20000 }},
		{"no lod jobs", func(s *Settings) { s.Streaming.MaxLodJobs = 0 }},
		{"no chunk uploads", func(s *Settings) { s.Streaming.ChunkUploadsPerTick = 0 }},
		{"negative fade", func(s *Settings) { s.Streaming.FadeDuration = -time.Second }},
		{"zero tick", func(s *Settings) { s.Server.TickInterval = 0 }},
		{"no clients", func(s *Settings) { s.Server.MaxClients = 0 }},
		{"flat fov", func(s *Settings) { s.Viewer.FOV = 180 }},
		{"zero window", func(s *Settings) { s.Viewer.Width = 0 }},
		{"frozen player", func(s *Settings) { s.Player.MoveSpeed = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalid)
		})
	}
}
