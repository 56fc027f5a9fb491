package streaming

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/core"
	"voxelplanet/rendering"
)

var farAway = mgl64.Vec3{0, 10000, 0}

// settle ticks until nothing is queued or in flight.
func settle(t *testing.T, s *Streamer, p *core.Planet, viewer mgl64.Vec3, now time.Time) {
	t.Helper()
	for i := 0; i < 500; i++ {
		s.Update(p, viewer, now)
		s.Wait()
		st := s.Stats()
		if st.Queued == 0 && st.PendingChunks == 0 && st.PendingLods == 0 &&
			s.chunkBox.Len() == 0 && s.lodBox.Len() == 0 {
			// One more tick releases tiles whose chunks arrived last.
			s.Update(p, viewer, now)
			return
		}
	}
	t.Fatal("streamer did not settle")
}

func TestStreamerLoadsTilesFromFar(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	s := New(DefaultConfig(), nil, nil)
	now := time.Unix(100, 0)

	s.Update(p, farAway, now)
	assert.Equal(t, core.FaceCount, s.Stats().PendingLods)
	s.Wait()

	settle(t, s, p, farAway, now)
	st := s.Stats()
	assert.Equal(t, core.FaceCount, st.Lods)
	assert.Zero(t, st.Chunks)
	assert.Equal(t, core.FaceCount*4485*36+core.FaceCount*26112*4, st.Bytes)

	for _, r := range s.Visible(now) {
		assert.Equal(t, float32(0), r.Opacity, "fade starts transparent")
	}
	for _, r := range s.Visible(now.Add(3 * time.Second)) {
		assert.Equal(t, float32(1), r.Opacity)
		assert.Greater(t, r.Radius, 0.0)
	}
}

func TestStreamerKeepsTilesUntilChunksArrive(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	s := New(DefaultConfig(), nil, nil)
	now := time.Unix(100, 0)
	settle(t, s, p, farAway, now)
	require.Equal(t, core.FaceCount, s.Stats().Lods)

	viewer := surfaceViewer(p, 0, 40, 40)
	require.Len(t, Required(64, viewer).Chunks, core.FaceCount*4)

	s.Update(p, viewer, now)
	st := s.Stats()
	assert.Equal(t, core.FaceCount, st.Lods, "no chunk has arrived yet")
	assert.Equal(t, DefaultConfig().ChunkSpawnsPerTick, st.PendingChunks)

	// The first jobs go to the chunks nearest the viewer.
	under := core.ChunkKey{Face: 0, UIdx: 1, VIdx: 1}
	_, ok := s.pendingChunks[under]
	assert.True(t, ok)

	queue := s.Queue()
	for i := 1; i < len(queue); i++ {
		a := ChunkCenter(queue[i-1], 64).Sub(viewer).Len()
		b := ChunkCenter(queue[i], 64).Sub(viewer).Len()
		assert.LessOrEqual(t, a, b)
	}

	required := Required(64, viewer).Chunks
	for i := 0; i < 200 && s.Stats().Chunks < core.FaceCount*4; i++ {
		for c := range required {
			if s.chunkPresent(c) {
				continue
			}
			covered := false
			for k := range s.lods {
				covered = covered || k.Overlaps(c)
			}
			require.True(t, covered, "%v is neither loaded nor covered by a tile", c)
		}
		assert.LessOrEqual(t, s.Stats().PendingChunks, int(DefaultConfig().MaxChunkJobs))
		s.Wait()
		s.Update(p, viewer, now)
	}
	settle(t, s, p, viewer, now)

	st = s.Stats()
	assert.Equal(t, core.FaceCount*4, st.Chunks)
	assert.Zero(t, st.Lods)
	assert.Equal(t, core.FaceCount, st.Retiring)

	visible := s.Visible(now.Add(3 * time.Second))
	assert.Len(t, visible, core.FaceCount*4, "retired tiles are gone once faded")
}

func TestStreamerRetiresChunksWhenMovingAway(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	s := New(DefaultConfig(), nil, nil)
	now := time.Unix(100, 0)
	settle(t, s, p, surfaceViewer(p, 4, 10, 50), now)
	require.Equal(t, core.FaceCount*4, s.Stats().Chunks)

	later := now.Add(5 * time.Second)
	settle(t, s, p, farAway, later)
	st := s.Stats()
	assert.Zero(t, st.Chunks)
	assert.Equal(t, core.FaceCount, st.Lods)
	assert.Equal(t, core.FaceCount*4, st.Retiring)

	for _, r := range s.Visible(later.Add(time.Second)) {
		if r.Key.Kind == KindChunk {
			assert.Less(t, r.Opacity, float32(1))
		}
	}
}

func TestStreamerRefreshAroundEdit(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	s := New(DefaultConfig(), nil, nil)
	now := time.Unix(100, 0)
	settle(t, s, p, surfaceViewer(p, 1, 31, 20), now)
	s.Visible(now.Add(3 * time.Second))

	key := core.ChunkKey{Face: 1, UIdx: 0, VIdx: 0}
	before, ok := s.Chunk(key)
	require.True(t, ok)
	neighbor, ok := s.Chunk(core.ChunkKey{Face: 1, UIdx: 1, VIdx: 0})
	require.True(t, ok)

	id := core.BlockID{Face: 1, Layer: p.TerrainHeight(1, 31, 20), U: 31, V: 20}
	p.RemoveBlock(id)
	s.RefreshAround(id, p, now.Add(4*time.Second))

	after, _ := s.Chunk(key)
	assert.NotSame(t, before.Mesh, after.Mesh)
	assert.NotEqual(t, before.Mesh.Vertices, after.Mesh.Vertices)
	refreshed, _ := s.Chunk(core.ChunkKey{Face: 1, UIdx: 1, VIdx: 0})
	assert.NotSame(t, neighbor.Mesh, refreshed.Mesh)
	assert.False(t, s.Fade().IsSpawning(ChunkOf(key)), "a re-upload does not fade in again")
}

func TestStreamerRemeshesChunkEditedWhilePending(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(DefaultConfig(), nil, m)
	now := time.Unix(100, 0)
	viewer := surfaceViewer(p, 0, 40, 40)

	s.Update(p, viewer, now)
	key := core.ChunkKey{Face: 0, UIdx: 1, VIdx: 1}
	_, pending := s.pendingChunks[key]
	require.True(t, pending)

	nb := key.Neighbors()
	inFlight := 0
	for _, k := range append([]core.ChunkKey{key}, nb[:]...) {
		if _, ok := s.pendingChunks[k]; ok {
			inFlight++
		}
	}

	id := core.BlockID{Face: 0, Layer: p.TerrainHeight(0, 40, 40), U: 40, V: 40}
	p.RemoveBlock(id)
	s.RefreshAround(id, p, now)
	assert.Len(t, s.dirty, inFlight)

	settle(t, s, p, viewer, now)
	r, ok := s.Chunk(key)
	require.True(t, ok)
	fresh := rendering.BuildChunk(key, p)
	assert.Len(t, r.Mesh.Vertices, len(fresh.Vertices), "resident mesh shows the edit")
	assert.Len(t, r.Mesh.Indices, len(fresh.Indices))
	assert.Empty(t, s.dirty)
	assert.Equal(t, float64(inFlight), testutil.ToFloat64(m.discarded.WithLabelValues("dirty")))
}

func TestStreamerRespectsPerTickCaps(t *testing.T) {
	p := core.NewPlanet(1024, core.DefaultSeed)
	viewer := surfaceViewer(p, 0, 512, 512)
	now := time.Unix(100, 0)

	tests := []struct {
		name       string
		maxLodJobs int64
	}{
		{"default job cap", DefaultConfig().MaxLodJobs},
		{"uploads below jobs", 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxLodJobs = tt.maxLodJobs
			s := New(cfg, nil, nil)
			defer s.Wait()

			maxPending, maxLodGrowth, maxChunkGrowth := 0, 0, 0
			for i := 0; i < 300; i++ {
				before := s.Stats()
				s.Update(p, viewer, now)
				after := s.Stats()

				require.LessOrEqual(t, after.PendingLods, int(cfg.MaxLodJobs))
				require.LessOrEqual(t, after.PendingChunks, int(cfg.MaxChunkJobs))
				require.LessOrEqual(t, after.Lods-before.Lods, cfg.LodUploadsPerTick)
				require.LessOrEqual(t, after.Chunks-before.Chunks, cfg.ChunkUploadsPerTick)

				maxPending = max(maxPending, after.PendingLods)
				maxLodGrowth = max(maxLodGrowth, after.Lods-before.Lods)
				maxChunkGrowth = max(maxChunkGrowth, after.Chunks-before.Chunks)
				s.Wait()
			}

			assert.Equal(t, int(cfg.MaxLodJobs), maxPending, "the job cap is reached")
			assert.Equal(t, min(int(cfg.MaxLodJobs), cfg.LodUploadsPerTick), maxLodGrowth)
			assert.Positive(t, maxChunkGrowth)
		})
	}
}

func TestFullJobCapSkipsSnapshot(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	s := New(DefaultConfig(), nil, nil)
	require.True(t, s.lodSem.TryAcquire(DefaultConfig().MaxLodJobs))
	require.True(t, s.chunkSem.TryAcquire(DefaultConfig().MaxChunkJobs))

	tk := &tick{planet: p}
	assert.False(t, s.spawnLod(core.LodKey{Face: 0, Size: 64}, tk))
	assert.False(t, s.spawnChunk(core.ChunkKey{Face: 0}, tk))
	assert.Nil(t, tk.snap, "no overlay copy without a free slot")
	assert.Empty(t, s.pendingLods)
	assert.Empty(t, s.pendingChunks)

	s.lodSem.Release(DefaultConfig().MaxLodJobs)
	assert.True(t, s.spawnLod(core.LodKey{Face: 0, Size: 64}, tk))
	assert.NotNil(t, tk.snap)
	s.Wait()
}

func TestStreamerResetDropsStaleResults(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(DefaultConfig(), nil, m)
	now := time.Unix(100, 0)

	s.Update(p, farAway, now)
	s.Reset()
	s.Wait()

	s.drainLods(now)
	assert.Zero(t, s.Stats().Lods)
	assert.Equal(t, float64(core.FaceCount), testutil.ToFloat64(m.discarded.WithLabelValues("stale")))
	assert.Equal(t, float64(core.FaceCount), testutil.ToFloat64(m.spawned.WithLabelValues("lod")))

	p.Resize(true)
	settle(t, s, p, farAway, now)
	assert.Equal(t, core.FaceCount, s.Stats().Lods)
	assert.Equal(t, float64(core.FaceCount), testutil.ToFloat64(m.resident.WithLabelValues("lod")))
}

func TestMailboxBounded(t *testing.T) {
	m := NewMailbox[int](2)
	m.Post(1)
	m.Post(2)
	assert.Equal(t, 2, m.Len())

	v, ok := m.TryTake()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, _ = m.TryTake()
	assert.Equal(t, 2, v)
	_, ok = m.TryTake()
	assert.False(t, ok)
}
