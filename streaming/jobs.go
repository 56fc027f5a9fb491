package streaming

import (
	"time"

	"voxelplanet/core"
	"voxelplanet/rendering"
)

type lodResult struct {
	key  core.LodKey
	gen  uint64
	mesh *rendering.Mesh
}

type chunkResult struct {
	key  core.ChunkKey
	gen  uint64
	mesh *rendering.Mesh
}

// spawnLod starts a detached tile job. It reports false when the LOD
// concurrency cap is reached.
func (s *Streamer) spawnLod(key core.LodKey, t *tick) bool {
	if !s.lodSem.TryAcquire(1) {
		return false
	}
	snap := t.snapshot()
	s.pendingLods[key] = struct{}{}
	s.metrics.jobSpawned(KindLod)

	gen := s.gen
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.lodSem.Release(1)

		start := time.Now()
		mesh := rendering.BuildLod(key, snap)
		s.metrics.built(KindLod, time.Since(start))
		s.lodBox.Post(lodResult{key: key, gen: gen, mesh: mesh})
	}()
	return true
}

// spawnChunk starts a detached chunk job. It reports false when the chunk
// concurrency cap is reached.
func (s *Streamer) spawnChunk(key core.ChunkKey, t *tick) bool {
	if !s.chunkSem.TryAcquire(1) {
		return false
	}
	snap := t.snapshot()
	s.pendingChunks[key] = struct{}{}
	s.metrics.jobSpawned(KindChunk)

	gen := s.gen
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.chunkSem.Release(1)

		start := time.Now()
		mesh := rendering.BuildChunk(key, snap)
		s.metrics.built(KindChunk, time.Since(start))
		s.chunkBox.Post(chunkResult{key: key, gen: gen, mesh: mesh})
	}()
	return true
}
