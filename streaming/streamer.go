package streaming

import (
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/semaphore"

	"voxelplanet/core"
	"voxelplanet/rendering"
)

// Config bounds the per-tick cost of streaming.
type Config struct {
	MaxLodJobs          int64         // tile jobs dispatched but not yet drained
	MaxChunkJobs        int64         // chunk jobs dispatched but not yet drained
	ChunkSpawnsPerTick  int           // new chunk jobs per tick
	LodUploadsPerTick   int           // tile results drained per tick
	ChunkUploadsPerTick int           // non-empty chunk results uploaded per tick
	FadeDuration        time.Duration // spawn/retire fade length
}

// DefaultConfig returns the standard streaming limits.
func DefaultConfig() Config {
	return Config{
		MaxLodJobs:          8,
		MaxChunkJobs:        12,
		ChunkSpawnsPerTick:  4,
		LodUploadsPerTick:   20,
		ChunkUploadsPerTick: 4,
		FadeDuration:        DefaultFadeDuration,
	}
}

const mailboxCapacity = 64

// Resident is an uploaded mesh with its culling sphere and, when returned
// by Visible, its current opacity.
type Resident struct {
	Key     AnyKey
	Mesh    *rendering.Mesh
	Center  mgl64.Vec3
	Radius  float64
	Opacity float32
}

func newResident(key AnyKey, mesh *rendering.Mesh) *Resident {
	c, r := mesh.Bounds()
	return &Resident{Key: key, Mesh: mesh, Center: c, Radius: r, Opacity: 1}
}

// Stats summarizes the streamer's state.
type Stats struct {
	Chunks        int
	Lods          int
	PendingChunks int
	PendingLods   int
	Queued        int
	Retiring      int
	EmptyChunks   int
	Vertices      int
	Indices       int
	Bytes         int
}

// Streamer decides which chunks and tiles must be resident around a
// viewpoint, meshes them on worker goroutines and diffs the results into
// the resident set. All methods must be called from one goroutine.
type Streamer struct {
	cfg     Config
	log     *log.Logger
	metrics *Metrics

	chunks map[core.ChunkKey]*Resident
	lods   map[core.LodKey]*Resident
	// empty holds chunks whose mesh came back with nothing visible. They
	// count as present so they are neither requeued nor block LOD release.
	empty map[core.ChunkKey]struct{}

	pendingChunks map[core.ChunkKey]struct{}
	pendingLods   map[core.LodKey]struct{}
	// dirty holds pending chunks edited after their job took its snapshot.
	// Their results are dropped and the chunk is queued again.
	dirty map[core.ChunkKey]struct{}
	queue         []core.ChunkKey

	lodSem   *semaphore.Weighted
	chunkSem *semaphore.Weighted
	lodBox   *Mailbox[lodResult]
	chunkBox *Mailbox[chunkResult]
	fade     *FadeAnimator

	// gen is bumped by Reset; results from older generations are dropped.
	gen uint64
	wg  sync.WaitGroup
}

// New creates a streamer. logger and metrics may be nil.
func New(cfg Config, logger *log.Logger, metrics *Metrics) *Streamer {
	def := DefaultConfig()
	if cfg.MaxLodJobs <= 0 {
		cfg.MaxLodJobs = def.MaxLodJobs
	}
	if cfg.MaxChunkJobs <= 0 {
		cfg.MaxChunkJobs = def.MaxChunkJobs
	}
	if cfg.ChunkSpawnsPerTick <= 0 {
		cfg.ChunkSpawnsPerTick = def.ChunkSpawnsPerTick
	}
	if cfg.LodUploadsPerTick <= 0 {
		cfg.LodUploadsPerTick = def.LodUploadsPerTick
	}
	if cfg.ChunkUploadsPerTick <= 0 {
		cfg.ChunkUploadsPerTick = def.ChunkUploadsPerTick
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Streamer{
		cfg:           cfg,
		log:           logger,
		metrics:       metrics,
		chunks:        make(map[core.ChunkKey]*Resident),
		lods:          make(map[core.LodKey]*Resident),
		empty:         make(map[core.ChunkKey]struct{}),
		pendingChunks: make(map[core.ChunkKey]struct{}),
		pendingLods:   make(map[core.LodKey]struct{}),
		dirty:         make(map[core.ChunkKey]struct{}),
		lodSem:        semaphore.NewWeighted(cfg.MaxLodJobs),
		chunkSem:      semaphore.NewWeighted(cfg.MaxChunkJobs),
		lodBox:        NewMailbox[lodResult](mailboxCapacity),
		chunkBox:      NewMailbox[chunkResult](mailboxCapacity),
		fade:          NewFadeAnimator(cfg.FadeDuration),
	}
}

// tick shares one planet snapshot between all jobs spawned in one Update.
type tick struct {
	planet *core.Planet
	snap   *core.Planet
}

func (t *tick) snapshot() *core.Planet {
	if t.snap == nil {
		t.snap = t.planet.Snapshot()
	}
	return t.snap
}

// Update runs one streaming step for the viewer position.
func (s *Streamer) Update(p *core.Planet, viewer mgl64.Vec3, now time.Time) {
	defer func() { s.metrics.observe(s.Stats()) }()
	res := p.Resolution()
	t := &tick{planet: p}

	s.drainLods(now)

	req := Required(res, viewer)

	missing := make([]core.ChunkKey, 0)
	for k := range req.Chunks {
		if !s.chunkPresent(k) {
			missing = append(missing, k)
		}
	}

	// A tile that is no longer required stays until every chunk it covers
	// has arrived, so streaming never opens a hole.
	for k, r := range s.lods {
		if _, ok := req.Lods[k]; ok {
			continue
		}
		if overlapsAny(k, missing) {
			req.Lods[k] = struct{}{}
			continue
		}
		delete(s.lods, k)
		s.fade.Retire(*r, now)
	}

	for _, k := range sortedLods(req.Lods) {
		if len(s.pendingLods) >= int(s.cfg.MaxLodJobs) {
			break
		}
		if _, ok := s.lods[k]; ok {
			continue
		}
		if _, ok := s.pendingLods[k]; ok {
			continue
		}
		if !s.spawnLod(k, t) {
			break
		}
	}

	for k, r := range s.chunks {
		if _, ok := req.Chunks[k]; !ok {
			delete(s.chunks, k)
			s.fade.Retire(*r, now)
		}
	}
	for k := range s.empty {
		if _, ok := req.Chunks[k]; !ok {
			delete(s.empty, k)
		}
	}

	s.rebuildQueue(req.Chunks, viewer, res)
	s.processQueue(t, now)
}

func (s *Streamer) chunkPresent(k core.ChunkKey) bool {
	if _, ok := s.chunks[k]; ok {
		return true
	}
	_, ok := s.empty[k]
	return ok
}

func overlapsAny(tile core.LodKey, chunks []core.ChunkKey) bool {
	for _, c := range chunks {
		if tile.Overlaps(c) {
			return true
		}
	}
	return false
}

func (s *Streamer) drainLods(now time.Time) {
	for i := 0; i < s.cfg.LodUploadsPerTick; i++ {
		r, ok := s.lodBox.TryTake()
		if !ok {
			return
		}
		if r.gen != s.gen {
			s.metrics.discard("stale")
			continue
		}
		delete(s.pendingLods, r.key)
		key := LodOf(r.key)
		s.lods[r.key] = newResident(key, r.mesh)
		s.fade.Spawn(key, now)
		s.metrics.uploaded(KindLod)
	}
}

// rebuildQueue keeps the still-required queued chunks, appends newly
// missing ones and orders the queue nearest first.
func (s *Streamer) rebuildQueue(required map[core.ChunkKey]struct{}, viewer mgl64.Vec3, res uint32) {
	queued := make(map[core.ChunkKey]struct{}, len(s.queue))
	kept := s.queue[:0]
	for _, k := range s.queue {
		if _, ok := required[k]; ok && !s.chunkPresent(k) {
			kept = append(kept, k)
			queued[k] = struct{}{}
		}
	}
	for k := range required {
		if s.chunkPresent(k) {
			continue
		}
		if _, ok := queued[k]; ok {
			continue
		}
		if _, ok := s.pendingChunks[k]; ok {
			continue
		}
		kept = append(kept, k)
	}
	s.queue = kept

	dist := make(map[core.ChunkKey]float64, len(s.queue))
	for _, k := range s.queue {
		dist[k] = ChunkCenter(k, res).Sub(viewer).LenSqr()
	}
	sort.Slice(s.queue, func(i, j int) bool {
		a, b := s.queue[i], s.queue[j]
		if dist[a] != dist[b] {
			return dist[a] < dist[b]
		}
		return chunkKeyLess(a, b)
	})
}

// ChunkCenter is the chunk's midpoint at mid depth, used for queue order.
func ChunkCenter(k core.ChunkKey, res uint32) mgl64.Vec3 {
	u, v := k.Origin()
	return core.PositionFor(k.Face, u+core.ChunkSize/2, v+core.ChunkSize/2, res/2, res)
}

func (s *Streamer) processQueue(t *tick, now time.Time) {
	budget := s.cfg.ChunkUploadsPerTick
	for budget > 0 {
		r, ok := s.chunkBox.TryTake()
		if !ok {
			break
		}
		if r.gen != s.gen {
			s.metrics.discard("stale")
			continue
		}
		delete(s.pendingChunks, r.key)
		if _, ok := s.dirty[r.key]; ok {
			delete(s.dirty, r.key)
			s.queue = append(s.queue, r.key)
			s.metrics.discard("dirty")
			continue
		}
		if r.mesh.Empty() {
			s.empty[r.key] = struct{}{}
			s.metrics.discard("empty")
			continue
		}
		s.upload(r.key, r.mesh, now)
		budget--
	}
	if budget <= 0 {
		return
	}
	if len(s.queue) == 0 || len(s.pendingChunks) >= int(s.cfg.MaxChunkJobs) {
		return
	}

	for i := 0; i < s.cfg.ChunkSpawnsPerTick && len(s.queue) > 0; i++ {
		if len(s.pendingChunks) >= int(s.cfg.MaxChunkJobs) {
			return
		}
		k := s.queue[0]
		if _, ok := s.pendingChunks[k]; ok || s.chunkPresent(k) {
			s.queue = s.queue[1:]
			continue
		}
		if !s.spawnChunk(k, t) {
			return
		}
		s.queue = s.queue[1:]
	}
}

// upload installs a chunk mesh. Only a first upload starts a fade in.
func (s *Streamer) upload(k core.ChunkKey, mesh *rendering.Mesh, now time.Time) {
	key := ChunkOf(k)
	_, update := s.chunks[k]
	s.chunks[k] = newResident(key, mesh)
	delete(s.empty, k)
	if !update {
		s.fade.Spawn(key, now)
	}
	s.metrics.uploaded(KindChunk)
}

// RefreshAround remeshes, synchronously, the resident chunk holding id and
// its four planar neighbors after an edit. Chunks that become empty are
// dropped without a fade. Chunks still being meshed are marked dirty so
// their outdated result is replaced.
func (s *Streamer) RefreshAround(id core.BlockID, p *core.Planet, now time.Time) {
	k := id.Chunk()
	nb := k.Neighbors()
	for _, key := range append([]core.ChunkKey{k}, nb[:]...) {
		if _, ok := s.pendingChunks[key]; ok {
			s.dirty[key] = struct{}{}
			continue
		}
		if !s.chunkPresent(key) {
			continue
		}
		mesh := rendering.BuildChunk(key, p)
		if mesh.Empty() {
			delete(s.chunks, key)
			s.empty[key] = struct{}{}
			continue
		}
		s.upload(key, mesh, now)
	}
}

// Reset forgets every resident, queued and pending mesh, as after a
// resize. Jobs still running finish but their results are discarded.
func (s *Streamer) Reset() {
	s.gen++
	clear(s.chunks)
	clear(s.lods)
	clear(s.empty)
	clear(s.pendingChunks)
	clear(s.pendingLods)
	clear(s.dirty)
	s.queue = s.queue[:0]
	s.fade.Clear()
}

// Visible returns every mesh the renderer should draw, resident ones and
// those fading out, each with its opacity.
func (s *Streamer) Visible(now time.Time) []Resident {
	out := s.fade.Advance(now)
	for _, r := range s.chunks {
		v := *r
		v.Opacity = s.fade.Opacity(r.Key, now)
		out = append(out, v)
	}
	for _, r := range s.lods {
		v := *r
		v.Opacity = s.fade.Opacity(r.Key, now)
		out = append(out, v)
	}
	return out
}

// Chunk returns the resident mesh for k.
func (s *Streamer) Chunk(k core.ChunkKey) (*Resident, bool) {
	r, ok := s.chunks[k]
	return r, ok
}

// Lod returns the resident mesh for k.
func (s *Streamer) Lod(k core.LodKey) (*Resident, bool) {
	r, ok := s.lods[k]
	return r, ok
}

// Queue returns a copy of the pending load order.
func (s *Streamer) Queue() []core.ChunkKey {
	return append([]core.ChunkKey(nil), s.queue...)
}

// Fade exposes the animator, mainly for renderers that query opacity
// directly.
func (s *Streamer) Fade() *FadeAnimator { return s.fade }

// Wait blocks until all dispatched jobs have posted their results.
func (s *Streamer) Wait() { s.wg.Wait() }

// Stats counts residency and estimates GPU memory.
func (s *Streamer) Stats() Stats {
	st := Stats{
		Chunks:        len(s.chunks),
		Lods:          len(s.lods),
		PendingChunks: len(s.pendingChunks),
		PendingLods:   len(s.pendingLods),
		Queued:        len(s.queue),
		Retiring:      s.fade.Retiring(),
		EmptyChunks:   len(s.empty),
	}
	for _, r := range s.chunks {
		st.Vertices += len(r.Mesh.Vertices)
		st.Indices += len(r.Mesh.Indices)
	}
	for _, r := range s.lods {
		st.Vertices += len(r.Mesh.Vertices)
		st.Indices += len(r.Mesh.Indices)
	}
	st.Bytes = st.Vertices*rendering.VertexBytes + st.Indices*rendering.IndexBytes
	return st
}

// LogMemory writes the residency summary for the current resolution.
func (s *Streamer) LogMemory(res uint32) {
	st := s.Stats()
	mb := float64(st.Bytes) / (1024 * 1024)
	s.log.Printf("resolution %d: %d chunks, %d tiles resident", res, st.Chunks, st.Lods)
	if mb > 1024 {
		s.log.Printf("gpu memory: %.2f GB", mb/1024)
	} else {
		s.log.Printf("gpu memory: %.2f MB", mb)
	}
}

func sortedLods(set map[core.LodKey]struct{}) []core.LodKey {
	out := make([]core.LodKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Face != b.Face {
			return a.Face < b.Face
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

func chunkKeyLess(a, b core.ChunkKey) bool {
	if a.Face != b.Face {
		return a.Face < b.Face
	}
	if a.VIdx != b.VIdx {
		return a.VIdx < b.VIdx
	}
	return a.UIdx < b.UIdx
}
