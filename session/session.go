// Package session owns the single-threaded frame loop state shared by the
// headless daemon and the native viewer: the planet, the avatar and the
// streamer.
package session

import (
	"io"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/config"
	"voxelplanet/core"
	"voxelplanet/physics"
	"voxelplanet/streaming"
)

// maxStep caps the physics step after a stall (window drag, GC pause).
const maxStep = 0.1

// Session is not safe for concurrent use; the frame loop goroutine owns it.
type Session struct {
	Planet   *core.Planet
	Player   *physics.Player
	Streamer *streaming.Streamer
	Flying   bool

	settings *config.Settings
	log      *log.Logger
}

// New generates the planet and spawns the avatar above face 0.
func New(s *config.Settings, logger *log.Logger, metrics *streaming.Metrics) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	start := time.Now()
	p := core.NewPlanet(s.World.Resolution, s.World.Seed)
	logger.Printf("generated terrain for res %d in %v", p.Resolution(), time.Since(start))

	player := physics.NewPlayer(physics.SpawnPoint(p, mgl64.Vec3{0, 1, 0}, s.Player.SpawnClearance))
	player.MoveSpeed = s.Player.MoveSpeed
	player.JumpForce = s.Player.JumpForce
	player.MouseSens = s.Player.MouseSensitivity

	return &Session{
		Planet:   p,
		Player:   player,
		Streamer: streaming.New(s.StreamerConfig(), logger, metrics),
		settings: s,
		log:      logger,
	}
}

// Step advances the avatar by dt seconds and then the streamer.
func (s *Session) Step(dt float64, in physics.Input, now time.Time) {
	if dt > maxStep {
		dt = maxStep
	}
	in.Fly = s.Flying
	if dt > 0 {
		s.Player.Update(dt, s.Planet, in)
	}
	s.Streamer.Update(s.Planet, s.Player.Eye(), now)
}

// Target is the block the reticle points at: the first solid block for
// removal, or the empty cell in front of it for placement.
func (s *Session) Target(remove bool) (core.RayHit, bool) {
	return core.Raycast(s.Planet, s.Player.Eye(), s.Player.Forward(), core.DefaultReach, !remove)
}

// Edit mines or places at the reticle and rebuilds the affected chunks.
func (s *Session) Edit(remove bool, now time.Time) (core.BlockID, bool) {
	return s.EditRay(s.Player.Eye(), s.Player.Forward(), core.DefaultReach, remove, now)
}

// EditRay mines or places along an arbitrary ray, such as a mouse pick in
// the orbit camera.
func (s *Session) EditRay(origin, dir mgl64.Vec3, reach float64, remove bool, now time.Time) (core.BlockID, bool) {
	hit, ok := core.Raycast(s.Planet, origin, dir, reach, !remove)
	if !ok {
		return core.BlockID{}, false
	}
	if remove {
		s.Planet.RemoveBlock(hit.Block)
	} else {
		s.Planet.AddBlock(hit.Block)
	}
	s.Streamer.RefreshAround(hit.Block, s.Planet, now)
	return hit.Block, true
}

// Resize grows or shrinks the planet, drops every resident mesh and puts
// the avatar back on the new surface along its current direction.
func (s *Session) Resize(grow bool) {
	s.Planet.Resize(grow)
	s.Streamer.Reset()

	dir := s.Player.Position
	if dir.Len() <= 0.1 {
		dir = core.DefaultUp
	}
	s.Player.Position = physics.SpawnPoint(s.Planet, dir, s.settings.Player.RespawnClearance)
	s.Player.Velocity = mgl64.Vec3{}

	s.Streamer.LogMemory(s.Planet.Resolution())
	s.log.Printf("resized to %d, respawned at radius %.1f", s.Planet.Resolution(), s.Player.Position.Len())
}

// ToggleFly switches between walking and flying.
func (s *Session) ToggleFly() bool {
	s.Flying = !s.Flying
	return s.Flying
}
