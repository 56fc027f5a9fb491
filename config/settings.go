package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"voxelplanet/core"
	"voxelplanet/streaming"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid settings")

type Settings struct {
	World     WorldSettings     `yaml:"world"`
	Streaming StreamingSettings `yaml:"streaming"`
	Server    ServerSettings    `yaml:"server"`
	Viewer    ViewerSettings    `yaml:"viewer"`
	Player    PlayerSettings    `yaml:"player"`
}

type WorldSettings struct {
	Resolution uint32 `yaml:"resolution"`
	Seed       uint32 `yaml:"seed"`
}

type StreamingSettings struct {
	MaxLodJobs          int64         `yaml:"max_lod_jobs"`
	MaxChunkJobs        int64         `yaml:"max_chunk_jobs"`
	ChunkSpawnsPerTick  int           `yaml:"chunk_spawns_per_tick"`
	LodUploadsPerTick   int           `yaml:"lod_uploads_per_tick"`
	ChunkUploadsPerTick int           `yaml:"chunk_uploads_per_tick"`
	FadeDuration        time.Duration `yaml:"fade_duration"` // e.g. "2s"
}

type ServerSettings struct {
	Addr              string        `yaml:"addr"`
	TickInterval      time.Duration `yaml:"tick_interval"`      // frame loop period
	BroadcastInterval time.Duration `yaml:"broadcast_interval"` // mesh feed period
	MaxClients        int           `yaml:"max_clients"`
	CompressFrames    bool          `yaml:"compress_frames"`
}

type ViewerSettings struct {
	Width         int32   `yaml:"width"`
	Height        int32   `yaml:"height"`
	FOV           float64 `yaml:"fov"`       // first person, degrees
	OrbitFOV      float64 `yaml:"orbit_fov"` // orbit camera, degrees
	OrbitDistance float64 `yaml:"orbit_distance"`
	TargetFPS     int32   `yaml:"target_fps"`
	FirstPerson   bool    `yaml:"first_person"`
}

type PlayerSettings struct {
	MoveSpeed        float64 `yaml:"move_speed"`
	JumpForce        float64 `yaml:"jump_force"`
	MouseSensitivity float64 `yaml:"mouse_sensitivity"`
	SpawnClearance   float64 `yaml:"spawn_clearance"`
	RespawnClearance float64 `yaml:"respawn_clearance"`
}

// Default returns the built-in settings.
func Default() *Settings {
	sc := streaming.DefaultConfig()
	return &Settings{
		World: WorldSettings{
			Resolution: 49,
			Seed:       core.DefaultSeed,
		},
		Streaming: StreamingSettings{
			MaxLodJobs:          sc.MaxLodJobs,
			MaxChunkJobs:        sc.MaxChunkJobs,
			ChunkSpawnsPerTick:  sc.ChunkSpawnsPerTick,
			LodUploadsPerTick:   sc.LodUploadsPerTick,
			ChunkUploadsPerTick: sc.ChunkUploadsPerTick,
			FadeDuration:        sc.FadeDuration,
		},
		Server: ServerSettings{
			Addr:              ":8080",
			TickInterval:      16 * time.Millisecond,
			BroadcastInterval: 100 * time.Millisecond,
			MaxClients:        16,
			CompressFrames:    true,
		},
		Viewer: ViewerSettings{
			Width:         1280,
			Height:        720,
			FOV:           80,
			OrbitFOV:      45,
			OrbitDistance: 200,
			TargetFPS:     60,
			FirstPerson:   true,
		},
		Player: PlayerSettings{
			MoveSpeed:        5,
			JumpForce:        8,
			MouseSensitivity: 0.002,
			SpawnClearance:   10,
			RespawnClearance: 5,
		},
	}
}

// Load overlays the YAML file at path onto the defaults. A missing file is
// not an error.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects values the planet or the streamer cannot run with.
func (s *Settings) Validate() error {
	switch {
	case s.World.Resolution < core.MinResolution || s.World.Resolution > core.MaxResolution:
		return fmt.Errorf("%w: world.resolution %d outside [%d, %d]",
			ErrInvalid, s.World.Resolution, core.MinResolution, core.MaxResolution)
	case s.Streaming.MaxLodJobs <= 0 || s.Streaming.MaxChunkJobs <= 0:
		return fmt.Errorf("%w: streaming job limits must be positive", ErrInvalid)
	case s.Streaming.ChunkSpawnsPerTick <= 0 || s.Streaming.LodUploadsPerTick <= 0 || s.Streaming.ChunkUploadsPerTick <= 0:
		return fmt.Errorf("%w: streaming per-tick budgets must be positive", ErrInvalid)
	case s.Streaming.FadeDuration < 0:
		return fmt.Errorf("%w: streaming.fade_duration must not be negative", ErrInvalid)
	case s.Server.Addr == "":
		return fmt.Errorf("%w: server.addr must be set", ErrInvalid)
	case s.Server.TickInterval <= 0 || s.Server.BroadcastInterval <= 0:
		return fmt.Errorf("%w: server intervals must be positive", ErrInvalid)
	case s.Server.MaxClients <= 0:
		return fmt.Errorf("%w: server.max_clients must be positive", ErrInvalid)
	case s.Viewer.Width <= 0 || s.Viewer.Height <= 0:
		return fmt.Errorf("%w: viewer size must be positive", ErrInvalid)
	case s.Viewer.FOV <= 0 || s.Viewer.FOV >= 180 || s.Viewer.OrbitFOV <= 0 || s.Viewer.OrbitFOV >= 180:
		return fmt.Errorf("%w: viewer fov must be in (0, 180)", ErrInvalid)
	case s.Player.MoveSpeed <= 0 || s.Player.MouseSensitivity <= 0:
		return fmt.Errorf("%w: player speed and sensitivity must be positive", ErrInvalid)
	}
	return nil
}

// StreamerConfig converts the streaming section for streaming.New.
func (s *Settings) StreamerConfig() streaming.Config {
	return streaming.Config{
		MaxLodJobs:          s.Streaming.MaxLodJobs,
		MaxChunkJobs:        s.Streaming.MaxChunkJobs,
		ChunkSpawnsPerTick:  s.Streaming.ChunkSpawnsPerTick,
		LodUploadsPerTick:   s.Streaming.LodUploadsPerTick,
		ChunkUploadsPerTick: s.Streaming.ChunkUploadsPerTick,
		FadeDuration:        s.Streaming.FadeDuration,
	}
}

// SurfaceChunks is the number of chunk columns covering all six faces.
func (s *Settings) SurfaceChunks() int {
	per := int((s.World.Resolution + core.ChunkSize - 1) / core.ChunkSize)
	return core.FaceCount * per * per
}

// Summary is a one-line description for startup logs.
func (s *Settings) Summary() string {
	return fmt.Sprintf("resolution %d (~%d chunk columns), seed %d, fade %s",
		s.World.Resolution, s.SurfaceChunks(), s.World.Seed, s.Streaming.FadeDuration)
}
