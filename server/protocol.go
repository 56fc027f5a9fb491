package server

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"voxelplanet/physics"
	"voxelplanet/streaming"
)

// Message types. Client to server: input, edit, resize. Server to client:
// welcome, state, evict, reset. Meshes travel as binary frames.
const (
	TypeInput   = "input"
	TypeEdit    = "edit"
	TypeResize  = "resize"
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypeEvict   = "evict"
	TypeReset   = "reset"
)

// ClientMsg is any message a viewer sends. Only the fields of its Type are
// meaningful.
type ClientMsg struct {
	Type string `json:"type"`

	Move    [3]float64 `json:"move,omitempty"`
	Jump    bool       `json:"jump,omitempty"`
	Fly     bool       `json:"fly,omitempty"`
	Sprint  bool       `json:"sprint,omitempty"`
	MouseDX float64    `json:"mouse_dx,omitempty"`
	MouseDY float64    `json:"mouse_dy,omitempty"`

	// Remove selects mining over placing for edit.
	Remove bool `json:"remove,omitempty"`
	// Grow selects the resize direction.
	Grow bool `json:"grow,omitempty"`
}

// Command is a decoded client message handed to the frame loop.
type Command struct {
	Client uuid.UUID
	Type   string
	Input  physics.Input
	Remove bool
	Grow   bool
}

func decodeCommand(id uuid.UUID, data []byte) (Command, error) {
	var msg ClientMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{}, fmt.Errorf("decode client message: %w", err)
	}
	cmd := Command{Client: id, Type: msg.Type}
	switch msg.Type {
	case TypeInput:
		cmd.Input = physics.Input{
			Move:    mgl64.Vec3(msg.Move),
			Jump:    msg.Jump,
			Fly:     msg.Fly,
			Sprint:  msg.Sprint,
			MouseDX: msg.MouseDX,
			MouseDY: msg.MouseDY,
		}
	case TypeEdit:
		cmd.Remove = msg.Remove
	case TypeResize:
		cmd.Grow = msg.Grow
	default:
		return Command{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return cmd, nil
}

// Welcome is the first message on every connection.
type Welcome struct {
	Type       string `json:"type"`
	ClientID   string `json:"client_id"`
	Resolution uint32 `json:"resolution"`
	Seed       uint32 `json:"seed"`
}

// State is the periodic avatar and streamer summary.
type State struct {
	Type       string          `json:"type"`
	Resolution uint32          `json:"resolution"`
	Position   [3]float64      `json:"position"`
	Forward    [3]float64      `json:"forward"`
	Grounded   bool            `json:"grounded"`
	Flying     bool            `json:"flying"`
	Stats      streaming.Stats `json:"stats"`
	// Fading lists the meshes not drawn fully opaque. Keys absent here
	// have opacity 1.
	Fading []KeyOpacity `json:"fading,omitempty"`
}

// KeyOpacity is the fade opacity of one mesh the viewer holds.
type KeyOpacity struct {
	Key     WireKey `json:"key"`
	Opacity float32 `json:"opacity"`
}

// Evict lists meshes the viewer should drop.
type Evict struct {
	Type string    `json:"type"`
	Keys []WireKey `json:"keys"`
}
