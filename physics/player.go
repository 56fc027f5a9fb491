package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/core"
)

// Player tuning defaults.
const (
	DefaultMoveSpeed = 5.0
	DefaultJumpForce = 8.0
	DefaultMouseSens = 0.002
	WalkAcceleration = 25.0
	GroundFriction   = 15.0
	AirFriction      = 0.5
	PitchLimit       = 1.5
	sprintWalkFactor = 2.0
	sprintFlyFactor  = 10.0
	inputDeadzone    = 0.01
	mouseDeadzone    = 0.001
)

// Input is one frame of avatar controls. Move is in the avatar's local
// frame: X strafes right, Z is backward (forward is -Z).
type Input struct {
	Move   mgl64.Vec3
	Jump   bool
	Fly    bool
	Sprint bool
	// MouseDX and MouseDY are raw pointer deltas in pixels.
	MouseDX, MouseDY float64
}

// Player is the first-person avatar walking on the curved surface.
type Player struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Rotation mgl64.Quat
	Pitch    float64
	Grounded bool

	MoveSpeed float64
	JumpForce float64
	MouseSens float64
}

// NewPlayer returns an avatar with default tuning at pos.
func NewPlayer(pos mgl64.Vec3) *Player {
	p := &Player{
		MoveSpeed: DefaultMoveSpeed,
		JumpForce: DefaultJumpForce,
		MouseSens: DefaultMouseSens,
	}
	p.Spawn(pos)
	return p
}

// Spawn places the avatar at pos, at rest and upright.
func (p *Player) Spawn(pos mgl64.Vec3) {
	p.Position = pos
	p.Velocity = mgl64.Vec3{}
	p.Grounded = false
	p.Rotation = mgl64.QuatBetweenVectors(mgl64.Vec3{0, 1, 0}, UpVector(pos))
}

// Update applies look, walk or fly input, jumping and gravity, then moves
// the avatar through SolveMovement and re-aligns it with the local up.
func (p *Player) Update(dt float64, f core.Field, in Input) {
	up := UpVector(p.Position)

	if math.Abs(in.MouseDX) > mouseDeadzone {
		yaw := mgl64.QuatRotate(-in.MouseDX*p.MouseSens, up)
		p.Rotation = yaw.Mul(p.Rotation)
	}
	if math.Abs(in.MouseDY) > mouseDeadzone {
		p.Pitch = mgl64.Clamp(p.Pitch-in.MouseDY*p.MouseSens, -PitchLimit, PitchLimit)
	}

	speed := p.MoveSpeed
	if in.Sprint {
		if in.Fly {
			speed *= sprintFlyFactor
		} else {
			speed *= sprintWalkFactor
		}
	}

	vertical := up.Mul(p.Velocity.Dot(up))
	horizontal := p.Velocity.Sub(vertical)

	switch {
	case in.Fly && in.Move.Len() > inputDeadzone:
		dir := in.Move.Normalize()
		look := p.Rotation.Mul(mgl64.QuatRotate(p.Pitch, mgl64.Vec3{1, 0, 0}))
		p.Velocity = look.Rotate(mgl64.Vec3{dir.X(), 0, dir.Z()}).Mul(speed)
	case in.Fly:
		p.Velocity = mgl64.Vec3{}
	case in.Move.Len() > inputDeadzone:
		dir := in.Move.Normalize()
		target := p.Rotation.Rotate(mgl64.Vec3{dir.X(), 0, dir.Z()}).Mul(speed)
		step := clampLength(target.Sub(horizontal), WalkAcceleration*dt)
		p.Velocity = horizontal.Add(step).Add(vertical)
	default:
		friction := AirFriction
		if p.Grounded {
			friction = GroundFriction
		}
		p.Velocity = horizontal.Mul(math.Max(1-friction*dt, 0)).Add(vertical)
	}

	if in.Jump && p.Grounded && !in.Fly {
		p.Velocity = p.Velocity.Add(up.Mul(p.JumpForce))
		p.Grounded = false
	}
	if !in.Fly {
		p.Velocity = p.Velocity.Sub(up.Mul(Gravity * dt))
	}

	m := SolveMovement(f, p.Position, p.Velocity, dt, in.Fly)
	p.Position = m.Position
	p.Velocity = m.Velocity
	p.Grounded = m.Grounded

	p.Rotation = AlignToPlanet(p.Rotation, up)
}

// Eye is the camera position.
func (p *Player) Eye() mgl64.Vec3 {
	return p.Position.Add(UpVector(p.Position).Mul(EyeHeight))
}

// Forward is the view direction including pitch.
func (p *Player) Forward() mgl64.Vec3 {
	look := p.Rotation.Mul(mgl64.QuatRotate(p.Pitch, mgl64.Vec3{1, 0, 0}))
	return look.Rotate(mgl64.Vec3{0, 0, -1})
}

// ViewMatrix is a right-handed look-at from the eye along Forward.
func (p *Player) ViewMatrix() mgl64.Mat4 {
	eye := p.Eye()
	return mgl64.LookAtV(eye, eye.Add(p.Forward()), UpVector(p.Position))
}

// ModelMatrix places avatar-local geometry (the guide cylinder) in the world.
func (p *Player) ModelMatrix() mgl64.Mat4 {
	t := p.Position
	return mgl64.Translate3D(t.X(), t.Y(), t.Z()).Mul4(p.Rotation.Mat4())
}

func clampLength(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	if l := v.Len(); l > limit && l > 0 {
		return v.Mul(limit / l)
	}
	return v
}
