package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"voxelplanet/config"
	"voxelplanet/core"
	"voxelplanet/physics"
	"voxelplanet/rendering"
	"voxelplanet/session"
)

const (
	nearPlane = 0.1
	farPlane  = 20000.0
)

func init() {
	runtime.LockOSThread()
}

type viewState struct {
	firstPerson   bool
	orbitDistance float64
	showColliders bool
	showGuide     bool
	freezeCulling bool
	frozen        rendering.Frustum
}

func main() {
	configPath := flag.String("config", "planet.yaml", "Settings file (YAML); missing file means defaults")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}

	fmt.Println("=== Voxel Planet ===")
	fmt.Println(settings.Summary())

	rl.InitWindow(settings.Viewer.Width, settings.Viewer.Height, "voxel planet")
	defer rl.CloseWindow()
	rl.SetTargetFPS(settings.Viewer.TargetFPS)
	rl.DisableBackfaceCulling()
	rl.DisableCursor()

	sess := session.New(settings, log.New(os.Stderr, "[planet] ", log.LstdFlags), nil)
	defer sess.Streamer.Wait()

	cache := newGPUCache()
	defer cache.clear()
	avatar := rendering.Cylinder(physics.PlayerRadius, physics.PlayerHeight, 16)
	avatarModel, _ := uploadMesh(avatar)
	defer rl.UnloadModel(avatarModel)
	guideModel, guideRes := loadGuide(sess.Planet.Resolution())
	defer func() { rl.UnloadModel(guideModel) }()

	vs := viewState{
		firstPerson:   settings.Viewer.FirstPerson,
		orbitDistance: settings.Viewer.OrbitDistance,
	}

	fmt.Println("\nControls:")
	fmt.Println("  WASD/Space: Move and jump, Ctrl: Sprint, F: Fly")
	fmt.Println("  Left/Right click: Remove/Place block")
	fmt.Println("  K: Orbit camera, Scroll: Orbit distance")
	fmt.Println("  [ / ]: Shrink / Grow planet")
	fmt.Println("  O: Collision debug, G: Sphere guide, ': Freeze culling")
	fmt.Println("  ESC: Exit")

	lastStats := time.Now()
	for !rl.WindowShouldClose() {
		now := time.Now()
		dt := float64(rl.GetFrameTime())

		handleToggles(sess, &vs)
		if rl.IsKeyPressed(rl.KeyRightBracket) || rl.IsKeyPressed(rl.KeyLeftBracket) {
			sess.Resize(rl.IsKeyPressed(rl.KeyRightBracket))
			cache.clear()
			if guideRes != sess.Planet.Resolution() {
				rl.UnloadModel(guideModel)
				guideModel, guideRes = loadGuide(sess.Planet.Resolution())
			}
		}

		sess.Step(dt, readInput(vs.firstPerson), now)

		width, height := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
		camera, view := cameraFor(sess, &vs, settings)
		proj := mgl32.Perspective(mgl32.DegToRad(camera.Fovy), width/height, nearPlane, farPlane)
		viewProj := proj.Mul4(view)
		if !vs.freezeCulling {
			vs.frozen = rendering.NewFrustum(viewProj)
		}

		handleEdits(sess, &vs, viewProj, width, height, now)

		visible := sess.Streamer.Visible(now)
		cache.sync(visible)

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(10, 10, 20, 255))
		rl.BeginMode3D(camera)

		drawn := cache.draw(visible, vs.frozen)
		if !vs.firstPerson {
			avatarModel.Transform = rlMatrix(mat32(sess.Player.ModelMatrix()))
			rl.DrawModel(avatarModel, rl.NewVector3(0, 0, 0), 1, rl.White)
		}
		if vs.showGuide {
			rl.DrawModelWires(guideModel, rl.NewVector3(0, 0, 0), 1, rl.NewColor(255, 255, 255, 60))
		}
		if vs.showColliders {
			debug := rendering.CollisionDebug(sess.Player.Position, sess.Planet.Resolution(), func(p mgl64.Vec3) bool {
				return physics.IsSolid(sess.Planet, p)
			})
			drawLines(debug, mgl32.Ident4())
		}
		if vs.firstPerson {
			if hit, ok := sess.Target(true); ok {
				c := core.BlockCenter(hit.Block, sess.Planet.Resolution())
				rl.DrawSphereWires(rlVec(vec32(c)), 0.55, 4, 4, rl.Yellow)
			}
		}

		rl.EndMode3D()

		if vs.firstPerson {
			drawCrosshair(width, height)
		}
		st := sess.Streamer.Stats()
		rl.DrawFPS(10, 10)
		rl.DrawText(fmt.Sprintf("res %d  chunks %d  lods %d  drawn %d  pending %d/%d  gpu %.1f MB",
			sess.Planet.Resolution(), st.Chunks, st.Lods, drawn, st.PendingChunks, st.PendingLods,
			float64(cache.bytes)/(1<<20)), 10, 34, 18, rl.RayWhite)
		mode := "walk"
		if sess.Flying {
			mode = "fly"
		}
		rl.DrawText(fmt.Sprintf("%s  grounded %v  radius %.2f", mode, sess.Player.Grounded, sess.Player.Position.Len()),
			10, 56, 18, rl.RayWhite)
		rl.EndDrawing()

		if now.Sub(lastStats) >= 5*time.Second {
			lastStats = now
			fmt.Printf("\rFPS: %d | chunks %d lods %d retiring %d", rl.GetFPS(), st.Chunks, st.Lods, st.Retiring)
		}
	}
	fmt.Println()
}

func loadGuide(res uint32) (rl.Model, uint32) {
	m, _ := uploadMesh(rendering.SphereGuide(float32(core.LayerRadius(float64(res)/2, res)), 64))
	return m, res
}

func handleToggles(sess *session.Session, vs *viewState) {
	switch {
	case rl.IsKeyPressed(rl.KeyF) && vs.firstPerson:
		fmt.Printf("\nFly Mode: %v\n", sess.ToggleFly())
	case rl.IsKeyPressed(rl.KeyK):
		vs.firstPerson = !vs.firstPerson
		if vs.firstPerson {
			rl.DisableCursor()
		} else {
			rl.EnableCursor()
		}
	case rl.IsKeyPressed(rl.KeyO):
		vs.showColliders = !vs.showColliders
	case rl.IsKeyPressed(rl.KeyG):
		vs.showGuide = !vs.showGuide
	case rl.IsKeyPressed(rl.KeyApostrophe):
		vs.freezeCulling = !vs.freezeCulling
	}
	if !vs.firstPerson {
		vs.orbitDistance = mgl64.Clamp(vs.orbitDistance-float64(rl.GetMouseWheelMove())*50, 10, 10000)
	}
}

func readInput(firstPerson bool) physics.Input {
	var in physics.Input
	if rl.IsKeyDown(rl.KeyW) {
		in.Move[2]--
	}
	if rl.IsKeyDown(rl.KeyS) {
		in.Move[2]++
	}
	if rl.IsKeyDown(rl.KeyA) {
		in.Move[0]--
	}
	if rl.IsKeyDown(rl.KeyD) {
		in.Move[0]++
	}
	in.Jump = rl.IsKeyDown(rl.KeySpace)
	in.Sprint = rl.IsKeyDown(rl.KeyLeftControl)
	if firstPerson {
		d := rl.GetMouseDelta()
		in.MouseDX, in.MouseDY = float64(d.X), float64(d.Y)
	}
	return in
}

// cameraFor returns the raylib camera and the matching view matrix.
func cameraFor(sess *session.Session, vs *viewState, settings *config.Settings) (rl.Camera3D, mgl32.Mat4) {
	p := sess.Player
	up := physics.UpVector(p.Position)
	eye, target, camUp := p.Eye(), p.Eye().Add(p.Forward()), up
	fovy := settings.Viewer.FOV
	if !vs.firstPerson {
		eye = p.Position.Add(up.Mul(vs.orbitDistance))
		target = p.Position
		camUp = p.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
		fovy = settings.Viewer.OrbitFOV
	}
	cam := rl.Camera3D{
		Position:   rlVec(vec32(eye)),
		Target:     rlVec(vec32(target)),
		Up:         rlVec(vec32(camUp)),
		Fovy:       float32(fovy),
		Projection: rl.CameraPerspective,
	}
	return cam, mat32(mgl64.LookAtV(eye, target, camUp))
}

func handleEdits(sess *session.Session, vs *viewState, viewProj mgl32.Mat4, width, height float32, now time.Time) {
	remove := rl.IsMouseButtonPressed(rl.MouseButtonLeft)
	place := rl.IsMouseButtonPressed(rl.MouseButtonRight)
	if !remove && !place {
		return
	}
	if vs.firstPerson {
		sess.Edit(remove, now)
		return
	}
	mouse := rl.GetMousePosition()
	origin, dir := rendering.ScreenRay(viewProj, mouse.X/width*2-1, 1-mouse.Y/height*2)
	sess.EditRay(origin, dir, math.Inf(1), remove, now)
}

func drawCrosshair(width, height float32) {
	cx, cy := width/2, height/2
	m := rendering.Crosshair()
	for i := 0; i+1 < len(m.Indices); i += 2 {
		a, b := m.Vertices[m.Indices[i]].Pos, m.Vertices[m.Indices[i+1]].Pos
		rl.DrawLineV(
			rl.NewVector2(cx+a[0]*height, cy-a[1]*height),
			rl.NewVector2(cx+b[0]*height, cy-b[1]*height),
			rl.RayWhite)
	}
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func mat32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}
