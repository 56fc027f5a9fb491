package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"voxelplanet/rendering"
	"voxelplanet/streaming"
)

// uploadMesh copies a triangle mesh to the GPU. Raylib indices are 16-bit,
// so the mesh is expanded to one vertex per index. The CPU arrays are
// dropped after upload so that unloading only releases GPU buffers.
func uploadMesh(m *rendering.Mesh) (rl.Model, bool) {
	if m.Empty() || m.Lines {
		return rl.Model{}, false
	}
	n := len(m.Indices)
	pos := make([]float32, 0, n*3)
	nrm := make([]float32, 0, n*3)
	col := make([]uint8, 0, n*4)
	for _, i := range m.Indices {
		v := m.Vertices[i]
		pos = append(pos, v.Pos[0], v.Pos[1], v.Pos[2])
		nrm = append(nrm, v.Normal[0], v.Normal[1], v.Normal[2])
		col = append(col, toByte(v.Color[0]), toByte(v.Color[1]), toByte(v.Color[2]), 255)
	}

	mesh := rl.Mesh{
		VertexCount:   int32(n),
		TriangleCount: int32(n / 3),
		Vertices:      &pos[0],
		Normals:       &nrm[0],
		Colors:        &col[0],
	}
	rl.UploadMesh(&mesh, false)
	mesh.Vertices, mesh.Normals, mesh.Colors = nil, nil, nil
	return rl.LoadModelFromMesh(mesh), true
}

func toByte(f float32) uint8 {
	return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
}

func rlMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}

func rlVec(v mgl32.Vec3) rl.Vector3 { return rl.NewVector3(v[0], v[1], v[2]) }

func rlColor(c mgl32.Vec3, alpha uint8) rl.Color {
	return rl.NewColor(toByte(c[0]), toByte(c[1]), toByte(c[2]), alpha)
}

type gpuEntry struct {
	mesh  *rendering.Mesh
	model rl.Model
}

// gpuCache mirrors the streamer's resident set on the GPU.
type gpuCache struct {
	entries map[streaming.AnyKey]gpuEntry
	bytes   int
}

func newGPUCache() *gpuCache {
	return &gpuCache{entries: make(map[streaming.AnyKey]gpuEntry)}
}

// sync uploads new or rebuilt meshes and releases ones no longer visible.
func (c *gpuCache) sync(visible []streaming.Resident) {
	live := make(map[streaming.AnyKey]struct{}, len(visible))
	for _, r := range visible {
		live[r.Key] = struct{}{}
		e, ok := c.entries[r.Key]
		if ok && e.mesh == r.Mesh {
			continue
		}
		if ok {
			c.release(r.Key, e)
		}
		if model, ok := uploadMesh(r.Mesh); ok {
			c.entries[r.Key] = gpuEntry{mesh: r.Mesh, model: model}
			c.bytes += r.Mesh.ByteSize()
		}
	}
	for k, e := range c.entries {
		if _, ok := live[k]; !ok {
			c.release(k, e)
		}
	}
}

func (c *gpuCache) release(k streaming.AnyKey, e gpuEntry) {
	rl.UnloadModel(e.model)
	c.bytes -= e.mesh.ByteSize()
	delete(c.entries, k)
}

// draw renders every visible mesh inside the frustum at its fade opacity.
func (c *gpuCache) draw(visible []streaming.Resident, frustum rendering.Frustum) (drawn int) {
	for _, r := range visible {
		e, ok := c.entries[r.Key]
		if !ok {
			continue
		}
		center := mgl32.Vec3{float32(r.Center[0]), float32(r.Center[1]), float32(r.Center[2])}
		if !frustum.SphereVisible(center, float32(r.Radius)) {
			continue
		}
		alpha := uint8(mgl32.Clamp(r.Opacity, 0, 1) * 255)
		rl.DrawModel(e.model, rl.NewVector3(0, 0, 0), 1, rl.NewColor(255, 255, 255, alpha))
		drawn++
	}
	return drawn
}

func (c *gpuCache) clear() {
	for k, e := range c.entries {
		c.release(k, e)
	}
}

// drawLines draws a line-list mesh with an optional transform.
func drawLines(m *rendering.Mesh, transform mgl32.Mat4) {
	for i := 0; i+1 < len(m.Indices); i += 2 {
		a, b := m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]]
		pa := transform.Mul4x1(a.Pos.Vec4(1)).Vec3()
		pb := transform.Mul4x1(b.Pos.Vec4(1)).Vec3()
		rl.DrawLine3D(rlVec(pa), rlVec(pb), rlColor(a.Color, 255))
	}
}
