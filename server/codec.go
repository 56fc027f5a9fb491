package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"

	"voxelplanet/core"
	"voxelplanet/rendering"
	"voxelplanet/streaming"
)

// Binary mesh frame layout, little endian:
//
//	magic u32 | kind u8 | face u8 | lines u8 | reserved u8 |
//	a u32 | b u32 | c u32 | vertices u32 | indices u32 |
//	vertices × 9 f32 (pos, color, normal) | indices × u32
//
// Chunk keys store (UIdx, VIdx, 0) in a,b,c; tile keys store (X, Y, Size).
// On the wire every frame is prefixed by one flag byte: 0 raw, 1 zstd.
const (
	frameMagic  uint32 = 0x31464d56 // "VMF1"
	headerBytes        = 4 + 4 + 5*4

	flagRaw  byte = 0
	flagZstd byte = 1
)

var (
	ErrShortFrame = errors.New("mesh frame truncated")
	ErrBadMagic   = errors.New("not a mesh frame")
)

// WireKey is the JSON form of a resident key.
type WireKey struct {
	Kind string `json:"kind"`
	Face uint8  `json:"face"`
	A    uint32 `json:"a"`
	B    uint32 `json:"b"`
	C    uint32 `json:"c"`
}

func wireKey(k streaming.AnyKey) WireKey {
	if k.Kind == streaming.KindLod {
		return WireKey{Kind: k.Kind.String(), Face: k.Lod.Face, A: k.Lod.X, B: k.Lod.Y, C: k.Lod.Size}
	}
	return WireKey{Kind: k.Kind.String(), Face: k.Chunk.Face, A: k.Chunk.UIdx, B: k.Chunk.VIdx}
}

func keyFrom(kind streaming.KeyKind, face uint8, a, b, c uint32) streaming.AnyKey {
	if kind == streaming.KindLod {
		return streaming.LodOf(core.LodKey{Face: face, X: a, Y: b, Size: c})
	}
	return streaming.ChunkOf(core.ChunkKey{Face: face, UIdx: a, VIdx: b})
}

// Frame is one resident mesh addressed by its key.
type Frame struct {
	Key  streaming.AnyKey
	Mesh *rendering.Mesh
}

// EncodeFrame serializes a frame without the wire flag.
func EncodeFrame(f Frame) []byte {
	m := f.Mesh
	if m == nil {
		m = &rendering.Mesh{}
	}
	buf := make([]byte, headerBytes+len(m.Vertices)*rendering.VertexBytes+len(m.Indices)*rendering.IndexBytes)

	le := binary.LittleEndian
	le.PutUint32(buf[0:], frameMagic)
	wk := wireKey(f.Key)
	buf[4] = byte(f.Key.Kind)
	buf[5] = wk.Face
	if m.Lines {
		buf[6] = 1
	}
	le.PutUint32(buf[8:], wk.A)
	le.PutUint32(buf[12:], wk.B)
	le.PutUint32(buf[16:], wk.C)
	le.PutUint32(buf[20:], uint32(len(m.Vertices)))
	le.PutUint32(buf[24:], uint32(len(m.Indices)))

	off := headerBytes
	for _, v := range m.Interleave() {
		le.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, i := range m.Indices {
		le.PutUint32(buf[off:], i)
		off += 4
	}
	return buf
}

// DecodeFrame parses a frame produced by EncodeFrame.
func DecodeFrame(buf []byte) (Frame, error) {
	if len(buf) < headerBytes {
		return Frame{}, ErrShortFrame
	}
	le := binary.LittleEndian
	if le.Uint32(buf[0:]) != frameMagic {
		return Frame{}, ErrBadMagic
	}
	kind := streaming.KeyKind(buf[4])
	key := keyFrom(kind, buf[5], le.Uint32(buf[8:]), le.Uint32(buf[12:]), le.Uint32(buf[16:]))
	nv := int(le.Uint32(buf[20:]))
	ni := int(le.Uint32(buf[24:]))
	if want := headerBytes + nv*rendering.VertexBytes + ni*rendering.IndexBytes; len(buf) != want {
		return Frame{}, fmt.Errorf("%w: %d bytes, header says %d", ErrShortFrame, len(buf), want)
	}

	m := &rendering.Mesh{
		Vertices: make([]rendering.Vertex, nv),
		Indices:  make([]uint32, ni),
		Lines:    buf[6] == 1,
	}
	off := headerBytes
	f32 := func() float32 {
		v := math.Float32frombits(le.Uint32(buf[off:]))
		off += 4
		return v
	}
	vec := func() mgl32.Vec3 { return mgl32.Vec3{f32(), f32(), f32()} }
	for i := range m.Vertices {
		m.Vertices[i] = rendering.Vertex{Pos: vec(), Color: vec(), Normal: vec()}
	}
	for i := range m.Indices {
		m.Indices[i] = le.Uint32(buf[off:])
		off += 4
	}
	return Frame{Key: key, Mesh: m}, nil
}

// Codec wraps frames for the wire, compressing them with zstd when enabled.
// It is safe for concurrent use.
type Codec struct {
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewCodec creates a codec. Decoding accepts both raw and compressed frames
// regardless of compress.
func NewCodec(compress bool) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{compress: compress, enc: enc, dec: dec}, nil
}

// Pack encodes f for a binary websocket message.
func (c *Codec) Pack(f Frame) []byte {
	raw := EncodeFrame(f)
	if !c.compress {
		return append([]byte{flagRaw}, raw...)
	}
	return c.enc.EncodeAll(raw, []byte{flagZstd})
}

// Unpack reverses Pack.
func (c *Codec) Unpack(msg []byte) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, ErrShortFrame
	}
	switch msg[0] {
	case flagRaw:
		return DecodeFrame(msg[1:])
	case flagZstd:
		raw, err := c.dec.DecodeAll(msg[1:], nil)
		if err != nil {
			return Frame{}, fmt.Errorf("decompress frame: %w", err)
		}
		return DecodeFrame(raw)
	}
	return Frame{}, fmt.Errorf("%w: flag %d", ErrBadMagic, msg[0])
}

// Close releases the zstd workers.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
