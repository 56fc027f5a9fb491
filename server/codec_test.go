package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelplanet/core"
	"voxelplanet/rendering"
	"voxelplanet/streaming"
)

func TestFrameRoundTrip(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	chunk := rendering.BuildChunk(core.ChunkKey{Face: 2, UIdx: 1, VIdx: 0}, p)
	require.False(t, chunk.Empty())
	tile := rendering.BuildLod(core.LodKey{Face: 5, X: 0, Y: 0, Size: 64}, p)

	tests := []struct {
		name     string
		frame    Frame
		compress bool
	}{
		{"raw chunk", Frame{Key: streaming.ChunkOf(core.ChunkKey{Face: 2, UIdx: 1}), Mesh: chunk}, false},
		{"zstd chunk", Frame{Key: streaming.ChunkOf(core.ChunkKey{Face: 2, UIdx: 1}), Mesh: chunk}, true},
		{"zstd tile", Frame{Key: streaming.LodOf(core.LodKey{Face: 5, Size: 64}), Mesh: tile}, true},
		{"lines", Frame{Key: streaming.ChunkOf(core.ChunkKey{}), Mesh: rendering.Crosshair()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.compress)
			require.NoError(t, err)
			defer c.Close()

			got, err := c.Unpack(c.Pack(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.frame.Key, got.Key)
			assert.Equal(t, tt.frame.Mesh.Vertices, got.Mesh.Vertices)
			assert.Equal(t, tt.frame.Mesh.Indices, got.Mesh.Indices)
			assert.Equal(t, tt.frame.Mesh.Lines, got.Mesh.Lines)
		})
	}
}

func TestCompressionShrinksTiles(t *testing.T) {
	p := core.NewPlanet(64, core.DefaultSeed)
	f := Frame{Key: streaming.LodOf(core.LodKey{Size: 64}), Mesh: rendering.BuildLod(core.LodKey{Size: 64}, p)}

	raw, err := NewCodec(false)
	require.NoError(t, err)
	defer raw.Close()
	z, err := NewCodec(true)
	require.NoError(t, err)
	defer z.Close()

	assert.Less(t, len(z.Pack(f)), len(raw.Pack(f)))
	// Either codec reads both encodings.
	_, err = raw.Unpack(z.Pack(f))
	assert.NoError(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c, err := NewCodec(false)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Unpack(nil)
	assert.ErrorIs(t, err, ErrShortFrame)
	_, err = c.Unpack([]byte{9, 1, 2, 3})
	assert.ErrorIs(t, err, ErrBadMagic)

	good := EncodeFrame(Frame{Key: streaming.ChunkOf(core.ChunkKey{}), Mesh: rendering.Crosshair()})
	_, err = DecodeFrame(good[:len(good)-1])
	assert.ErrorIs(t, err, ErrShortFrame)
	bad := append([]byte(nil), good...)
	bad[0] ^= 0xff
	_, err = DecodeFrame(bad)
	assert.ErrorIs(t, err, ErrBadMagic)
}
