package serialization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRed   = voxel.Color{R: 255, A: 255}
	testGreen = voxel.Color{G: 255, A: 255}
)

func newCodecShape(t *testing.T) *voxel.Shape {
	t.Helper()
	shape, err := voxel.NewShape(3, 2, 4, voxel.NewPalette(testRed, testGreen), voxel.DefaultShapeSettings())
	require.NoError(t, err)
	shape.SetBlock(0, 0, 0, voxel.NewBlock(0))
	shape.SetBlock(2, 1, 3, voxel.NewBlock(1))
	shape.SetBlock(1, 0, 2, voxel.NewBlock(1))
	shape.Light = voxel.LightSettings{Enabled: true, Locked: false, RotationX: 0.5, RotationY: -1.25}
	shape.Camera = voxel.LegacyCamera{Target: vec.Vec3Float{X: 1, Y: 2, Z: 3}, Distance: 40, Roll: 0.1}
	return shape
}

// writeV1File собирает файл версии 1 (без света) вручную
func writeV1File(t *testing.T, magic string, cells []uint8, w, h, d uint16) []byte {
	t.Helper()
	s := stream.NewBufferWriter()
	require.NoError(t, s.Write([]byte(magic)))
	require.NoError(t, s.WriteUint32(FormatVersionV1))
	require.NoError(t, s.WriteUint32(2))
	require.NoError(t, s.Write([]byte{0x89, 'P'}))
	require.NoError(t, s.WriteUint8(ColorEncodingRGBA))
	require.NoError(t, s.WriteUint8(1))
	require.NoError(t, s.WriteUint8(8))
	require.NoError(t, s.WriteUint8(1))
	require.NoError(t, s.Write([]byte{10, 20, 30, 255}))
	require.NoError(t, s.Write([]byte{0, 0, 0, 0}))
	require.NoError(t, s.WriteUint16(w))
	require.NoError(t, s.WriteUint16(h))
	require.NoError(t, s.WriteUint16(d))
	require.NoError(t, s.Write(cells))
	for range legacyCameraFloats {
		require.NoError(t, s.WriteFloat32(0))
	}
	buf, _, err := s.Unload()
	require.NoError(t, err)
	return buf
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	shape := newCodecShape(t)
	preview := []byte("not really a png")

	buf, err := SaveShapeAsBuffer(shape, nil, preview)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(buf[:magicSize]))

	loaded, err := LoadShapeFromBuffer(buf, "castle", false)
	require.NoError(t, err)

	assert.Equal(t, "castle", loaded.Name)
	assert.Equal(t, shape.Size(), loaded.Size())
	assert.Equal(t, shape.Cells(), loaded.Cells())
	assert.True(t, shape.Palette.Equal(loaded.Palette))
	assert.Equal(t, shape.Light, loaded.Light)
	assert.Equal(t, shape.Camera, loaded.Camera)
	assert.Equal(t, ShapeHash(shape), ShapeHash(loaded))
}

func TestSaveLoad_ArtistPalette(t *testing.T) {
	shape := newCodecShape(t)
	artist := voxel.NewPalette(testRed, testGreen, voxel.Color{B: 255, A: 255})

	buf, err := SaveShapeAsBuffer(shape, artist, nil)
	require.NoError(t, err)

	loaded, err := LoadShapeFromBuffer(buf, "", false)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Palette.Count())
}

func TestSave_RejectsCellOutsidePalette(t *testing.T) {
	shape := newCodecShape(t)
	shape.SetBlock(0, 1, 0, voxel.NewBlock(7))

	_, err := SaveShapeAsBuffer(shape, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestLoad_Magic(t *testing.T) {
	cells := []uint8{0, 255}

	t.Run("legacy allowed", func(t *testing.T) {
		shape, err := LoadShapeFromBuffer(writeV1File(t, MagicBytesLegacy, cells, 1, 1, 2), "", true)
		require.NoError(t, err)
		assert.Equal(t, vec.Vec3{X: 1, Y: 1, Z: 2}, shape.Size())
	})

	t.Run("legacy refused", func(t *testing.T) {
		shape, err := LoadShapeFromBuffer(writeV1File(t, MagicBytesLegacy, cells, 1, 1, 2), "", false)
		assert.ErrorIs(t, err, ErrBadMagic)
		assert.Nil(t, shape)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := LoadShapeFromBuffer([]byte("GIF89a...."), "", true)
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("legacy prefix only", func(t *testing.T) {
		_, err := LoadShapeFromBuffer([]byte("PARTICxxxxx"), "", true)
		assert.ErrorIs(t, err, ErrBadMagic)
	})
}

func TestLoad_V1HasNoLight(t *testing.T) {
	buf := writeV1File(t, MagicBytes, []uint8{0, 255, 255, 0}, 2, 1, 2)

	shape, err := LoadShapeFromBuffer(buf, "old", false)
	require.NoError(t, err)

	assert.Equal(t, voxel.LightSettings{}, shape.Light)
	assert.Equal(t, 2, shape.SolidCount())
	assert.Equal(t, voxel.Color{R: 10, G: 20, B: 30, A: 255}, shape.Palette.Colors()[0])

	// пересохранение повышает версию
	upgraded, err := SaveShapeAsBuffer(shape, nil, nil)
	require.NoError(t, err)
	s := stream.NewBufferReader(upgraded)
	_, err = ReadMagicBytes(s, false)
	require.NoError(t, err)
	version, err := s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, FormatVersionLight, version)
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	buf := writeV1File(t, MagicBytes, []uint8{0}, 1, 1, 1)
	buf[magicSize] = 9

	_, err := LoadShapeFromBuffer(buf, "", false)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoad_CellOutsidePalette(t *testing.T) {
	buf := writeV1File(t, MagicBytes, []uint8{0, 3}, 1, 1, 2)

	_, err := LoadShapeFromBuffer(buf, "", false)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestLoad_TruncatedAtEveryStep(t *testing.T) {
	buf, err := SaveShapeAsBuffer(newCodecShape(t), nil, []byte{1, 2, 3})
	require.NoError(t, err)

	for n := 0; n < len(buf); n++ {
		shape, err := LoadShapeFromBuffer(buf[:n], "", false)
		require.Error(t, err, "prefix %d", n)
		assert.Nil(t, shape)
		assert.True(t, IsFormatError(err), "prefix %d: %v", n, err)
	}
}

func TestLoad_GridLimit(t *testing.T) {
	SetMaxGridCells(4)
	defer SetMaxGridCells(512 * 512 * 512)

	buf := writeV1File(t, MagicBytes, make([]uint8, 8), 2, 2, 2)
	_, err := LoadShapeFromBuffer(buf, "", false)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestLoad_LinksAtlas(t *testing.T) {
	buf, err := SaveShapeAsBuffer(newCodecShape(t), nil, nil)
	require.NoError(t, err)

	atlas := voxel.NewColorAtlas()
	settings := voxel.ShapeSettings{Mutable: false}
	shape, err := LoadShape(stream.NewBufferReader(buf), "x", atlas, &settings, false)
	require.NoError(t, err)

	assert.Len(t, atlas.Palettes(), 1)
	assert.False(t, shape.Settings().Mutable)
}

func TestSaveShape_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shape.3zh")
	f, err := os.Create(path)
	require.NoError(t, err)

	shape := newCodecShape(t)
	require.NoError(t, SaveShape(shape, []byte("png"), f))

	s, err := stream.OpenFile(path)
	require.NoError(t, err)
	defer s.Close()
	loaded, err := LoadShape(s, "shape", nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, shape.Cells(), loaded.Cells())
}
