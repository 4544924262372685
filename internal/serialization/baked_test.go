package serialization

import (
	"bytes"
	"testing"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaked_RoundTrip(t *testing.T) {
	shape := newCodecShape(t)
	hash := ShapeHash(shape)

	var buf bytes.Buffer
	require.NoError(t, SaveBakedFile(shape, hash, &buf))
	require.NotNil(t, shape.Baked, "данные вычисляются при сохранении")

	fresh := newCodecShape(t)
	require.Nil(t, fresh.Baked)
	require.NoError(t, LoadBakedFile(fresh, ShapeHash(fresh), bytes.NewReader(buf.Bytes())))

	assert.Equal(t, shape.ComputeBake(), fresh.Baked)
	assert.Equal(t, 3, fresh.Baked.SolidCount)
}

func TestBaked_HashMismatchLeavesShape(t *testing.T) {
	shape := newCodecShape(t)

	var buf bytes.Buffer
	require.NoError(t, SaveBakedFile(shape, ShapeHash(shape), &buf))

	edited := newCodecShape(t)
	edited.SetBlock(0, 1, 0, voxel.NewBlock(0))
	err := LoadBakedFile(edited, ShapeHash(edited), bytes.NewReader(buf.Bytes()))

	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.False(t, IsFormatError(err), "несовпадение хеша не считается повреждением")
	assert.Nil(t, edited.Baked)
}

func TestBaked_Corrupt(t *testing.T) {
	shape := newCodecShape(t)
	hash := ShapeHash(shape)

	var buf bytes.Buffer
	require.NoError(t, SaveBakedFile(shape, hash, &buf))
	raw := buf.Bytes()

	t.Run("truncated header", func(t *testing.T) {
		err := LoadBakedFile(newCodecShape(t), hash, bytes.NewReader(raw[:5]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("truncated payload", func(t *testing.T) {
		err := LoadBakedFile(newCodecShape(t), hash, bytes.NewReader(raw[:len(raw)-1]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("damaged payload", func(t *testing.T) {
		damaged := bytes.Clone(raw)
		damaged[12] ^= 0xff
		target := newCodecShape(t)
		err := LoadBakedFile(target, hash, bytes.NewReader(damaged))
		assert.ErrorIs(t, err, ErrInvalidBake)
		assert.Nil(t, target.Baked)
	})
}

func TestBaked_SaveIgnoresStaleBake(t *testing.T) {
	shape := newCodecShape(t)
	shape.SetBlock(1, 1, 1, voxel.NewBlock(0))
	shape.Baked = shape.ComputeBake()
	shape.Baked.SolidCount = 100

	var buf bytes.Buffer
	require.NoError(t, SaveBakedFile(shape, ShapeHash(shape), &buf))

	same := newCodecShape(t)
	same.SetBlock(1, 1, 1, voxel.NewBlock(0))
	require.NoError(t, LoadBakedFile(same, ShapeHash(same), bytes.NewReader(buf.Bytes())))
	assert.Equal(t, 4, same.Baked.SolidCount)
	assert.Equal(t, same.ComputeBake(), same.Baked)
}

func TestBaked_ShiftedOriginMatchesReloadedShape(t *testing.T) {
	shape, err := voxel.NewShape(0, 0, 0, voxel.NewPalette(testRed), voxel.DefaultShapeSettings())
	require.NoError(t, err)
	tr := voxel.NewTransaction()
	tr.AddBlock(-3, -3, -3, 0)
	_, _, err = shape.ApplyTransaction(tr, 0)
	require.NoError(t, err)
	require.Equal(t, vec.Vec3{X: -3, Y: -3, Z: -3}, shape.Origin())

	var baked bytes.Buffer
	require.NoError(t, SaveBakedFile(shape, ShapeHash(shape), &baked))

	buf, err := SaveShapeAsBuffer(shape, nil, nil)
	require.NoError(t, err)
	reloaded, err := LoadShapeFromBuffer(buf, "shifted.3zh", false)
	require.NoError(t, err)
	require.Equal(t, vec.Vec3{}, reloaded.Origin())
	require.Equal(t, ShapeHash(shape), ShapeHash(reloaded))

	require.NoError(t, LoadBakedFile(reloaded, ShapeHash(reloaded), bytes.NewReader(baked.Bytes())))
	assert.Equal(t, reloaded.ComputeBake(), reloaded.Baked)
	assert.Equal(t, vec.Vec3{}, reloaded.Baked.SolidBounds.Min)
}

func TestShapeHash(t *testing.T) {
	a := newCodecShape(t)
	b := newCodecShape(t)
	b.Name = "other"
	b.Light.Enabled = false

	assert.Equal(t, ShapeHash(a), ShapeHash(b), "имя и свет не влияют на хеш")

	b.SetBlock(1, 1, 1, voxel.NewBlock(0))
	assert.NotEqual(t, ShapeHash(a), ShapeHash(b))

	c := newCodecShape(t)
	_, err := c.Palette.Add(voxel.Color{B: 1, A: 255})
	require.NoError(t, err)
	assert.NotEqual(t, ShapeHash(a), ShapeHash(c))
}
