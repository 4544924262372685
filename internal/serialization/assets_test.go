package serialization

import (
	"testing"

	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) []byte {
	t.Helper()
	root := newCodecShape(t)
	child, err := voxel.NewShape(1, 1, 1, voxel.NewPalette(testGreen), voxel.DefaultShapeSettings())
	require.NoError(t, err)
	child.SetBlock(0, 0, 0, voxel.NewBlock(0))

	buf, err := SaveAssetsAsBuffer([]Asset{
		{Type: AssetPalette, Name: "colors", Palette: voxel.NewPalette(testRed)},
		{Type: AssetShape, Name: "body", Shape: root},
		{Type: AssetShape, Name: "hat", Shape: child},
	}, []byte("preview"))
	require.NoError(t, err)
	return buf
}

func TestLoadAssets_Container(t *testing.T) {
	assets, err := LoadAssets(stream.NewBufferReader(newContainer(t)), "avatar", AssetAny, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, assets, 3)

	assert.Equal(t, AssetPalette, assets[0].Type)
	assert.Equal(t, "colors", assets[0].Name)
	assert.Equal(t, "body", assets[1].Name)
	assert.Equal(t, "hat", assets[2].Name)
	assert.Equal(t, 1, assets[2].Shape.SolidCount())

	root, rest := AssetsGetRootShape(assets, true)
	require.NotNil(t, root)
	assert.Equal(t, "body", root.Name)
	assert.Len(t, rest, 2)
	assert.Len(t, assets, 3, "исходный список не изменяется")

	root2, same := AssetsGetRootShape(assets, false)
	assert.Same(t, root, root2)
	assert.Len(t, same, 3)
}

func TestLoadAssets_Filter(t *testing.T) {
	atlas := voxel.NewColorAtlas()
	assets, err := LoadAssets(stream.NewBufferReader(newContainer(t)), "", AssetPalette, atlas, nil, false)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Nil(t, assets[0].Shape)
	assert.Len(t, atlas.Palettes(), 1, "пропущенные формы не разбираются")

	shape, _ := AssetsGetRootShape(assets, false)
	assert.Nil(t, shape)
}

func TestLoadAssets_SingleShapeFile(t *testing.T) {
	buf, err := SaveShapeAsBuffer(newCodecShape(t), nil, nil)
	require.NoError(t, err)

	assets, err := LoadAssets(stream.NewBufferReader(buf), "single", AssetAny, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, AssetShape, assets[0].Type)
	assert.Same(t, assets[0].Shape.Palette, assets[1].Palette)

	assets, err = LoadAssets(stream.NewBufferReader(buf), "single", AssetShape, nil, nil, false)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestLoadAssets_ClosesStream(t *testing.T) {
	s := stream.NewBufferReader([]byte("garbage"))
	_, err := LoadAssets(s, "", AssetAny, nil, nil, false)
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = s.ReadUint8()
	assert.ErrorIs(t, err, stream.ErrClosed)
}

func TestLoadShape_ContainerReturnsRoot(t *testing.T) {
	shape, err := LoadShapeFromBuffer(newContainer(t), "avatar", false)
	require.NoError(t, err)
	assert.Equal(t, "body", shape.Name)
}

func TestLoadAssets_TruncatedContainer(t *testing.T) {
	buf := newContainer(t)
	for _, n := range []int{len(buf) - 1, len(buf) / 2, headerSize(len("preview")) + 1} {
		assets, err := LoadAssets(stream.NewBufferReader(buf[:n]), "", AssetAny, nil, nil, false)
		assert.ErrorIs(t, err, ErrTruncated, "prefix %d", n)
		assert.Nil(t, assets)
	}
}
