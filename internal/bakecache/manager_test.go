package bakecache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBakeShape(t *testing.T) *voxel.Shape {
	t.Helper()
	shape, err := voxel.NewShape(4, 4, 4, voxel.NewPalette(voxel.Color{R: 200, A: 255}), voxel.DefaultShapeSettings())
	require.NoError(t, err)
	shape.SetBlock(1, 2, 3, voxel.NewBlock(0))
	shape.SetBlock(0, 0, 0, voxel.NewBlock(0))
	return shape
}

// failingStore - хранилище, все операции которого завершаются ошибкой
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Put(context.Context, string, []byte) error   { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("down") }
func (failingStore) Close() error                                { return nil }

func TestManager_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	shape := newBakeShape(t)
	hit, err := m.Bake(ctx, "tower", shape)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, shape.Baked)
	assert.Equal(t, 1, store.Len())

	again := newBakeShape(t)
	hit, err = m.Bake(ctx, "tower", again)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, shape.Baked, again.Baked)
}

func TestManager_RebakesOnMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	_, err := m.Bake(ctx, "tower", newBakeShape(t))
	require.NoError(t, err)

	edited := newBakeShape(t)
	edited.SetBlock(3, 3, 3, voxel.NewBlock(0))
	hit, err := m.Bake(ctx, "tower", edited)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, edited.Baked.SolidCount)

	// новая версия сохранена в кеш
	check := newBakeShape(t)
	check.SetBlock(3, 3, 3, voxel.NewBlock(0))
	hit, err = m.Bake(ctx, "tower", check)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestManager_RebakesAfterEdit(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	shape := newBakeShape(t)
	_, err := m.Bake(ctx, "tower", shape)
	require.NoError(t, err)

	shape.SetBlock(2, 2, 2, voxel.NewBlock(0))
	require.Nil(t, shape.Baked)
	hit, err := m.Bake(ctx, "tower", shape)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, shape.ComputeBake(), shape.Baked)
	assert.Equal(t, 3, shape.Baked.SolidCount)
}

func TestManager_ShiftedOrigin(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	palette := voxel.NewPalette(voxel.Color{R: 200, A: 255})
	shifted, err := voxel.NewShape(0, 0, 0, palette, voxel.DefaultShapeSettings())
	require.NoError(t, err)
	tr := voxel.NewTransaction()
	tr.AddBlock(-3, -3, -3, 0)
	tr.AddBlock(-2, -3, -3, 0)
	_, _, err = shifted.ApplyTransaction(tr, 0)
	require.NoError(t, err)

	_, err = m.Bake(ctx, "shifted", shifted)
	require.NoError(t, err)

	// та же сетка без смещения, как после загрузки из файла
	size := shifted.Size()
	cells := append([]voxel.ColorIndex(nil), shifted.Cells()...)
	plain, err := voxel.NewShapeFromGrid(size.X, size.Y, size.Z, cells, palette, voxel.DefaultShapeSettings())
	require.NoError(t, err)

	hit, err := m.Bake(ctx, "shifted", plain)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, plain.ComputeBake(), plain.Baked)
}

func TestManager_RebakesCorrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "tower", []byte{1, 2, 3}))

	shape := newBakeShape(t)
	hit, err := NewManager(store).Bake(ctx, "tower", shape)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, shape.Baked.SolidCount)
}

func TestManager_StoreFailureStillBakes(t *testing.T) {
	shape := newBakeShape(t)
	hit, err := NewManager(failingStore{}).Bake(context.Background(), "tower", shape)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, shape.Baked)
}

func TestManager_NoStore(t *testing.T) {
	m := NewManager(nil)
	shape := newBakeShape(t)

	hit, err := m.Bake(context.Background(), "x", shape)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, shape.Baked)
	assert.NoError(t, m.Invalidate(context.Background(), "x"))
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	_, err := m.Bake(ctx, "tower", newBakeShape(t))
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx, "tower"))
	assert.Equal(t, 0, store.Len())
}

func TestManager_BakeAll(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	shapes := make(map[string]*voxel.Shape)
	for i := range 8 {
		shapes[fmt.Sprintf("shape-%d", i)] = newBakeShape(t)
	}

	hits, err := m.BakeAll(ctx, shapes, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, hits)
	for key, s := range shapes {
		assert.NotNil(t, s.Baked, key)
	}

	hits, err = m.BakeAll(ctx, shapes, 3)
	require.NoError(t, err)
	assert.Equal(t, len(shapes), hits)
}

func TestManager_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManager(NewMemoryStore()).Bake(ctx, "tower", newBakeShape(t))
	assert.ErrorIs(t, err, context.Canceled)
}
