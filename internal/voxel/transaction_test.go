package voxel

import (
	"testing"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	red  ColorIndex = 1
	blue ColorIndex = 2
)

func TestTransaction_AddOntoSolidIsRejected(t *testing.T) {
	tr := NewTransaction()

	assert.True(t, tr.AddBlock(1, 1, 1, red), "первое добавление должно пройти")
	assert.False(t, tr.AddBlock(1, 1, 1, blue), "блоки не складываются")

	b, ok := tr.CurrentBlockAt(1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, red, b.Color, "отклонённое добавление не должно менять ячейку")
	assert.Equal(t, 1, tr.Len())
}

func TestTransaction_AddAfterRemoveSucceeds(t *testing.T) {
	tr := NewTransaction()

	require.True(t, tr.AddBlock(0, 0, 0, red))
	tr.RemoveBlock(0, 0, 0, red)
	assert.True(t, tr.AddBlock(0, 0, 0, blue))

	b, ok := tr.CurrentBlockAt(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, blue, b.Color)

	// "до" зафиксировано первым касанием ячейки
	bc, ok := tr.index.Get(0, 0, 0)
	require.True(t, ok)
	assert.True(t, bc.Before().IsAir())
}

func TestTransaction_RemoveAndReplaceKeepBefore(t *testing.T) {
	tr := NewTransaction()

	tr.RemoveBlock(3, 4, 5, red)
	bc, ok := tr.index.Get(3, 4, 5)
	require.True(t, ok)
	assert.Equal(t, red, bc.Before().Color)
	assert.True(t, bc.After().IsAir())

	tr.ReplaceBlock(3, 4, 5, blue, blue)
	assert.Equal(t, red, bc.Before().Color, "amend не трогает before")
	assert.Equal(t, blue, bc.After().Color)
	assert.Equal(t, vec.Vec3{X: 3, Y: 4, Z: 5}, bc.Pos())

	tr.ReplaceBlock(9, 9, 9, red, blue)
	b, ok := tr.CurrentBlockAt(9, 9, 9)
	require.True(t, ok)
	assert.Equal(t, blue, b.Color)
}

func TestTransaction_UntouchedCell(t *testing.T) {
	tr := NewTransaction()
	tr.AddBlock(0, 0, 0, red)

	_, ok := tr.CurrentBlockAt(1, 0, 0)
	assert.False(t, ok)
}

func TestTransaction_LastMutationWins(t *testing.T) {
	tr := NewTransaction()

	tr.AddBlock(2, 2, 2, red)
	tr.ReplaceBlock(2, 2, 2, red, blue)
	tr.AddBlock(2, 2, 2, red) // отклонено: ячейка твёрдая
	b, _ := tr.CurrentBlockAt(2, 2, 2)
	assert.Equal(t, blue, b.Color)

	tr.RemoveBlock(2, 2, 2, blue)
	b, _ = tr.CurrentBlockAt(2, 2, 2)
	assert.True(t, b.IsAir())
}

func TestTransaction_BoundsOnlyFromAdds(t *testing.T) {
	tr := NewTransaction()
	assert.False(t, tr.MustConsiderNewBounds())
	assert.Equal(t, vec.Box{}, tr.NewBounds())

	tr.AddBlock(0, 0, 0, red)
	tr.RemoveBlock(5, 5, 5, red)
	tr.ReplaceBlock(-5, -5, -5, red, blue)

	assert.True(t, tr.MustConsiderNewBounds())
	assert.Equal(t, vec.Box{}, tr.NewBounds())
}

func TestTransaction_BoundsUnion(t *testing.T) {
	tr := NewTransaction()

	tr.AddBlock(1, 2, 3, red)
	tr.AddBlock(-1, 5, 0, red)
	tr.AddBlock(4, 4, 4, red)

	bounds := tr.NewBounds()
	assert.Equal(t, vec.Vec3{X: -1, Y: 2, Z: 0}, bounds.Min)
	assert.Equal(t, vec.Vec3{X: 4, Y: 5, Z: 4}, bounds.Max)
}

func TestTransaction_RejectedAddDoesNotExtendBounds(t *testing.T) {
	tr := NewTransaction()

	tr.AddBlock(0, 0, 0, red)
	tr.ReplaceBlock(10, 10, 10, AirColorIndex, red)
	assert.False(t, tr.AddBlock(10, 10, 10, blue))

	assert.Equal(t, vec.PointBox(vec.Vec3{}), tr.NewBounds())
}

func TestTransaction_IteratorResumable(t *testing.T) {
	tr := NewTransaction()
	for i := 0; i < 5; i++ {
		tr.AddBlock(i, 0, 0, red)
	}

	it := tr.Iterator()
	pos, _, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 0, pos.X)
	_, _, ok = it.Next()
	require.True(t, ok)

	same := tr.Iterator()
	assert.Same(t, it, same, "Iterator() должен возвращать сохранённый итератор")
	pos, _, ok = same.Next()
	require.True(t, ok)
	assert.Equal(t, 2, pos.X, "обход продолжается с той же позиции")

	tr.ResetIterator()
	fresh := tr.Iterator()
	assert.NotSame(t, it, fresh)
	pos, _, ok = fresh.Next()
	require.True(t, ok)
	assert.Equal(t, 0, pos.X, "после сброса обход начинается сначала")
}

func TestTransaction_IteratorSeesLateInserts(t *testing.T) {
	tr := NewTransaction()
	tr.AddBlock(0, 0, 0, red)

	it := tr.Iterator()
	_, _, ok := it.Next()
	require.True(t, ok)
	assert.True(t, it.Done())

	tr.AddBlock(1, 0, 0, red)
	assert.False(t, it.Done())
	pos, _, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: 1}, pos)
}

func TestTransaction_Free(t *testing.T) {
	tr := NewTransaction()
	tr.AddBlock(0, 0, 0, red)
	tr.Iterator()

	tr.Free()

	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.MustConsiderNewBounds())
	_, ok := tr.CurrentBlockAt(0, 0, 0)
	assert.False(t, ok)
	assert.True(t, tr.Iterator().Done())
}
