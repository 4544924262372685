package voxel

import (
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/vec"
)

// Transaction накапливает изменения блоков одного жеста редактирования
// (например, мазка кистью) до того, как они будут применены к форме.
//
// Транзакция владеет всеми BlockChange в своём индексе. Итератор хранится
// внутри транзакции, чтобы применение можно было растянуть на несколько кадров
// и продолжить с того же места.
//
// Transaction не потокобезопасна.
type Transaction struct {
	index    *Index3D[*BlockChange]
	iterator *Iterator[*BlockChange]

	// новые границы формы: только успешные добавления
	newBounds             vec.Box
	mustConsiderNewBounds bool
}

// NewTransaction создаёт пустую транзакцию
func NewTransaction() *Transaction {
	return &Transaction{
		index: NewIndex3D[*BlockChange](),
	}
}

// Free освобождает все изменения и итератор.
// После Free транзакция пуста и может использоваться заново.
func (tr *Transaction) Free() {
	tr.index.Flush(nil)
	tr.iterator = nil
	tr.newBounds = vec.Box{}
	tr.mustConsiderNewBounds = false
}

// Len возвращает количество затронутых координат
func (tr *Transaction) Len() int {
	return tr.index.Len()
}

// CurrentBlockAt возвращает состояние "после" для координаты.
// ok == false, если транзакция не трогала эту ячейку: тогда
// вызывающий должен смотреть в саму форму.
func (tr *Transaction) CurrentBlockAt(x, y, z int) (Block, bool) {
	bc, ok := tr.index.Get(x, y, z)
	if !ok {
		return Block{}, false
	}
	return bc.After(), true
}

// AddBlock ставит блок в пустую ячейку.
// Возвращает false без изменений, если в ячейке уже стоит твёрдый блок:
// блоки не складываются, побеждает первое добавление до удаления.
func (tr *Transaction) AddBlock(x, y, z int, color ColorIndex) bool {
	if bc, ok := tr.index.Get(x, y, z); ok {
		if bc.After().IsSolid() {
			metrics.TransactionAddRejected.Inc()
			return false
		}
		bc.Amend(NewBlock(color))
	} else {
		tr.index.Insert(NewBlockChange(AirBlock(), NewBlock(color), x, y, z), x, y, z)
	}

	p := vec.Vec3{X: x, Y: y, Z: z}
	if !tr.mustConsiderNewBounds {
		tr.newBounds = vec.PointBox(p)
		tr.mustConsiderNewBounds = true
	} else {
		tr.newBounds = tr.newBounds.Extend(p)
	}

	return true
}

// RemoveBlock удаляет блок в ячейке. Всегда применяется и не влияет на границы.
//
// existing - цвет, который сейчас хранится в форме в этой ячейке.
// Транзакция не имеет доступа к форме, поэтому значение "до" для новой
// записи берётся от вызывающего, и корректность лежит на нём.
func (tr *Transaction) RemoveBlock(x, y, z int, existing ColorIndex) {
	tr.setAfter(x, y, z, existing, AirBlock())
}

// ReplaceBlock заменяет цвет блока. Семантика как у RemoveBlock,
// но "после" становится newColor вместо воздуха.
func (tr *Transaction) ReplaceBlock(x, y, z int, existing, newColor ColorIndex) {
	tr.setAfter(x, y, z, existing, NewBlock(newColor))
}

func (tr *Transaction) setAfter(x, y, z int, existing ColorIndex, after Block) {
	if bc, ok := tr.index.Get(x, y, z); ok {
		bc.Amend(after)
		return
	}
	tr.index.Insert(NewBlockChange(NewBlock(existing), after, x, y, z), x, y, z)
}

// MustConsiderNewBounds возвращает true, если было хотя бы одно успешное добавление
func (tr *Transaction) MustConsiderNewBounds() bool {
	return tr.mustConsiderNewBounds
}

// NewBounds возвращает область, охватывающую все успешно добавленные блоки.
// Если MustConsiderNewBounds() == false, возвращается нулевая область.
func (tr *Transaction) NewBounds() vec.Box {
	return tr.newBounds
}

// Iterator возвращает итератор по изменениям. Повторный вызов возвращает
// тот же итератор в той же позиции, пока не вызван ResetIterator.
func (tr *Transaction) Iterator() *Iterator[*BlockChange] {
	if tr.iterator == nil {
		tr.iterator = tr.index.NewIterator()
	}
	return tr.iterator
}

// ResetIterator отбрасывает сохранённый итератор;
// следующий Iterator() начнёт обход сначала.
func (tr *Transaction) ResetIterator() {
	tr.iterator = nil
}
