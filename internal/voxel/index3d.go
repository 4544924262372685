package voxel

import "github.com/annel0/voxel-core/internal/vec"

// Index3D - разреженное отображение целочисленных координат (x, y, z) на значения.
// В каждой координате хранится не более одного значения.
// Порядок обхода совпадает с порядком вставки, поэтому итератор
// можно приостановить и продолжить позже.
//
// Index3D не потокобезопасен: доступ к одному экземпляру сериализует вызывающий.
type Index3D[T any] struct {
	entries map[vec.Vec3]T
	keys    []vec.Vec3
}

// NewIndex3D создаёт пустой индекс
func NewIndex3D[T any]() *Index3D[T] {
	return &Index3D[T]{
		entries: make(map[vec.Vec3]T),
	}
}

// Insert сохраняет значение в координате.
// Вызывающий должен сначала проверить отсутствие записи через Get;
// повторная вставка заменяет значение, не меняя порядок обхода.
func (idx *Index3D[T]) Insert(value T, x, y, z int) {
	key := vec.Vec3{X: x, Y: y, Z: z}
	if _, exists := idx.entries[key]; !exists {
		idx.keys = append(idx.keys, key)
	}
	idx.entries[key] = value
}

// Get возвращает значение в координате; ok == false, если записи нет
func (idx *Index3D[T]) Get(x, y, z int) (value T, ok bool) {
	value, ok = idx.entries[vec.Vec3{X: x, Y: y, Z: z}]
	return value, ok
}

// Len возвращает количество записей
func (idx *Index3D[T]) Len() int {
	return len(idx.keys)
}

// Flush вызывает free для каждого значения и очищает индекс.
// free может быть nil.
func (idx *Index3D[T]) Flush(free func(T)) {
	if free != nil {
		for _, key := range idx.keys {
			free(idx.entries[key])
		}
	}
	idx.entries = make(map[vec.Vec3]T)
	idx.keys = nil
}

// NewIterator создаёт итератор, начинающий обход с первой записи
func (idx *Index3D[T]) NewIterator() *Iterator[T] {
	return &Iterator[T]{index: idx}
}

// Iterator - однопроходный итератор по Index3D.
// Записи, вставленные после создания итератора, тоже будут посещены.
// Сбросить итератор нельзя: для нового обхода создаётся новый итератор.
type Iterator[T any] struct {
	index *Index3D[T]
	pos   int
}

// Next возвращает следующую пару (координата, значение); ok == false по окончании обхода
func (it *Iterator[T]) Next() (pos vec.Vec3, value T, ok bool) {
	if it.Done() {
		return pos, value, false
	}
	pos = it.index.keys[it.pos]
	it.pos++
	return pos, it.index.entries[pos], true
}

// Done возвращает true, если все записи уже посещены
func (it *Iterator[T]) Done() bool {
	return it.pos >= len(it.index.keys)
}

// Visited возвращает количество уже посещённых записей
func (it *Iterator[T]) Visited() int {
	return it.pos
}
