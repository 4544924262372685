package voxel

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
)

// MaxShapeAxis - максимальный размер формы по одной оси (uint16 в файле)
const MaxShapeAxis = 65535

var (
	// ErrShapeImmutable возвращается при попытке изменить неизменяемую форму
	ErrShapeImmutable = errors.New("shape is not mutable")
	// ErrShapeTooLarge возвращается, если размер формы не помещается в формат файла
	ErrShapeTooLarge = errors.New("shape exceeds maximum size")
)

// ShapeSettings - параметры создания формы
type ShapeSettings struct {
	Mutable bool
}

// DefaultShapeSettings возвращает настройки по умолчанию
func DefaultShapeSettings() ShapeSettings {
	return ShapeSettings{Mutable: true}
}

// LightSettings - устаревшие параметры освещения, хранимые в файле начиная с версии 2
type LightSettings struct {
	Enabled   bool
	Locked    bool
	RotationX float32
	RotationY float32
}

// LegacyCamera - устаревшие параметры камеры, хранимые в файле после сетки
type LegacyCamera struct {
	Target     vec.Vec3Float
	Distance   float32
	RotationLR float32
	RotationUD float32
	Roll       float32
}

// Shape - плотная трёхмерная сетка блоков с палитрой.
//
// Локальные координаты могут быть отрицательными: origin задаёт
// локальную координату ячейки сетки (0,0,0). Ячейка сетки хранится
// по индексу x*height*depth + y*depth + z (z меняется быстрее всего),
// тот же порядок используется в файле.
type Shape struct {
	Name    string
	Palette *Palette
	Light   LightSettings
	Camera  LegacyCamera
	Baked   *BakedInfo

	settings ShapeSettings
	origin   vec.Vec3
	size     vec.Vec3
	blocks   []ColorIndex
}

// NewShape создаёт пустую форму заданного размера, заполненную воздухом
func NewShape(width, height, depth int, palette *Palette, settings ShapeSettings) (*Shape, error) {
	if width < 0 || height < 0 || depth < 0 ||
		width > MaxShapeAxis || height > MaxShapeAxis || depth > MaxShapeAxis {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrShapeTooLarge, width, height, depth)
	}
	if palette == nil {
		palette = NewPalette()
	}
	s := &Shape{
		Palette:  palette,
		settings: settings,
		size:     vec.Vec3{X: width, Y: height, Z: depth},
		blocks:   make([]ColorIndex, width*height*depth),
	}
	for i := range s.blocks {
		s.blocks[i] = AirColorIndex
	}
	return s, nil
}

// NewShapeFromGrid создаёт форму, забирая срез cells во владение.
// len(cells) должен быть равен width*height*depth.
func NewShapeFromGrid(width, height, depth int, cells []ColorIndex, palette *Palette, settings ShapeSettings) (*Shape, error) {
	if len(cells) != width*height*depth {
		return nil, fmt.Errorf("grid size mismatch: %d cells for %dx%dx%d", len(cells), width, height, depth)
	}
	if width > MaxShapeAxis || height > MaxShapeAxis || depth > MaxShapeAxis {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrShapeTooLarge, width, height, depth)
	}
	if palette == nil {
		palette = NewPalette()
	}
	return &Shape{
		Palette:  palette,
		settings: settings,
		size:     vec.Vec3{X: width, Y: height, Z: depth},
		blocks:   cells,
	}, nil
}

// Size возвращает размеры сетки
func (s *Shape) Size() vec.Vec3 {
	return s.size
}

// Origin возвращает локальную координату ячейки сетки (0,0,0)
func (s *Shape) Origin() vec.Vec3 {
	return s.origin
}

// Settings возвращает настройки формы
func (s *Shape) Settings() ShapeSettings {
	return s.settings
}

// Bounds возвращает область, занимаемую сеткой, в локальных координатах
func (s *Shape) Bounds() vec.Box {
	return vec.Box{Min: s.origin, Max: s.origin.Add(vec.Vec3{X: s.size.X - 1, Y: s.size.Y - 1, Z: s.size.Z - 1})}
}

// Cells возвращает сетку индексов цветов (без копирования)
func (s *Shape) Cells() []ColorIndex {
	return s.blocks
}

func (s *Shape) cellIndex(x, y, z int) (int, bool) {
	gx, gy, gz := x-s.origin.X, y-s.origin.Y, z-s.origin.Z
	if gx < 0 || gy < 0 || gz < 0 || gx >= s.size.X || gy >= s.size.Y || gz >= s.size.Z {
		return 0, false
	}
	return gx*s.size.Y*s.size.Z + gy*s.size.Z + gz, true
}

// BlockAt возвращает блок в локальных координатах.
// Вне сетки всегда воздух.
func (s *Shape) BlockAt(x, y, z int) Block {
	i, ok := s.cellIndex(x, y, z)
	if !ok {
		return AirBlock()
	}
	return NewBlock(s.blocks[i])
}

// SetBlock записывает блок; возвращает false, если координата вне сетки.
// Изменение ячейки сбрасывает Baked.
func (s *Shape) SetBlock(x, y, z int, b Block) bool {
	i, ok := s.cellIndex(x, y, z)
	if !ok {
		return false
	}
	if s.blocks[i] != b.Color {
		s.blocks[i] = b.Color
		s.Baked = nil
	}
	return true
}

// SolidCount возвращает количество непустых блоков
func (s *Shape) SolidCount() int {
	n := 0
	for _, c := range s.blocks {
		if c != AirColorIndex {
			n++
		}
	}
	return n
}

// Grow расширяет сетку так, чтобы она содержала область box.
// Существующие блоки сохраняют свои локальные координаты.
func (s *Shape) Grow(box vec.Box) error {
	current := s.Bounds()
	if s.size.X > 0 && s.size.Y > 0 && s.size.Z > 0 &&
		current.Contains(box.Min) && current.Contains(box.Max) {
		return nil
	}

	target := box
	if s.size.X > 0 && s.size.Y > 0 && s.size.Z > 0 {
		target = vec.Box{Min: current.Min.Min(box.Min), Max: current.Max.Max(box.Max)}
	}
	newSize := target.Size()
	if newSize.X > MaxShapeAxis || newSize.Y > MaxShapeAxis || newSize.Z > MaxShapeAxis {
		return fmt.Errorf("%w: %dx%dx%d", ErrShapeTooLarge, newSize.X, newSize.Y, newSize.Z)
	}

	blocks := make([]ColorIndex, newSize.X*newSize.Y*newSize.Z)
	for i := range blocks {
		blocks[i] = AirColorIndex
	}
	for gx := 0; gx < s.size.X; gx++ {
		for gy := 0; gy < s.size.Y; gy++ {
			src := gx*s.size.Y*s.size.Z + gy*s.size.Z
			nx := gx + s.origin.X - target.Min.X
			ny := gy + s.origin.Y - target.Min.Y
			nz := s.origin.Z - target.Min.Z
			dst := nx*newSize.Y*newSize.Z + ny*newSize.Z + nz
			copy(blocks[dst:dst+s.size.Z], s.blocks[src:src+s.size.Z])
		}
	}

	s.blocks = blocks
	s.origin = target.Min
	s.size = newSize
	s.Baked = nil
	return nil
}

// ApplyTransaction применяет не более budget изменений транзакции к форме
// (budget <= 0 - без ограничения). Позиция обхода сохраняется в транзакции,
// поэтому длинное применение можно растянуть на несколько кадров.
// done == true, когда все изменения применены.
func (s *Shape) ApplyTransaction(tr *Transaction, budget int) (applied int, done bool, err error) {
	if !s.settings.Mutable {
		return 0, false, ErrShapeImmutable
	}

	if tr.MustConsiderNewBounds() {
		before := s.size
		if err := s.Grow(tr.NewBounds()); err != nil {
			return 0, false, err
		}
		if s.size != before {
			logging.GetTransactionLogger().Trace("Форма %q выросла: %v -> %v", s.Name, before, s.size)
		}
	}

	it := tr.Iterator()
	for budget <= 0 || applied < budget {
		pos, change, ok := it.Next()
		if !ok {
			break
		}
		// удаления вне сетки ничего не меняют
		if !change.IsNoop() {
			s.SetBlock(pos.X, pos.Y, pos.Z, change.After())
		}
		applied++
	}
	return applied, it.Done(), nil
}
