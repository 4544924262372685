package voxel

import (
	"errors"
	"fmt"
)

// MaxPaletteColors - максимальное число цветов в палитре (индекс 255 занят воздухом)
const MaxPaletteColors = 255

// ErrPaletteFull возвращается при попытке добавить цвет в заполненную палитру
var ErrPaletteFull = errors.New("palette is full")

// Color - цвет в кодировке RGBA, по байту на канал
type Color struct {
	R, G, B, A uint8
}

// Palette - упорядоченный набор цветов; воксели ссылаются на цвет по индексу
type Palette struct {
	colors []Color
}

// NewPalette создаёт палитру из заданных цветов (лишние цвета сверх 255 отбрасываются)
func NewPalette(colors ...Color) *Palette {
	if len(colors) > MaxPaletteColors {
		colors = colors[:MaxPaletteColors]
	}
	p := &Palette{colors: make([]Color, len(colors))}
	copy(p.colors, colors)
	return p
}

// Count возвращает количество цветов
func (p *Palette) Count() int {
	if p == nil {
		return 0
	}
	return len(p.colors)
}

// Color возвращает цвет по индексу
func (p *Palette) Color(i ColorIndex) (Color, bool) {
	if p == nil || int(i) >= len(p.colors) {
		return Color{}, false
	}
	return p.colors[i], true
}

// Colors возвращает копию всех цветов
func (p *Palette) Colors() []Color {
	if p == nil {
		return nil
	}
	out := make([]Color, len(p.colors))
	copy(out, p.colors)
	return out
}

// Add добавляет цвет и возвращает его индекс.
// Если такой цвет уже есть, возвращается существующий индекс.
func (p *Palette) Add(c Color) (ColorIndex, error) {
	for i, existing := range p.colors {
		if existing == c {
			return ColorIndex(i), nil
		}
	}
	if len(p.colors) >= MaxPaletteColors {
		return AirColorIndex, fmt.Errorf("%w: %d colors", ErrPaletteFull, len(p.colors))
	}
	p.colors = append(p.colors, c)
	return ColorIndex(len(p.colors) - 1), nil
}

// Equal сравнивает две палитры поэлементно
func (p *Palette) Equal(other *Palette) bool {
	if p.Count() != other.Count() {
		return false
	}
	for i := range p.Count() {
		if p.colors[i] != other.colors[i] {
			return false
		}
	}
	return true
}

// ColorAtlas - общий реестр палитр, разделяемый несколькими формами,
// загруженными из одного контейнера. Не потокобезопасен: вызывающий не должен
// менять атлас параллельно с загрузкой, которая из него читает.
type ColorAtlas struct {
	palettes []*Palette
}

// NewColorAtlas создаёт пустой атлас
func NewColorAtlas() *ColorAtlas {
	return &ColorAtlas{}
}

// Link регистрирует палитру в атласе (повторная регистрация игнорируется)
func (a *ColorAtlas) Link(p *Palette) {
	for _, existing := range a.palettes {
		if existing == p {
			return
		}
	}
	a.palettes = append(a.palettes, p)
}

// Palettes возвращает зарегистрированные палитры в порядке регистрации
func (a *ColorAtlas) Palettes() []*Palette {
	out := make([]*Palette, len(a.palettes))
	copy(out, a.palettes)
	return out
}
