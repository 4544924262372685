package serialization

import (
	"encoding/binary"

	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/cespare/xxhash/v2"
)

// ShapeHash вычисляет 64-битный хеш содержимого формы: размеры, палитра и сетка.
// Смещение origin, имя и устаревшие настройки камеры/света в хеш не входят.
func ShapeHash(shape *voxel.Shape) uint64 {
	d := xxhash.New()

	size := shape.Size()
	var header [7]byte
	binary.LittleEndian.PutUint16(header[0:], uint16(size.X))
	binary.LittleEndian.PutUint16(header[2:], uint16(size.Y))
	binary.LittleEndian.PutUint16(header[4:], uint16(size.Z))
	header[6] = uint8(shape.Palette.Count())
	d.Write(header[:])

	for _, c := range shape.Palette.Colors() {
		d.Write([]byte{c.R, c.G, c.B, c.A})
	}

	cells := shape.Cells()
	raw := make([]byte, len(cells))
	for i, c := range cells {
		raw[i] = uint8(c)
	}
	d.Write(raw)

	return d.Sum64()
}
