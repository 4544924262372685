package serialization

import (
	"encoding/binary"
	"math"
)

// Запись в заранее выделенный буфер.
//
// dest - срез, начинающийся с позиции записи. Если cursor != nil,
// он увеличивается на число записанных байт. Ёмкость dest не проверяется:
// вызывающий обязан заранее вычислить точный размер буфера.

// WriteCString пишет n байт строки src (без завершающего нуля)
func WriteCString(dest []byte, src string, n int, cursor *uint32) {
	copy(dest[:n], src[:n])
	advance(cursor, n)
}

// WriteBytes пишет срез байт целиком
func WriteBytes(dest []byte, src []byte, cursor *uint32) {
	copy(dest[:len(src)], src)
	advance(cursor, len(src))
}

// WriteUint8 пишет один байт
func WriteUint8(dest []byte, src uint8, cursor *uint32) {
	dest[0] = src
	advance(cursor, 1)
}

// WriteUint16 пишет uint16 little-endian
func WriteUint16(dest []byte, src uint16, cursor *uint32) {
	binary.LittleEndian.PutUint16(dest, src)
	advance(cursor, 2)
}

// WriteUint32 пишет uint32 little-endian
func WriteUint32(dest []byte, src uint32, cursor *uint32) {
	binary.LittleEndian.PutUint32(dest, src)
	advance(cursor, 4)
}

// WriteUint64 пишет uint64 little-endian
func WriteUint64(dest []byte, src uint64, cursor *uint32) {
	binary.LittleEndian.PutUint64(dest, src)
	advance(cursor, 8)
}

// WriteFloat32 пишет float32 IEEE-754 little-endian
func WriteFloat32(dest []byte, src float32, cursor *uint32) {
	binary.LittleEndian.PutUint32(dest, math.Float32bits(src))
	advance(cursor, 4)
}

func advance(cursor *uint32, n int) {
	if cursor != nil {
		*cursor += uint32(n)
	}
}
