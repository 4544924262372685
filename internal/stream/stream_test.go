package stream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	w := NewBufferWriter()
	require.NoError(t, w.WriteUint8(7))
	require.NoError(t, w.WriteUint16(0x1234))
	require.NoError(t, w.WriteUint32(0xdeadbeef))
	require.NoError(t, w.WriteUint64(0x0102030405060708))
	require.NoError(t, w.WriteFloat32(1.5))
	require.NoError(t, w.Write([]byte("abc")))

	buf, n, err := w.Unload()
	require.NoError(t, err)
	assert.Equal(t, 1+2+4+8+4+3, n)
	assert.Equal(t, []byte{0x34, 0x12}, buf[1:3], "little-endian")

	r := NewBufferReader(buf)
	u8, _ := r.ReadUint8()
	u16, _ := r.ReadUint16()
	u32, _ := r.ReadUint32()
	u64, _ := r.ReadUint64()
	f, _ := r.ReadFloat32()
	s, err := r.ReadString(3)
	require.NoError(t, err)

	assert.Equal(t, uint8(7), u8)
	assert.Equal(t, uint16(0x1234), u16)
	assert.Equal(t, uint32(0xdeadbeef), u32)
	assert.Equal(t, uint64(0x0102030405060708), u64)
	assert.Equal(t, float32(1.5), f)
	assert.Equal(t, "abc", s)
	assert.True(t, r.ReachedEnd())
}

func TestBufferShortRead(t *testing.T) {
	r := NewBufferReader([]byte{1, 2, 3})
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, int64(0), r.Position(), "неудачное чтение не двигает курсор")

	assert.ErrorIs(t, r.Skip(4), ErrShortRead)
	require.NoError(t, r.Skip(2))
	_, err = r.ReadBytes(2)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestBufferPosition(t *testing.T) {
	r := NewBufferReader([]byte{1, 2, 3, 4})
	require.NoError(t, r.SetPosition(2))
	v, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), v)
	assert.Error(t, r.SetPosition(5))
}

func TestFileReaderMaterializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{9, 8, 7, 6, 5}, 0644))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(9), v)
	assert.Equal(t, int64(4), s.Remaining())

	buf, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6, 5}, buf)
	assert.Equal(t, KindBufferRead, s.Kind())

	// позиция сохраняется после перехода в память
	v, err = s.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(8), v)
}

func TestFileReaderShortRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2}, 0644))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadUint32()
	assert.ErrorIs(t, err, ErrShortRead)
	assert.ErrorIs(t, s.Skip(10), ErrShortRead)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewFileWriter(f)
	require.NoError(t, w.WriteUint16(0xabcd))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "повторный Close безопасен")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xcd, 0xab}, data)
}

func TestWrongKind(t *testing.T) {
	w := NewBufferWriter()
	_, err := w.ReadUint8()
	assert.ErrorIs(t, err, ErrWrongKind)

	r := NewBufferReader(nil)
	assert.ErrorIs(t, r.WriteUint8(1), ErrWrongKind)
	_, _, err = r.Unload()
	assert.ErrorIs(t, err, ErrWrongKind)
}
