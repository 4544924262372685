package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Kind - тип потока
type Kind int

const (
	KindFileRead Kind = iota + 1
	KindFileWrite
	KindBufferRead
	KindBufferWrite
)

var (
	// ErrShortRead - в потоке меньше данных, чем запрошено
	ErrShortRead = errors.New("stream: short read")
	// ErrWrongKind - операция не поддерживается потоком данного типа
	ErrWrongKind = errors.New("stream: operation not supported by stream kind")
	// ErrClosed - поток уже закрыт
	ErrClosed = errors.New("stream: closed")
)

// Stream - байтовый источник или приёмник поверх буфера в памяти или открытого файла.
// Все многобайтовые значения читаются и пишутся в little-endian.
// Stream не потокобезопасен.
type Stream struct {
	kind Kind

	// буферные потоки
	buf    []byte
	cursor int

	// файловые потоки
	file     *os.File
	fileSize int64
	filePos  int64

	closed bool
}

// NewBufferReader создаёт поток чтения из буфера. Буфер не копируется
// и не принадлежит потоку.
func NewBufferReader(buf []byte) *Stream {
	return &Stream{kind: KindBufferRead, buf: buf}
}

// NewBufferWriter создаёт растущий поток записи в память
func NewBufferWriter() *Stream {
	return NewBufferWriterPrealloc(0)
}

// NewBufferWriterPrealloc создаёт поток записи с заранее выделенной ёмкостью
func NewBufferWriterPrealloc(size int) *Stream {
	return &Stream{kind: KindBufferWrite, buf: make([]byte, 0, size)}
}

// NewFileReader создаёт поток чтения из открытого файла.
// Файл принадлежит потоку и закрывается в Close.
func NewFileReader(f *os.File) (*Stream, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream: stat %s: %w", f.Name(), err)
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream: seek %s: %w", f.Name(), err)
	}
	return &Stream{kind: KindFileRead, file: f, fileSize: info.Size(), filePos: pos}, nil
}

// NewFileWriter создаёт поток записи в открытый файл.
// Файл принадлежит потоку и закрывается в Close.
func NewFileWriter(f *os.File) *Stream {
	return &Stream{kind: KindFileWrite, file: f}
}

// OpenFile открывает файл и создаёт поток чтения из него
func OpenFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileReader(f)
}

// Kind возвращает тип потока
func (s *Stream) Kind() Kind {
	return s.kind
}

// Close освобождает ресурсы потока. Повторный вызов безопасен.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// Read заполняет dst целиком; неполное чтение - ошибка ErrShortRead
func (s *Stream) Read(dst []byte) error {
	if s.closed {
		return ErrClosed
	}
	switch s.kind {
	case KindBufferRead:
		if s.cursor+len(dst) > len(s.buf) {
			return ErrShortRead
		}
		copy(dst, s.buf[s.cursor:])
		s.cursor += len(dst)
		return nil
	case KindFileRead:
		n, err := io.ReadFull(s.file, dst)
		s.filePos += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrShortRead
			}
			return err
		}
		return nil
	default:
		return ErrWrongKind
	}
}

// ReadUint8 читает один байт
func (s *Stream) ReadUint8() (uint8, error) {
	var b [1]byte
	if err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 читает uint16 little-endian
func (s *Stream) ReadUint16() (uint16, error) {
	var b [2]byte
	if err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadUint32 читает uint32 little-endian
func (s *Stream) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64 читает uint64 little-endian
func (s *Stream) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadFloat32 читает float32 в формате IEEE-754
func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadBytes читает ровно n байт в новый срез
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrShortRead
	}
	// не выделяем память под заведомо отсутствующие данные
	if remaining := s.Remaining(); remaining >= 0 && int64(n) > remaining {
		return nil, ErrShortRead
	}
	out := make([]byte, n)
	if err := s.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadString читает строку фиксированной длины
func (s *Stream) ReadString(n int) (string, error) {
	b, err := s.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Skip пропускает n байт
func (s *Stream) Skip(n int) error {
	if n < 0 {
		return ErrShortRead
	}
	if s.closed {
		return ErrClosed
	}
	switch s.kind {
	case KindBufferRead:
		if s.cursor+n > len(s.buf) {
			return ErrShortRead
		}
		s.cursor += n
		return nil
	case KindFileRead:
		if s.filePos+int64(n) > s.fileSize {
			return ErrShortRead
		}
		pos, err := s.file.Seek(int64(n), io.SeekCurrent)
		if err != nil {
			return err
		}
		s.filePos = pos
		return nil
	default:
		return ErrWrongKind
	}
}

// Position возвращает текущую позицию курсора
func (s *Stream) Position() int64 {
	switch s.kind {
	case KindBufferRead, KindBufferWrite:
		return int64(s.cursor)
	default:
		return s.filePos
	}
}

// SetPosition перемещает курсор чтения
func (s *Stream) SetPosition(pos int64) error {
	if s.closed {
		return ErrClosed
	}
	switch s.kind {
	case KindBufferRead:
		if pos < 0 || pos > int64(len(s.buf)) {
			return fmt.Errorf("stream: position %d out of range", pos)
		}
		s.cursor = int(pos)
		return nil
	case KindFileRead:
		if pos < 0 || pos > s.fileSize {
			return fmt.Errorf("stream: position %d out of range", pos)
		}
		if _, err := s.file.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		s.filePos = pos
		return nil
	default:
		return ErrWrongKind
	}
}

// Remaining возвращает количество непрочитанных байт (-1 для потоков записи)
func (s *Stream) Remaining() int64 {
	switch s.kind {
	case KindBufferRead:
		return int64(len(s.buf) - s.cursor)
	case KindFileRead:
		return s.fileSize - s.filePos
	default:
		return -1
	}
}

// ReachedEnd возвращает true, если все данные прочитаны
func (s *Stream) ReachedEnd() bool {
	return s.Remaining() == 0
}

// Bytes возвращает весь буфер потока чтения.
// Файловый поток при первом вызове полностью читается в память
// и дальше работает как буферный; файл при этом закрывается.
func (s *Stream) Bytes() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	switch s.kind {
	case KindBufferRead:
		return s.buf, nil
	case KindFileRead:
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		data, err := io.ReadAll(s.file)
		if err != nil {
			return nil, err
		}
		pos := s.filePos
		s.file.Close()
		s.file = nil
		s.kind = KindBufferRead
		s.buf = data
		s.cursor = int(min(pos, int64(len(data))))
		return s.buf, nil
	default:
		return nil, ErrWrongKind
	}
}

// Write записывает байты в поток записи
func (s *Stream) Write(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	switch s.kind {
	case KindBufferWrite:
		s.buf = append(s.buf, p...)
		s.cursor = len(s.buf)
		return nil
	case KindFileWrite:
		n, err := s.file.Write(p)
		s.filePos += int64(n)
		return err
	default:
		return ErrWrongKind
	}
}

// WriteUint8 пишет один байт
func (s *Stream) WriteUint8(v uint8) error {
	return s.Write([]byte{v})
}

// WriteUint16 пишет uint16 little-endian
func (s *Stream) WriteUint16(v uint16) error {
	return s.Write(binary.LittleEndian.AppendUint16(nil, v))
}

// WriteUint32 пишет uint32 little-endian
func (s *Stream) WriteUint32(v uint32) error {
	return s.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// WriteUint64 пишет uint64 little-endian
func (s *Stream) WriteUint64(v uint64) error {
	return s.Write(binary.LittleEndian.AppendUint64(nil, v))
}

// WriteFloat32 пишет float32 в формате IEEE-754
func (s *Stream) WriteFloat32(v float32) error {
	return s.WriteUint32(math.Float32bits(v))
}

// Unload передаёт буфер потока записи вызывающему вместе с числом записанных байт.
// После вызова поток пуст.
func (s *Stream) Unload() ([]byte, int, error) {
	if s.kind != KindBufferWrite {
		return nil, 0, ErrWrongKind
	}
	buf := s.buf
	s.buf = nil
	s.cursor = 0
	return buf, len(buf), nil
}
