package serialization

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/google/uuid"
)

// readFileHeader открывает файл и читает заголовок (legacy допускается)
func readFileHeader(path string) (*stream.Stream, fileHeader, error) {
	s, err := stream.OpenFile(path)
	if err != nil {
		return nil, fileHeader{}, err
	}
	h, err := readHeader(s, true)
	if err != nil {
		s.Close()
		return nil, h, fmt.Errorf("%s: %w", path, err)
	}
	return s, h, nil
}

// GetPreviewData возвращает копию байт превью, не разбирая остальной файл.
// Для файла без превью возвращается пустой срез.
func GetPreviewData(path string) ([]byte, error) {
	s, h, err := readFileHeader(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	preview, err := s.ReadBytes(int(h.previewSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: preview bytes", path, ErrTruncated)
	}
	return preview, nil
}

// UpdatePreviewData заменяет превью в файле. Если размер не изменился,
// байты перезаписываются на месте. Иначе файл собирается заново во временный
// файл рядом с исходным и атомарно переименовывается поверх него.
func UpdatePreviewData(data []byte, path string) error {
	s, h, err := readFileHeader(path)
	if err != nil {
		return err
	}

	if int(h.previewSize) == len(data) {
		if s.Remaining() < int64(h.previewSize) {
			s.Close()
			return fmt.Errorf("%s: %w: preview bytes", path, ErrTruncated)
		}
		s.Close()
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(data, h.previewOffset); err != nil {
			f.Close()
			return fmt.Errorf("write preview: %w", err)
		}
		return f.Close()
	}

	whole, err := s.Bytes()
	s.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	previewEnd := h.previewOffset + int64(h.previewSize)
	if previewEnd > int64(len(whole)) {
		return fmt.Errorf("%s: %w: preview bytes", path, ErrTruncated)
	}

	countOffset := h.previewOffset - previewCountSize
	out := make([]byte, int(countOffset)+previewCountSize+len(data)+len(whole)-int(previewEnd))
	copy(out, whole[:countOffset])
	cursor := uint32(countOffset)
	WriteUint32(out[cursor:], uint32(len(data)), &cursor)
	WriteBytes(out[cursor:], data, &cursor)
	WriteBytes(out[cursor:], whole[previewEnd:], &cursor)

	if err := replaceFile(path, out); err != nil {
		return err
	}
	logging.GetCodecLogger().Debug("Превью %s перезаписано: %d -> %d байт", path, h.previewSize, len(data))
	return nil
}

// replaceFile пишет data во временный файл в том же каталоге и переименовывает его в path
func replaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, info.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// DuplicateWorld копирует файл байт в байт, не разбирая формат
func DuplicateWorld(srcPath, dstPath string) (err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", srcPath, dstPath, err)
	}
	return nil
}
