package serialization

import (
	"bytes"
	"errors"
	"sync"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/voxel"
)

// DataFormat - формат данных, определённый LoadData
type DataFormat int

const (
	DataFormatUnsupported DataFormat = iota
	DataFormatError
	DataFormat3ZH
	DataFormatVOX
	DataFormatGLTF
)

func (f DataFormat) String() string {
	switch f {
	case DataFormatUnsupported:
		return "unsupported"
	case DataFormatError:
		return "error"
	case DataFormat3ZH:
		return "3zh"
	case DataFormatVOX:
		return "vox"
	case DataFormatGLTF:
		return "gltf"
	default:
		return "unknown"
	}
}

// FormatHandler связывает сигнатуру формата с парсером.
// Parse должен вернуть ошибку, а не частичный результат.
type FormatHandler struct {
	Format DataFormat
	Sniff  func(buf []byte) bool
	Parse  func(buf []byte, filter AssetType, settings *voxel.ShapeSettings) ([]Asset, error)
}

var (
	registryMu sync.RWMutex
	registry   = []FormatHandler{
		{Format: DataFormat3ZH, Sniff: isMagic, Parse: parse3ZH},
		{Format: DataFormatVOX, Sniff: isVox, Parse: parseVox},
		{Format: DataFormatGLTF, Sniff: isGLTF, Parse: parseGLTF},
	}
)

// RegisterFormat добавляет обработчик в конец списка.
// Обработчики проверяются в порядке регистрации, побеждает первое совпадение.
func RegisterFormat(h FormatHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, h)
}

// LoadData определяет формат буфера по сигнатуре и разбирает его.
// Буфер не изменяется и не удерживается. Возвращает DataFormatUnsupported,
// если ни одна сигнатура не подошла (или формат распознан, но не поддерживается),
// и DataFormatError при ошибке разбора; в обоих случаях ассеты == nil.
func LoadData(buf []byte, filter AssetType, settings *voxel.ShapeSettings) (DataFormat, []Asset, error) {
	registryMu.RLock()
	handlers := make([]FormatHandler, len(registry))
	copy(handlers, registry)
	registryMu.RUnlock()

	for _, h := range handlers {
		if !h.Sniff(buf) {
			continue
		}
		assets, err := h.Parse(buf, filter, settings)
		if errors.Is(err, ErrUnsupportedFormat) {
			return DataFormatUnsupported, nil, err
		}
		if err != nil {
			logging.LogFormatError(logging.GetCodecLogger(), h.Format.String(), err, buf)
			return DataFormatError, nil, err
		}
		return h.Format, assets, nil
	}
	return DataFormatUnsupported, nil, ErrUnsupportedFormat
}

func parse3ZH(buf []byte, filter AssetType, settings *voxel.ShapeSettings) ([]Asset, error) {
	return LoadAssets(stream.NewBufferReader(buf), "", filter, nil, settings, true)
}

// isGLTF распознаёт бинарный glTF (GLB) и JSON glTF
func isGLTF(buf []byte) bool {
	if bytes.HasPrefix(buf, []byte("glTF")) {
		return true
	}
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("{")) && bytes.Contains(buf, []byte(`"asset"`))
}

// parseGLTF: импорт мешей и материалов glTF не поддерживается
func parseGLTF(_ []byte, _ AssetType, _ *voxel.ShapeSettings) ([]Asset, error) {
	return nil, ErrUnsupportedFormat
}
