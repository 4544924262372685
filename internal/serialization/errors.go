package serialization

import "errors"

// Ошибки формата. Все ошибки кодека оборачивают одну из них,
// поэтому вызывающий может проверять их через errors.Is.
var (
	ErrBadMagic           = errors.New("bad magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported file format version")
	ErrTruncated          = errors.New("truncated data")
	ErrInvalidPalette     = errors.New("invalid color palette")
	ErrInvalidGrid        = errors.New("invalid voxel grid")
	ErrUnsupportedFormat  = errors.New("unsupported data format")
	ErrNoShape            = errors.New("no shape in assets")
	ErrInvalidBake        = errors.New("invalid baked file")
	ErrMalformedAsset     = errors.New("malformed asset")

	// ErrHashMismatch - запечённый файл построен для другой версии формы.
	// Это не повреждение: вызывающий должен пересчитать данные из исходной формы.
	ErrHashMismatch = errors.New("baked file hash mismatch")
)
