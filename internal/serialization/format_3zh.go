package serialization

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
)

// =============================================================================
// Формат файла .3zh (little-endian)
// =============================================================================
//
//  6 bytes |  char[6] | magic bytes "CUBZH!" (11 bytes "PARTICUBES!" в legacy)
//  4 bytes |   uint32 | file format version
//  4 bytes |   uint32 | preview byte count
//  n bytes |  char[n] | preview png bytes
//
// версии 1 и 2 (одна форма):
//  1 byte  |    uint8 | color encoding format ID
//  1 byte  |    uint8 | color palette row count (не используется)
//  1 byte  |    uint8 | color palette column count (не используется)
//  1 byte  |    uint8 | color count (max 255)
//  n bytes |  char[n] | colors (4 x uint8 RGBA)
//  4 bytes | uint8[4] | default/current cube/background color indexes (не используются)
//  2 bytes |   uint16 | width (X)
//  2 bytes |   uint16 | height (Y)
//  2 bytes |   uint16 | depth (Z)
//  n bytes | uint8[n] | palette indexes, x -> y -> z, z меняется быстрее всего
// 28 bytes | f32[7]   | camera target XYZ, distance, rotation LR/UD/roll (не используются)
// ---- версия 2 ----
//  1 byte  |    uint8 | light enabled
//  1 byte  |    uint8 | light locked to creation
//  4 bytes |  float32 | light rotation X
//  4 bytes |  float32 | light rotation Y
//
// версия 3 (контейнер ассетов, см. assets.go):
//  2 bytes |   uint16 | asset count
//  для каждого ассета: type (uint8), name length (uint16), name,
//  body length (uint32), body (тело формы версии 2 или палитры)

const (
	MagicBytes        = "CUBZH!"
	MagicBytesLegacy  = "PARTICUBES!"
	magicSize         = len(MagicBytes)
	magicSizeLegacy   = len(MagicBytesLegacy)
	formatVersionSize = 4
	previewCountSize  = 4

	FormatVersionV1        uint32 = 1
	FormatVersionLight     uint32 = 2
	FormatVersionContainer uint32 = 3

	// ColorEncodingRGBA - 4 x uint8 на цвет
	ColorEncodingRGBA uint8 = 1

	paletteColumns     = 8
	legacyCameraFloats = 7
)

// maxGridCells ограничивает размер сетки, который кодек согласится прочитать
var maxGridCells = 512 * 512 * 512

// SetMaxGridCells задаёт предельное число ячеек сетки при загрузке
func SetMaxGridCells(n int) {
	if n > 0 {
		maxGridCells = n
	}
}

// ReadMagicBytes читает и проверяет magic bytes. Поток не закрывается.
// legacy == true, если файл в устаревшем формате (допускается только при allowLegacy).
func ReadMagicBytes(s *stream.Stream, allowLegacy bool) (legacy bool, err error) {
	head := make([]byte, magicSize)
	if err := s.Read(head); err != nil {
		return false, fmt.Errorf("%w: magic bytes: %v", ErrBadMagic, err)
	}
	if string(head) == MagicBytes {
		return false, nil
	}
	if !allowLegacy || string(head) != MagicBytesLegacy[:magicSize] {
		return false, ErrBadMagic
	}

	tail := make([]byte, magicSizeLegacy-magicSize)
	if err := s.Read(tail); err != nil {
		return false, fmt.Errorf("%w: legacy magic bytes: %v", ErrBadMagic, err)
	}
	if string(head)+string(tail) != MagicBytesLegacy {
		return false, ErrBadMagic
	}
	return true, nil
}

// fileHeader - прочитанный заголовок файла
type fileHeader struct {
	legacy        bool
	version       uint32
	previewOffset int64 // смещение байт превью от начала файла
	previewSize   uint32
}

// readHeader читает magic bytes, версию и размер превью; курсор остаётся на начале превью
func readHeader(s *stream.Stream, allowLegacy bool) (fileHeader, error) {
	var h fileHeader
	legacy, err := ReadMagicBytes(s, allowLegacy)
	if err != nil {
		return h, err
	}
	h.legacy = legacy

	if h.version, err = s.ReadUint32(); err != nil {
		return h, fmt.Errorf("%w: format version", ErrTruncated)
	}
	if h.version < FormatVersionV1 || h.version > FormatVersionContainer {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.version)
	}
	if h.previewSize, err = s.ReadUint32(); err != nil {
		return h, fmt.Errorf("%w: preview byte count", ErrTruncated)
	}
	h.previewOffset = s.Position()
	return h, nil
}

// LoadShape загружает форму из потока. Поток не закрывается.
// Для контейнера (версия 3) возвращается корневая (первая) форма.
// При любой ошибке возвращается nil: частично прочитанная форма наружу не отдаётся.
func LoadShape(s *stream.Stream, fullname string, atlas *voxel.ColorAtlas, settings *voxel.ShapeSettings, allowLegacy bool) (*voxel.Shape, error) {
	start := time.Now()
	defer func() {
		metrics.CodecDuration.WithLabelValues("load_shape").Observe(time.Since(start).Seconds())
	}()

	h, err := readHeader(s, allowLegacy)
	if err != nil {
		return nil, loadFailed(fullname, formatLabel(h), err)
	}
	if err := s.Skip(int(h.previewSize)); err != nil {
		return nil, loadFailed(fullname, formatLabel(h), fmt.Errorf("%w: preview bytes", ErrTruncated))
	}

	if h.version == FormatVersionContainer {
		assets, err := readContainerAssets(s, AssetShape, atlas, settings)
		if err != nil {
			return nil, loadFailed(fullname, formatLabel(h), err)
		}
		shape, _ := AssetsGetRootShape(assets, false)
		if shape == nil {
			return nil, loadFailed(fullname, formatLabel(h), ErrNoShape)
		}
		if shape.Name == "" {
			shape.Name = fullname
		}
		metrics.ShapesLoaded.WithLabelValues(formatLabel(h), "ok").Inc()
		return shape, nil
	}

	shape, err := readShapeBody(s, h.version, atlas, settings)
	if err != nil {
		return nil, loadFailed(fullname, formatLabel(h), err)
	}
	shape.Name = fullname
	metrics.ShapesLoaded.WithLabelValues(formatLabel(h), "ok").Inc()
	return shape, nil
}

func formatLabel(h fileHeader) string {
	if h.legacy {
		return "pcubes"
	}
	return "3zh"
}

func loadFailed(fullname, format string, err error) error {
	metrics.ShapesLoaded.WithLabelValues(format, "error").Inc()
	logging.GetCodecLogger().Debug("Не удалось загрузить форму %q: %v", fullname, err)
	return err
}

// readPalette читает кодировку, количество и цвета палитры.
// withLegacyGrid == true для тела формы, где перед количеством хранятся строки/столбцы.
func readPalette(s *stream.Stream, withLegacyGrid bool) (*voxel.Palette, error) {
	encoding, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: color encoding", ErrTruncated)
	}
	if encoding != ColorEncodingRGBA {
		return nil, fmt.Errorf("%w: unknown color encoding %d", ErrInvalidPalette, encoding)
	}
	if withLegacyGrid {
		// строки и столбцы палитры не используются
		if err := s.Skip(2); err != nil {
			return nil, fmt.Errorf("%w: palette dimensions", ErrTruncated)
		}
	}
	count, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: color count", ErrTruncated)
	}
	if int(count) > voxel.MaxPaletteColors {
		return nil, fmt.Errorf("%w: %d colors", ErrInvalidPalette, count)
	}
	raw, err := s.ReadBytes(int(count) * 4)
	if err != nil {
		return nil, fmt.Errorf("%w: palette colors", ErrTruncated)
	}
	colors := make([]voxel.Color, count)
	for i := range colors {
		colors[i] = voxel.Color{R: raw[i*4], G: raw[i*4+1], B: raw[i*4+2], A: raw[i*4+3]}
	}
	return voxel.NewPalette(colors...), nil
}

// readShapeBody читает тело формы версий 1-2 (всё после превью)
func readShapeBody(s *stream.Stream, version uint32, atlas *voxel.ColorAtlas, settings *voxel.ShapeSettings) (*voxel.Shape, error) {
	palette, err := readPalette(s, true)
	if err != nil {
		return nil, err
	}

	// четыре устаревших индекса цветов по умолчанию
	if err := s.Skip(4); err != nil {
		return nil, fmt.Errorf("%w: default color indexes", ErrTruncated)
	}

	var dims [3]uint16
	for i := range dims {
		if dims[i], err = s.ReadUint16(); err != nil {
			return nil, fmt.Errorf("%w: grid dimensions", ErrTruncated)
		}
	}
	cellCount := int(dims[0]) * int(dims[1]) * int(dims[2])
	if cellCount > maxGridCells {
		return nil, fmt.Errorf("%w: %dx%dx%d exceeds %d cells", ErrInvalidGrid, dims[0], dims[1], dims[2], maxGridCells)
	}

	raw, err := s.ReadBytes(cellCount)
	if err != nil {
		return nil, fmt.Errorf("%w: voxel grid (%d cells)", ErrTruncated, cellCount)
	}
	cells := make([]voxel.ColorIndex, cellCount)
	colorCount := palette.Count()
	for i, c := range raw {
		if c != uint8(voxel.AirColorIndex) && int(c) >= colorCount {
			return nil, fmt.Errorf("%w: cell %d references color %d of %d", ErrInvalidGrid, i, c, colorCount)
		}
		cells[i] = voxel.ColorIndex(c)
	}

	var camera [legacyCameraFloats]float32
	for i := range camera {
		if camera[i], err = s.ReadFloat32(); err != nil {
			return nil, fmt.Errorf("%w: camera block", ErrTruncated)
		}
	}

	var light voxel.LightSettings
	if version >= FormatVersionLight {
		if light, err = readLight(s); err != nil {
			return nil, err
		}
	}

	shapeSettings := voxel.DefaultShapeSettings()
	if settings != nil {
		shapeSettings = *settings
	}
	shape, err := voxel.NewShapeFromGrid(int(dims[0]), int(dims[1]), int(dims[2]), cells, palette, shapeSettings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	shape.Camera = voxel.LegacyCamera{
		Target:     vec.Vec3Float{X: camera[0], Y: camera[1], Z: camera[2]},
		Distance:   camera[3],
		RotationLR: camera[4],
		RotationUD: camera[5],
		Roll:       camera[6],
	}
	shape.Light = light
	if atlas != nil {
		atlas.Link(palette)
	}
	return shape, nil
}

func readLight(s *stream.Stream) (voxel.LightSettings, error) {
	var light voxel.LightSettings
	enabled, err := s.ReadUint8()
	if err != nil {
		return light, fmt.Errorf("%w: light enabled", ErrTruncated)
	}
	locked, err := s.ReadUint8()
	if err != nil {
		return light, fmt.Errorf("%w: light locked", ErrTruncated)
	}
	if light.RotationX, err = s.ReadFloat32(); err != nil {
		return light, fmt.Errorf("%w: light rotation", ErrTruncated)
	}
	if light.RotationY, err = s.ReadFloat32(); err != nil {
		return light, fmt.Errorf("%w: light rotation", ErrTruncated)
	}
	light.Enabled = enabled != 0
	light.Locked = locked != 0
	return light, nil
}

// headerSize - размер заголовка вместе с превью
func headerSize(previewSize int) int {
	return magicSize + formatVersionSize + previewCountSize + previewSize
}

// paletteBodySize - размер палитры в теле формы
func paletteBodySize(p *voxel.Palette) int {
	return 4 + p.Count()*4
}

// shapeBodySize - размер тела формы версии 2
func shapeBodySize(shape *voxel.Shape, palette *voxel.Palette) int {
	size := shape.Size()
	return paletteBodySize(palette) +
		4 + // устаревшие индексы цветов
		3*2 + // размеры
		size.X*size.Y*size.Z +
		legacyCameraFloats*4 +
		1 + 1 + 4 + 4 // свет (v2)
}

func validateForSave(shape *voxel.Shape, palette *voxel.Palette) error {
	size := shape.Size()
	if size.X > voxel.MaxShapeAxis || size.Y > voxel.MaxShapeAxis || size.Z > voxel.MaxShapeAxis {
		return fmt.Errorf("%w: %dx%dx%d", voxel.ErrShapeTooLarge, size.X, size.Y, size.Z)
	}
	if palette.Count() > voxel.MaxPaletteColors {
		return fmt.Errorf("%w: %d colors", ErrInvalidPalette, palette.Count())
	}
	for i, c := range shape.Cells() {
		if c != voxel.AirColorIndex && int(c) >= palette.Count() {
			return fmt.Errorf("%w: cell %d references color %d of %d", ErrInvalidGrid, i, c, palette.Count())
		}
	}
	return nil
}

// writeHeader пишет magic bytes, версию и превью
func writeHeader(buf []byte, cursor *uint32, version uint32, preview []byte) {
	WriteCString(buf[*cursor:], MagicBytes, magicSize, cursor)
	WriteUint32(buf[*cursor:], version, cursor)
	WriteUint32(buf[*cursor:], uint32(len(preview)), cursor)
	WriteBytes(buf[*cursor:], preview, cursor)
}

// writePaletteColors пишет кодировку, (опционально) строки/столбцы, количество и цвета
func writePaletteColors(buf []byte, cursor *uint32, palette *voxel.Palette, withLegacyGrid bool) {
	WriteUint8(buf[*cursor:], ColorEncodingRGBA, cursor)
	count := palette.Count()
	if withLegacyGrid {
		WriteUint8(buf[*cursor:], uint8((count+paletteColumns-1)/paletteColumns), cursor)
		WriteUint8(buf[*cursor:], paletteColumns, cursor)
	}
	WriteUint8(buf[*cursor:], uint8(count), cursor)
	for _, c := range palette.Colors() {
		WriteUint8(buf[*cursor:], c.R, cursor)
		WriteUint8(buf[*cursor:], c.G, cursor)
		WriteUint8(buf[*cursor:], c.B, cursor)
		WriteUint8(buf[*cursor:], c.A, cursor)
	}
}

// writeShapeBody пишет тело формы в текущей версии (со светом)
func writeShapeBody(buf []byte, cursor *uint32, shape *voxel.Shape, palette *voxel.Palette) {
	writePaletteColors(buf, cursor, palette, true)

	// устаревшие индексы цветов по умолчанию
	for range 4 {
		WriteUint8(buf[*cursor:], 0, cursor)
	}

	size := shape.Size()
	WriteUint16(buf[*cursor:], uint16(size.X), cursor)
	WriteUint16(buf[*cursor:], uint16(size.Y), cursor)
	WriteUint16(buf[*cursor:], uint16(size.Z), cursor)
	for _, c := range shape.Cells() {
		WriteUint8(buf[*cursor:], uint8(c), cursor)
	}

	cam := shape.Camera
	for _, f := range [legacyCameraFloats]float32{
		cam.Target.X, cam.Target.Y, cam.Target.Z, cam.Distance, cam.RotationLR, cam.RotationUD, cam.Roll,
	} {
		WriteFloat32(buf[*cursor:], f, cursor)
	}

	WriteUint8(buf[*cursor:], boolByte(shape.Light.Enabled), cursor)
	WriteUint8(buf[*cursor:], boolByte(shape.Light.Locked), cursor)
	WriteFloat32(buf[*cursor:], shape.Light.RotationX, cursor)
	WriteFloat32(buf[*cursor:], shape.Light.RotationY, cursor)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SaveShapeAsBuffer сериализует форму в новый буфер.
// palette - палитра художника; если nil, используется палитра формы.
// Всегда пишется текущий формат (новые magic bytes, версия 2 со светом).
func SaveShapeAsBuffer(shape *voxel.Shape, palette *voxel.Palette, preview []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.CodecDuration.WithLabelValues("save_shape").Observe(time.Since(start).Seconds())
	}()

	if palette == nil {
		palette = shape.Palette
	}
	if err := validateForSave(shape, palette); err != nil {
		metrics.ShapesSaved.WithLabelValues("error").Inc()
		return nil, err
	}

	buf := make([]byte, headerSize(len(preview))+shapeBodySize(shape, palette))
	var cursor uint32
	writeHeader(buf, &cursor, FormatVersionLight, preview)
	writeShapeBody(buf, &cursor, shape, palette)

	if int(cursor) != len(buf) {
		metrics.ShapesSaved.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("internal size mismatch: wrote %d of %d bytes", cursor, len(buf))
	}
	metrics.ShapesSaved.WithLabelValues("ok").Inc()
	return buf, nil
}

// SaveShape сериализует форму в открытый на запись файл.
// Файл закрывается в любом случае.
func SaveShape(shape *voxel.Shape, preview []byte, f *os.File) (err error) {
	w := stream.NewFileWriter(f)
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	buf, err := SaveShapeAsBuffer(shape, nil, preview)
	if err != nil {
		return err
	}
	if err := w.Write(buf); err != nil {
		logging.GetCodecLogger().Warn("Ошибка записи формы в %s: %v", f.Name(), err)
		return fmt.Errorf("write shape: %w", err)
	}
	return nil
}

// LoadShapeFromBuffer - удобная обёртка над LoadShape для буфера в памяти
func LoadShapeFromBuffer(buf []byte, fullname string, allowLegacy bool) (*voxel.Shape, error) {
	return LoadShape(stream.NewBufferReader(buf), fullname, nil, nil, allowLegacy)
}

// isMagic проверяет, начинается ли буфер с magic bytes .3zh (или legacy)
func isMagic(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(MagicBytes)) || bytes.HasPrefix(buf, []byte(MagicBytesLegacy))
}

// IsFormatError сообщает, является ли ошибка ошибкой формата данных
// (а не ошибкой ввода-вывода)
func IsFormatError(err error) bool {
	for _, target := range []error{
		ErrBadMagic, ErrUnsupportedVersion, ErrTruncated, ErrInvalidPalette,
		ErrInvalidGrid, ErrUnsupportedFormat, ErrNoShape, ErrInvalidBake, ErrMalformedAsset,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
