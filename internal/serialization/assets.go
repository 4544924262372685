package serialization

import (
	"fmt"
	"time"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/voxel"
)

// AssetType - тип ассета; используется и как битовая маска фильтра
type AssetType uint8

const (
	AssetShape   AssetType = 1 << 0
	AssetPalette AssetType = 1 << 1

	AssetAny AssetType = 0xff
)

func (t AssetType) String() string {
	switch t {
	case AssetShape:
		return "shape"
	case AssetPalette:
		return "palette"
	default:
		return fmt.Sprintf("asset(%d)", uint8(t))
	}
}

// Asset - один ассет контейнера
type Asset struct {
	Type    AssetType
	Name    string
	Shape   *voxel.Shape
	Palette *voxel.Palette
}

// LoadAssets загружает ассеты из файла .3zh (или .pcubes при allowLegacy).
// Поток закрывается этой функцией. filter ограничивает типы ассетов,
// для которых выделяется память: остальные пропускаются без разбора.
// Порядок ассетов совпадает с порядком в файле.
func LoadAssets(s *stream.Stream, fullname string, filter AssetType, atlas *voxel.ColorAtlas, settings *voxel.ShapeSettings, allowLegacy bool) ([]Asset, error) {
	defer s.Close()

	start := time.Now()
	defer func() {
		metrics.CodecDuration.WithLabelValues("load_assets").Observe(time.Since(start).Seconds())
	}()

	h, err := readHeader(s, allowLegacy)
	if err != nil {
		return nil, loadFailed(fullname, formatLabel(h), err)
	}
	if err := s.Skip(int(h.previewSize)); err != nil {
		return nil, loadFailed(fullname, formatLabel(h), fmt.Errorf("%w: preview bytes", ErrTruncated))
	}

	if h.version == FormatVersionContainer {
		assets, err := readContainerAssets(s, filter, atlas, settings)
		if err != nil {
			return nil, loadFailed(fullname, formatLabel(h), err)
		}
		metrics.ShapesLoaded.WithLabelValues(formatLabel(h), "ok").Inc()
		return assets, nil
	}

	// одна форма: файл версий 1-2
	shape, err := readShapeBody(s, h.version, atlas, settings)
	if err != nil {
		return nil, loadFailed(fullname, formatLabel(h), err)
	}
	shape.Name = fullname
	metrics.ShapesLoaded.WithLabelValues(formatLabel(h), "ok").Inc()

	var assets []Asset
	if filter&AssetShape != 0 {
		assets = append(assets, Asset{Type: AssetShape, Name: fullname, Shape: shape})
	}
	if filter&AssetPalette != 0 {
		assets = append(assets, Asset{Type: AssetPalette, Name: fullname, Palette: shape.Palette})
	}
	return assets, nil
}

// AssetsGetRootShape возвращает первую форму из списка.
// При remove == true форма удаляется из возвращаемого списка.
func AssetsGetRootShape(assets []Asset, remove bool) (*voxel.Shape, []Asset) {
	for i, a := range assets {
		if a.Type != AssetShape || a.Shape == nil {
			continue
		}
		if remove {
			rest := make([]Asset, 0, len(assets)-1)
			rest = append(rest, assets[:i]...)
			rest = append(rest, assets[i+1:]...)
			return a.Shape, rest
		}
		return a.Shape, assets
	}
	return nil, assets
}

// readContainerAssets читает список ассетов контейнера версии 3
func readContainerAssets(s *stream.Stream, filter AssetType, atlas *voxel.ColorAtlas, settings *voxel.ShapeSettings) ([]Asset, error) {
	count, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: asset count", ErrTruncated)
	}

	assets := make([]Asset, 0, count)
	for i := 0; i < int(count); i++ {
		typ, err := s.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("%w: asset %d type", ErrTruncated, i)
		}
		nameLen, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("%w: asset %d name length", ErrTruncated, i)
		}
		name, err := s.ReadString(int(nameLen))
		if err != nil {
			return nil, fmt.Errorf("%w: asset %d name", ErrTruncated, i)
		}
		bodyLen, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: asset %d body length", ErrTruncated, i)
		}

		assetType := AssetType(typ)
		if assetType&filter == 0 || (assetType != AssetShape && assetType != AssetPalette) {
			if assetType != AssetShape && assetType != AssetPalette {
				logging.GetCodecLogger().Debug("Пропуск неизвестного ассета %q типа %d", name, typ)
			}
			if err := s.Skip(int(bodyLen)); err != nil {
				return nil, fmt.Errorf("%w: asset %d body", ErrTruncated, i)
			}
			continue
		}

		body, err := s.ReadBytes(int(bodyLen))
		if err != nil {
			return nil, fmt.Errorf("%w: asset %d body", ErrTruncated, i)
		}
		bs := stream.NewBufferReader(body)

		asset := Asset{Type: assetType, Name: name}
		switch assetType {
		case AssetShape:
			shape, err := readShapeBody(bs, FormatVersionLight, atlas, settings)
			if err != nil {
				return nil, fmt.Errorf("asset %q: %w", name, err)
			}
			shape.Name = name
			asset.Shape = shape
		case AssetPalette:
			palette, err := readPalette(bs, false)
			if err != nil {
				return nil, fmt.Errorf("asset %q: %w", name, err)
			}
			if atlas != nil {
				atlas.Link(palette)
			}
			asset.Palette = palette
		}
		if !bs.ReachedEnd() {
			return nil, fmt.Errorf("%w: asset %q has %d trailing bytes", ErrMalformedAsset, name, bs.Remaining())
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// SaveAssetsAsBuffer сериализует несколько ассетов в контейнер версии 3
func SaveAssetsAsBuffer(assets []Asset, preview []byte) ([]byte, error) {
	if len(assets) > 0xffff {
		return nil, fmt.Errorf("too many assets: %d", len(assets))
	}

	size := headerSize(len(preview)) + 2
	bodySizes := make([]int, len(assets))
	for i, a := range assets {
		if len(a.Name) > 0xffff {
			return nil, fmt.Errorf("asset name too long: %d bytes", len(a.Name))
		}
		switch a.Type {
		case AssetShape:
			if a.Shape == nil {
				return nil, fmt.Errorf("asset %q: nil shape", a.Name)
			}
			if err := validateForSave(a.Shape, a.Shape.Palette); err != nil {
				return nil, fmt.Errorf("asset %q: %w", a.Name, err)
			}
			bodySizes[i] = shapeBodySize(a.Shape, a.Shape.Palette)
		case AssetPalette:
			if a.Palette == nil {
				return nil, fmt.Errorf("asset %q: nil palette", a.Name)
			}
			bodySizes[i] = 2 + a.Palette.Count()*4
		default:
			return nil, fmt.Errorf("asset %q: unsupported type %s", a.Name, a.Type)
		}
		size += 1 + 2 + len(a.Name) + 4 + bodySizes[i]
	}

	buf := make([]byte, size)
	var cursor uint32
	writeHeader(buf, &cursor, FormatVersionContainer, preview)
	WriteUint16(buf[cursor:], uint16(len(assets)), &cursor)
	for i, a := range assets {
		WriteUint8(buf[cursor:], uint8(a.Type), &cursor)
		WriteUint16(buf[cursor:], uint16(len(a.Name)), &cursor)
		WriteCString(buf[cursor:], a.Name, len(a.Name), &cursor)
		WriteUint32(buf[cursor:], uint32(bodySizes[i]), &cursor)
		switch a.Type {
		case AssetShape:
			writeShapeBody(buf, &cursor, a.Shape, a.Shape.Palette)
		case AssetPalette:
			writePaletteColors(buf, &cursor, a.Palette, false)
		}
	}

	if int(cursor) != len(buf) {
		return nil, fmt.Errorf("internal size mismatch: wrote %d of %d bytes", cursor, len(buf))
	}
	metrics.ShapesSaved.WithLabelValues("ok").Inc()
	return buf, nil
}
