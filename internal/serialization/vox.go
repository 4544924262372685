package serialization

import (
	"bytes"
	"fmt"

	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/voxel"
)

// Формат MagicaVoxel (.vox): "VOX " + версия, затем дерево чанков
// (id[4], content size, children size). Используются SIZE, XYZI и RGBA
// первой модели. Ось Z в .vox направлена вверх, поэтому она становится Y.

const voxMagic = "VOX "

func isVox(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(voxMagic))
}

type voxModel struct {
	sizeX, sizeY, sizeZ int
	voxels              [][4]uint8 // x, y, z, color index (1..255)
	hasSize, hasVoxels  bool
}

func parseVox(buf []byte, filter AssetType, settings *voxel.ShapeSettings) ([]Asset, error) {
	assets, err := decodeVox(buf, filter, settings)
	if err != nil {
		metrics.ShapesLoaded.WithLabelValues("vox", "error").Inc()
		return nil, err
	}
	metrics.ShapesLoaded.WithLabelValues("vox", "ok").Inc()
	return assets, nil
}

func decodeVox(buf []byte, filter AssetType, settings *voxel.ShapeSettings) ([]Asset, error) {
	s := stream.NewBufferReader(buf)
	if err := s.Skip(len(voxMagic)); err != nil {
		return nil, fmt.Errorf("%w: vox magic", ErrTruncated)
	}
	if _, err := s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("%w: vox version", ErrTruncated)
	}

	var model voxModel
	var rgba []voxel.Color

	for !s.ReachedEnd() {
		id, err := s.ReadString(4)
		if err != nil {
			return nil, fmt.Errorf("%w: vox chunk id", ErrTruncated)
		}
		contentSize, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: vox chunk %s size", ErrTruncated, id)
		}
		if _, err := s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("%w: vox chunk %s children size", ErrTruncated, id)
		}
		content, err := s.ReadBytes(int(contentSize))
		if err != nil {
			return nil, fmt.Errorf("%w: vox chunk %s content", ErrTruncated, id)
		}
		cs := stream.NewBufferReader(content)

		switch id {
		case "MAIN":
			// дочерние чанки читаются в том же цикле
		case "SIZE":
			if model.hasSize {
				continue // поддерживается только первая модель
			}
			x, _ := cs.ReadUint32()
			y, _ := cs.ReadUint32()
			z, err := cs.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("%w: vox SIZE", ErrTruncated)
			}
			model.sizeX, model.sizeY, model.sizeZ = int(x), int(y), int(z)
			model.hasSize = true
		case "XYZI":
			if model.hasVoxels {
				continue
			}
			n, err := cs.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("%w: vox XYZI count", ErrTruncated)
			}
			if int64(n)*4 > cs.Remaining() {
				return nil, fmt.Errorf("%w: vox XYZI voxels", ErrTruncated)
			}
			model.voxels = make([][4]uint8, n)
			for i := range model.voxels {
				if err := cs.Read(model.voxels[i][:]); err != nil {
					return nil, fmt.Errorf("%w: vox XYZI voxels", ErrTruncated)
				}
			}
			model.hasVoxels = true
		case "RGBA":
			raw, err := cs.ReadBytes(256 * 4)
			if err != nil {
				return nil, fmt.Errorf("%w: vox RGBA", ErrTruncated)
			}
			rgba = make([]voxel.Color, 256)
			for i := range rgba {
				rgba[i] = voxel.Color{R: raw[i*4], G: raw[i*4+1], B: raw[i*4+2], A: raw[i*4+3]}
			}
		}
	}

	if !model.hasSize || !model.hasVoxels {
		return nil, fmt.Errorf("%w: vox file has no model", ErrInvalidGrid)
	}
	if filter&(AssetShape|AssetPalette) == 0 {
		return nil, nil
	}

	shape, err := buildVoxShape(model, rgba, settings)
	if err != nil {
		return nil, err
	}

	var assets []Asset
	if filter&AssetShape != 0 {
		assets = append(assets, Asset{Type: AssetShape, Shape: shape})
	}
	if filter&AssetPalette != 0 {
		assets = append(assets, Asset{Type: AssetPalette, Palette: shape.Palette})
	}
	return assets, nil
}

// buildVoxShape строит форму и компактную палитру только из использованных цветов
func buildVoxShape(model voxModel, rgba []voxel.Color, settings *voxel.ShapeSettings) (*voxel.Shape, error) {
	shapeSettings := voxel.DefaultShapeSettings()
	if settings != nil {
		shapeSettings = *settings
	}
	if model.sizeX*model.sizeY*model.sizeZ > maxGridCells {
		return nil, fmt.Errorf("%w: vox model %dx%dx%d", ErrInvalidGrid, model.sizeX, model.sizeY, model.sizeZ)
	}
	// Z вверх в .vox -> Y вверх в форме
	shape, err := voxel.NewShape(model.sizeX, model.sizeZ, model.sizeY, voxel.NewPalette(), shapeSettings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}

	remap := make(map[uint8]voxel.ColorIndex)
	for _, v := range model.voxels {
		x, y, z, ci := int(v[0]), int(v[2]), int(v[1]), v[3]
		if ci == 0 {
			continue
		}
		idx, ok := remap[ci]
		if !ok {
			idx, err = shape.Palette.Add(voxColor(rgba, ci))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPalette, err)
			}
			remap[ci] = idx
		}
		if !shape.SetBlock(x, y, z, voxel.NewBlock(idx)) {
			return nil, fmt.Errorf("%w: voxel (%d,%d,%d) outside model", ErrInvalidGrid, v[0], v[1], v[2])
		}
	}
	return shape, nil
}

// voxColor возвращает цвет по индексу .vox (1..255). Без чанка RGBA
// используется серая шкала вместо встроенной палитры MagicaVoxel.
func voxColor(rgba []voxel.Color, ci uint8) voxel.Color {
	if rgba != nil {
		// в чанке RGBA цвет i хранится по смещению i-1
		return rgba[ci-1]
	}
	return voxel.Color{R: ci, G: ci, B: ci, A: 255}
}
