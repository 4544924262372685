package voxel

import "github.com/annel0/voxel-core/internal/vec"

// BakedInfo - производные данные формы, которые дорого пересчитывать
// и которые кешируются в запечённых файлах
type BakedInfo struct {
	SolidCount  int
	HasSolid    bool
	// SolidBounds - область твёрдых блоков в координатах сетки (без origin)
	SolidBounds vec.Box
	// HeightMap[x*depth+z] - высота верхнего твёрдого блока колонки (в координатах сетки), -1 для пустой колонки
	HeightMap []int32
	// ColorUsage[i] - количество блоков цвета i
	ColorUsage []uint32
}

// ComputeBake вычисляет производные данные формы
func (s *Shape) ComputeBake() *BakedInfo {
	info := &BakedInfo{
		HeightMap:  make([]int32, s.size.X*s.size.Z),
		ColorUsage: make([]uint32, s.Palette.Count()),
	}
	for i := range info.HeightMap {
		info.HeightMap[i] = -1
	}

	for gx := 0; gx < s.size.X; gx++ {
		for gy := 0; gy < s.size.Y; gy++ {
			row := gx*s.size.Y*s.size.Z + gy*s.size.Z
			for gz := 0; gz < s.size.Z; gz++ {
				c := s.blocks[row+gz]
				if c == AirColorIndex {
					continue
				}
				p := vec.Vec3{X: gx, Y: gy, Z: gz}
				if !info.HasSolid {
					info.SolidBounds = vec.PointBox(p)
					info.HasSolid = true
				} else {
					info.SolidBounds = info.SolidBounds.Extend(p)
				}
				info.SolidCount++
				if int(c) < len(info.ColorUsage) {
					info.ColorUsage[c]++
				}
				// gy растёт, поэтому последнее значение - самое высокое
				info.HeightMap[gx*s.size.Z+gz] = int32(gy)
			}
		}
	}
	return info
}
