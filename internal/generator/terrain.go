package generator

import (
	"fmt"
	"math/rand"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/voxel"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
)

// Индексы цветов в палитре Palette()
const (
	ColorDeepWater voxel.ColorIndex = iota
	ColorWater
	ColorSand
	ColorGrass
	ColorDirt
	ColorStone
	ColorSnow
	ColorTrunk
	ColorLeaves
	ColorCactus
)

// Константы высот для генерации (доля от MaxHeight)
const (
	WaterLevel    = 0.30 // Ниже - вода
	MountainStart = 0.75 // Выше - камень
	SnowStart     = 0.90 // Выше - снег
)

// Palette возвращает палитру, на которую ссылаются блоки ландшафта
func Palette() *voxel.Palette {
	return voxel.NewPalette(
		voxel.Color{R: 20, G: 50, B: 140, A: 255},   // глубокая вода
		voxel.Color{R: 60, G: 110, B: 200, A: 200},  // вода
		voxel.Color{R: 220, G: 200, B: 140, A: 255}, // песок
		voxel.Color{R: 90, G: 170, B: 60, A: 255},   // трава
		voxel.Color{R: 120, G: 85, B: 55, A: 255},   // земля
		voxel.Color{R: 125, G: 125, B: 125, A: 255}, // камень
		voxel.Color{R: 245, G: 245, B: 250, A: 255}, // снег
		voxel.Color{R: 100, G: 70, B: 40, A: 255},   // ствол
		voxel.Color{R: 40, G: 120, B: 40, A: 255},   // листва
		voxel.Color{R: 50, G: 140, B: 70, A: 255},   // кактус
	)
}

// TerrainGenerator генерирует ландшафт как транзакцию добавления блоков
type TerrainGenerator struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Плотность деревьев в лесу (от 0 до 1)
	MaxHeight     int     // Максимальная высота рельефа в блоках

	height *Noise
	biome  *Noise
}

// Stats - результат генерации
type Stats struct {
	Placed   int // успешные AddBlock
	Rejected int // AddBlock в уже занятую ячейку (пересечение крон)
}

// NewTerrainGenerator создаёт генератор с настройками по умолчанию
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed:          seed,
		NoiseScale:    0.05, // Настройка сглаженности ландшафта
		BiomeScale:    0.02, // Настройка размера биомов
		ForestDensity: 0.15,
		MaxHeight:     24,
		height:        NewNoise(seed),
		biome:         NewNoise(seed + 42),
	}
}

// Generate заполняет транзакцию блоками ландшафта width x depth.
// Транзакцию нужно применить к форме через Shape.ApplyTransaction и затем освободить.
func (g *TerrainGenerator) Generate(width, depth int) (*voxel.Transaction, Stats) {
	tr := voxel.NewTransaction()
	var stats Stats

	add := func(x, y, z int, c voxel.ColorIndex) {
		if tr.AddBlock(x, y, z, c) {
			stats.Placed++
		} else {
			stats.Rejected++
		}
	}

	// Локальный генератор случайных чисел для детерминированности
	rng := rand.New(rand.NewSource(g.Seed))
	waterTop := int(WaterLevel * float64(g.MaxHeight))

	for x := 0; x < width; x++ {
		for z := 0; z < depth; z++ {
			h := g.height.At(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
			b := g.biome.At(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale)
			biome := g.getBiomeType(h, b)

			top := 1 + int(h*float64(g.MaxHeight-1))
			for y := 0; y < top; y++ {
				add(x, y, z, g.getBlockForDepth(h, biome, top-1-y))
			}

			// Вода над рельефом ниже уровня моря
			for y := top; y < waterTop; y++ {
				if y < waterTop/2 {
					add(x, y, z, ColorDeepWater)
				} else {
					add(x, y, z, ColorWater)
				}
			}
			if top < waterTop {
				continue
			}

			switch {
			case biome == BiomeForest && rng.Float64() < g.ForestDensity:
				g.placeTree(add, x, top, z, rng)
			case biome == BiomeDesert && rng.Float64() < 0.02: // 2% шанс кактуса в пустыне
				height := 2 + rng.Intn(2)
				for y := top; y < top+height; y++ {
					add(x, y, z, ColorCactus)
				}
			}
		}
	}

	logging.GetGeneratorLogger().Debug("Ландшафт %dx%d (seed %d): %d блоков, %d отклонено",
		width, depth, g.Seed, stats.Placed, stats.Rejected)
	return tr, stats
}

// GenerateShape создаёт новую форму с ландшафтом
func (g *TerrainGenerator) GenerateShape(width, depth int) (*voxel.Shape, Stats, error) {
	shape, err := voxel.NewShape(0, 0, 0, Palette(), voxel.DefaultShapeSettings())
	if err != nil {
		return nil, Stats{}, err
	}

	tr, stats := g.Generate(width, depth)
	defer tr.Free()

	if _, _, err := shape.ApplyTransaction(tr, 0); err != nil {
		return nil, stats, fmt.Errorf("apply terrain: %w", err)
	}
	return shape, stats, nil
}

// getBiomeType определяет биом по высоте и шуму биомов
func (g *TerrainGenerator) getBiomeType(height, biomeValue float64) BiomeType {
	switch {
	case height >= MountainStart:
		return BiomeMountains
	case biomeValue < 0.4:
		return BiomeDesert
	case biomeValue > 0.6:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// getBlockForDepth возвращает цвет блока колонки; depth - расстояние от поверхности
func (g *TerrainGenerator) getBlockForDepth(height float64, biome BiomeType, depth int) voxel.ColorIndex {
	if height < WaterLevel+0.03 {
		if depth < 2 {
			return ColorSand
		}
		return ColorStone
	}

	switch biome {
	case BiomeMountains:
		if depth == 0 && height >= SnowStart {
			return ColorSnow
		}
		return ColorStone
	case BiomeDesert:
		if depth < 3 {
			return ColorSand
		}
		return ColorStone
	default:
		switch {
		case depth == 0:
			return ColorGrass
		case depth < 3:
			return ColorDirt
		default:
			return ColorStone
		}
	}
}

// placeTree ставит ствол и крону. Кроны соседних деревьев могут пересекаться:
// такие добавления отклоняются транзакцией.
func (g *TerrainGenerator) placeTree(add func(x, y, z int, c voxel.ColorIndex), x, base, z int, rng *rand.Rand) {
	trunk := 3 + rng.Intn(3)
	for y := base; y < base+trunk; y++ {
		add(x, y, z, ColorTrunk)
	}

	crown := base + trunk
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			add(x+dx, crown-1, z+dz, ColorLeaves)
			add(x+dx, crown, z+dz, ColorLeaves)
		}
	}
	add(x, crown+1, z, ColorLeaves)
}
