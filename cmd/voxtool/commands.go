package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/annel0/voxel-core/internal/bakecache"
	"github.com/annel0/voxel-core/internal/generator"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/serialization"
	"github.com/annel0/voxel-core/internal/stream"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/spf13/pflag"
)

func runInfo(e *env, args []string) error {
	if err := expectArgs(args, 1, "info <file>"); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	format, assets, err := serialization.LoadData(data, serialization.AssetAny, nil)
	if err != nil {
		return fmt.Errorf("%s (%s): %w", args[0], format, err)
	}

	fmt.Fprintf(e.out, "📦 %s: формат %s, ассетов: %d\n", args[0], format, len(assets))
	for i, a := range assets {
		switch a.Type {
		case serialization.AssetShape:
			size := a.Shape.Size()
			fmt.Fprintf(e.out, "  [%d] shape %q %dx%dx%d, блоков: %d, цветов: %d, хеш: %016x\n",
				i, a.Name, size.X, size.Y, size.Z, a.Shape.SolidCount(), a.Shape.Palette.Count(),
				serialization.ShapeHash(a.Shape))
		case serialization.AssetPalette:
			fmt.Fprintf(e.out, "  [%d] palette %q, цветов: %d\n", i, a.Name, a.Palette.Count())
		}
	}

	if format == serialization.DataFormat3ZH {
		if preview, err := serialization.GetPreviewData(args[0]); err == nil {
			fmt.Fprintf(e.out, "  превью: %d байт\n", len(preview))
		}
	}
	return nil
}

func runPreviewGet(e *env, args []string) error {
	if err := expectArgs(args, 2, "preview-get <file> <out.png>"); err != nil {
		return err
	}
	preview, err := serialization.GetPreviewData(args[0])
	if err != nil {
		return err
	}
	if len(preview) == 0 {
		return fmt.Errorf("%s: файл не содержит превью", args[0])
	}
	if err := os.WriteFile(args[1], preview, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "🖼️ Превью %d байт записано в %s\n", len(preview), args[1])
	return nil
}

func runPreviewSet(e *env, args []string) error {
	if err := expectArgs(args, 2, "preview-set <file> <in.png>"); err != nil {
		return err
	}
	preview, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	if err := serialization.UpdatePreviewData(preview, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "🖼️ Превью %s обновлено (%d байт)\n", args[0], len(preview))
	return nil
}

func runDuplicate(e *env, args []string) error {
	if err := expectArgs(args, 2, "duplicate <src> <dst>"); err != nil {
		return err
	}
	if err := serialization.DuplicateWorld(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "📄 %s -> %s\n", args[0], args[1])
	return nil
}

func runGenerate(e *env, args []string) error {
	var (
		seed          int64
		width, depth  int
		maxHeight     int
		forestDensity float64
		previewPath   string
	)
	flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flagSet.Int64Var(&seed, "seed", time.Now().UnixNano(), "сид шума")
	flagSet.IntVar(&width, "width", 64, "размер по X")
	flagSet.IntVar(&depth, "depth", 64, "размер по Z")
	flagSet.IntVar(&maxHeight, "max-height", 24, "максимальная высота рельефа")
	flagSet.Float64Var(&forestDensity, "forest", 0.15, "плотность деревьев в лесу (0..1)")
	flagSet.StringVar(&previewPath, "preview", "", "PNG превью для записи в файл")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(flagSet.Args(), 1, "generate [flags] <out.3zh>"); err != nil {
		return err
	}

	var preview []byte
	if previewPath != "" {
		var err error
		if preview, err = os.ReadFile(previewPath); err != nil {
			return err
		}
	}

	g := generator.NewTerrainGenerator(seed)
	g.MaxHeight = maxHeight
	g.ForestDensity = forestDensity
	shape, stats, err := g.GenerateShape(width, depth)
	if err != nil {
		return err
	}
	shape.Name = filepath.Base(flagSet.Arg(0))

	f, err := os.Create(flagSet.Arg(0))
	if err != nil {
		return err
	}
	if err := serialization.SaveShape(shape, preview, f); err != nil {
		return err
	}

	size := shape.Size()
	fmt.Fprintf(e.out, "🌍 %s: %dx%dx%d, блоков: %d (отклонено %d), seed %d\n",
		flagSet.Arg(0), size.X, size.Y, size.Z, stats.Placed, stats.Rejected, seed)
	return nil
}

func runBake(e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("использование: voxtool bake <file>...")
	}

	store, err := bakecache.Open(e.cfg.Bake)
	if err != nil {
		logging.GetToolLogger().Warn("Кеш %s недоступен, используется память: %v", e.cfg.Bake.Backend, err)
		store = bakecache.NewMemoryStore()
	}
	if store != nil {
		defer store.Close()
	}
	manager := bakecache.NewManager(store)

	shapes := make(map[string]*voxel.Shape, len(args))
	for _, path := range args {
		shape, err := loadShapeFile(path, e.cfg.Codec.AllowLegacy)
		if err != nil {
			return err
		}
		key, err := filepath.Abs(path)
		if err != nil {
			key = path
		}
		shapes[key] = shape
	}

	hits, err := manager.BakeAll(context.Background(), shapes, 4)
	if err != nil {
		return err
	}
	for key, shape := range shapes {
		fmt.Fprintf(e.out, "🔥 %s: блоков %d, хеш %016x\n", key, shape.Baked.SolidCount, serialization.ShapeHash(shape))
	}
	fmt.Fprintf(e.out, "Из кеша: %d из %d\n", hits, len(shapes))
	return nil
}

func runEditDemo(e *env, args []string) error {
	var budget int
	flagSet := pflag.NewFlagSet("edit-demo", pflag.ContinueOnError)
	flagSet.IntVar(&budget, "budget", 16, "изменений за один шаг применения")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(flagSet.Args(), 2, "edit-demo [flags] <in> <out>"); err != nil {
		return err
	}

	shape, err := loadShapeFile(flagSet.Arg(0), e.cfg.Codec.AllowLegacy)
	if err != nil {
		return err
	}
	if shape.Palette.Count() == 0 {
		if _, err := shape.Palette.Add(voxel.Color{R: 255, G: 255, B: 255, A: 255}); err != nil {
			return err
		}
	}

	tr := buildDemoTransaction(shape)
	defer tr.Free()

	steps := 0
	for {
		_, done, err := shape.ApplyTransaction(tr, budget)
		if err != nil {
			return err
		}
		steps++
		if done {
			break
		}
	}

	preview, err := serialization.GetPreviewData(flagSet.Arg(0))
	if err != nil {
		preview = nil
	}
	f, err := os.Create(flagSet.Arg(1))
	if err != nil {
		return err
	}
	if err := serialization.SaveShape(shape, preview, f); err != nil {
		return err
	}

	size := shape.Size()
	fmt.Fprintf(e.out, "✏️ Изменений: %d за %d шагов, новый размер %dx%dx%d\n", tr.Len(), steps, size.X, size.Y, size.Z)
	return nil
}

// buildDemoTransaction ставит колонну над формой и перекрашивает верхний слой
func buildDemoTransaction(shape *voxel.Shape) *voxel.Transaction {
	tr := voxel.NewTransaction()
	bounds := shape.Bounds()
	size := shape.Size()

	cx := bounds.Min.X + size.X/2
	cz := bounds.Min.Z + size.Z/2
	top := bounds.Max.Y + 1
	if size.Y == 0 {
		cx, cz, top = 0, 0, 0
	}
	for y := top; y < top+4; y++ {
		tr.AddBlock(cx, y, cz, 0)
	}

	last := voxel.ColorIndex(shape.Palette.Count() - 1)
	for x := bounds.Min.X; x <= bounds.Max.X && size.Y > 0; x++ {
		for z := bounds.Min.Z; z <= bounds.Max.Z; z++ {
			b := shape.BlockAt(x, bounds.Max.Y, z)
			if b.IsSolid() {
				tr.ReplaceBlock(x, bounds.Max.Y, z, b.Color, last)
			}
		}
	}
	return tr
}

func runServeMetrics(e *env, args []string) error {
	if err := expectArgs(args, 0, "serve-metrics"); err != nil {
		return err
	}
	return metrics.StartHTTP(fmt.Sprintf(":%d", e.cfg.Metrics.GetMetricsPort()))
}

func loadShapeFile(path string, allowLegacy bool) (*voxel.Shape, error) {
	s, err := stream.OpenFile(path)
	if err != nil {
		return nil, err
	}
	assets, err := serialization.LoadAssets(s, filepath.Base(path), serialization.AssetShape, nil, nil, allowLegacy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	shape, _ := serialization.AssetsGetRootShape(assets, false)
	if shape == nil {
		return nil, fmt.Errorf("%s: %w", path, serialization.ErrNoShape)
	}
	return shape, nil
}
