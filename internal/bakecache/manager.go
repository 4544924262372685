package bakecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/serialization"
	"github.com/annel0/voxel-core/internal/voxel"
)

// Manager заполняет shape.Baked из кеша или пересчитывает данные,
// если запечённый файл устарел (хеш не совпал) или повреждён
type Manager struct {
	store Store
}

// NewManager создаёт менеджер. store == nil - кеш отключён, данные всегда считаются заново.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Bake гарантирует актуальные shape.Baked. hit == true, если данные взяты из кеша.
// Ошибки хранилища не мешают запеканию: они логируются, данные пересчитываются.
func (m *Manager) Bake(ctx context.Context, key string, shape *voxel.Shape) (bool, error) {
	log := logging.GetBakeLogger()
	hash := serialization.ShapeHash(shape)

	if m.store == nil {
		shape.Baked = shape.ComputeBake()
		return false, nil
	}

	data, err := m.store.Get(ctx, key)
	switch {
	case err == nil:
		err = serialization.LoadBakedFile(shape, hash, bytes.NewReader(data))
		if err == nil {
			metrics.BakeCache.WithLabelValues("hit").Inc()
			return true, nil
		}
		if errors.Is(err, serialization.ErrHashMismatch) {
			metrics.BakeCache.WithLabelValues("mismatch").Inc()
			log.Debug("Запечённый файл %q устарел: %v", key, err)
		} else {
			metrics.BakeCache.WithLabelValues("error").Inc()
			log.Warn("Запечённый файл %q повреждён, пересчёт: %v", key, err)
		}
	case errors.Is(err, ErrNotFound):
		metrics.BakeCache.WithLabelValues("miss").Inc()
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		metrics.BakeCache.WithLabelValues("error").Inc()
		log.Warn("Ошибка чтения кеша для %q: %v", key, err)
	}

	shape.Baked = nil
	var buf bytes.Buffer
	if err := serialization.SaveBakedFile(shape, hash, &buf); err != nil {
		return false, fmt.Errorf("bake %q: %w", key, err)
	}
	metrics.BakeCache.WithLabelValues("rebake").Inc()

	if err := m.store.Put(ctx, key, buf.Bytes()); err != nil {
		log.Warn("Не удалось сохранить запечённый файл %q: %v", key, err)
	}
	return false, nil
}

// Invalidate удаляет запечённый файл формы
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, key)
}

// BakeAll запекает набор форм параллельно, не более workers одновременно.
// Возвращает количество попаданий в кеш и первую ошибку.
func (m *Manager) BakeAll(ctx context.Context, shapes map[string]*voxel.Shape, workers int) (int, error) {
	if workers <= 0 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		hits     int
		firstErr error
		sem      = make(chan struct{}, workers)
	)

	for key, shape := range shapes {
		select {
		case <-ctx.Done():
			wg.Wait()
			return hits, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(key string, shape *voxel.Shape) {
			defer wg.Done()
			defer func() { <-sem }()

			hit, err := m.Bake(ctx, key, shape)

			mu.Lock()
			defer mu.Unlock()
			if hit {
				hits++
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(key, shape)
	}

	wg.Wait()
	return hits, firstErr
}
