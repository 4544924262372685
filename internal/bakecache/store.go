package bakecache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-core/internal/config"
)

// ErrNotFound - запечённого файла для ключа нет в хранилище
var ErrNotFound = errors.New("bakecache: not found")

// Store хранит запечённые файлы по ключу формы.
// Значение - байты, записанные serialization.SaveBakedFile; хранилище их не разбирает.
type Store interface {
	// Get возвращает ErrNotFound, если ключа нет
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open создаёт хранилище по конфигурации: "badger", "redis", "file", "memory" или "none".
// Для "none" возвращается nil без ошибки: кеш отключён.
func Open(cfg config.BakeConfig) (Store, error) {
	switch cfg.Backend {
	case "badger":
		store, err := NewBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := NewRedisStore(cfg.GetRedisURL(), cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file":
		store, err := NewFileStore(cfg.FileDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("bakecache: unknown backend %q", cfg.Backend)
	}
}

// MemoryStore реализует Store в памяти.
// Используется в тестах и как fallback, когда внешнее хранилище недоступно.
// Данные теряются при перезапуске!
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore создаёт пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Len возвращает количество записей (для тестов)
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryStore) Close() error {
	return nil
}
