package bakecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// FileStore хранит каждый запечённый файл отдельным файлом в каталоге.
// Имя файла - xxhash ключа, поэтому ключом может быть любой путь.
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore создаёт каталог при необходимости
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (st *FileStore) filename(key string) string {
	return filepath.Join(st.basePath, strconv.FormatUint(xxhash.Sum64String(key), 16)+".baked")
}

func (st *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	data, err := os.ReadFile(st.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения запечённого файла: %w", err)
	}
	return data, nil
}

// Put пишет во временный файл и переименовывает его, чтобы читатель
// никогда не увидел наполовину записанный файл
func (st *FileStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	target := st.filename(key)
	tmp := target + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ошибка записи запечённого файла: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ошибка записи запечённого файла: %w", err)
	}
	return nil
}

func (st *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	err := os.Remove(st.filename(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Files возвращает количество запечённых файлов в каталоге
func (st *FileStore) Files() (int, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	n := 0
	err := filepath.WalkDir(st.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".baked" {
			n++
		}
		return nil
	})
	return n, err
}

func (st *FileStore) Close() error {
	return nil
}
