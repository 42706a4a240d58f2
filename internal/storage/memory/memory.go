// Package memory реализует storage.ReplicaStore в памяти процесса.
// Используется в тестах и для узлов без постоянного хранилища.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iudanet/deltasync/internal/storage"
)

// Storage хранит закодированные снимки в map
type Storage struct {
	data  map[string][]byte
	codec *storage.Codec
	mu    sync.RWMutex
}

// New создает хранилище в памяти без шифрования
func New() *Storage {
	codec, _ := storage.NewCodec(nil)
	return &Storage{
		data:  make(map[string][]byte),
		codec: codec,
	}
}

// Load возвращает снимок по ключу
func (s *Storage) Load(_ context.Context, key string) (*storage.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	// Декодируем каждый раз, чтобы вызывающий не разделял состояние с хранилищем
	return s.codec.Decode(key, data)
}

// Save сохраняет снимок
func (s *Storage) Save(_ context.Context, key string, snapshot *storage.Snapshot) error {
	data, err := s.codec.Encode(key, snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = data
	return nil
}

// Delete удаляет снимок
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Keys возвращает отсортированный список ключей
func (s *Storage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
