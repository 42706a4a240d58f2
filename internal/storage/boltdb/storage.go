package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/deltasync/internal/storage"
)

var (
	// bucketSnapshots stores replica snapshots keyed by state key
	bucketSnapshots = []byte("snapshots")
)

// Storage represents BoltDB storage implementation for replica snapshots
type Storage struct {
	db    *bbolt.DB
	codec *storage.Codec
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
// encryptionKey enables at-rest encryption of snapshots when not nil
func New(ctx context.Context, dbPath string, encryptionKey []byte) (*Storage, error) {
	codec, err := storage.NewCodec(encryptionKey)
	if err != nil {
		return nil, err
	}

	// Открываем BoltDB; таймаут защищает от зависания на чужой блокировке файла
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db, codec: codec}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return fmt.Errorf("failed to create snapshots bucket: %w", err)
		}
		return nil
	})
}
