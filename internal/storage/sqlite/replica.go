package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/deltasync/internal/storage"
)

// Load retrieves a replica snapshot by key
func (s *Storage) Load(ctx context.Context, key string) (*storage.Snapshot, error) {
	query := `SELECT payload FROM replica_snapshots WHERE state_key = ?`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSnapshotNotFound
		}
		if errors.Is(err, sql.ErrConnDone) {
			return nil, storage.ErrStorageClosed
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snapshot, err := s.codec.Decode(key, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %q: %w", key, err)
	}
	return snapshot, nil
}

// Save stores or replaces a replica snapshot
func (s *Storage) Save(ctx context.Context, key string, snapshot *storage.Snapshot) error {
	payload, err := s.codec.Encode(key, snapshot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO replica_snapshots (state_key, type, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET
			type = excluded.type,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, snapshot.Type, payload, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Delete removes a replica snapshot
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM replica_snapshots WHERE state_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Keys returns all stored snapshot keys in ascending order
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_key FROM replica_snapshots ORDER BY state_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}
