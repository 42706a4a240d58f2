package storage

import (
	"context"
	"encoding/json"

	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/vclock"
)

// Snapshot is the persisted form of one replica state:
// the CRDT state, the retained delta log and the vector clock.
type Snapshot struct {
	State  json.RawMessage      `json:"state"`
	Clock  vclock.Clock         `json:"clock"`
	Type   string               `json:"type"`
	Deltas []models.DeltaRecord `json:"deltas"`
}

//go:generate moq -out storage_mock.go . ReplicaStore

// ReplicaStore defines persistence for replica snapshots.
// Keys are opaque; replicas use "<collaboration>" for the root
// and "<collaboration>/<sub>" for sub-collaborations.
type ReplicaStore interface {
	// Load retrieves a snapshot by key
	// Returns ErrSnapshotNotFound if nothing was saved yet
	Load(ctx context.Context, key string) (*Snapshot, error)

	// Save stores or replaces the snapshot under key
	Save(ctx context.Context, key string, snapshot *Snapshot) error

	// Delete removes the snapshot under key (no error if absent)
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys in ascending order
	Keys(ctx context.Context) ([]string, error)
}
