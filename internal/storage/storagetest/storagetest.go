// Package storagetest содержит общий набор проверок для реализаций
// storage.ReplicaStore.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/storage"
	"github.com/iudanet/deltasync/internal/vclock"
)

// SampleSnapshot возвращает снимок с состоянием, журналом и часами
func SampleSnapshot() *storage.Snapshot {
	return &storage.Snapshot{
		Type:  "gset",
		State: json.RawMessage(`["a","b"]`),
		Clock: vclock.Clock{"r1": 2},
		Deltas: []models.DeltaRecord{
			{
				PreviousClock: vclock.Clock{},
				AuthorClock:   vclock.Clock{"r1": 1},
				Name:          "doc",
				Type:          "gset",
				Delta:         json.RawMessage(`["a"]`),
			},
			{
				PreviousClock: vclock.Clock{"r1": 1},
				AuthorClock:   vclock.Clock{"r1": 1},
				Name:          "doc",
				Type:          "gset",
				Delta:         json.RawMessage(`["b"]`),
			},
		},
	}
}

// Run прогоняет проверки контракта ReplicaStore
func Run(t *testing.T, store storage.ReplicaStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		snapshot := SampleSnapshot()
		require.NoError(t, store.Save(ctx, "doc", snapshot))

		loaded, err := store.Load(ctx, "doc")
		require.NoError(t, err)

		assert.Equal(t, snapshot.Type, loaded.Type)
		assert.JSONEq(t, string(snapshot.State), string(loaded.State))
		assert.Equal(t, snapshot.Clock, loaded.Clock)
		require.Len(t, loaded.Deltas, 2)
		assert.Equal(t, vclock.Clock{"r1": 1}, loaded.Deltas[1].PreviousClock)
		assert.Equal(t, "doc", loaded.Deltas[1].Name)
		assert.JSONEq(t, `["b"]`, string(loaded.Deltas[1].Delta.(json.RawMessage)))
	})

	t.Run("save replaces", func(t *testing.T) {
		snapshot := SampleSnapshot()
		snapshot.Clock = vclock.Clock{"r1": 5}
		snapshot.Deltas = nil
		require.NoError(t, store.Save(ctx, "doc", snapshot))

		loaded, err := store.Load(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, vclock.Clock{"r1": 5}, loaded.Clock)
		assert.Empty(t, loaded.Deltas)
	})

	t.Run("keys and delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "doc/sub", SampleSnapshot()))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"doc", "doc/sub"}, keys)

		require.NoError(t, store.Delete(ctx, "doc/sub"))
		require.NoError(t, store.Delete(ctx, "never-saved"))

		_, err = store.Load(ctx, "doc/sub")
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	})
}
