package replica

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = testLogger()
	return opts
}

func newTestCollab(t *testing.T, replicaID, typeName string, opts Options) *Collaboration {
	t.Helper()
	return newStoredCollab(t, replicaID, typeName, opts, nil)
}

func newStoredCollab(t *testing.T, replicaID, typeName string, opts Options, store storage.ReplicaStore) *Collaboration {
	t.Helper()

	c, err := New(Config{
		Name:      "doc",
		ReplicaID: replicaID,
		TypeName:  typeName,
		Store:     store,
		Options:   opts,
	})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func mustMutate(t *testing.T, s *State, mutator string, args ...any) {
	t.Helper()
	_, err := s.Mutate(mutator, args...)
	require.NoError(t, err)
}

// wire прогоняет записи через JSON, как при передаче по сети
func wire(t *testing.T, records []models.DeltaRecord) []models.DeltaRecord {
	t.Helper()

	data, err := json.Marshal(records)
	require.NoError(t, err)

	var out []models.DeltaRecord
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func applyAll(t *testing.T, c *Collaboration, records []models.DeltaRecord, snapshot bool) int {
	t.Helper()
	n, err := c.ApplyAll(context.Background(), records, snapshot)
	require.NoError(t, err)
	return n
}
