package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/storage/memory"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestNode создает узел с открытой коллаборацией "doc" типа gset
func newTestNode(t *testing.T, replicaID string, configure ...func(*replica.Options)) *node.Node {
	t.Helper()

	opts := replica.DefaultOptions()
	opts.Logger = setupTestLogger()
	for _, fn := range configure {
		fn(&opts)
	}

	n, err := node.New(node.Config{
		Store:     memory.New(),
		ReplicaID: replicaID,
		Options:   opts,
	})
	require.NoError(t, err)

	_, err = n.Open(context.Background(), "doc", crdt.GSetTypeName)
	require.NoError(t, err)
	return n
}

// newJSONRequest создает запрос с JSON телом и параметром пути name
func newJSONRequest(t *testing.T, method, target, name string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("name", name)
	return req
}

// withPeer добавляет в контекст данные токена, как это делает AuthMiddleware
func withPeer(req *http.Request, peerID, collaboration string) *http.Request {
	ctx := context.WithValue(req.Context(), PeerIDKey, peerID)
	ctx = context.WithValue(ctx, CollaborationKey, collaboration)
	return req.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}
