package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/replication"
	"github.com/iudanet/deltasync/pkg/api"
)

func mutateVia(t *testing.T, h *CollabHandler, req api.MutateRequest) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.Mutate(w, newJSONRequest(t, http.MethodPost, "/api/v1/collab/doc/mutate", "doc", req))
	return w
}

func pullVia(t *testing.T, h *CollabHandler, req api.PullRequest) api.PullResponse {
	t.Helper()

	w := httptest.NewRecorder()
	h.Pull(w, newJSONRequest(t, http.MethodPost, "/api/v1/collab/doc/pull", "doc", req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeBody[api.PullResponse](t, w)
}

func pushVia(t *testing.T, h *CollabHandler, req api.PushRequest) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.Push(w, newJSONRequest(t, http.MethodPost, "/api/v1/collab/doc/push", "doc", req))
	return w
}

func valueVia(t *testing.T, h *CollabHandler, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.Value(w, newJSONRequest(t, http.MethodGet, target, "doc", nil))
	return w
}

func TestCollabHandler_Resolve(t *testing.T) {
	h := NewCollabHandler(setupTestLogger(), newTestNode(t, "node-a"))

	tests := []struct {
		name       string
		path       string
		peer       string
		tokenScope string
		wantStatus int
	}{
		{name: "no auth", path: "doc", wantStatus: http.StatusOK},
		{name: "token for this collaboration", path: "doc", peer: "node-b", tokenScope: "doc", wantStatus: http.StatusOK},
		{name: "token for another collaboration", path: "doc", peer: "node-b", tokenScope: "other", wantStatus: http.StatusForbidden},
		{name: "unknown collaboration", path: "missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newJSONRequest(t, http.MethodGet, "/api/v1/collab/"+tt.path+"/clock", tt.path, nil)
			if tt.peer != "" {
				req = withPeer(req, tt.peer, tt.tokenScope)
			}

			w := httptest.NewRecorder()
			h.Clock(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCollabHandler_MutateAndValue(t *testing.T) {
	h := NewCollabHandler(setupTestLogger(), newTestNode(t, "node-a"))

	w := mutateVia(t, h, api.MutateRequest{Mutator: "add", Args: []any{"x", "y"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, api.Clock{"node-a": 1}, decodeBody[api.MutateResponse](t, w).Clock)

	w = valueVia(t, h, "/api/v1/collab/doc/value")
	require.Equal(t, http.StatusOK, w.Code)
	value := decodeBody[api.ValueResponse](t, w)
	assert.Equal(t, []any{"x", "y"}, value.Value)
	assert.Equal(t, "gset", value.Type)
	assert.Equal(t, api.Clock{"node-a": 1}, value.Clock)

	w = mutateVia(t, h, api.MutateRequest{Sub: "hits", Type: "gcounter", Mutator: "inc", Args: []any{3}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, api.Clock{"node-a": 2}, decodeBody[api.MutateResponse](t, w).Clock,
		"sub mutations advance the shared clock")

	// тип существующей вложенной реплики можно не указывать
	w = mutateVia(t, h, api.MutateRequest{Sub: "hits", Mutator: "inc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = valueVia(t, h, "/api/v1/collab/doc/value?sub=hits")
	require.Equal(t, http.StatusOK, w.Code)
	value = decodeBody[api.ValueResponse](t, w)
	assert.Equal(t, float64(4), value.Value)
	assert.Equal(t, "hits", value.Name)

	w = valueVia(t, h, "/api/v1/collab/doc/value?sub=missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollabHandler_Mutate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        api.MutateRequest
		pinner     bool
		wantStatus int
	}{
		{name: "missing mutator", req: api.MutateRequest{}, wantStatus: http.StatusBadRequest},
		{name: "unknown mutator", req: api.MutateRequest{Mutator: "remove", Args: []any{"x"}}, wantStatus: http.StatusBadRequest},
		{name: "invalid argument", req: api.MutateRequest{Mutator: "add", Args: []any{42}}, wantStatus: http.StatusBadRequest},
		{name: "new sub without type", req: api.MutateRequest{Sub: "fresh", Mutator: "inc"}, wantStatus: http.StatusBadRequest},
		{name: "invalid sub name", req: api.MutateRequest{Sub: "a/b", Type: "gset", Mutator: "add"}, wantStatus: http.StatusBadRequest},
		{name: "unknown type", req: api.MutateRequest{Sub: "fresh", Type: "nope", Mutator: "add"}, wantStatus: http.StatusBadRequest},
		{name: "replicate only", req: api.MutateRequest{Mutator: "add", Args: []any{"x"}}, pinner: true, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t, "node-a", func(o *replica.Options) {
				o.ReplicateOnly = tt.pinner
			})
			h := NewCollabHandler(setupTestLogger(), n)

			w := mutateVia(t, h, tt.req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestCollabHandler_Mutate_SubTypeMismatch(t *testing.T) {
	h := NewCollabHandler(setupTestLogger(), newTestNode(t, "node-a"))

	w := mutateVia(t, h, api.MutateRequest{Sub: "hits", Type: "gcounter", Mutator: "inc"})
	require.Equal(t, http.StatusOK, w.Code)

	w = mutateVia(t, h, api.MutateRequest{Sub: "hits", Type: "gset", Mutator: "add", Args: []any{"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCollabHandler_PullPush_Converge(t *testing.T) {
	nodeA := newTestNode(t, "node-a")
	nodeB := newTestNode(t, "node-b")
	a := NewCollabHandler(setupTestLogger(), nodeA)
	b := NewCollabHandler(setupTestLogger(), nodeB)

	require.Equal(t, http.StatusOK, mutateVia(t, a, api.MutateRequest{Mutator: "add", Args: []any{"x"}}).Code)
	require.Equal(t, http.StatusOK, mutateVia(t, a, api.MutateRequest{Sub: "hits", Type: "gcounter", Mutator: "inc", Args: []any{2}}).Code)
	require.Equal(t, http.StatusOK, mutateVia(t, b, api.MutateRequest{Mutator: "add", Args: []any{"y"}}).Code)

	hostedB, _ := nodeB.Lookup("doc")
	var received []replication.Event
	hostedB.Tracker.Subscribe(func(e replication.Event) { received = append(received, e) })

	// B забирает изменения A и применяет их через push на себя
	pulled := pullVia(t, a, api.PullRequest{PeerID: "node-b", Since: api.Clock(hostedB.Collab.Shared().Clock())})
	assert.False(t, pulled.Snapshot)
	assert.Equal(t, "node-a", pulled.ReplicaID)
	assert.Equal(t, api.Clock{"node-a": 2}, pulled.Clock)
	require.NotEmpty(t, pulled.Records)

	w := pushVia(t, b, api.PushRequest{PeerID: "node-a", Clock: pulled.Clock, Records: pulled.Records})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pushed := decodeBody[api.PushResponse](t, w)
	assert.Equal(t, len(pulled.Records), pushed.Accepted)
	assert.Zero(t, pushed.Rejected)
	assert.Equal(t, api.Clock{"node-a": 2, "node-b": 1}, pushed.Clock)

	require.NotEmpty(t, received)
	assert.Equal(t, replication.EventReceived, received[len(received)-1].Kind)
	assert.Equal(t, "node-a", received[len(received)-1].PeerID)

	// повторная доставка не несет новой информации
	w = pushVia(t, b, api.PushRequest{PeerID: "node-a", Clock: pulled.Clock, Records: pulled.Records})
	require.Equal(t, http.StatusOK, w.Code)
	again := decodeBody[api.PushResponse](t, w)
	assert.Zero(t, again.Accepted)
	assert.Equal(t, len(pulled.Records), again.Rejected)

	w = valueVia(t, b, "/api/v1/collab/doc/value")
	assert.Equal(t, []any{"x", "y"}, decodeBody[api.ValueResponse](t, w).Value)
	w = valueVia(t, b, "/api/v1/collab/doc/value?sub=hits")
	require.Equal(t, http.StatusOK, w.Code, "relayed records create the sub-collaboration")
	assert.Equal(t, float64(2), decodeBody[api.ValueResponse](t, w).Value)
}

func TestCollabHandler_Pull_SnapshotOnCausalGap(t *testing.T) {
	n := newTestNode(t, "node-a", func(o *replica.Options) {
		o.MaxDeltaRetention = 1
	})
	h := NewCollabHandler(setupTestLogger(), n)

	for _, elem := range []string{"x", "y", "z"} {
		require.Equal(t, http.StatusOK, mutateVia(t, h, api.MutateRequest{Mutator: "add", Args: []any{elem}}).Code)
	}

	pulled := pullVia(t, h, api.PullRequest{PeerID: "node-b", Since: api.Clock{}})
	assert.True(t, pulled.Snapshot)
	require.Len(t, pulled.Records, 1)

	var record models.DeltaRecord
	require.NoError(t, json.Unmarshal(pulled.Records[0], &record))
	assert.True(t, record.IsFull())
	assert.Equal(t, "doc", record.Name)

	// от свежих часов журнал еще покрывает разницу
	pulled = pullVia(t, h, api.PullRequest{PeerID: "node-b", Since: api.Clock{"node-a": 2}})
	assert.False(t, pulled.Snapshot)
	assert.Len(t, pulled.Records, 1)
}

func TestCollabHandler_Pull_Pinner(t *testing.T) {
	n := newTestNode(t, "node-a")
	h := NewCollabHandler(setupTestLogger(), n)
	require.Equal(t, http.StatusOK, mutateVia(t, h, api.MutateRequest{Mutator: "add", Args: []any{"x"}}).Code)

	hosted, _ := n.Lookup("doc")
	var events []replication.Event
	hosted.Tracker.Subscribe(func(e replication.Event) { events = append(events, e) })

	pulled := pullVia(t, h, api.PullRequest{PeerID: "pinner", IsPinner: true})
	assert.True(t, pulled.Snapshot)
	assert.Len(t, pulled.Records, 1)

	require.NotEmpty(t, events)
	assert.Equal(t, replication.EventPinning, events[0].Kind)

	// pinner принимает снимок целиком
	pinner := NewCollabHandler(setupTestLogger(), newTestNode(t, "pinner", func(o *replica.Options) {
		o.ReplicateOnly = true
	}))
	w := pushVia(t, pinner, api.PushRequest{PeerID: "node-a", Clock: pulled.Clock, Records: pulled.Records, Snapshot: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decodeBody[api.PushResponse](t, w).Accepted)
}

func TestCollabHandler_Push_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        any
		tokenPeer  string
		wantStatus int
	}{
		{name: "invalid json", req: "nope", wantStatus: http.StatusBadRequest},
		{name: "missing peer", req: api.PushRequest{}, wantStatus: http.StatusBadRequest},
		{
			name:       "peer mismatch",
			req:        api.PushRequest{PeerID: "node-c"},
			tokenPeer:  "node-b",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "malformed record",
			req:        api.PushRequest{PeerID: "node-b", Records: []json.RawMessage{json.RawMessage(`{"a":1}`)}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "record of another type",
			req: api.PushRequest{PeerID: "node-b", Records: []json.RawMessage{
				json.RawMessage(`[{},{"node-b":1},["doc","gcounter",{"node-b":1}]]`),
			}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "sub record without type",
			req: api.PushRequest{PeerID: "node-b", Records: []json.RawMessage{
				json.RawMessage(`[{},{"node-b":1},["notes","",{}]]`),
			}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCollabHandler(setupTestLogger(), newTestNode(t, "node-a"))

			req := newJSONRequest(t, http.MethodPost, "/api/v1/collab/doc/push", "doc", tt.req)
			if tt.tokenPeer != "" {
				req = withPeer(req, tt.tokenPeer, "doc")
			}

			w := httptest.NewRecorder()
			h.Push(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestCollabHandler_Snapshot(t *testing.T) {
	n := newTestNode(t, "node-a")
	h := NewCollabHandler(setupTestLogger(), n)
	require.Equal(t, http.StatusOK, mutateVia(t, h, api.MutateRequest{Mutator: "add", Args: []any{"x"}}).Code)
	require.Equal(t, http.StatusOK, mutateVia(t, h, api.MutateRequest{Sub: "notes", Type: "lwwmap", Mutator: "set", Args: []any{"k", "v"}}).Code)

	w := httptest.NewRecorder()
	h.Snapshot(w, newJSONRequest(t, http.MethodGet, "/api/v1/collab/doc/snapshot", "doc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[api.SnapshotResponse](t, w)
	assert.Equal(t, api.Clock{"node-a": 2}, resp.Clock)
	require.Len(t, resp.Records, 2)

	var root models.DeltaRecord
	require.NoError(t, json.Unmarshal(resp.Records[0], &root))
	assert.Equal(t, "doc", root.Name, "root snapshot comes first")
}

var _ Host = (*node.Node)(nil)
