package sync

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/deltasync/internal/client/api"
	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/server"
	"github.com/iudanet/deltasync/internal/server/handlers"
	"github.com/iudanet/deltasync/internal/storage/memory"
	"github.com/iudanet/deltasync/pkg/api"
)

const testSecret = "collaboration-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNode(t *testing.T, replicaID string, configure ...func(*replica.Options)) *node.Node {
	t.Helper()

	opts := replica.DefaultOptions()
	opts.Logger = testLogger()
	for _, fn := range configure {
		fn(&opts)
	}

	n, err := node.New(node.Config{Store: memory.New(), ReplicaID: replicaID, Options: opts})
	require.NoError(t, err)
	_, err = n.Open(context.Background(), "doc", crdt.GSetTypeName)
	require.NoError(t, err)
	return n
}

// startPeer поднимает HTTP сервер узла n
func startPeer(t *testing.T, n *node.Node, withAuth bool) *httptest.Server {
	t.Helper()

	cfg := server.Config{Version: "test"}
	if withAuth {
		keys, err := handlers.NewStaticKeys(testSecret, "doc")
		require.NoError(t, err)
		cfg.Keys = keys
		cfg.JWT = handlers.JWTConfig{Secret: []byte("jwt-secret"), TokenTTL: time.Minute}
	}

	ts := httptest.NewServer(server.New(cfg, n, nil, testLogger()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func mutate(t *testing.T, n *node.Node, elems ...any) {
	t.Helper()

	hosted, ok := n.Lookup("doc")
	require.True(t, ok)
	_, err := hosted.Collab.Shared().Mutate("add", elems...)
	require.NoError(t, err)
}

func value(t *testing.T, n *node.Node) any {
	t.Helper()

	hosted, ok := n.Lookup("doc")
	require.True(t, ok)
	return hosted.Collab.Shared().Value()
}

func newRecorder() *RecorderMock {
	return &RecorderMock{SyncRoundFunc: func(direction, result string, records int) {}}
}

// rounds возвращает отсортированные пары direction:result
func rounds(r *RecorderMock) []string {
	calls := r.SyncRoundCalls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Direction+":"+c.Result)
	}
	sort.Strings(out)
	return out
}

func TestNewService_RequiresHost(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestService_SyncPeer_Converges(t *testing.T) {
	remote := newTestNode(t, "node-a")
	local := newTestNode(t, "node-b")
	ts := startPeer(t, remote, false)

	mutate(t, remote, "a")
	mutate(t, local, "b")

	recorder := newRecorder()
	svc, err := NewService(Config{
		Host:     local,
		Logger:   testLogger(),
		Recorder: recorder,
		Peers:    []string{ts.URL},
	})
	require.NoError(t, err)

	result, err := svc.SyncPeer(context.Background(), ts.URL, "doc")
	require.NoError(t, err)

	assert.Equal(t, "node-a", result.PeerReplicaID)
	assert.Equal(t, 1, result.Pulled)
	assert.Equal(t, 1, result.Accepted)
	assert.False(t, result.Snapshot)
	assert.Positive(t, result.Pushed)
	assert.Positive(t, result.PushAccepted)

	assert.Equal(t, []string{"a", "b"}, value(t, local))
	assert.Equal(t, []string{"a", "b"}, value(t, remote))
	assert.Equal(t, []string{"pull:ok", "push:ok"}, rounds(recorder))

	// второй раунд ничего не передает
	again, err := svc.SyncPeer(context.Background(), ts.URL, "doc")
	require.NoError(t, err)
	assert.Zero(t, again.Pulled)
	assert.Zero(t, again.Accepted)
	assert.Zero(t, again.Pushed)
}

func TestService_SyncPeer_Errors(t *testing.T) {
	local := newTestNode(t, "node-b")
	svc, err := NewService(Config{Host: local, Logger: testLogger(), Peers: []string{"http://peer"}})
	require.NoError(t, err)

	_, err = svc.SyncPeer(context.Background(), "http://peer", "missing")
	assert.ErrorIs(t, err, ErrUnknownCollaboration)

	_, err = svc.SyncPeer(context.Background(), "http://other", "doc")
	assert.Error(t, err)
}

func TestService_SyncPeer_Auth(t *testing.T) {
	remote := newTestNode(t, "node-a")
	mutate(t, remote, "a")
	ts := startPeer(t, remote, true)

	t.Run("without credentials", func(t *testing.T) {
		recorder := newRecorder()
		svc, err := NewService(Config{
			Host:     newTestNode(t, "node-b"),
			Logger:   testLogger(),
			Recorder: recorder,
			Peers:    []string{ts.URL},
		})
		require.NoError(t, err)

		_, err = svc.SyncPeer(context.Background(), ts.URL, "doc")
		require.Error(t, err)
		assert.True(t, httpClient.IsUnauthorized(err))
		assert.Equal(t, []string{"pull:error"}, rounds(recorder))
	})

	t.Run("wrong secret", func(t *testing.T) {
		creds, err := SecretCredentials("another-secret", "doc")
		require.NoError(t, err)

		svc, err := NewService(Config{
			Host:        newTestNode(t, "node-b"),
			Credentials: creds,
			Logger:      testLogger(),
			Peers:       []string{ts.URL},
		})
		require.NoError(t, err)

		_, err = svc.SyncPeer(context.Background(), ts.URL, "doc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to authenticate")
	})

	t.Run("valid secret", func(t *testing.T) {
		creds, err := SecretCredentials(testSecret, "doc")
		require.NoError(t, err)

		local := newTestNode(t, "node-b")
		mutate(t, local, "b")

		svc, err := NewService(Config{
			Host:        local,
			Credentials: creds,
			Logger:      testLogger(),
			Peers:       []string{ts.URL},
		})
		require.NoError(t, err)

		_, err = svc.SyncPeer(context.Background(), ts.URL, "doc")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, value(t, local))
		assert.Equal(t, []string{"a", "b"}, value(t, remote))
	})
}

func TestService_SyncPeer_SnapshotOnCausalGap(t *testing.T) {
	remote := newTestNode(t, "node-a", func(o *replica.Options) {
		o.MaxDeltaRetention = 1
	})
	for _, elem := range []string{"x", "y", "z"} {
		mutate(t, remote, elem)
	}
	ts := startPeer(t, remote, false)

	local := newTestNode(t, "node-b")
	recorder := newRecorder()
	svc, err := NewService(Config{Host: local, Logger: testLogger(), Recorder: recorder, Peers: []string{ts.URL}})
	require.NoError(t, err)

	result, err := svc.SyncPeer(context.Background(), ts.URL, "doc")
	require.NoError(t, err)
	assert.True(t, result.Snapshot)
	assert.Zero(t, result.Pushed)
	assert.Equal(t, []string{"x", "y", "z"}, value(t, local))
	assert.Equal(t, []string{"pull:snapshot"}, rounds(recorder))
}

func TestService_SyncPeer_Pinner(t *testing.T) {
	remote := newTestNode(t, "node-a")
	mutate(t, remote, "x")
	ts := startPeer(t, remote, false)

	pinner := newTestNode(t, "pinner", func(o *replica.Options) {
		o.ReplicateOnly = true
	})
	svc, err := NewService(Config{Host: pinner, Logger: testLogger(), Peers: []string{ts.URL}, IsPinner: true})
	require.NoError(t, err)

	result, err := svc.SyncPeer(context.Background(), ts.URL, "doc")
	require.NoError(t, err)
	assert.True(t, result.Snapshot)
	assert.Equal(t, 1, result.Accepted)
	assert.Zero(t, result.Pushed, "pinner never pushes")
	assert.Equal(t, []string{"x"}, value(t, pinner))
}

func TestService_SyncAll(t *testing.T) {
	first := newTestNode(t, "node-a")
	second := newTestNode(t, "node-c")
	mutate(t, first, "a")
	mutate(t, second, "c")

	tsFirst := startPeer(t, first, false)
	tsSecond := startPeer(t, second, false)
	broken := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(broken.Close)

	local := newTestNode(t, "node-b")
	svc, err := NewService(Config{
		Host:   local,
		Logger: testLogger(),
		Peers:  []string{tsFirst.URL, tsSecond.URL, broken.URL},
	})
	require.NoError(t, err)

	results, err := svc.SyncAll(context.Background())
	require.Error(t, err, "broken peer should be reported")
	assert.Contains(t, err.Error(), broken.URL)
	assert.Len(t, results, 2)

	assert.Equal(t, []string{"a", "c"}, value(t, local))
}

func TestService_Run_StopsOnCancel(t *testing.T) {
	remote := newTestNode(t, "node-a")
	mutate(t, remote, "a")
	ts := startPeer(t, remote, false)

	local := newTestNode(t, "node-b")
	svc, err := NewService(Config{Host: local, Logger: testLogger(), Peers: []string{ts.URL}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, 10*time.Millisecond) }()

	remoteHosted, _ := remote.Lookup("doc")
	remoteClock := remoteHosted.Collab.Shared().Clock()
	localHosted, _ := local.Lookup("doc")

	assert.Eventually(t, func() bool {
		return localHosted.Collab.Shared().Contains(remoteClock)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestService_SyncPeer_RetriesOnceAfterUnauthorized(t *testing.T) {
	unauthorized := &httpClient.StatusError{Message: "invalid token", StatusCode: http.StatusUnauthorized}

	tests := []struct {
		name          string
		pullErrors    []error
		wantErr       bool
		wantPullCalls int
		wantTokens    int
	}{
		{name: "no auth needed", pullErrors: []error{nil}, wantPullCalls: 1, wantTokens: 0},
		{name: "token acquired", pullErrors: []error{unauthorized, nil}, wantPullCalls: 2, wantTokens: 1},
		{name: "still unauthorized", pullErrors: []error{unauthorized, unauthorized}, wantErr: true, wantPullCalls: 2, wantTokens: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &PeerAPIMock{
				BaseURLFunc: func() string { return "http://mock" },
				RequestTokenFunc: func(context.Context, api.TokenRequest) (*api.TokenResponse, error) {
					return &api.TokenResponse{AccessToken: "token", TokenType: "Bearer"}, nil
				},
				PushFunc: func(context.Context, string, api.PushRequest) (*api.PushResponse, error) {
					return &api.PushResponse{}, nil
				},
			}
			mock.PullFunc = func(context.Context, string, api.PullRequest) (*api.PullResponse, error) {
				err := tt.pullErrors[len(mock.PullCalls())-1]
				if err != nil {
					return nil, err
				}
				return &api.PullResponse{Clock: api.Clock{}, ReplicaID: "node-a"}, nil
			}

			svc, err := NewService(Config{
				Host:        newTestNode(t, "node-b"),
				Credentials: func(string) (string, error) { return "hash", nil },
				Logger:      testLogger(),
				Dial:        func(string) PeerAPI { return mock },
				Peers:       []string{"http://mock"},
			})
			require.NoError(t, err)

			_, err = svc.SyncPeer(context.Background(), "http://mock", "doc")
			if tt.wantErr {
				assert.True(t, httpClient.IsUnauthorized(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, mock.PullCalls(), tt.wantPullCalls)
			tokenCalls := mock.RequestTokenCalls()
			require.Len(t, tokenCalls, tt.wantTokens)
			if tt.wantTokens > 0 {
				assert.Equal(t, api.TokenRequest{PeerID: "node-b", Collaboration: "doc", AuthKeyHash: "hash"}, tokenCalls[0].Req)
			}
			assert.Empty(t, mock.PushCalls(), "peer clock is empty and so is ours")
		})
	}
}

func TestService_SyncAll_HostReportsMissingCollaboration(t *testing.T) {
	remote := newTestNode(t, "node-a")
	mutate(t, remote, "a")
	ts := startPeer(t, remote, false)

	local := newTestNode(t, "node-b")
	host := &HostMock{
		ReplicaIDFunc: func() string { return "node-b" },
		NamesFunc:     func() []string { return []string{"doc", "ghost"} },
		LookupFunc:    local.Lookup,
		RefreshFunc:   local.Refresh,
	}

	svc, err := NewService(Config{Host: host, Logger: testLogger(), Peers: []string{ts.URL}})
	require.NoError(t, err)

	results, err := svc.SyncAll(context.Background())
	require.ErrorIs(t, err, ErrUnknownCollaboration)
	assert.Contains(t, err.Error(), `"ghost"`)
	require.Len(t, results, 1)
	assert.Equal(t, "doc", results[0].Collaboration)

	assert.Len(t, host.RefreshCalls(), 1)
	assert.Equal(t, []string{"a"}, value(t, local))
}

var _ Host = (*node.Node)(nil)
