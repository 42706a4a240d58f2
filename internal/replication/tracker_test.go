package replication

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/vclock"
)

type recorder struct {
	events []Event
	mu     sync.Mutex
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestTracker(t *testing.T) (*Tracker, *replica.ClockRegistry, *recorder) {
	t.Helper()

	clocks := replica.NewClockRegistry()
	tracker := NewTracker("self", clocks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &recorder{}
	tracker.Subscribe(rec.record)
	return tracker, clocks, rec
}

func TestTracker_Receiving(t *testing.T) {
	tests := []struct {
		self     vclock.Clock
		clock    vclock.Clock
		name     string
		peerID   string
		expected []EventKind
	}{
		{name: "ahead", self: vclock.Clock{"a": 1}, clock: vclock.Clock{"a": 2}, peerID: "p", expected: []EventKind{EventReceiving}},
		{name: "concurrent", self: vclock.Clock{"a": 1}, clock: vclock.Clock{"b": 1}, peerID: "p", expected: []EventKind{EventReceiving}},
		{name: "identical", self: vclock.Clock{"a": 1}, clock: vclock.Clock{"a": 1}, peerID: "p", expected: []EventKind{}},
		{name: "behind", self: vclock.Clock{"a": 2}, clock: vclock.Clock{"a": 1}, peerID: "p", expected: []EventKind{}},
		{name: "self", self: vclock.Clock{}, clock: vclock.Clock{"a": 1}, peerID: "self", expected: []EventKind{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _, rec := newTestTracker(t)
			tracker.selfClock = tt.self

			tracker.Receiving(tt.peerID, tt.clock)
			assert.Equal(t, tt.expected, rec.kinds())
			assert.Equal(t, tt.self, tracker.SelfClock(), "receiving does not merge")
		})
	}
}

func TestTracker_Received(t *testing.T) {
	tracker, _, rec := newTestTracker(t)

	tracker.Received("p1", vclock.Clock{"a": 1})
	assert.Equal(t, vclock.Clock{"a": 1}, tracker.SelfClock())

	// Повтор тех же часов игнорируется
	tracker.Received("p2", vclock.Clock{"a": 1})

	// Несравнимые часы дают событие, устаревшие только сливаются
	tracker.Received("p2", vclock.Clock{"b": 1})
	tracker.Received("p3", vclock.Clock{"a": 1})

	require.Equal(t, []EventKind{EventReceived, EventReceived}, rec.kinds())
	assert.Equal(t, vclock.Clock{"a": 1, "b": 1}, tracker.SelfClock())

	tracker.Received("self", vclock.Clock{"z": 9})
	assert.Equal(t, vclock.Clock{"a": 1, "b": 1}, tracker.SelfClock())
	assert.Len(t, rec.kinds(), 2)
}

func TestTracker_Sending(t *testing.T) {
	tracker, _, rec := newTestTracker(t)

	tracker.Sending("p", vclock.Clock{"a": 1}, false)
	tracker.Sending("p", vclock.Clock{"a": 1}, false)
	tracker.Sending("pinner", vclock.Clock{"a": 1}, true)
	tracker.Sending("self", vclock.Clock{"a": 1}, false)

	assert.Equal(t, []EventKind{EventReplicating, EventReplicating, EventPinning}, rec.kinds())
}

func TestTracker_Sent(t *testing.T) {
	tracker, clocks, rec := newTestTracker(t)
	clocks.MergeFor("self", vclock.Clock{"self": 2})

	// Пустые часы совпадают с начальным значением и игнорируются
	tracker.Sent("p", vclock.Clock{}, false)
	assert.Empty(t, rec.kinds())

	tracker.Sent("p", vclock.Clock{"self": 2}, false)
	tracker.Sent("p", vclock.Clock{"self": 2}, false)
	assert.Equal(t, []EventKind{EventReplicated}, rec.kinds(), "identical sent clocks are deduplicated")

	// Отправленные часы отстают от собственных: без события, но запоминаются
	tracker.Sent("q", vclock.Clock{"self": 1}, true)
	assert.Equal(t, []EventKind{EventReplicated}, rec.kinds())
	assert.Equal(t, vclock.Clock{"self": 1}, tracker.sentClocks["q"])

	tracker.Sent("q", vclock.Clock{"self": 2, "other": 1}, true)
	assert.Equal(t, []EventKind{EventReplicated, EventPinned}, rec.kinds())

	tracker.Sent("self", vclock.Clock{"self": 5}, false)
	assert.Len(t, rec.kinds(), 2)
}

func TestTracker_EventPayload(t *testing.T) {
	tracker, _, rec := newTestTracker(t)

	clock := vclock.Clock{"a": 1}
	tracker.Receiving("p", clock)
	clock["a"] = 5

	require.Len(t, rec.events, 1)
	assert.Equal(t, "p", rec.events[0].PeerID)
	assert.Equal(t, vclock.Clock{"a": 1}, rec.events[0].Clock, "events carry a copy of the clock")
}
