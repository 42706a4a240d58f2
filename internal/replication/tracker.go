// Package replication отслеживает прогресс репликации с пирами.
// Трекер только наблюдает за часами и не изменяет реплицируемое состояние.
package replication

import (
	"log/slog"
	"sync"

	"github.com/iudanet/deltasync/internal/vclock"
)

// EventKind тип события прогресса
type EventKind string

// События прогресса репликации
const (
	EventReceiving   EventKind = "receiving"
	EventReceived    EventKind = "received"
	EventReplicating EventKind = "replicating"
	EventPinning     EventKind = "pinning"
	EventReplicated  EventKind = "replicated"
	EventPinned      EventKind = "pinned"
)

// Event событие прогресса для пира
type Event struct {
	Clock  vclock.Clock
	PeerID string
	Kind   EventKind
}

// ClockSource источник авторитетных часов узла
type ClockSource interface {
	GetFor(id string) vclock.Clock
}

// Tracker преобразует обмен часами с пирами в события без повторов
type Tracker struct {
	clocks     ClockSource
	logger     *slog.Logger
	selfClock  vclock.Clock
	sentClocks map[string]vclock.Clock
	observers  []func(Event)
	selfID     string
	mu         sync.Mutex
}

// NewTracker создает трекер для узла selfID
func NewTracker(selfID string, clocks ClockSource, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		selfID:     selfID,
		clocks:     clocks,
		logger:     logger,
		selfClock:  vclock.New(),
		sentClocks: make(map[string]vclock.Clock),
	}
}

// Subscribe регистрирует получателя событий.
// Регистрировать следует до начала репликации.
func (t *Tracker) Subscribe(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.observers = append(t.observers, fn)
}

// SelfClock возвращает объединенные часы, полученные от всех пиров
func (t *Tracker) SelfClock() vclock.Clock {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.selfClock.Copy()
}

// Receiving отмечает начало приема данных от пира с часами clock
func (t *Tracker) Receiving(peerID string, clock vclock.Clock) {
	if peerID == t.selfID {
		return
	}

	t.mu.Lock()
	emit := t.isNewLocked(clock)
	t.mu.Unlock()

	if emit {
		t.emit(Event{Kind: EventReceiving, PeerID: peerID, Clock: clock.Copy()})
	}
}

// Received отмечает получение данных от пира и сливает clock в собственные часы
func (t *Tracker) Received(peerID string, clock vclock.Clock) {
	if peerID == t.selfID {
		return
	}

	t.mu.Lock()
	if vclock.IsIdentical(t.selfClock, clock) {
		t.mu.Unlock()
		return
	}
	emit := t.isNewLocked(clock)
	t.selfClock = vclock.Merge(t.selfClock, clock)
	t.mu.Unlock()

	if emit {
		t.emit(Event{Kind: EventReceived, PeerID: peerID, Clock: clock.Copy()})
	}
}

// isNewLocked проверяет, что clock не устарел относительно selfClock.
// Несравнимые часы считаются новыми.
func (t *Tracker) isNewLocked(clock vclock.Clock) bool {
	if vclock.IsIdentical(t.selfClock, clock) {
		return false
	}
	return vclock.Compare(t.selfClock, clock) != vclock.Greater
}

// Sending отмечает начало отправки данных пиру. Событие без дедупликации.
func (t *Tracker) Sending(peerID string, clock vclock.Clock, isPinner bool) {
	if peerID == t.selfID {
		return
	}

	kind := EventReplicating
	if isPinner {
		kind = EventPinning
	}
	t.emit(Event{Kind: kind, PeerID: peerID, Clock: clock.Copy()})
}

// Sent отмечает завершение отправки пиру часов clock.
// Повтор последних отправленных часов игнорируется. Событие возникает,
// только если собственные часы узла не опережают отправленные.
func (t *Tracker) Sent(peerID string, clock vclock.Clock, isPinner bool) {
	if peerID == t.selfID {
		return
	}

	t.mu.Lock()
	if vclock.IsIdentical(t.sentClocks[peerID], clock) {
		t.mu.Unlock()
		return
	}

	own := t.clocks.GetFor(t.selfID)
	emit := vclock.LessOrEqual(own, clock)
	t.sentClocks[peerID] = clock.Copy()
	t.mu.Unlock()

	if !emit {
		t.logger.Debug("Sent clock behind local clock", "peer_id", peerID, "clock", clock, "own", own)
		return
	}

	kind := EventReplicated
	if isPinner {
		kind = EventPinned
	}
	t.emit(Event{Kind: kind, PeerID: peerID, Clock: clock.Copy()})
}

func (t *Tracker) emit(e Event) {
	t.mu.Lock()
	observers := make([]func(Event), len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
}
