package replica

import (
	"github.com/iudanet/deltasync/internal/vclock"
)

// EventKind тип события реплики
type EventKind int

const (
	// EventDelta дельта слита в состояние
	EventDelta EventKind = iota
	// EventStateChanged состояние изменилось
	EventStateChanged
	// EventClockChanged часы реплики продвинулись
	EventClockChanged
	// EventSaved состояние сохранено в хранилище
	EventSaved
)

// String возвращает имя события
func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventStateChanged:
		return "state changed"
	case EventClockChanged:
		return "clock changed"
	case EventSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Event уведомление наблюдателю.
// Заполняются только поля, относящиеся к Kind.
type Event struct {
	Delta    any          // EventDelta: слитая дельта
	Clock    vclock.Clock // EventClockChanged: новые часы
	Name     string       // имя реплики-источника
	Kind     EventKind
	FromSelf bool // EventDelta, EventStateChanged: изменение локальное
}

// Observer получает события в порядке фиксации изменений.
// Вызывается синхронно; не должен синхронно изменять ту же реплику.
type Observer func(Event)

// Subscribe регистрирует наблюдателя и возвращает функцию отписки
func (s *State) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = o

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// unlockAndEmit освобождает мьютекс состояния и доставляет накопленные события.
// emitMu захватывается до освобождения mu, поэтому события разных операций
// доставляются в порядке их фиксации.
func (s *State) unlockAndEmit(events []Event) {
	if len(events) == 0 {
		s.mu.Unlock()
		return
	}

	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.RUnlock()

	for _, e := range events {
		for _, o := range observers {
			o(e)
		}
	}
}
