package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/storage"
	"github.com/iudanet/deltasync/internal/vclock"
)

// State контейнер состояния одной именованной реплики (корневой или вложенной):
// текущее состояние CRDT, журнал дельт и часы в общем реестре.
//
// Мутация, применение входящей дельты, запись в журнал и продвижение часов
// выполняются атомарно под мьютексом экземпляра. Разные экземпляры
// работают независимо.
type State struct {
	state      any
	valueCache any
	memoValue  any

	typ    *crdt.Type
	collab *Collaboration
	logger *slog.Logger

	observers map[uint64]Observer

	name string
	key  string

	deltas []models.DeltaRecord

	version      uint64
	memoVersion  uint64
	nextObserver uint64

	mu     sync.Mutex
	emitMu sync.Mutex
	obsMu  sync.RWMutex

	memoValid bool
}

func newState(c *Collaboration, name, key string, typ *crdt.Type) *State {
	s := &State{
		name:      name,
		key:       key,
		typ:       typ,
		collab:    c,
		state:     typ.Initial(),
		observers: make(map[uint64]Observer),
		logger:    c.env.opts.Logger.With("name", name),
	}
	s.resetValueCache()
	return s
}

// Name возвращает имя реплики
func (s *State) Name() string {
	return s.name
}

// TypeName возвращает имя CRDT типа реплики
func (s *State) TypeName() string {
	return s.typ.Name
}

func (s *State) replicaID() string {
	return s.collab.env.replicaID
}

func (s *State) opts() Options {
	return s.collab.env.opts
}

// Clock возвращает текущие часы реплики из общего реестра
func (s *State) Clock() vclock.Clock {
	return s.collab.env.clocks.GetFor(s.replicaID())
}

// Contains проверяет, что other не опережает часы реплики
func (s *State) Contains(other vclock.Clock) bool {
	return vclock.LessOrEqual(other, s.Clock())
}

// State возвращает текущее состояние CRDT. Значение нельзя изменять.
func (s *State) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Value возвращает пользовательскую проекцию состояния.
// Для типов с IncrementalValue значение поддерживается инкрементально,
// для остальных кэшируется до следующего изменения состояния.
func (s *State) Value() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.incremental() {
		return s.valueCache
	}
	if !s.memoValid || s.memoVersion != s.version {
		s.memoValue = s.typ.Value(s.state)
		s.memoVersion = s.version
		s.memoValid = true
	}
	return s.memoValue
}

func (s *State) incremental() bool {
	return s.typ.IncrementalValue != nil && !s.opts().ReplicateOnly
}

func (s *State) resetValueCache() {
	s.memoValid = false
	if s.incremental() {
		s.valueCache = s.typ.Value(s.state)
	}
}

// Mutate вызывает мутатор mutator с аргументами args и применяет полученную дельту.
// Корневая реплика назначает дельте причинный порядок и пишет ее в журнал;
// вложенная пересылает дельту корню и сразу сливает ее в свое состояние.
// Возвращает часы реплики после изменения.
func (s *State) Mutate(mutator string, args ...any) (vclock.Clock, error) {
	m, ok := s.typ.Mutator(mutator)
	if !ok {
		return nil, fmt.Errorf("%w: %q for type %q", ErrUnknownMutator, mutator, s.typ.Name)
	}
	if s.opts().ReplicateOnly {
		return nil, ErrReplicateOnly
	}

	s.mu.Lock()

	delta, err := m(s.replicaID(), s.state, args...)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("mutator %q failed: %w", mutator, err)
	}

	var (
		events   []Event
		newClock vclock.Clock
	)

	if s.collab.IsRoot() {
		previous := s.Clock()
		record := models.DeltaRecord{
			PreviousClock: previous,
			AuthorClock:   vclock.Increment(nil, s.replicaID()),
			Delta:         delta,
			Name:          s.name,
			Type:          s.typ.Name,
		}
		events, err = s.applyDelta(delta, true)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.pushDelta(record)
		newClock = s.collab.env.clocks.MergeFor(s.replicaID(), vclock.Increment(previous, s.replicaID()))
		events = append(events, Event{Kind: EventClockChanged, Name: s.name, Clock: newClock})
	} else {
		newClock = s.collab.root.shared.PushDeltaForSub(s.name, s.typ.Name, delta)
		events, err = s.applyDelta(delta, true)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	s.unlockAndEmit(events)
	return newClock, nil
}

// PushDeltaForSub принимает локальную дельту вложенной реплики name.
// Корень назначает ей причинный порядок и пишет в журнал, остальные
// реплики пересылают дельту вверх по дереву.
func (s *State) PushDeltaForSub(name, typeName string, delta any) vclock.Clock {
	if !s.collab.IsRoot() {
		return s.collab.parent.shared.PushDeltaForSub(name, typeName, delta)
	}

	s.mu.Lock()

	previous := s.Clock()
	s.pushDelta(models.DeltaRecord{
		PreviousClock: previous,
		AuthorClock:   vclock.Increment(nil, s.replicaID()),
		Delta:         delta,
		Name:          name,
		Type:          typeName,
	})
	newClock := s.collab.env.clocks.MergeFor(s.replicaID(), vclock.Increment(previous, s.replicaID()))

	s.unlockAndEmit([]Event{{Kind: EventClockChanged, Name: s.name, Clock: newClock}})
	return newClock
}

// Apply применяет входящую запись журнала.
//
// Устаревшая запись не является ошибкой: возвращается accepted=false.
// force позволяет принять запись, не несущую новой информации, если
// итоговые часы совпадают с текущими (подтверждение при ресинхронизации).
// isPartial помечает запись из потока дельт; pinner такие записи не принимает.
// Любая запись проходит через корень: он пишет ее в журнал и направляет
// адресату, поэтому вызов на вложенной реплике равносилен вызову на корне.
func (s *State) Apply(ctx context.Context, record models.DeltaRecord, isPartial, force bool) (vclock.Clock, bool, error) {
	if !s.collab.IsRoot() {
		return s.collab.root.shared.Apply(ctx, record, isPartial, force)
	}
	if record.Name != s.name {
		return s.relay(ctx, record, isPartial, force)
	}
	return s.apply(record, isPartial, force)
}

// apply применяет запись, адресованную самой реплике
func (s *State) apply(record models.DeltaRecord, isPartial, force bool) (vclock.Clock, bool, error) {
	if record.Type != "" && record.Type != s.typ.Name {
		return nil, false, fmt.Errorf("%w: record type %q, replica type %q", crdt.ErrJoinIncompatible, record.Type, s.typ.Name)
	}

	delta, err := s.typ.DecodeValue(record.Delta)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode delta: %w", err)
	}

	s.mu.Lock()

	clock := s.Clock()
	deltaClock := record.Clock()

	var newClock vclock.Clock
	if s.opts().ReplicateOnly {
		newClock = deltaClock
	} else {
		newClock = vclock.Merge(clock, deltaClock)
	}

	interesting := record.IsInteresting(clock, "")
	forced := false
	if !interesting && force {
		forced = vclock.IsIdentical(clock, newClock)
	}
	if !interesting && !forced {
		s.mu.Unlock()
		s.logger.Debug("Rejected stale delta", "clock", clock, "delta_clock", deltaClock)
		return nil, false, nil
	}

	if s.opts().ReplicateOnly && (isPartial || !record.IsFull()) {
		s.mu.Unlock()
		s.logger.Debug("Pinner rejected partial delta", "delta_clock", deltaClock)
		return nil, false, nil
	}

	// Повторное подтверждение не несет новой информации и в журнал не пишется
	if s.collab.IsRoot() && interesting {
		logged := record.Clone()
		logged.Delta = delta
		logged.Type = s.typ.Name
		s.pushDelta(logged)
	}

	events, err := s.applyDelta(delta, false)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}

	merged := s.collab.env.clocks.MergeFor(s.replicaID(), newClock)
	events = append(events, Event{Kind: EventClockChanged, Name: s.name, Clock: merged})

	s.unlockAndEmit(events)
	return newClock, true, nil
}

// relay пишет в журнал корня запись вложенной реплики и применяет ее к адресату
func (s *State) relay(ctx context.Context, record models.DeltaRecord, isPartial, force bool) (vclock.Clock, bool, error) {
	if record.Type == "" {
		return nil, false, fmt.Errorf("%w: %q has no type", ErrUnknownSubCollaboration, record.Name)
	}

	sub, err := s.collab.Sub(ctx, record.Name, record.Type)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q: %w", ErrUnknownSubCollaboration, record.Name, err)
	}

	delta, err := sub.shared.typ.DecodeValue(record.Delta)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode delta for %q: %w", record.Name, err)
	}
	record = record.Clone()
	record.Delta = delta

	// Часы общие для всего дерева, поэтому интерес записи можно проверить до журнала
	if record.IsInteresting(s.Clock(), "") && !(s.opts().ReplicateOnly && (isPartial || !record.IsFull())) {
		s.mu.Lock()
		s.pushDelta(record)
		s.mu.Unlock()
	}

	return sub.shared.apply(record, isPartial, force)
}

// pushDelta добавляет запись в журнал, вытесняя самые старые сверх лимита.
// Вызывается под s.mu.
func (s *State) pushDelta(record models.DeltaRecord) {
	limit := s.opts().MaxDeltaRetention
	s.deltas = append(s.deltas, record)
	if len(s.deltas) > limit {
		trimmed := make([]models.DeltaRecord, limit)
		copy(trimmed, s.deltas[len(s.deltas)-limit:])
		s.deltas = trimmed
	}
}

// applyDelta сливает дельту в состояние. Вызывается под s.mu.
// В режиме pinner состояние заменяется целиком.
func (s *State) applyDelta(delta any, fromSelf bool) ([]Event, error) {
	if s.opts().ReplicateOnly {
		s.state = delta
		s.version++
		return []Event{{Kind: EventStateChanged, Name: s.name, FromSelf: fromSelf}}, nil
	}

	newState, err := s.typ.Join(s.state, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to join delta into %q: %w", s.name, err)
	}
	if s.incremental() {
		s.valueCache = s.typ.IncrementalValue(s.state, newState, delta, s.valueCache)
	}
	s.state = newState
	s.version++

	return []Event{
		{Kind: EventDelta, Name: s.name, Delta: delta, FromSelf: fromSelf},
		{Kind: EventStateChanged, Name: s.name, FromSelf: fromSelf},
	}, nil
}

// Snapshot возвращает все состояние реплики одной полной записью:
// пустые previousClock и authorClock равные текущим часам
func (s *State) Snapshot() models.DeltaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.DeltaRecord{
		PreviousClock: vclock.New(),
		AuthorClock:   s.Clock(),
		Delta:         s.state,
		Name:          s.name,
		Type:          s.typ.Name,
	}
}

// Deltas возвращает записи журнала, интересные относительно since.
// Курсор since продвигается по мере отбора, поэтому записи,
// уже покрытые ранее отобранными, пропускаются.
func (s *State) Deltas(since vclock.Clock) []models.DeltaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deltasLocked(since)
}

func (s *State) deltasLocked(since vclock.Clock) []models.DeltaRecord {
	cursor := since.Copy()
	out := make([]models.DeltaRecord, 0, len(s.deltas))
	for _, record := range s.deltas {
		if record.IsInteresting(cursor, "") {
			cursor = vclock.Merge(cursor, record.Clock())
			out = append(out, record.Clone())
		}
	}
	return out
}

// DeltaCount возвращает текущий размер журнала
func (s *State) DeltaCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.deltas)
}

// HasCausalGap проверяет, что журнал не покрывает синхронизацию от since.
// Курсор продвигается только записями, чей previousClock уже покрыт:
// иначе получатель объявил бы часы, событий которых у него нет.
// Разрыв есть, если после прохода по журналу курсор не догнал часы реплики.
func (s *State) HasCausalGap(since vclock.Clock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	clock := s.Clock()
	if vclock.LessOrEqual(clock, since) {
		return false
	}

	cursor := since.Copy()
	for _, record := range s.deltas {
		if !record.IsInteresting(cursor, "") {
			continue
		}
		if !vclock.LessOrEqual(record.PreviousClock, cursor) {
			return true
		}
		cursor = vclock.Merge(cursor, record.Clock())
	}
	return !vclock.LessOrEqual(clock, cursor)
}

// Save сохраняет состояние, журнал и часы в хранилище
func (s *State) Save(ctx context.Context) error {
	store := s.collab.env.store
	if store == nil {
		return nil
	}

	s.mu.Lock()
	raw, err := json.Marshal(s.state)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to marshal state of %q: %w", s.name, err)
	}
	snapshot := &storage.Snapshot{
		State:  raw,
		Clock:  s.Clock(),
		Type:   s.typ.Name,
		Deltas: make([]models.DeltaRecord, len(s.deltas)),
	}
	copy(snapshot.Deltas, s.deltas)
	s.mu.Unlock()

	if err := store.Save(ctx, s.key, snapshot); err != nil {
		return fmt.Errorf("failed to save %q: %w", s.name, err)
	}

	s.mu.Lock()
	s.unlockAndEmit([]Event{{Kind: EventSaved, Name: s.name}})
	return nil
}

// load восстанавливает состояние из хранилища. Отсутствие снимка не ошибка.
func (s *State) load(ctx context.Context) error {
	store := s.collab.env.store
	if store == nil {
		return nil
	}

	snapshot, err := store.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load %q: %w", s.name, err)
	}

	if snapshot.Type != "" && snapshot.Type != s.typ.Name {
		return fmt.Errorf("%w: stored type %q, replica type %q", crdt.ErrJoinIncompatible, snapshot.Type, s.typ.Name)
	}

	state, err := s.typ.Decode(snapshot.State)
	if err != nil {
		return fmt.Errorf("failed to decode state of %q: %w", s.name, err)
	}

	deltas := make([]models.DeltaRecord, 0, len(snapshot.Deltas))
	for _, record := range snapshot.Deltas {
		typ, err := s.collab.env.types.Get(record.Type)
		if err != nil {
			return fmt.Errorf("failed to restore delta log of %q: %w", s.name, err)
		}
		delta, err := typ.DecodeValue(record.Delta)
		if err != nil {
			return fmt.Errorf("failed to decode logged delta of %q: %w", s.name, err)
		}
		record.Delta = delta
		deltas = append(deltas, record)
	}

	s.mu.Lock()
	s.state = state
	s.deltas = deltas
	s.version++
	s.resetValueCache()
	s.mu.Unlock()

	if snapshot.Clock != nil {
		s.collab.env.clocks.MergeFor(s.replicaID(), snapshot.Clock)
	}

	s.logger.Debug("Loaded replica state", "deltas", len(deltas), "clock", snapshot.Clock)
	return nil
}
