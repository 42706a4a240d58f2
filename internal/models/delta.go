package models

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/deltasync/internal/vclock"
)

// DeltaRecord представляет запись журнала дельт.
// Сетевой формат: упорядоченный массив
//
//	[previousClock, authorClock, [name, typeName, delta]]
type DeltaRecord struct {
	// PreviousClock причинный контекст до создания дельты
	PreviousClock vclock.Clock
	// AuthorClock приращение, принадлежащее автору дельты
	AuthorClock vclock.Clock
	// Delta непрозрачное значение дельты. После декодирования из JSON
	// содержит json.RawMessage до приведения к типу CRDT.
	Delta any
	// Name имя реплики (корневой или вложенной), к которой относится дельта
	Name string
	// Type имя CRDT типа
	Type string
}

// Clock возвращает итоговые часы дельты: previousClock + authorClock
func (r DeltaRecord) Clock() vclock.Clock {
	return vclock.Sum(r.PreviousClock, r.AuthorClock)
}

// IsFull возвращает true для полного снимка состояния (пустой previousClock)
func (r DeltaRecord) IsFull() bool {
	return r.PreviousClock.IsEmpty()
}

// IsInteresting проверяет, несет ли запись новую информацию относительно known
func (r DeltaRecord) IsInteresting(known vclock.Clock, targetID string) bool {
	return vclock.IsDeltaInteresting(r.PreviousClock, r.AuthorClock, known, targetID)
}

// Clone создает копию записи с независимыми часами.
// Значение дельты разделяется: оно неизменяемо после создания.
func (r DeltaRecord) Clone() DeltaRecord {
	return DeltaRecord{
		PreviousClock: r.PreviousClock.Copy(),
		AuthorClock:   r.AuthorClock.Copy(),
		Delta:         r.Delta,
		Name:          r.Name,
		Type:          r.Type,
	}
}

// MarshalJSON кодирует запись в формат кортежа
func (r DeltaRecord) MarshalJSON() ([]byte, error) {
	previous := r.PreviousClock
	if previous == nil {
		previous = vclock.Clock{}
	}
	author := r.AuthorClock
	if author == nil {
		author = vclock.Clock{}
	}

	return json.Marshal([]any{
		previous,
		author,
		[]any{r.Name, r.Type, r.Delta},
	})
}

// UnmarshalJSON декодирует запись из формата кортежа.
// Значение дельты остается json.RawMessage.
func (r *DeltaRecord) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("delta record must be an array: %w", err)
	}
	if len(tuple) != 3 {
		return fmt.Errorf("delta record must have 3 elements, got %d", len(tuple))
	}

	var previous, author vclock.Clock
	if err := json.Unmarshal(tuple[0], &previous); err != nil {
		return fmt.Errorf("failed to decode previous clock: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &author); err != nil {
		return fmt.Errorf("failed to decode author clock: %w", err)
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(tuple[2], &payload); err != nil {
		return fmt.Errorf("delta payload must be an array: %w", err)
	}
	if len(payload) != 3 {
		return fmt.Errorf("delta payload must have 3 elements, got %d", len(payload))
	}

	var name, typeName string
	if err := json.Unmarshal(payload[0], &name); err != nil {
		return fmt.Errorf("failed to decode target name: %w", err)
	}
	if err := json.Unmarshal(payload[1], &typeName); err != nil {
		return fmt.Errorf("failed to decode type name: %w", err)
	}

	if previous == nil {
		previous = vclock.Clock{}
	}
	if author == nil {
		author = vclock.Clock{}
	}

	*r = DeltaRecord{
		PreviousClock: previous,
		AuthorClock:   author,
		Delta:         payload[2],
		Name:          name,
		Type:          typeName,
	}
	return nil
}

// EncodeRecords кодирует записи в кортежи для передачи по сети
func EncodeRecords(records []DeltaRecord) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %q: %w", record.Name, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// DecodeRecords разбирает кортежи, полученные по сети
func DecodeRecords(raw []json.RawMessage) ([]DeltaRecord, error) {
	out := make([]DeltaRecord, 0, len(raw))
	for i, data := range raw {
		var record DeltaRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("invalid record %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}
