package crdt

import (
	"encoding/json"
	"fmt"
)

// LWWMapTypeName имя типа Last-Write-Wins словаря
const LWWMapTypeName = "lwwmap"

// LWWEntry представляет значение ключа в LWW словаре.
// Удаление хранится как tombstone (Deleted = true).
type LWWEntry struct {
	Value     string `json:"value,omitempty"` // Value текущее значение
	NodeID    string `json:"node_id"`         // NodeID автор этой версии
	Timestamp int64  `json:"timestamp"`       // Timestamp Lamport timestamp версии
	Deleted   bool   `json:"deleted,omitempty"`
}

// IsNewerThan сравнивает две версии по правилу LWW:
// 1. Больший Timestamp выигрывает
// 2. При равных Timestamp сравнивается NodeID (лексикографически)
// 3. При полном совпадении tombstone выигрывает, затем большее значение
func (e LWWEntry) IsNewerThan(other LWWEntry) bool {
	if e.Timestamp != other.Timestamp {
		return e.Timestamp > other.Timestamp
	}
	if e.NodeID != other.NodeID {
		return e.NodeID > other.NodeID
	}
	if e.Deleted != other.Deleted {
		return e.Deleted
	}
	return e.Value > other.Value
}

// LWWMapState состояние LWW словаря: ключ -> последняя версия
type LWWMapState map[string]LWWEntry

// LWWMap создает описание Last-Write-Wins словаря.
// Мутаторы: "set" key value, "delete" key.
func LWWMap() *Type {
	return &Type{
		Name: LWWMapTypeName,
		Initial: func() any {
			return LWWMapState{}
		},
		Join:  joinLWWMap,
		Value: lwwMapValue,
		Decode: func(raw json.RawMessage) (any, error) {
			return decodeJSON(raw, LWWMapState{})
		},
		Mutators: map[string]Mutator{
			"set": func(authorID string, state any, args ...any) (any, error) {
				s, ok := state.(LWWMapState)
				if !ok {
					return nil, fmt.Errorf("%w: lwwmap state is %T", ErrJoinIncompatible, state)
				}
				key, err := argString(args, 0)
				if err != nil {
					return nil, err
				}
				value, err := argString(args, 1)
				if err != nil {
					return nil, err
				}
				return LWWMapState{key: {
					Value:     value,
					NodeID:    authorID,
					Timestamp: s.maxTimestamp() + 1,
				}}, nil
			},
			"delete": func(authorID string, state any, args ...any) (any, error) {
				s, ok := state.(LWWMapState)
				if !ok {
					return nil, fmt.Errorf("%w: lwwmap state is %T", ErrJoinIncompatible, state)
				}
				key, err := argString(args, 0)
				if err != nil {
					return nil, err
				}
				return LWWMapState{key: {
					NodeID:    authorID,
					Timestamp: s.maxTimestamp() + 1,
					Deleted:   true,
				}}, nil
			},
		},
	}
}

// maxTimestamp возвращает максимальный Lamport timestamp в состоянии.
// Новая запись получает max+1, что упорядочивает ее после всех известных.
func (s LWWMapState) maxTimestamp() int64 {
	var maxTS int64
	for _, entry := range s {
		if entry.Timestamp > maxTS {
			maxTS = entry.Timestamp
		}
	}
	return maxTS
}

func joinLWWMap(a, b any) (any, error) {
	sa, okA := a.(LWWMapState)
	sb, okB := b.(LWWMapState)
	if !okA || !okB {
		return nil, fmt.Errorf("%w: lwwmap join of %T and %T", ErrJoinIncompatible, a, b)
	}

	out := make(LWWMapState, len(sa)+len(sb))
	for key, entry := range sa {
		out[key] = entry
	}
	for key, entry := range sb {
		existing, exists := out[key]
		if !exists || entry.IsNewerThan(existing) {
			out[key] = entry
		}
	}
	return out, nil
}

// lwwMapValue возвращает все неудаленные ключи
func lwwMapValue(state any) any {
	s, _ := state.(LWWMapState)
	out := make(map[string]string, len(s))
	for key, entry := range s {
		if !entry.Deleted {
			out[key] = entry.Value
		}
	}
	return out
}
