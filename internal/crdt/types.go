package crdt

import (
	"encoding/json"
	"fmt"
)

// Mutator строит дельту из текущего состояния и аргументов операции.
// authorID идентифицирует автора изменения. Мутатор не изменяет state.
type Mutator func(authorID string, state any, args ...any) (any, error)

// IncrementalValue поддерживает проекцию значения инкрементально:
// получает состояние до и после join, примененную дельту и предыдущее значение.
type IncrementalValue func(before, after, delta, previous any) any

// Type описывает CRDT тип: начальное состояние, join, проекцию значения
// и статическую таблицу мутаторов.
type Type struct {
	// Initial возвращает начальное (нейтральное) состояние
	Initial func() any
	// Join объединяет два состояния или дельты. Должен быть коммутативным,
	// ассоциативным и идемпотентным, не изменять аргументы.
	// Возвращает ErrJoinIncompatible для значений чужого типа.
	Join func(a, b any) (any, error)
	// Value проецирует состояние в пользовательское значение
	Value func(state any) any
	// IncrementalValue необязательная инкрементальная проекция
	IncrementalValue IncrementalValue
	// Decode восстанавливает состояние или дельту из JSON
	Decode func(raw json.RawMessage) (any, error)
	// Mutators таблица именованных мутаторов
	Mutators map[string]Mutator
	// Name имя типа, передаваемое по сети
	Name string
}

// Mutator возвращает мутатор по имени
func (t *Type) Mutator(name string) (Mutator, bool) {
	m, ok := t.Mutators[name]
	return m, ok
}

// DecodeValue приводит значение, пришедшее по сети, к состоянию типа.
// Уже декодированные значения возвращаются как есть.
func (t *Type) DecodeValue(v any) (any, error) {
	switch raw := v.(type) {
	case json.RawMessage:
		return t.Decode(raw)
	case []byte:
		return t.Decode(json.RawMessage(raw))
	case nil:
		return t.Initial(), nil
	default:
		return v, nil
	}
}

// decodeJSON общий помощник для реализаций Decode
func decodeJSON[T any](raw json.RawMessage, empty T) (T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return empty, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return empty, fmt.Errorf("failed to decode state: %w", err)
	}
	return out, nil
}
