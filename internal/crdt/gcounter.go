package crdt

import (
	"encoding/json"
	"fmt"
)

// GCounterTypeName имя типа grow-only счетчика
const GCounterTypeName = "gcounter"

// GCounterState состояние grow-only счетчика: вклад каждой реплики
type GCounterState map[string]uint64

// GCounter создает описание grow-only счетчика.
// Мутаторы: "inc" [n] (по умолчанию 1).
func GCounter() *Type {
	return &Type{
		Name: GCounterTypeName,
		Initial: func() any {
			return GCounterState{}
		},
		Join:             joinGCounter,
		Value:            gcounterValue,
		IncrementalValue: gcounterIncrementalValue,
		Decode: func(raw json.RawMessage) (any, error) {
			return decodeJSON(raw, GCounterState{})
		},
		Mutators: map[string]Mutator{
			"inc": func(authorID string, state any, args ...any) (any, error) {
				s, ok := state.(GCounterState)
				if !ok {
					return nil, fmt.Errorf("%w: gcounter state is %T", ErrJoinIncompatible, state)
				}
				n, err := argUint(args, 0, 1)
				if err != nil {
					return nil, err
				}
				return GCounterState{authorID: s[authorID] + n}, nil
			},
		},
	}
}

func joinGCounter(a, b any) (any, error) {
	sa, okA := a.(GCounterState)
	sb, okB := b.(GCounterState)
	if !okA || !okB {
		return nil, fmt.Errorf("%w: gcounter join of %T and %T", ErrJoinIncompatible, a, b)
	}

	out := make(GCounterState, len(sa)+len(sb))
	for id, v := range sa {
		out[id] = v
	}
	for id, v := range sb {
		if v > out[id] {
			out[id] = v
		}
	}
	return out, nil
}

func gcounterValue(state any) any {
	s, _ := state.(GCounterState)
	var total uint64
	for _, v := range s {
		total += v
	}
	return total
}

// gcounterIncrementalValue прибавляет к предыдущему значению только прирост
// по репликам, затронутым дельтой.
func gcounterIncrementalValue(before, after, delta, previous any) any {
	prev, _ := previous.(uint64)
	b, _ := before.(GCounterState)
	a, _ := after.(GCounterState)
	d, _ := delta.(GCounterState)

	for id := range d {
		if a[id] > b[id] {
			prev += a[id] - b[id]
		}
	}
	return prev
}
