package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
)

// GSetTypeName имя типа grow-only множества
const GSetTypeName = "gset"

// GSetState отсортированное множество строк без повторов
type GSetState []string

// GSet создает описание grow-only множества.
// Мутаторы: "add" elem [elem...].
func GSet() *Type {
	return &Type{
		Name: GSetTypeName,
		Initial: func() any {
			return GSetState{}
		},
		Join: joinGSet,
		Value: func(state any) any {
			s, _ := state.(GSetState)
			out := make([]string, len(s))
			copy(out, s)
			return out
		},
		Decode: func(raw json.RawMessage) (any, error) {
			s, err := decodeJSON(raw, GSetState{})
			if err != nil {
				return nil, err
			}
			return normalizeGSet(s), nil
		},
		Mutators: map[string]Mutator{
			"add": func(_ string, state any, args ...any) (any, error) {
				s, ok := state.(GSetState)
				if !ok {
					return nil, fmt.Errorf("%w: gset state is %T", ErrJoinIncompatible, state)
				}
				if len(args) == 0 {
					return nil, fmt.Errorf("%w: add requires at least one element", ErrInvalidArgument)
				}
				delta := make(GSetState, 0, len(args))
				for i := range args {
					elem, err := argString(args, i)
					if err != nil {
						return nil, err
					}
					if !s.Contains(elem) {
						delta = append(delta, elem)
					}
				}
				return normalizeGSet(delta), nil
			},
		},
	}
}

// Contains проверяет наличие элемента
func (s GSetState) Contains(elem string) bool {
	i := sort.SearchStrings(s, elem)
	return i < len(s) && s[i] == elem
}

func joinGSet(a, b any) (any, error) {
	sa, okA := a.(GSetState)
	sb, okB := b.(GSetState)
	if !okA || !okB {
		return nil, fmt.Errorf("%w: gset join of %T and %T", ErrJoinIncompatible, a, b)
	}

	out := make(GSetState, 0, len(sa)+len(sb))
	i, j := 0, 0
	for i < len(sa) && j < len(sb) {
		switch {
		case sa[i] < sb[j]:
			out = append(out, sa[i])
			i++
		case sa[i] > sb[j]:
			out = append(out, sb[j])
			j++
		default:
			out = append(out, sa[i])
			i++
			j++
		}
	}
	out = append(out, sa[i:]...)
	out = append(out, sb[j:]...)
	return out, nil
}

func normalizeGSet(s GSetState) GSetState {
	out := make(GSetState, len(s))
	copy(out, s)
	sort.Strings(out)

	unique := out[:0]
	for i, elem := range out {
		if i > 0 && elem == out[i-1] {
			continue
		}
		unique = append(unique, elem)
	}
	return unique
}
