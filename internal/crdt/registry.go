package crdt

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
)

// Registry статическая таблица известных CRDT типов
type Registry struct {
	types map[string]*Type
	mu    sync.RWMutex
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*Type),
	}
}

// DefaultRegistry создает реестр со встроенными типами
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GCounter())
	r.Register(GSet())
	r.Register(LWWMap())
	return r
}

// Register добавляет тип в реестр (повторная регистрация заменяет тип)
func (r *Registry) Register(t *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[t.Name] = t
}

// Get возвращает тип по имени
func (r *Registry) Get(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Names возвращает отсортированный список зарегистрированных типов
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Join объединяет два значения типа typeName
func (r *Registry) Join(typeName string, a, b any) (any, error) {
	t, err := r.Get(typeName)
	if err != nil {
		return nil, err
	}
	return t.Join(a, b)
}

// argString приводит аргумент мутатора к строке
func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: argument %d must be a string, got %T", ErrInvalidArgument, i, args[i])
	}
}

// argUint приводит аргумент мутатора к неотрицательному целому.
// Отсутствующий аргумент дает def.
func argUint(args []any, i int, def uint64) (uint64, error) {
	if i >= len(args) {
		return def, nil
	}
	switch v := args[i].(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: argument %d must be non-negative", ErrInvalidArgument, i)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: argument %d must be non-negative", ErrInvalidArgument, i)
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: argument %d must be a non-negative integer", ErrInvalidArgument, i)
		}
		return uint64(v), nil
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: argument %d must be an integer, got %T", ErrInvalidArgument, i, args[i])
	}
}
