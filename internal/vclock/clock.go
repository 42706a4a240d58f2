package vclock

import "sort"

// Clock представляет векторные часы: идентификатор реплики -> количество
// известных операций этой реплики. Отсутствующий ключ эквивалентен нулю.
type Clock map[string]uint64

// Ordering результат сравнения двух векторных часов
type Ordering int

const (
	// Less A <= B и A != B
	Less Ordering = -1
	// Equal A и B совпадают поэлементно
	Equal Ordering = 0
	// Greater B <= A и A != B
	Greater Ordering = 1
	// Concurrent часы несравнимы
	Concurrent Ordering = 2
)

// String возвращает человекочитаемое имя результата сравнения
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "concurrent"
	}
}

// New создает пустые векторные часы
func New() Clock {
	return make(Clock)
}

// Copy возвращает независимую копию часов. Нулевые счетчики не копируются.
func (c Clock) Copy() Clock {
	out := make(Clock, len(c))
	for id, counter := range c {
		if counter > 0 {
			out[id] = counter
		}
	}
	return out
}

// Get возвращает счетчик реплики id (0 если отсутствует)
func (c Clock) Get(id string) uint64 {
	return c[id]
}

// IDs возвращает отсортированный список реплик с ненулевыми счетчиками
func (c Clock) IDs() []string {
	ids := make([]string, 0, len(c))
	for id, counter := range c {
		if counter > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsEmpty возвращает true, если все счетчики равны нулю
func (c Clock) IsEmpty() bool {
	for _, counter := range c {
		if counter > 0 {
			return false
		}
	}
	return true
}

// Compare сравнивает часы a и b в частичном порядке.
func Compare(a, b Clock) Ordering {
	less, greater := false, false

	for id, av := range a {
		bv := b[id]
		if av < bv {
			less = true
		} else if av > bv {
			greater = true
		}
	}
	for id, bv := range b {
		if _, seen := a[id]; seen {
			continue
		}
		if bv > 0 {
			less = true
		}
	}

	switch {
	case less && greater:
		return Concurrent
	case less:
		return Less
	case greater:
		return Greater
	default:
		return Equal
	}
}

// LessOrEqual возвращает true, если a <= b
func LessOrEqual(a, b Clock) bool {
	o := Compare(a, b)
	return o == Less || o == Equal
}

// IsIdentical проверяет поэлементное равенство (отсутствующий ключ == 0)
func IsIdentical(a, b Clock) bool {
	return Compare(a, b) == Equal
}

// Merge возвращает поэлементный максимум
func Merge(a, b Clock) Clock {
	out := a.Copy()
	for id, bv := range b {
		if bv > out[id] {
			out[id] = bv
		}
	}
	return out
}

// Sum возвращает поэлементную сумму. Используется для получения
// итоговых часов дельты: previousClock + authorClock.
func Sum(a, b Clock) Clock {
	out := a.Copy()
	for id, bv := range b {
		if bv > 0 {
			out[id] += bv
		}
	}
	return out
}

// Subtract возвращает a - b поэлементно, с отсечением по нулю
func Subtract(a, b Clock) Clock {
	out := make(Clock, len(a))
	for id, av := range a {
		if bv := b[id]; av > bv {
			out[id] = av - bv
		}
	}
	return out
}

// Minimum возвращает поэлементный минимум
func Minimum(a, b Clock) Clock {
	out := make(Clock)
	for id, av := range a {
		bv := b[id]
		if bv < av {
			av = bv
		}
		if av > 0 {
			out[id] = av
		}
	}
	return out
}

// Increment возвращает копию часов с увеличенным на единицу счетчиком id
func Increment(c Clock, id string) Clock {
	out := c.Copy()
	out[id]++
	return out
}
