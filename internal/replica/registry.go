package replica

import (
	"sync"

	"github.com/iudanet/deltasync/internal/vclock"
)

// ClockRegistry общая таблица векторных часов по идентификатору реплики.
// Один экземпляр передается всем состояниям дерева коллаборации и трекеру репликации.
// Запись только монотонная (merge), поэтому часы никогда не уменьшаются.
type ClockRegistry struct {
	clocks map[string]vclock.Clock
	mu     sync.RWMutex
}

// NewClockRegistry создает пустой реестр часов
func NewClockRegistry() *ClockRegistry {
	return &ClockRegistry{
		clocks: make(map[string]vclock.Clock),
	}
}

// GetFor возвращает копию часов реплики id (пустые часы, если неизвестна)
func (r *ClockRegistry) GetFor(id string) vclock.Clock {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.clocks[id].Copy()
}

// MergeFor сливает clock в часы реплики id и возвращает результат
func (r *ClockRegistry) MergeFor(id string, clock vclock.Clock) vclock.Clock {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := vclock.Merge(r.clocks[id], clock)
	r.clocks[id] = merged
	return merged.Copy()
}
