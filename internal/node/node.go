// Package node хранит коллаборации, размещенные на одном узле.
// У каждой коллаборации свой реестр часов и свой трекер репликации:
// часы разных коллабораций никогда не смешиваются.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/metrics"
	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/replication"
	"github.com/iudanet/deltasync/internal/storage"
)

// ErrCollaborationNotFound коллаборация не размещена на узле
var ErrCollaborationNotFound = errors.New("collaboration not found")

// Config параметры узла
type Config struct {
	Types     *crdt.Registry
	Store     storage.ReplicaStore
	Metrics   *metrics.Metrics // nil отключает метрики
	ReplicaID string
	Options   replica.Options
}

// Hosted коллаборация вместе с трекером прогресса репликации
type Hosted struct {
	Collab  *replica.Collaboration
	Tracker *replication.Tracker

	mu       sync.Mutex
	observed map[string]func()
}

// Node набор коллабораций одного узла
type Node struct {
	cfg    Config
	logger *slog.Logger
	hosted map[string]*Hosted
	mu     sync.RWMutex
}

// New создает узел
func New(cfg Config) (*Node, error) {
	if cfg.ReplicaID == "" {
		return nil, fmt.Errorf("replica id cannot be empty")
	}
	if cfg.Types == nil {
		cfg.Types = crdt.DefaultRegistry()
	}
	logger := cfg.Options.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Options.Logger = logger
	}

	return &Node{
		cfg:    cfg,
		logger: logger,
		hosted: make(map[string]*Hosted),
	}, nil
}

// ReplicaID возвращает идентификатор узла
func (n *Node) ReplicaID() string {
	return n.cfg.ReplicaID
}

// Open создает и запускает коллаборацию name.
// Повторный вызов возвращает уже открытую коллаборацию того же типа.
func (n *Node) Open(ctx context.Context, name, typeName string) (*Hosted, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if h, ok := n.hosted[name]; ok {
		if got := h.Collab.Shared().TypeName(); got != typeName {
			return nil, fmt.Errorf("%w: collaboration %q is %s, requested %s",
				crdt.ErrJoinIncompatible, name, got, typeName)
		}
		return h, nil
	}

	clocks := replica.NewClockRegistry()
	collab, err := replica.New(replica.Config{
		Types:     n.cfg.Types,
		Clocks:    clocks,
		Store:     n.cfg.Store,
		Name:      name,
		ReplicaID: n.cfg.ReplicaID,
		TypeName:  typeName,
		Options:   n.cfg.Options,
	})
	if err != nil {
		return nil, err
	}

	if err := collab.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start collaboration %q: %w", name, err)
	}

	h := &Hosted{
		Collab:   collab,
		Tracker:  replication.NewTracker(n.cfg.ReplicaID, clocks, n.logger.With("collaboration", name)),
		observed: make(map[string]func()),
	}
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.ObserveTracker(h.Tracker)
	}
	n.observeTree(h, collab)

	n.hosted[name] = h
	n.logger.Info("Collaboration opened", "collaboration", name, "type", typeName)
	return h, nil
}

// Sub возвращает вложенную реплику коллаборации, создавая ее при необходимости
func (n *Node) Sub(ctx context.Context, h *Hosted, name, typeName string) (*replica.Collaboration, error) {
	sub, err := h.Collab.Sub(ctx, name, typeName)
	if err != nil {
		return nil, err
	}
	n.observe(h, sub)
	return sub, nil
}

// Refresh подключает метрики к вложенным репликам, созданным входящими записями
func (n *Node) Refresh(h *Hosted) {
	n.observeTree(h, h.Collab)
}

func (n *Node) observeTree(h *Hosted, c *replica.Collaboration) {
	n.observe(h, c)
	for _, sub := range c.Subs() {
		n.observeTree(h, sub)
	}
}

// observe подключает метрики к реплике один раз
func (n *Node) observe(h *Hosted, c *replica.Collaboration) {
	if n.cfg.Metrics == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observed[c.Name()]; ok {
		return
	}
	h.observed[c.Name()] = n.cfg.Metrics.ObserveReplica(c.Shared())
}

// Lookup возвращает размещенную коллаборацию
func (n *Node) Lookup(name string) (*Hosted, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	h, ok := n.hosted[name]
	return h, ok
}

// Names возвращает имена размещенных коллабораций по возрастанию
func (n *Node) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.hosted))
	for name := range n.hosted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) all() []*Hosted {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Hosted, 0, len(n.hosted))
	for _, h := range n.hosted {
		out = append(out, h)
	}
	return out
}

// SaveAll сохраняет все коллаборации. Ошибки отдельных коллабораций объединяются.
func (n *Node) SaveAll(ctx context.Context) error {
	var errs []error
	for _, h := range n.all() {
		if err := h.Collab.Save(ctx); err != nil {
			errs = append(errs, fmt.Errorf("collaboration %q: %w", h.Collab.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// RunFlushLoop периодически сохраняет состояние до отмены ctx.
// При выходе выполняет финальное сохранение.
func (n *Node) RunFlushLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Финальное сохранение не должно зависеть от отмененного контекста
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return n.SaveAll(saveCtx)
		case <-ticker.C:
			if err := n.SaveAll(ctx); err != nil {
				n.logger.Error("Periodic flush failed", "error", err)
			}
		}
	}
}

// Close останавливает все коллаборации и отключает метрики
func (n *Node) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	for name, h := range n.hosted {
		if err := h.Collab.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("collaboration %q: %w", name, err))
		}
		h.mu.Lock()
		for _, unsubscribe := range h.observed {
			unsubscribe()
		}
		h.observed = make(map[string]func())
		h.mu.Unlock()
	}
	n.hosted = make(map[string]*Hosted)
	return errors.Join(errs...)
}
