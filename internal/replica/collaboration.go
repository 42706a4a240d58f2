package replica

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/storage"
	"github.com/iudanet/deltasync/internal/vclock"
)

// keySeparator разделяет имя коллаборации и имя вложенной реплики в ключе хранилища
const keySeparator = "/"

// Config параметры создания дерева коллаборации
type Config struct {
	// Types реестр CRDT типов
	Types *crdt.Registry
	// Clocks общий реестр часов; nil создает новый
	Clocks *ClockRegistry
	// Store хранилище снимков; nil отключает сохранение
	Store storage.ReplicaStore
	// Name имя коллаборации (корневой реплики)
	Name string
	// ReplicaID идентификатор этого узла в векторных часах
	ReplicaID string
	// TypeName CRDT тип корневой реплики
	TypeName string
	// Options настройки реплик
	Options Options
}

// environment общие зависимости всех узлов одного дерева
type environment struct {
	types     *crdt.Registry
	clocks    *ClockRegistry
	store     storage.ReplicaStore
	replicaID string
	opts      Options
}

// Collaboration узел дерева коллаборации. Корень является единственным
// источником причинного порядка: вложенные реплики пересылают ему свои дельты.
type Collaboration struct {
	env    *environment
	parent *Collaboration
	root   *Collaboration
	shared *State

	subs  map[string]*Collaboration
	index map[string]*Collaboration // только у корня: все потомки по имени

	group singleflight.Group

	name  string
	depth int

	mu      sync.Mutex
	started bool
}

// New создает корень дерева коллаборации
func New(cfg Config) (*Collaboration, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("collaboration name cannot be empty")
	}
	if strings.Contains(cfg.Name, keySeparator) {
		return nil, fmt.Errorf("collaboration name %q must not contain %q", cfg.Name, keySeparator)
	}
	if cfg.ReplicaID == "" {
		return nil, fmt.Errorf("replica id cannot be empty")
	}
	if cfg.Types == nil {
		cfg.Types = crdt.DefaultRegistry()
	}
	if cfg.Clocks == nil {
		cfg.Clocks = NewClockRegistry()
	}

	typ, err := cfg.Types.Get(cfg.TypeName)
	if err != nil {
		return nil, err
	}

	c := &Collaboration{
		env: &environment{
			types:     cfg.Types,
			clocks:    cfg.Clocks,
			store:     cfg.Store,
			replicaID: cfg.ReplicaID,
			opts:      cfg.Options.normalize(),
		},
		name:  cfg.Name,
		subs:  make(map[string]*Collaboration),
		index: make(map[string]*Collaboration),
	}
	c.root = c
	c.shared = newState(c, cfg.Name, cfg.Name, typ)

	return c, nil
}

// Name возвращает имя узла
func (c *Collaboration) Name() string {
	return c.name
}

// ReplicaID возвращает идентификатор узла в векторных часах
func (c *Collaboration) ReplicaID() string {
	return c.env.replicaID
}

// Options возвращает настройки реплик дерева
func (c *Collaboration) Options() Options {
	return c.env.opts
}

// Clocks возвращает общий реестр часов дерева
func (c *Collaboration) Clocks() *ClockRegistry {
	return c.env.clocks
}

// IsRoot проверяет, что узел является корнем дерева
func (c *Collaboration) IsRoot() bool {
	return c.parent == nil
}

// Root возвращает корень дерева
func (c *Collaboration) Root() *Collaboration {
	return c.root
}

// Parent возвращает родительский узел (nil для корня)
func (c *Collaboration) Parent() *Collaboration {
	return c.parent
}

// Depth возвращает глубину узла (0 для корня)
func (c *Collaboration) Depth() int {
	return c.depth
}

// Shared возвращает контейнер состояния узла
func (c *Collaboration) Shared() *State {
	return c.shared
}

// Find ищет реплику по имени во всем дереве
func (c *Collaboration) Find(name string) (*Collaboration, bool) {
	root := c.root
	if name == root.name {
		return root, true
	}

	root.mu.Lock()
	defer root.mu.Unlock()

	found, ok := root.index[name]
	return found, ok
}

// Sub возвращает вложенную реплику name, создавая ее дочерней для c.
// Имена уникальны в пределах дерева; параллельные вызовы создают реплику один раз.
func (c *Collaboration) Sub(ctx context.Context, name, typeName string) (*Collaboration, error) {
	if name == "" || strings.Contains(name, keySeparator) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrUnknownSubCollaboration, name)
	}
	if name == c.root.name {
		return nil, fmt.Errorf("%w: %q is the root name", ErrUnknownSubCollaboration, name)
	}

	if existing, ok := c.Find(name); ok {
		if existing.shared.typ.Name != typeName {
			return nil, fmt.Errorf("%w: %q has type %q, requested %q",
				crdt.ErrJoinIncompatible, name, existing.shared.typ.Name, typeName)
		}
		return existing, nil
	}

	// singleflight корня: одно имя создается одним вызовом во всем дереве
	v, err, _ := c.root.group.Do(name, func() (any, error) {
		if existing, ok := c.Find(name); ok {
			return existing, nil
		}
		return c.createSub(ctx, name, typeName)
	})
	if err != nil {
		return nil, err
	}

	sub := v.(*Collaboration)
	if sub.shared.typ.Name != typeName {
		return nil, fmt.Errorf("%w: %q has type %q, requested %q",
			crdt.ErrJoinIncompatible, name, sub.shared.typ.Name, typeName)
	}
	return sub, nil
}

func (c *Collaboration) createSub(ctx context.Context, name, typeName string) (*Collaboration, error) {
	if c.depth+1 > c.env.opts.MaxHierarchyDepth {
		return nil, fmt.Errorf("%w: %q at depth %d (max %d)",
			ErrHierarchyTooDeep, name, c.depth+1, c.env.opts.MaxHierarchyDepth)
	}

	typ, err := c.env.types.Get(typeName)
	if err != nil {
		return nil, err
	}

	sub := &Collaboration{
		env:    c.env,
		parent: c,
		root:   c.root,
		name:   name,
		depth:  c.depth + 1,
		subs:   make(map[string]*Collaboration),
	}
	sub.shared = newState(sub, name, c.root.name+keySeparator+name, typ)

	c.root.mu.Lock()
	started := c.root.started
	c.root.mu.Unlock()

	if started {
		if err := sub.shared.load(ctx); err != nil {
			return nil, err
		}
	}

	c.root.mu.Lock()
	c.root.index[name] = sub
	c.root.mu.Unlock()

	c.mu.Lock()
	c.subs[name] = sub
	c.mu.Unlock()

	c.env.opts.Logger.Debug("Created sub-collaboration",
		"collaboration", c.root.name, "name", name, "type", typeName, "depth", sub.depth)
	return sub, nil
}

// Subs возвращает прямых потомков узла, отсортированных по имени
func (c *Collaboration) Subs() []*Collaboration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return sortedByName(c.subs)
}

// descendants возвращает всех потомков корня, отсортированных по имени
func (c *Collaboration) descendants() []*Collaboration {
	root := c.root
	root.mu.Lock()
	defer root.mu.Unlock()

	return sortedByName(root.index)
}

func sortedByName(m map[string]*Collaboration) []*Collaboration {
	out := make([]*Collaboration, 0, len(m))
	for _, sub := range m {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].name < out[j].name
	})
	return out
}

// Start загружает сохраненное состояние корня и ранее сохраненных вложенных реплик
func (c *Collaboration) Start(ctx context.Context) error {
	root := c.root

	if err := root.shared.load(ctx); err != nil {
		return err
	}

	root.mu.Lock()
	root.started = true
	root.mu.Unlock()

	// Уже созданные до старта потомки
	for _, sub := range root.descendants() {
		if err := sub.shared.load(ctx); err != nil {
			return err
		}
	}

	if root.env.store == nil {
		return nil
	}

	keys, err := root.env.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored replicas: %w", err)
	}

	prefix := root.name + keySeparator
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.TrimPrefix(key, prefix)
		if _, ok := root.Find(name); ok {
			continue
		}

		snapshot, err := root.env.store.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", key, err)
		}
		if _, err := root.Sub(ctx, name, snapshot.Type); err != nil {
			return fmt.Errorf("failed to restore sub-collaboration %q: %w", name, err)
		}
	}

	root.env.opts.Logger.Info("Collaboration started",
		"collaboration", root.name, "replica_id", root.env.replicaID, "subs", len(root.descendants()))
	return nil
}

// Save сохраняет все реплики дерева
func (c *Collaboration) Save(ctx context.Context) error {
	root := c.root

	if err := root.shared.Save(ctx); err != nil {
		return err
	}
	for _, sub := range root.descendants() {
		if err := sub.shared.Save(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop сохраняет дерево и помечает его остановленным
func (c *Collaboration) Stop(ctx context.Context) error {
	root := c.root

	if err := root.Save(ctx); err != nil {
		return err
	}

	root.mu.Lock()
	root.started = false
	root.mu.Unlock()

	root.env.opts.Logger.Info("Collaboration stopped", "collaboration", root.name)
	return nil
}

// Snapshots возвращает полные снимки корня и всех вложенных реплик.
// Корень идет первым: его часы покрывают операции всего дерева.
func (c *Collaboration) Snapshots() []models.DeltaRecord {
	root := c.root

	out := []models.DeltaRecord{root.shared.Snapshot()}
	for _, sub := range root.descendants() {
		out = append(out, sub.shared.Snapshot())
	}
	return out
}

// CatchUp подбирает записи для синхронизации пира peerID от since.
// При причинном разрыве журнала возвращает полные снимки и snapshot=true;
// такие записи применяются получателем с force.
func (c *Collaboration) CatchUp(since vclock.Clock, peerID string) (records []models.DeltaRecord, snapshot bool) {
	root := c.root.shared

	if root.HasCausalGap(since) {
		root.logger.Debug("Causal gap, falling back to snapshot", "peer_id", peerID, "since", since)
		return c.Snapshots(), true
	}
	return root.DeltaBatches(since, peerID), false
}

// ApplyAll применяет последовательность записей через корень.
// Возвращает число принятых записей.
func (c *Collaboration) ApplyAll(ctx context.Context, records []models.DeltaRecord, snapshot bool) (int, error) {
	accepted := 0
	for _, record := range records {
		_, ok, err := c.root.shared.Apply(ctx, record, !snapshot, snapshot)
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	return accepted, nil
}

// CheckCausalGap возвращает ErrCausalGap, если журнал не покрывает since
func (c *Collaboration) CheckCausalGap(since vclock.Clock) error {
	if c.root.shared.HasCausalGap(since) {
		return fmt.Errorf("%w: since %v", ErrCausalGap, since)
	}
	return nil
}
