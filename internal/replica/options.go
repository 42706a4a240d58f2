package replica

import (
	"log/slog"
	"time"
)

// Значения по умолчанию
const (
	DefaultMaxDeltaRetention = 1000
	DefaultDeltaTrimTimeout  = time.Second
	DefaultMaxHierarchyDepth = 8
)

// Options настройки реплики, общие для всего дерева коллаборации
type Options struct {
	// Logger логгер; nil означает slog.Default()
	Logger *slog.Logger
	// MaxDeltaRetention максимальное число записей в журнале дельт.
	// 0 отключает журнал: отстающие пиры всегда получают полный снимок.
	MaxDeltaRetention int
	// DeltaTrimTimeout подсказка внешнему планировщику (интервал сброса на диск).
	// Внутри реплики не используется.
	DeltaTrimTimeout time.Duration
	// MaxHierarchyDepth максимальная глубина дерева вложенных реплик
	MaxHierarchyDepth int
	// ReplicateOnly режим pinner: принимаются только полные снимки состояния
	ReplicateOnly bool
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		MaxDeltaRetention: DefaultMaxDeltaRetention,
		DeltaTrimTimeout:  DefaultDeltaTrimTimeout,
		MaxHierarchyDepth: DefaultMaxHierarchyDepth,
	}
}

func (o Options) normalize() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxDeltaRetention < 0 {
		o.MaxDeltaRetention = 0
	}
	if o.MaxHierarchyDepth <= 0 {
		o.MaxHierarchyDepth = DefaultMaxHierarchyDepth
	}
	if o.DeltaTrimTimeout <= 0 {
		o.DeltaTrimTimeout = DefaultDeltaTrimTimeout
	}
	return o
}
