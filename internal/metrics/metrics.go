// Package metrics публикует Prometheus метрики реплик и трекера репликации.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/replication"
)

const namespace = "deltasync"

// Metrics набор коллекторов узла
type Metrics struct {
	registry *prometheus.Registry

	// deltasApplied counts deltas merged into replica state.
	// Labels: name (replica name), source (local, remote)
	deltasApplied *prometheus.CounterVec

	// clockChanges counts clock advances per replica.
	// Labels: name
	clockChanges *prometheus.CounterVec

	// saves counts successful persistence flushes.
	// Labels: name
	saves *prometheus.CounterVec

	// replicationEvents counts tracker events.
	// Labels: event
	replicationEvents *prometheus.CounterVec

	// syncRounds counts anti-entropy rounds with peers.
	// Labels: direction (pull, push), result (ok, snapshot, error)
	syncRounds *prometheus.CounterVec

	// recordsTransferred counts delta records moved by anti-entropy.
	// Labels: direction
	recordsTransferred *prometheus.CounterVec
}

// New создает метрики в собственном реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		deltasApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "deltas_applied_total",
			Help:      "Total deltas merged into replica state",
		}, []string{"name", "source"}),
		clockChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "clock_changes_total",
			Help:      "Total vector clock advances",
		}, []string{"name"}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "saves_total",
			Help:      "Total replica snapshots persisted",
		}, []string{"name"}),
		replicationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "events_total",
			Help:      "Total replication progress events",
		}, []string{"event"}),
		syncRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "rounds_total",
			Help:      "Total anti-entropy rounds with peers",
		}, []string{"direction", "result"}),
		recordsTransferred: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Total delta records transferred by anti-entropy",
		}, []string{"direction"}),
	}
}

// Handler возвращает HTTP обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReplica подписывается на события реплики. Возвращает функцию отписки.
func (m *Metrics) ObserveReplica(s *replica.State) func() {
	return s.Subscribe(m.onReplicaEvent)
}

func (m *Metrics) onReplicaEvent(e replica.Event) {
	switch e.Kind {
	case replica.EventDelta:
		source := "remote"
		if e.FromSelf {
			source = "local"
		}
		m.deltasApplied.WithLabelValues(e.Name, source).Inc()
	case replica.EventClockChanged:
		m.clockChanges.WithLabelValues(e.Name).Inc()
	case replica.EventSaved:
		m.saves.WithLabelValues(e.Name).Inc()
	}
}

// ObserveTracker подписывается на события трекера репликации
func (m *Metrics) ObserveTracker(t *replication.Tracker) {
	t.Subscribe(func(e replication.Event) {
		m.replicationEvents.WithLabelValues(string(e.Kind)).Inc()
	})
}

// SyncRound учитывает раунд синхронизации
func (m *Metrics) SyncRound(direction, result string, records int) {
	m.syncRounds.WithLabelValues(direction, result).Inc()
	if records > 0 {
		m.recordsTransferred.WithLabelValues(direction).Add(float64(records))
	}
}
