// Package metrics exports arena and reconciliation activity as Prometheus
// counters.
//
//	m, err := metrics.New(prometheus.DefaultRegisterer, "app")
//	a := tree.NewArena(tree.WithHooks(m.TreeHooks()))
//	e := reconcile.New(a, reconcile.WithHooks(m.ReconcileHooks()))
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signadot/treestate/reconcile"
	"github.com/signadot/treestate/tree"
)

type Metrics struct {
	Snapshots     *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Patches       *prometheus.CounterVec
	Releases      prometheus.Counter
	Reconciles    *prometheus.CounterVec
}

// New creates the counters and registers them on reg. namespace may be
// empty.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		Snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "treestate_snapshots_total",
				Help:      "Container snapshot requests, by whether the cached snapshot was used",
			},
			[]string{"cached"},
		),
		Invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "treestate_invalidations_total",
				Help:      "Nodes whose cached snapshot and memos were dropped, by node kind",
			},
			[]string{"kind"},
		),
		Patches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "treestate_patches_total",
				Help:      "Patches emitted at tree roots, by op",
			},
			[]string{"op"},
		),
		Releases: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "treestate_releases_total",
				Help:      "Detached nodes released at the end of a turn",
			},
		),
		Reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "treestate_reconciles_total",
				Help:      "Reconciled values, by snapshot kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	cs := []prometheus.Collector{m.Snapshots, m.Invalidations, m.Patches, m.Releases, m.Reconciles}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) TreeHooks() tree.Hooks {
	return tree.Hooks{
		OnSnapshot: func(_ *tree.Node, cached bool) {
			m.Snapshots.WithLabelValues(strconv.FormatBool(cached)).Inc()
		},
		OnInvalidate: func(n *tree.Node) {
			m.Invalidations.WithLabelValues(n.Kind().String()).Inc()
		},
		OnPatch: func(_ *tree.Node, ev tree.PatchEvent) {
			for _, p := range ev.Patches {
				m.Patches.WithLabelValues(string(p.Op)).Inc()
			}
		},
		OnRelease: func(*tree.Node) {
			m.Releases.Inc()
		},
	}
}

func (m *Metrics) ReconcileHooks() reconcile.Hooks {
	return reconcile.Hooks{
		OnReconcile: func(kind reconcile.SnapshotKind, o reconcile.Outcome) {
			m.Reconciles.WithLabelValues(kind.String(), string(o)).Inc()
		},
	}
}
