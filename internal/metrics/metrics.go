// Package metrics exposes Prometheus instruments for the behavior state
// machine and the pathfinder. A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "locus"

type Metrics struct {
	transitions    *prometheus.CounterVec
	activeState    *prometheus.GaugeVec
	goalsSet       *prometheus.CounterVec
	goalsCancelled prometheus.Counter
	goalsReached   *prometheus.CounterVec
	replans        prometheus.Counter
	targetDistance prometheus.Gauge
}

// New creates the instruments and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Number of state transitions performed by a machine.",
		}, []string{"machine", "from", "to"}),
		activeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_active",
			Help:      "1 for the state currently active in a machine.",
		}, []string{"machine", "state"}),
		goalsSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathfinder_goals_set_total",
			Help:      "Number of goals submitted to the pathfinder.",
		}, []string{"kind", "dynamic"}),
		goalsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathfinder_goals_cancelled_total",
			Help:      "Number of cancel requests sent to the pathfinder.",
		}),
		goalsReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathfinder_goals_reached_total",
			Help:      "Number of times the bot arrived at a goal.",
		}, []string{"kind"}),
		replans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathfinder_replans_total",
			Help:      "Number of A* searches run by the navigator.",
		}),
		targetDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "follow_target_distance_blocks",
			Help:      "Last observed distance to the follow target.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.transitions,
			m.activeState,
			m.goalsSet,
			m.goalsCancelled,
			m.goalsReached,
			m.replans,
			m.targetDistance,
		)
	}
	return m
}

func (m *Metrics) ObserveTransition(machine, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(machine, from, to).Inc()
	if from != "" {
		m.activeState.WithLabelValues(machine, from).Set(0)
	}
	if to != "" {
		m.activeState.WithLabelValues(machine, to).Set(1)
	}
}

func (m *Metrics) GoalSet(kind string, dynamic bool) {
	if m == nil {
		return
	}
	d := "false"
	if dynamic {
		d = "true"
	}
	m.goalsSet.WithLabelValues(kind, d).Inc()
}

func (m *Metrics) GoalCancelled() {
	if m == nil {
		return
	}
	m.goalsCancelled.Inc()
}

func (m *Metrics) GoalReached(kind string) {
	if m == nil {
		return
	}
	m.goalsReached.WithLabelValues(kind).Inc()
}

func (m *Metrics) Replanned() {
	if m == nil {
		return
	}
	m.replans.Inc()
}

func (m *Metrics) SetTargetDistance(d float64) {
	if m == nil {
		return
	}
	m.targetDistance.Set(d)
}
