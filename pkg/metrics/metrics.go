// Package metrics provides Prometheus instrumentation for the recompute
// passes. Metrics live on a custom registry so a batch run only reports what
// it actually measured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "echelon"

// Manager owns the collectors for one process.
type Manager struct {
	registry *prometheus.Registry

	racesRated       *prometheus.CounterVec
	racesSkipped     *prometheus.CounterVec
	ranksWritten     *prometheus.CounterVec
	pointsRows       *prometheus.CounterVec
	scheduleMisses   *prometheus.CounterVec
	upgradesFlagged  *prometheus.CounterVec
	oracleFetches    prometheus.Counter
	oracleCacheHits  prometheus.Counter
	recomputeSeconds *prometheus.HistogramVec
}

// NewManager builds a manager with its own registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		racesRated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_rated_total",
			Help:      "Races that produced quality and rank rows.",
		}, []string{"discipline"}),
		racesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_unrated_total",
			Help:      "Races skipped for having two or fewer finishers.",
		}, []string{"discipline"}),
		ranksWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranks_written_total",
			Help:      "Rank rows persisted.",
		}, []string{"discipline"}),
		pointsRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_rows_total",
			Help:      "Points rows persisted.",
		}, []string{"discipline"}),
		scheduleMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_misses_total",
			Help:      "Races whose discipline or field size had no points schedule.",
		}, []string{"discipline"}),
		upgradesFlagged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrades_flagged_total",
			Help:      "Points rows flagged as needing an upgrade.",
		}, []string{"discipline"}),
		oracleFetches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_fetches_total",
			Help:      "Category snapshot fetches from the authoritative source.",
		}),
		oracleCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_cache_hits_total",
			Help:      "Oracle lookups answered from the per-run memo.",
		}),
		recomputeSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Wall time of full recompute passes.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"discipline", "pass"}),
	}
}

// Handler exposes the registry over HTTP.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var global = NewManager()

// Default returns the process-wide manager.
func Default() *Manager { return global }

// RecordRaceRated counts a rated race.
func RecordRaceRated(discipline string) {
	global.racesRated.WithLabelValues(discipline).Inc()
}

// RecordRaceUnrated counts a race skipped for lack of finishers.
func RecordRaceUnrated(discipline string) {
	global.racesSkipped.WithLabelValues(discipline).Inc()
}

// RecordRanksWritten counts persisted rank rows.
func RecordRanksWritten(discipline string, n int) {
	global.ranksWritten.WithLabelValues(discipline).Add(float64(n))
}

// RecordPointsRows counts persisted points rows.
func RecordPointsRows(discipline string, n int) {
	global.pointsRows.WithLabelValues(discipline).Add(float64(n))
}

// RecordScheduleMiss counts a race with no applicable points schedule.
func RecordScheduleMiss(discipline string) {
	global.scheduleMisses.WithLabelValues(discipline).Inc()
}

// RecordUpgradeFlagged counts a needs-upgrade flag.
func RecordUpgradeFlagged(discipline string) {
	global.upgradesFlagged.WithLabelValues(discipline).Inc()
}

// RecordOracleFetch counts a snapshot fetch.
func RecordOracleFetch() { global.oracleFetches.Inc() }

// RecordOracleCacheHit counts a memoized oracle answer.
func RecordOracleCacheHit() { global.oracleCacheHits.Inc() }

// ObserveRecompute records the duration of one recompute pass in seconds.
func ObserveRecompute(discipline, pass string, seconds float64) {
	global.recomputeSeconds.WithLabelValues(discipline, pass).Observe(seconds)
}

// Handler exposes the process-wide registry over HTTP.
func Handler() http.Handler { return global.Handler() }
