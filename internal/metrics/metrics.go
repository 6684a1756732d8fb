// Package metrics exposes Prometheus collectors for flushes, executed
// statements and the prepared statement cache. A *Metrics satisfies both
// session.Recorder and stmtcache.Recorder.
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Keys for sqlstage metrics.
const (
	StatementsTotalKey       = "sqlstage_statements_total"
	BatchMismatchesTotalKey  = "sqlstage_batch_mismatches_total"
	FlushesTotalKey          = "sqlstage_flushes_total"
	FlushDurationSecondsKey  = "sqlstage_flush_duration_seconds"
	FlushStatementsKey       = "sqlstage_flush_statements"
	StmtCacheHitsTotalKey    = "sqlstage_stmt_cache_hits_total"
	StmtCacheMissesTotalKey  = "sqlstage_stmt_cache_misses_total"
	StmtCacheEvictedTotalKey = "sqlstage_stmt_cache_evicted_total"
)

// Metrics holds one set of collectors registered with its own registry.
type Metrics struct {
	registry *prometheus.Registry

	statements      *prometheus.CounterVec
	batchMismatches prometheus.Counter
	flushes         *prometheus.CounterVec
	flushDuration   *prometheus.HistogramVec
	flushStatements prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheEvicted    prometheus.Counter
}

// New builds the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: StatementsTotalKey,
			Help: "Cumulative number of statements executed, by operation.",
		}, []string{"operation"}),
		batchMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: BatchMismatchesTotalKey,
			Help: "Cumulative number of statements that did not affect exactly one row.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: FlushesTotalKey,
			Help: "Cumulative number of flushes, by strategy and outcome.",
		}, []string{"strategy", "status"}),
		flushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    FlushDurationSecondsKey,
			Help:    "Duration of flushes.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"strategy"}),
		flushStatements: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    FlushStatementsKey,
			Help:    "Number of statements written per flush.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~262k
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: StmtCacheHitsTotalKey,
			Help: "Cumulative number of prepared statement cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: StmtCacheMissesTotalKey,
			Help: "Cumulative number of prepared statement cache misses.",
		}),
		cacheEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: StmtCacheEvictedTotalKey,
			Help: "Cumulative number of prepared statements evicted and closed.",
		}),
	}
	m.registry.MustRegister(m.Collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Collectors returns the sqlstage collectors, without the runtime ones.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.statements,
		m.batchMismatches,
		m.flushes,
		m.flushDuration,
		m.flushStatements,
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvicted,
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WatchDB exports the pool statistics of db under the given name.
func (m *Metrics) WatchDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) StatementExecuted(op string) { m.statements.WithLabelValues(op).Inc() }
func (m *Metrics) BatchMismatches(n int)       { m.batchMismatches.Add(float64(n)) }

func (m *Metrics) FlushCompleted(strategy string, statements int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.flushes.WithLabelValues(strategy, status).Inc()
	m.flushDuration.WithLabelValues(strategy).Observe(d.Seconds())
	m.flushStatements.Observe(float64(statements))
}

func (m *Metrics) CacheHit()     { m.cacheHits.Inc() }
func (m *Metrics) CacheMiss()    { m.cacheMisses.Inc() }
func (m *Metrics) CacheEvicted() { m.cacheEvicted.Inc() }
