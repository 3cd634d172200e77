// AngelaMos | 2026
// metrics.go

package core

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Metrics struct {
	Registry  *prometheus.Registry
	namespace string

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PolicyDecisionsTotal  *prometheus.CounterVec
	StageTransitionsTotal *prometheus.CounterVec

	AlertsActive *prometheus.GaugeVec
	JobRunsTotal *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
}

// NewMetrics registers every collector on its own registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry:  reg,
		namespace: namespace,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PolicyDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_decisions_total",
				Help:      "Access decisions by action, entity kind and outcome",
			},
			[]string{"action", "kind", "outcome"},
		),
		StageTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_transitions_total",
				Help:      "Committed opportunity stage moves",
			},
			[]string{"from", "to"},
		),
		AlertsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alerts_active",
				Help:      "Alerts in the latest snapshot by type",
			},
			[]string{"type"},
		),
		JobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job executions by job and status",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PolicyDecisionsTotal,
		m.StageTransitionsTotal,
		m.AlertsActive,
		m.JobRunsTotal,
		m.JobDuration,
	)

	return m
}

// WatchPools exports Postgres and Redis connection pool gauges.
func (m *Metrics) WatchPools(db *sql.DB, redisStats func() *redis.PoolStats) {
	if m == nil {
		return
	}

	pool := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: m.namespace,
				Subsystem: "redis_pool",
				Name:      name,
				Help:      help,
			},
			func() float64 { return float64(read(redisStats())) },
		)
	}

	m.Registry.MustRegister(
		collectors.NewDBStatsCollector(db, "postgres"),
		pool("total_conns", "Connections in the Redis pool",
			func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		pool("idle_conns", "Idle connections in the Redis pool",
			func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		pool("wait_timeouts", "Times a Redis pool wait timed out",
			func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// The recorders below are nil-safe so packages can run without metrics.

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveDecision(action, kind, outcome string) {
	if m == nil {
		return
	}
	m.PolicyDecisionsTotal.WithLabelValues(action, kind, outcome).Inc()
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.StageTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) SetAlerts(alertType string, n int) {
	if m == nil {
		return
	}
	m.AlertsActive.WithLabelValues(alertType).Set(float64(n))
}

func (m *Metrics) ObserveJob(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}
