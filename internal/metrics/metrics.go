package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billoptimizer_requests_total",
			Help: "Total number of requests per route",
		},
		[]string{"route"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billoptimizer_request_duration_seconds",
			Help:    "Request duration in seconds per route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billoptimizer_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)

	BillsComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billoptimizer_bills_computed_total",
			Help: "Total number of bills computed per consumer category",
		},
		[]string{"category"},
	)

	TariffCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billoptimizer_tariff_cache_total",
			Help: "Tariff table cache lookups by result",
		},
		[]string{"result"},
	)
)

var (
	DBPoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billoptimizer_db_pool_open_conns",
			Help: "Open connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billoptimizer_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billoptimizer_db_pool_in_use_conns",
			Help: "Currently in-use connections per driver",
		},
		[]string{"driver"},
	)
)

// UpdateDBPoolMetrics publishes database/sql pool stats for driver.
func UpdateDBPoolMetrics(driver string, st sql.DBStats) {
	DBPoolOpenConns.WithLabelValues(driver).Set(float64(st.OpenConnections))
	DBPoolIdleConns.WithLabelValues(driver).Set(float64(st.Idle))
	DBPoolInUseConns.WithLabelValues(driver).Set(float64(st.InUse))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billoptimizer_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billoptimizer_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billoptimizer_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
