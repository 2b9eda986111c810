package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hausmeister_requests_total",
			Help: "Total number of API requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hausmeister_request_duration_seconds",
			Help:    "Request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hausmeister_request_errors_total",
			Help: "Total number of error responses per path and status code",
		},
		[]string{"path", "code"},
	)

	ReportsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hausmeister_reports_generated_total",
			Help: "Total number of generated water reports per output format",
		},
		[]string{"format"},
	)

	ReportDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hausmeister_report_duration_seconds",
			Help:    "Time spent assembling a water report",
			Buckets: prometheus.DefBuckets,
		},
	)

	InvoicesParsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hausmeister_invoices_parsed_total",
			Help: "Total number of parsed utility invoices per outcome",
		},
		[]string{"outcome"},
	)

	DBOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hausmeister_db_open_conns",
			Help: "Open connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hausmeister_db_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hausmeister_db_in_use_conns",
			Help: "Currently in-use connections per driver",
		},
		[]string{"driver"},
	)
)

// UpdateDBPoolMetrics publishes a database/sql pool snapshot.
func UpdateDBPoolMetrics(driver string, open, idle, inUse float64) {
	DBOpenConns.WithLabelValues(driver).Set(open)
	DBIdleConns.WithLabelValues(driver).Set(idle)
	DBInUseConns.WithLabelValues(driver).Set(inUse)
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hausmeister_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hausmeister_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hausmeister_job_failures_total",
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
