// Package metrics exposes Prometheus collectors for backups, workers and validation.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	backupsTotal     *prometheus.CounterVec
	backupDuration   *prometheus.HistogramVec
	archiveBytes     prometheus.Counter
	repositories     *prometheus.GaugeVec
	jobsRunning      prometheus.Gauge
	queueDepth       prometheus.Gauge
	workerTasks      *prometheus.CounterVec
	cronValidations  *prometheus.CounterVec
	lastBackupUnixTS prometheus.Gauge
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func InitPrometheusMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		backupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backups_total",
				Help:      "Total number of repository backups by result",
			},
			[]string{"status"},
		),
		backupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backup_duration_seconds",
				Help:      "Duration of repository backups",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"status"},
		),
		archiveBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_archive_bytes_total",
				Help:      "Total size of written backup archives",
			},
		),
		repositories: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "repositories",
				Help:      "Number of known repositories by state",
			},
			[]string{"state"},
		),
		jobsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_running",
				Help:      "Number of backup jobs in progress",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_queue_depth",
				Help:      "Number of tasks waiting in the worker queue",
			},
		),
		workerTasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_tasks_total",
				Help:      "Total number of worker tasks by type and result",
			},
			[]string{"type", "status"},
		),
		cronValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cron_validations_total",
				Help:      "Total number of cron expression validations by result",
			},
			[]string{"result"},
		),
		lastBackupUnixTS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_backup_run_timestamp_seconds",
				Help:      "Unix time of the last finished backup run",
			},
		),
	}

	reg.MustRegister(
		m.backupsTotal,
		m.backupDuration,
		m.archiveBytes,
		m.repositories,
		m.jobsRunning,
		m.queueDepth,
		m.workerTasks,
		m.cronValidations,
		m.lastBackupUnixTS,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordBackup(status string, duration time.Duration, bytes int64) {
	if m == nil {
		return
	}
	m.backupsTotal.WithLabelValues(status).Inc()
	m.backupDuration.WithLabelValues(status).Observe(duration.Seconds())
	if bytes > 0 {
		m.archiveBytes.Add(float64(bytes))
	}
}

func (m *Metrics) RecordRun(finished time.Time) {
	if m == nil {
		return
	}
	m.lastBackupUnixTS.Set(float64(finished.Unix()))
}

func (m *Metrics) SetRepositoryCounts(enabled, disabled int) {
	if m == nil {
		return
	}
	m.repositories.WithLabelValues("enabled").Set(float64(enabled))
	m.repositories.WithLabelValues("disabled").Set(float64(disabled))
}

func (m *Metrics) SetJobsRunning(n int) {
	if m == nil {
		return
	}
	m.jobsRunning.Set(float64(n))
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) RecordWorkerTask(taskType string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.workerTasks.WithLabelValues(taskType, status).Inc()
}

func (m *Metrics) RecordCronValidation(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.cronValidations.WithLabelValues(result).Inc()
}
