package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maxkimambo/bake/internal/report"
)

// Metrics holds the Prometheus collectors updated by runs
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the engine collectors on a dedicated registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bake_tasks_total",
				Help: "Total number of task outcomes by status",
			},
			[]string{"status"},
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bake_task_duration_seconds",
				Help:    "Task execution time in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"task"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bake_runs_total",
				Help: "Total number of runs by result",
			},
			[]string{"result"},
		),

		registry: registry,
	}

	registry.MustRegister(m.tasksTotal, m.taskDuration, m.runsTotal)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the current metric values in the text exposition
// format, for collection by a node exporter textfile collector
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}

func (m *Metrics) observeTask(e report.Entry) {
	if m == nil || e.Category != report.CategoryTask {
		return
	}
	m.tasksTotal.WithLabelValues(string(e.Status)).Inc()
	if e.Status == report.StatusExecuted || e.Status == report.StatusFailed {
		m.taskDuration.WithLabelValues(e.Task).Observe(e.Duration.Seconds())
	}
}

func (m *Metrics) observeRun(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(result).Inc()
}
