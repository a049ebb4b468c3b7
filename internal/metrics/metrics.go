// Package metrics records run counters for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "snapkeeper"

// Metrics receives engine events. Labels are low-cardinality: domain is
// "volumes" or "databases", outcome is a short fixed word.
type Metrics interface {
	IncCreated(domain, origin, outcome string)
	IncDeleted(domain, outcome string)
	ObserveReadinessWait(domain, outcome string, d time.Duration)
	IncResourceErrors(domain string)
	SetLastRun(domain string, at time.Time)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncCreated(string, string, string)                  {}
func (Noop) IncDeleted(string, string)                          {}
func (Noop) ObserveReadinessWait(string, string, time.Duration) {}
func (Noop) IncResourceErrors(string)                           {}
func (Noop) SetLastRun(string, time.Time)                       {}

// Prom implements Metrics on a private registry so a run writes only its own
// series to the textfile.
type Prom struct {
	registry       *prometheus.Registry
	created        *prometheus.CounterVec
	deleted        *prometheus.CounterVec
	readinessWait  *prometheus.HistogramVec
	resourceErrors *prometheus.CounterVec
	lastRun        *prometheus.GaugeVec
}

func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_created_total",
			Help:      "Create calls by domain, origin and outcome",
		}, []string{"domain", "origin", "outcome"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_deleted_total",
			Help:      "Delete calls by domain and outcome",
		}, []string{"domain", "outcome"}),
		readinessWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for a resource to become ready",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}, []string{"domain", "outcome"}),
		resourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resource_errors_total",
			Help:      "Resources skipped because of a lookup or listing error",
		}, []string{"domain"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}, []string{"domain"}),
	}
	p.registry.MustRegister(p.created, p.deleted, p.readinessWait, p.resourceErrors, p.lastRun)
	return p
}

func (p *Prom) Registry() *prometheus.Registry { return p.registry }

func (p *Prom) IncCreated(domain, origin, outcome string) {
	p.created.WithLabelValues(domain, origin, outcome).Inc()
}

func (p *Prom) IncDeleted(domain, outcome string) {
	p.deleted.WithLabelValues(domain, outcome).Inc()
}

func (p *Prom) ObserveReadinessWait(domain, outcome string, d time.Duration) {
	p.readinessWait.WithLabelValues(domain, outcome).Observe(d.Seconds())
}

func (p *Prom) IncResourceErrors(domain string) {
	p.resourceErrors.WithLabelValues(domain).Inc()
}

func (p *Prom) SetLastRun(domain string, at time.Time) {
	p.lastRun.WithLabelValues(domain).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in text exposition format. The file is
// written to a temporary name and renamed, as node_exporter expects.
func (p *Prom) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
