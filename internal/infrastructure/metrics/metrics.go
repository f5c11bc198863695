// Package metrics exposes pipeline activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

const namespace = "genai_monitor"

// Prometheus implements ports.Metrics on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRun         prometheus.Gauge
	sourcesTotal    *prometheus.CounterVec
	fetchTotal      *prometheus.CounterVec
	fetchAttempts   prometheus.Histogram
	fetchDuration   prometheus.Histogram
	classifications *prometheus.CounterVec
	articlesTotal   *prometheus.CounterVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// New registers all collectors, plus Go and process collectors, on a fresh registry.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Monitoring runs by final status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of monitoring runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		sourcesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_total",
			Help:      "Per-source outcomes",
		}, []string{"outcome"}),
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Fetches by final HTTP status code",
		}, []string{"code"}),
		fetchAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_attempts",
			Help:      "HTTP requests issued per fetch",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetches including retries",
			Buckets:   prometheus.DefBuckets,
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classifier results",
		}, []string{"result"}),
		articlesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Newly stored relevant articles by sector",
		}, []string{"sector"}),
	}
}

func (p *Prometheus) ObserveFetch(status int, attempts int, d time.Duration) {
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	p.fetchTotal.WithLabelValues(code).Inc()
	if attempts > 0 {
		p.fetchAttempts.Observe(float64(attempts))
	}
	p.fetchDuration.Observe(d.Seconds())
}

func (p *Prometheus) ObserveSource(outcome string) {
	p.sourcesTotal.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) ObserveClassification(result string) {
	p.classifications.WithLabelValues(result).Inc()
}

func (p *Prometheus) ObserveArticle(sector domain.Sector) {
	label := string(sector)
	if label == "" {
		label = "unknown"
	}
	p.articlesTotal.WithLabelValues(label).Inc()
}

func (p *Prometheus) ObserveRun(status string, d time.Duration) {
	p.runsTotal.WithLabelValues(status).Inc()
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
