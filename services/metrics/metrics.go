// Package metrics exposes the application lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erasmushub/erasmushub/core"
)

type Prometheus struct {
	registry *prometheus.Registry

	applicationsCreated prometheus.Counter
	applicationsDecided *prometheus.CounterVec
	documentsUploaded   prometheus.Counter
}

var _ core.Metrics = (*Prometheus)(nil)

// New registers the counters on a dedicated registry, along with the Go and process collectors.
func New(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		applicationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_created_total",
			Help:      "Total number of submitted applications",
		}),
		applicationsDecided: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applications_decided_total",
				Help:      "Total number of application decisions",
			},
			[]string{"status"},
		),
		documentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_uploaded_total",
			Help:      "Total number of stored document files",
		}),
	}
}

func (p *Prometheus) ApplicationCreated() {
	p.applicationsCreated.Inc()
}

func (p *Prometheus) ApplicationDecided(status string) {
	p.applicationsDecided.WithLabelValues(status).Inc()
}

func (p *Prometheus) DocumentsUploaded(n int) {
	if n > 0 {
		p.documentsUploaded.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
