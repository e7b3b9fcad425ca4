// Package metrics exposes Prometheus collectors for the scanning pipeline and HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billscan"

// Document outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeNormalization = "normalization_error"
	OutcomeFailure       = "failure"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	documents           *prometheus.CounterVec
	pages               prometheus.Counter
	recognitionFailures prometheus.Counter
	stageDuration       *prometheus.HistogramVec
	categories          *prometheus.CounterVec
	itemsExtracted      prometheus.Histogram
	requests            *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry
// with the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		gatherer: reg,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by outcome.",
		}, []string{"outcome"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages normalized and sent to recognition.",
		}),
		recognitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_failures_total",
			Help:      "Pages whose recognition failed and contributed no text.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predicted_categories_total",
			Help:      "Predicted categories.",
		}, []string{"category"}),
		itemsExtracted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "items_per_document",
			Help:      "Item lines extracted per document.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.documents,
		m.pages,
		m.recognitionFailures,
		m.stageDuration,
		m.categories,
		m.itemsExtracted,
		m.requests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) DocumentProcessed(outcome string, items int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.itemsExtracted.Observe(float64(items))
	}
}

func (m *Metrics) PageProcessed() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

func (m *Metrics) RecognitionFailed() {
	if m == nil {
		return
	}
	m.recognitionFailures.Inc()
}

// ObserveStage records how long a named stage took since start
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) CategoryPredicted(category string) {
	if m == nil {
		return
	}
	m.categories.WithLabelValues(category).Inc()
}

func (m *Metrics) RequestServed(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
