// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the pipeline and notification code report to
type Recorder interface {
	RecordTick(fetched int, duration time.Duration)
	RecordDocumentProcessed()
	RecordDocumentFailed()
	RecordClassifierFallback()
	RecordAugmentation(success bool)
	RecordNotificationsSent(count int)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	ticks              prometheus.Counter
	tickLatency        prometheus.Histogram
	documentsFetched   prometheus.Counter
	documentsProcessed prometheus.Counter
	documentsFailed    prometheus.Counter
	classifierFallback prometheus.Counter
	augmentations      *prometheus.CounterVec
	notificationsSent  prometheus.Counter
}

var _ Recorder = &Collector{}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_pipeline_ticks_total",
			Help: "Number of pipeline ticks run",
		}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_pipeline_tick_duration_seconds",
			Help:    "Duration of pipeline ticks",
			Buckets: prometheus.DefBuckets,
		}),
		documentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_documents_fetched_total",
			Help: "Unprocessed documents fetched by the pipeline",
		}),
		documentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_documents_processed_total",
			Help: "Documents marked processed",
		}),
		documentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_documents_failed_total",
			Help: "Document attempts left unprocessed for retry",
		}),
		classifierFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_classifier_fallback_total",
			Help: "Classifications that fell back to the default record",
		}),
		augmentations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_trial_augmentations_total",
			Help: "Trial sub-record upserts by result",
		}, []string{"result"}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_notifications_sent_total",
			Help: "Notification history rows written by broadcast",
		}),
	}

	reg.MustRegister(
		c.ticks,
		c.tickLatency,
		c.documentsFetched,
		c.documentsProcessed,
		c.documentsFailed,
		c.classifierFallback,
		c.augmentations,
		c.notificationsSent,
	)

	return c
}

func (c *Collector) RecordTick(fetched int, duration time.Duration) {
	c.ticks.Inc()
	c.documentsFetched.Add(float64(fetched))
	c.tickLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordDocumentProcessed() {
	c.documentsProcessed.Inc()
}

func (c *Collector) RecordDocumentFailed() {
	c.documentsFailed.Inc()
}

func (c *Collector) RecordClassifierFallback() {
	c.classifierFallback.Inc()
}

func (c *Collector) RecordAugmentation(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.augmentations.WithLabelValues(result).Inc()
}

func (c *Collector) RecordNotificationsSent(count int) {
	c.notificationsSent.Add(float64(count))
}

// Handler serves the registry for Prometheus scraping
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordTick(int, time.Duration) {}
func (Nop) RecordDocumentProcessed() {}
func (Nop) RecordDocumentFailed() {}
func (Nop) RecordClassifierFallback() {}
func (Nop) RecordAugmentation(bool) {}
func (Nop) RecordNotificationsSent(int) {}
