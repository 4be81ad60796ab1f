package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetricsRecorder abstracts batch-coordinator metrics so Coordinator can
// be tested without a live Prometheus registry, mirroring the
// SummaryMetricsRecorder split used by the single-call summarizer clients.
type BatchMetricsRecorder interface {
	RecordSubmitted(count int)
	RecordPollDuration(d time.Duration)
	RecordOutcome(success, failed int)
	RecordTimeout()
}

type PrometheusBatchMetrics struct {
	submittedCounter prometheus.Counter
	pollHistogram    prometheus.Histogram
	successCounter   prometheus.Counter
	failedCounter    prometheus.Counter
	timeoutCounter   prometheus.Counter
}

var (
	prometheusBatchMetricsInstance *PrometheusBatchMetrics
	prometheusBatchMetricsOnce     sync.Once
)

func NewPrometheusBatchMetrics() *PrometheusBatchMetrics {
	prometheusBatchMetricsOnce.Do(func() {
		prometheusBatchMetricsInstance = &PrometheusBatchMetrics{
			submittedCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "llm_batch_articles_submitted_total",
				Help: "Total articles submitted to the LLM batch coordinator.",
			}),
			pollHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "llm_batch_poll_duration_seconds",
				Help:    "Time spent polling a batch until it reached a terminal state.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			}),
			successCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "llm_batch_articles_succeeded_total",
				Help: "Total articles whose analysis succeeded.",
			}),
			failedCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "llm_batch_articles_failed_total",
				Help: "Total articles whose analysis failed.",
			}),
			timeoutCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "llm_batch_timeouts_total",
				Help: "Total batches that exceeded max_wait before completing.",
			}),
		}
	})
	return prometheusBatchMetricsInstance
}

func (m *PrometheusBatchMetrics) RecordSubmitted(count int)        { m.submittedCounter.Add(float64(count)) }
func (m *PrometheusBatchMetrics) RecordPollDuration(d time.Duration) {
	m.pollHistogram.Observe(d.Seconds())
}
func (m *PrometheusBatchMetrics) RecordOutcome(success, failed int) {
	m.successCounter.Add(float64(success))
	m.failedCounter.Add(float64(failed))
}
func (m *PrometheusBatchMetrics) RecordTimeout() { m.timeoutCounter.Inc() }

func getOrCreateCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
	}
	return c
}

func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
	}
	return h
}
