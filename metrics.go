package scaffold

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// OpMetrics counts contract operations across a host. All methods are
// safe for concurrent use; a nil *OpMetrics drops every observation.
type OpMetrics struct {
	validateTotal    atomic.Uint64
	validateValid    atomic.Uint64
	validateInvalid  atomic.Uint64
	validateRequests atomic.Uint64
	summarizeTotal   atomic.Uint64
	deltaTotal       atomic.Uint64
	updateTotal      atomic.Uint64
	updateRejected   atomic.Uint64
	decodeFailures   atomic.Uint64
	relatedFetches   atomic.Uint64
}

func NewOpMetrics() *OpMetrics { return &OpMetrics{} }

func (m *OpMetrics) ObserveValidate(res ValidateResult, err error) {
	if m == nil {
		return
	}
	m.validateTotal.Add(1)
	if err != nil {
		m.observeErr(err)
		return
	}
	switch res.Validity {
	case Valid:
		m.validateValid.Add(1)
	case Invalid:
		m.validateInvalid.Add(1)
	case RequestRelated:
		m.validateRequests.Add(1)
	}
}

func (m *OpMetrics) ObserveSummarize(err error) {
	if m == nil {
		return
	}
	m.summarizeTotal.Add(1)
	m.observeErr(err)
}

func (m *OpMetrics) ObserveDelta(err error) {
	if m == nil {
		return
	}
	m.deltaTotal.Add(1)
	m.observeErr(err)
}

func (m *OpMetrics) ObserveUpdate(err error) {
	if m == nil {
		return
	}
	m.updateTotal.Add(1)
	if _, ok := AsDomain(err); ok {
		m.updateRejected.Add(1)
	}
	m.observeErr(err)
}

func (m *OpMetrics) ObserveFetch() {
	if m == nil {
		return
	}
	m.relatedFetches.Add(1)
}

func (m *OpMetrics) observeErr(err error) {
	if _, ok := AsDecode(err); ok {
		m.decodeFailures.Add(1)
	}
}

// MetricsCollector exposes an OpMetrics as prometheus metrics.
type MetricsCollector struct {
	ops *OpMetrics

	// Prometheus descriptors for validation metrics
	validateTotal    *prometheus.Desc
	validateValid    *prometheus.Desc
	validateInvalid  *prometheus.Desc
	validateRequests *prometheus.Desc

	// Prometheus descriptors for the remaining operations
	summarizeTotal *prometheus.Desc
	deltaTotal     *prometheus.Desc
	updateTotal    *prometheus.Desc
	updateRejected *prometheus.Desc

	// Prometheus descriptors for failure and fetch accounting
	decodeFailures *prometheus.Desc
	relatedFetches *prometheus.Desc
}

func NewMetricsCollector(ops *OpMetrics) *MetricsCollector {
	return &MetricsCollector{
		ops: ops,

		// Validation metrics
		validateTotal: prometheus.NewDesc(
			"scaffold_validate_total",
			"Total number of state validations performed",
			nil, nil,
		),
		validateValid: prometheus.NewDesc(
			"scaffold_validate_valid_total",
			"Total number of validations that ended valid",
			nil, nil,
		),
		validateInvalid: prometheus.NewDesc(
			"scaffold_validate_invalid_total",
			"Total number of validations that ended invalid",
			nil, nil,
		),
		validateRequests: prometheus.NewDesc(
			"scaffold_validate_request_related_total",
			"Total number of validations that requested related state",
			nil, nil,
		),

		// Remaining operations
		summarizeTotal: prometheus.NewDesc(
			"scaffold_summarize_total",
			"Total number of state summarizations performed",
			nil, nil,
		),
		deltaTotal: prometheus.NewDesc(
			"scaffold_delta_total",
			"Total number of state deltas produced",
			nil, nil,
		),
		updateTotal: prometheus.NewDesc(
			"scaffold_update_total",
			"Total number of update batches folded",
			nil, nil,
		),
		updateRejected: prometheus.NewDesc(
			"scaffold_update_rejected_total",
			"Total number of update batches rejected by verification or apply",
			nil, nil,
		),

		// Failure and fetch accounting
		decodeFailures: prometheus.NewDesc(
			"scaffold_decode_failures_total",
			"Total number of operations that failed decoding a payload",
			nil, nil,
		),
		relatedFetches: prometheus.NewDesc(
			"scaffold_related_fetches_total",
			"Total number of related contract states fetched",
			nil, nil,
		),
	}
}

func (mc *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	// Validation metrics
	ch <- mc.validateTotal
	ch <- mc.validateValid
	ch <- mc.validateInvalid
	ch <- mc.validateRequests

	// Remaining operations
	ch <- mc.summarizeTotal
	ch <- mc.deltaTotal
	ch <- mc.updateTotal
	ch <- mc.updateRejected

	// Failure and fetch accounting
	ch <- mc.decodeFailures
	ch <- mc.relatedFetches
}

func (mc *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		mc.validateTotal,
		prometheus.CounterValue,
		float64(mc.ops.validateTotal.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.validateValid,
		prometheus.CounterValue,
		float64(mc.ops.validateValid.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.validateInvalid,
		prometheus.CounterValue,
		float64(mc.ops.validateInvalid.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.validateRequests,
		prometheus.CounterValue,
		float64(mc.ops.validateRequests.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.summarizeTotal,
		prometheus.CounterValue,
		float64(mc.ops.summarizeTotal.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.deltaTotal,
		prometheus.CounterValue,
		float64(mc.ops.deltaTotal.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.updateTotal,
		prometheus.CounterValue,
		float64(mc.ops.updateTotal.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.updateRejected,
		prometheus.CounterValue,
		float64(mc.ops.updateRejected.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.decodeFailures,
		prometheus.CounterValue,
		float64(mc.ops.decodeFailures.Load()),
	)
	ch <- prometheus.MustNewConstMetric(
		mc.relatedFetches,
		prometheus.CounterValue,
		float64(mc.ops.relatedFetches.Load()),
	)
}
