// Package metrics provides Prometheus metrics for the fintrack service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Persistence metrics
	saves        prometheus.Counter
	saveErrors   *prometheus.CounterVec
	saveDuration prometheus.Histogram
	loads        prometheus.Counter
	loadErrors   *prometheus.CounterVec
	loadDuration prometheus.Histogram

	// Engine metrics
	edits           prometheus.Counter
	editsCoalesced  prometheus.Counter
	debounceFlushes prometheus.Counter
	monthsTracked   prometheus.Gauge
	engineState     prometheus.Gauge

	// Codec and gateway metrics
	snapshotEncodes      prometheus.Counter
	snapshotDecodes      prometheus.Counter
	snapshotDecodeErrors prometheus.Counter
	imports              prometheus.Counter
	importErrors         prometheus.Counter
	exports              prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Init builds the global manager and registers all collectors.
func Init(opts ...Option) {
	m := &Manager{
		namespace:        "fintrack",
		subsystem:        "core",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
			Buckets: m.histogramBuckets,
		})
	}

	m.saves = counter("saves_total", "Record set saves that reached durable storage")
	m.saveErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "save_errors_total", Help: "Failed saves by error kind",
	}, []string{"kind"})
	m.saveDuration = histogram("save_duration_ms", "Save latency in milliseconds")
	m.loads = counter("loads_total", "Record set loads")
	m.loadErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "load_errors_total", Help: "Failed loads by error kind",
	}, []string{"kind"})
	m.loadDuration = histogram("load_duration_ms", "Load latency in milliseconds")

	m.edits = counter("edits_total", "Month updates accepted by the engine")
	m.editsCoalesced = counter("edits_coalesced_total", "Edits absorbed into an already-armed debounce window")
	m.debounceFlushes = counter("debounce_flushes_total", "Debounce windows that closed and dispatched a save")
	m.monthsTracked = gauge("months_tracked", "Months present in the in-memory record set")
	m.engineState = gauge("engine_state", "Engine state machine position (ordinal)")

	m.snapshotEncodes = counter("snapshot_encodes_total", "Snapshot tokens issued")
	m.snapshotDecodes = counter("snapshot_decodes_total", "Snapshot tokens decoded")
	m.snapshotDecodeErrors = counter("snapshot_decode_errors_total", "Snapshot tokens rejected as invalid")
	m.imports = counter("imports_total", "Successful full-set imports")
	m.importErrors = counter("import_errors_total", "Rejected import documents")
	m.exports = counter("exports_total", "Full-set exports")

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "request_duration_ms", Help: "HTTP request latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	globalManager = m
}

// GetRegistry returns the registry backing the global manager, initializing
// the manager with defaults if needed.
func GetRegistry() *prometheus.Registry {
	if globalManager == nil {
		Init()
	}
	return globalManager.registry
}

// RecordSave counts one durable save and its latency.
func RecordSave(durationMs float64) {
	if globalManager == nil {
		return
	}
	globalManager.saves.Inc()
	globalManager.saveDuration.Observe(durationMs)
}

// RecordSaveError counts one failed save by kind.
func RecordSaveError(kind string) {
	if globalManager == nil {
		return
	}
	globalManager.saveErrors.WithLabelValues(kind).Inc()
}

// RecordLoad counts one load and its latency.
func RecordLoad(durationMs float64) {
	if globalManager == nil {
		return
	}
	globalManager.loads.Inc()
	globalManager.loadDuration.Observe(durationMs)
}

// RecordLoadError counts one failed load by kind.
func RecordLoadError(kind string) {
	if globalManager == nil {
		return
	}
	globalManager.loadErrors.WithLabelValues(kind).Inc()
}

// RecordEdit counts one accepted month update.
func RecordEdit() {
	if globalManager == nil {
		return
	}
	globalManager.edits.Inc()
}

// RecordEditCoalesced counts an edit that restarted an armed debounce timer.
func RecordEditCoalesced() {
	if globalManager == nil {
		return
	}
	globalManager.editsCoalesced.Inc()
}

// RecordDebounceFlush counts a closed debounce window.
func RecordDebounceFlush() {
	if globalManager == nil {
		return
	}
	globalManager.debounceFlushes.Inc()
}

// UpdateMonthsTracked sets the months gauge.
func UpdateMonthsTracked(n int) {
	if globalManager == nil {
		return
	}
	globalManager.monthsTracked.Set(float64(n))
}

// UpdateEngineState sets the state-machine ordinal gauge.
func UpdateEngineState(ordinal int) {
	if globalManager == nil {
		return
	}
	globalManager.engineState.Set(float64(ordinal))
}

// RecordSnapshotEncode counts an issued snapshot token.
func RecordSnapshotEncode() {
	if globalManager == nil {
		return
	}
	globalManager.snapshotEncodes.Inc()
}

// RecordSnapshotDecode counts a decode attempt; ok distinguishes rejects.
func RecordSnapshotDecode(ok bool) {
	if globalManager == nil {
		return
	}
	if ok {
		globalManager.snapshotDecodes.Inc()
		return
	}
	globalManager.snapshotDecodeErrors.Inc()
}

// RecordImport counts an import attempt.
func RecordImport(ok bool) {
	if globalManager == nil {
		return
	}
	if ok {
		globalManager.imports.Inc()
		return
	}
	globalManager.importErrors.Inc()
}

// RecordExport counts an export.
func RecordExport() {
	if globalManager == nil {
		return
	}
	globalManager.exports.Inc()
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager == nil {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	if globalManager == nil {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}
