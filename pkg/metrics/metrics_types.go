// Package metrics exposes Prometheus instrumentation for bag recording and
// playback.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the bag library
type Registry struct {
	// Writer metrics
	BagsOpen            prometheus.Gauge
	RecordsWrittenTotal *prometheus.CounterVec
	BytesWrittenTotal   prometheus.Counter
	WriteDuration       prometheus.Histogram
	WritesDiscarded     prometheus.Counter
	IndexEntriesTotal   *prometheus.GaugeVec

	// Reader metrics
	InstantiateDuration prometheus.Histogram
	InstantiatesTotal   *prometheus.CounterVec

	// Disk supervision
	DiskFreeBytes  prometheus.Gauge
	DiskCheckTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initWriterMetrics()
	r.initReaderMetrics()
	r.initDiskMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
