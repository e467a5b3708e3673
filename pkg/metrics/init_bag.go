package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initWriterMetrics() {
	r.BagsOpen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bag_open_total",
			Help: "Number of currently open bag files",
		},
	)

	r.RecordsWrittenTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bag_records_written_total",
			Help: "Total number of records written, by record op",
		},
		[]string{"op"},
	)

	r.BytesWrittenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "bag_bytes_written_total",
			Help: "Total serialized message payload bytes written to bag files",
		},
	)

	r.WriteDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bag_write_duration_seconds",
			Help:    "Message write duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.WritesDiscarded = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "bag_writes_discarded_total",
			Help: "Messages dropped because writing was disabled",
		},
	)

	r.IndexEntriesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bag_index_entries",
			Help: "In-memory index entries per topic",
		},
		[]string{"topic"},
	)
}

func (r *Registry) initReaderMetrics() {
	r.InstantiateDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bag_instantiate_duration_seconds",
			Help:    "Message instantiate duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.InstantiatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bag_instantiates_total",
			Help: "Total instantiate calls, by outcome",
		},
		[]string{"status"},
	)
}

func (r *Registry) initDiskMetrics() {
	r.DiskFreeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bag_disk_free_bytes",
			Help: "Free disk space observed by the last disk check",
		},
	)

	r.DiskCheckTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bag_disk_checks_total",
			Help: "Disk space checks, by outcome",
		},
		[]string{"status"},
	)
}
