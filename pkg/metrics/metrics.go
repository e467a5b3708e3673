package metrics

import (
	"time"
)

// RecordWrite records a completed message write
func (r *Registry) RecordWrite(op string, bytes uint64, duration time.Duration) {
	r.RecordsWrittenTotal.WithLabelValues(op).Inc()
	r.BytesWrittenTotal.Add(float64(bytes))
	r.WriteDuration.Observe(duration.Seconds())
}

// RecordDiscard records a message dropped while writing is disabled
func (r *Registry) RecordDiscard() {
	r.WritesDiscarded.Inc()
}

// RecordInstantiate records an instantiate call and its outcome
func (r *Registry) RecordInstantiate(status string, duration time.Duration) {
	r.InstantiatesTotal.WithLabelValues(status).Inc()
	r.InstantiateDuration.Observe(duration.Seconds())
}

// RecordDiskCheck records a disk supervision pass
func (r *Registry) RecordDiskCheck(status string, freeBytes uint64) {
	r.DiskCheckTotal.WithLabelValues(status).Inc()
	r.DiskFreeBytes.Set(float64(freeBytes))
}

// SetIndexEntries updates the per-topic index entry gauge
func (r *Registry) SetIndexEntries(topic string, n int) {
	r.IndexEntriesTotal.WithLabelValues(topic).Set(float64(n))
}
