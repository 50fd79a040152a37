// Package prompush implements a Prometheus Pushgateway backend for
// internal/metrics. Samples accumulate in a private registry and are pushed
// under the job's grouping key on every Flush.
package prompush

import (
	"strings"

	"dataingest/internal/metrics"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend implements metrics.Backend.
type Backend struct {
	pusher *push.Pusher

	files    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.HistogramVec
}

// NewBackend returns a backend pushing to gatewayURL as job.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil, errors.New("prompush: empty pushgateway url")
	}
	if job == "" {
		job = "ingest"
	}

	b := &Backend{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "Files ingested, by outcome and source kind.",
		}, []string{"status", "kind"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows of completed files, by source kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: metrics.FileDurationSeconds,
			Help: "Time to read, parse, infer and audit one file.",
			// 1ms to ~16s.
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"status", "kind"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.FileBytes,
			Help:    "Input size of one file.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"status", "kind"}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(b.files, b.rows, b.duration, b.bytes)
	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.FilesTotal:
		b.files.WithLabelValues(labels["status"], labels["kind"]).Add(delta)
	case metrics.RowsTotal:
		b.rows.WithLabelValues(labels["kind"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	switch name {
	case metrics.FileDurationSeconds:
		b.duration.WithLabelValues(labels["status"], labels["kind"]).Observe(value)
	case metrics.FileBytes:
		b.bytes.WithLabelValues(labels["status"], labels["kind"]).Observe(value)
	}
}

// Flush pushes the registry, replacing the job's previous push.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return errors.Wrap(err, "prompush: push")
	}
	return nil
}

var _ metrics.Backend = (*Backend)(nil)
