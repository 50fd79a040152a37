// Package metrics is the backend-neutral metrics facade used by the ingestor.
//
// Core code records through the package-level helpers; cmd/ingest picks a
// concrete Backend (Datadog, Prometheus Pushgateway) with SetBackend. The
// default backend discards everything.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric samples.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names.
const (
	FilesTotal          = "ingest_files_total"
	RowsTotal           = "ingest_rows_total"
	FileDurationSeconds = "ingest_file_duration_seconds"
	FileBytes           = "ingest_bytes"
)

// File statuses used as the "status" label.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b process-wide. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the current backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered samples of the current backend.
func Flush() error {
	return current().Flush()
}

// RecordFile records the outcome of ingesting one file.
//
// rows is only counted for completed files. kind is the source kind label
// ("delimited-text", "json", "html", or "" when detection failed).
func RecordFile(status, kind string, rows int, bytes int64, d time.Duration) {
	b := current()
	l := Labels{"status": status, "kind": kind}
	b.IncCounter(FilesTotal, 1, l)
	b.ObserveHistogram(FileDurationSeconds, d.Seconds(), l)
	b.ObserveHistogram(FileBytes, float64(bytes), l)
	if status == StatusCompleted && rows > 0 {
		b.IncCounter(RowsTotal, float64(rows), Labels{"kind": kind})
	}
}
