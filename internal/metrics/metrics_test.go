package metrics

import (
	"sync"
	"testing"
	"time"
)

type sample struct {
	name   string
	value  float64
	labels Labels
}

type recorder struct {
	mu       sync.Mutex
	counters []sample
	hists    []sample
	flushes  int
}

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, sample{name, delta, labels})
}

func (r *recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists = append(r.hists, sample{name, value, labels})
}

func (r *recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

// TestRecordFile verifies the samples emitted per file outcome.
//
// Not parallel: it swaps the process-wide backend.
func TestRecordFile(t *testing.T) {
	rec := &recorder{}
	SetBackend(rec)
	t.Cleanup(func() { SetBackend(nil) })

	RecordFile(StatusCompleted, "json", 3, 120, 1500*time.Millisecond)
	RecordFile(StatusFailed, "", 7, 10, time.Millisecond)
	if err := Flush(); err != nil {
		t.Fatalf("Flush err=%v", err)
	}

	if len(rec.counters) != 3 {
		t.Fatalf("counters = %+v, want files x2 + rows x1", rec.counters)
	}
	if c := rec.counters[0]; c.name != FilesTotal || c.labels["status"] != StatusCompleted || c.labels["kind"] != "json" {
		t.Fatalf("first counter = %+v", c)
	}
	if c := rec.counters[1]; c.name != RowsTotal || c.value != 3 {
		t.Fatalf("rows counter = %+v", c)
	}
	if c := rec.counters[2]; c.name != FilesTotal || c.labels["status"] != StatusFailed {
		t.Fatalf("failed counter = %+v", c)
	}
	if len(rec.hists) != 4 {
		t.Fatalf("histograms = %+v, want duration+bytes per file", rec.hists)
	}
	if h := rec.hists[0]; h.name != FileDurationSeconds || h.value != 1.5 {
		t.Fatalf("duration sample = %+v", h)
	}
	if h := rec.hists[1]; h.name != FileBytes || h.value != 120 {
		t.Fatalf("bytes sample = %+v", h)
	}
	if rec.flushes != 1 {
		t.Fatalf("flushes = %d", rec.flushes)
	}
}

func TestNopBackend(t *testing.T) {
	t.Parallel()

	var b Backend = nopBackend{}
	b.IncCounter(FilesTotal, 1, nil)
	b.ObserveHistogram(FileBytes, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("nop Flush err=%v", err)
	}
}
