package ingest

import "fmt"

// Batch is an immutable snapshot of the completed datasets of one session,
// in submission order, plus the selected index.
//
// The Ingestor never edits a published Batch; every change publishes a new
// one. Readers may hold a Batch for as long as they like.
type Batch struct {
	datasets []*Dataset
	slots    []string // slot ID per dataset
	selected int
}

var emptyBatch = &Batch{selected: -1}

// Len returns the number of datasets.
func (b *Batch) Len() int { return len(b.datasets) }

// Datasets returns the datasets in submission order.
func (b *Batch) Datasets() []*Dataset {
	return append([]*Dataset(nil), b.datasets...)
}

// At returns the i-th dataset.
func (b *Batch) At(i int) (*Dataset, bool) {
	if i < 0 || i >= len(b.datasets) {
		return nil, false
	}
	return b.datasets[i], true
}

// SelectedIndex is the index of the active dataset, or -1 when empty.
func (b *Batch) SelectedIndex() int { return b.selected }

// Selected returns the active dataset.
func (b *Batch) Selected() (*Dataset, bool) { return b.At(b.selected) }

// SlotOf returns the slot ID that produced the i-th dataset.
func (b *Batch) SlotOf(i int) string {
	if i < 0 || i >= len(b.slots) {
		return ""
	}
	return b.slots[i]
}

// withAppended returns b plus d. The first dataset of an empty batch becomes
// the selection.
func (b *Batch) withAppended(slot string, d *Dataset) *Batch {
	nb := &Batch{
		datasets: append(append(make([]*Dataset, 0, len(b.datasets)+1), b.datasets...), d),
		slots:    append(append(make([]string, 0, len(b.slots)+1), b.slots...), slot),
		selected: b.selected,
	}
	if nb.selected < 0 {
		nb.selected = 0
	}
	return nb
}

// withoutSlot returns b minus the dataset produced by slot. The selection
// follows the dataset it pointed at; if that one is removed, the dataset now
// at the same position (or the last one) is selected.
func (b *Batch) withoutSlot(slot string) (*Batch, bool) {
	at := -1
	for i, s := range b.slots {
		if s == slot {
			at = i
			break
		}
	}
	if at < 0 {
		return b, false
	}

	nb := &Batch{
		datasets: make([]*Dataset, 0, len(b.datasets)-1),
		slots:    make([]string, 0, len(b.slots)-1),
		selected: b.selected,
	}
	nb.datasets = append(append(nb.datasets, b.datasets[:at]...), b.datasets[at+1:]...)
	nb.slots = append(append(nb.slots, b.slots[:at]...), b.slots[at+1:]...)

	switch {
	case len(nb.datasets) == 0:
		nb.selected = -1
	case at < b.selected:
		nb.selected--
	case nb.selected >= len(nb.datasets):
		nb.selected = len(nb.datasets) - 1
	}
	return nb, true
}

func (b *Batch) withSelected(i int) *Batch {
	return &Batch{datasets: b.datasets, slots: b.slots, selected: i}
}

// BatchState is the aggregate progress of a batch.
type BatchState struct {
	Queued   int `json:"queued"`
	InFlight int `json:"inFlight"`
	Done     int `json:"done"`
	Failed   int `json:"failed"`
}

// Terminal reports whether every submitted file is Completed or Failed.
func (s BatchState) Terminal() bool { return s.Queued == 0 && s.InFlight == 0 }

func (s BatchState) String() string {
	return fmt.Sprintf("queued=%d in_flight=%d done=%d failed=%d", s.Queued, s.InFlight, s.Done, s.Failed)
}

// SlotState is the per-file state.
type SlotState int

const (
	SlotQueued SlotState = iota
	SlotParsing
	SlotCompleted
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotQueued:
		return "queued"
	case SlotParsing:
		return "parsing"
	case SlotCompleted:
		return "completed"
	case SlotFailed:
		return "failed"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Terminal reports whether s is Completed or Failed.
func (s SlotState) Terminal() bool { return s == SlotCompleted || s == SlotFailed }

// SlotInfo is a read-only view of one submitted file.
type SlotInfo struct {
	ID     string
	Source SourceFile
	State  SlotState
	// Err is the *ingesterr.ParseError of a failed slot.
	Err error
}
