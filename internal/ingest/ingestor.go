// Package ingest is the entry point of the ingestion engine.
//
// An Ingestor takes files (Submit), parses them one at a time in submission
// order (Run) and publishes each completed Dataset into an immutable Batch
// snapshot. Per file the state moves Queued → Parsing → Completed or Failed.
// A failure is recorded on the file's slot and the run moves on.
package ingest

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"dataingest/internal/config"
	"dataingest/internal/ingesterr"
	"dataingest/internal/metrics"
	"dataingest/internal/parser"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.log = l
		}
	}
}

// WithConfig applies max_file_size and the parser options of c.
func WithConfig(c config.Config) Option {
	return func(in *Ingestor) { in.cfg = &c }
}

// WithParserOptions replaces the parser option bag.
func WithParserOptions(o config.Options) Option {
	return func(in *Ingestor) { in.parserOpts = o }
}

// WithMaxFileBytes sets the per-file ceiling; 0 disables it.
func WithMaxFileBytes(n int64) Option {
	return func(in *Ingestor) {
		in.maxBytes = n
		in.maxBytesSet = true
	}
}

// WithProgress registers fn to receive the aggregate state after every
// transition. fn runs on the goroutine that caused the transition and must
// not call back into the Ingestor's mutating methods.
func WithProgress(fn func(BatchState)) Option {
	return func(in *Ingestor) { in.progress = fn }
}

type slot struct {
	id      string
	src     Source
	info    SourceFile
	state   SlotState
	err     error
	removed bool
}

// Ingestor drives files through parse, inference and audit.
//
// All methods are safe for concurrent use. Run processes one file at a time;
// a second concurrent Run waits for the first.
type Ingestor struct {
	log        *zap.Logger
	cfg        *config.Config
	parserOpts config.Options
	maxBytes   int64
	progress   func(BatchState)
	now        func() time.Time

	maxBytesSet bool

	runMu sync.Mutex

	mu    sync.Mutex
	slots []*slot

	batch atomic.Pointer[Batch]
}

// New builds an Ingestor. It fails only when WithConfig carries an
// unparsable max_file_size.
func New(opts ...Option) (*Ingestor, error) {
	in := &Ingestor{
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(in)
	}

	if in.cfg != nil {
		if in.parserOpts == nil {
			in.parserOpts = in.cfg.Parser
		}
		if !in.maxBytesSet {
			n, err := in.cfg.MaxFileBytes()
			if err != nil {
				return nil, errors.Mark(err, ingesterr.ErrInvalidConfig)
			}
			in.maxBytes = n
		}
	} else if !in.maxBytesSet {
		n, _ := config.Default().MaxFileBytes()
		in.maxBytes = n
	}

	in.batch.Store(emptyBatch)
	return in, nil
}

// Submit queues src and returns its slot ID.
func (in *Ingestor) Submit(src Source) string {
	s := &slot{id: uuid.NewString(), src: src, info: src.Info(), state: SlotQueued}

	in.mu.Lock()
	in.slots = append(in.slots, s)
	st := in.stateLocked()
	in.mu.Unlock()

	in.log.Debug("file queued", zap.String("file", s.info.Name), zap.String("slot", s.id), zap.Int64("bytes", s.info.ByteSize))
	in.notify(st)
	return s.id
}

// Remove drops a slot.
//
// A queued or failed slot is forgotten. A completed slot's Dataset is
// evicted from the Batch. A slot being parsed finishes, and its result is
// discarded. Unknown IDs return an error matching ingesterr.ErrNoDataset.
func (in *Ingestor) Remove(id string) error {
	in.mu.Lock()
	idx := in.indexLocked(id)
	if idx < 0 {
		in.mu.Unlock()
		return errNoDataset("no slot %q", id)
	}
	s := in.slots[idx]
	if s.state == SlotParsing {
		s.removed = true
	} else {
		in.slots = append(in.slots[:idx:idx], in.slots[idx+1:]...)
		if s.state == SlotCompleted {
			if nb, ok := in.batch.Load().withoutSlot(id); ok {
				in.batch.Store(nb)
			}
		}
	}
	st := in.stateLocked()
	in.mu.Unlock()

	in.log.Debug("file removed", zap.String("file", s.info.Name), zap.String("slot", id), zap.Stringer("state", s.state))
	in.notify(st)
	return nil
}

// Reset forgets every slot and publishes an empty Batch. A file being
// parsed finishes and is discarded.
func (in *Ingestor) Reset() {
	in.mu.Lock()
	kept := in.slots[:0:0]
	for _, s := range in.slots {
		if s.state == SlotParsing {
			s.removed = true
			kept = append(kept, s)
		}
	}
	in.slots = kept
	in.batch.Store(emptyBatch)
	st := in.stateLocked()
	in.mu.Unlock()

	in.log.Debug("batch reset")
	in.notify(st)
}

// Batch returns the current snapshot.
func (in *Ingestor) Batch() *Batch { return in.batch.Load() }

// Select makes the i-th dataset of the current Batch the active one.
func (in *Ingestor) Select(i int) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	b := in.batch.Load()
	if i < 0 || i >= b.Len() {
		return errNoDataset("no dataset at index %d (batch has %d)", i, b.Len())
	}
	in.batch.Store(b.withSelected(i))
	return nil
}

// SelectSlot makes the dataset produced by slot id the active one.
func (in *Ingestor) SelectSlot(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	b := in.batch.Load()
	for i, s := range b.slots {
		if s == id {
			in.batch.Store(b.withSelected(i))
			return nil
		}
	}
	return errNoDataset("slot %q has no dataset", id)
}

// State returns the aggregate progress.
func (in *Ingestor) State() BatchState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stateLocked()
}

// Slots lists every known slot in submission order.
func (in *Ingestor) Slots() []SlotInfo {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]SlotInfo, 0, len(in.slots))
	for _, s := range in.slots {
		if s.removed {
			continue
		}
		out = append(out, SlotInfo{ID: s.id, Source: s.info, State: s.state, Err: s.err})
	}
	return out
}

// Run parses queued files one at a time in submission order until none is
// left, including files submitted while it runs.
//
// ctx is checked between files only; a file that has started always reaches
// Completed or Failed. Run returns ctx.Err() when stopped early, otherwise
// nil: file failures are reported per slot, not here.
func (in *Ingestor) Run(ctx context.Context) (BatchState, error) {
	in.runMu.Lock()
	defer in.runMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return in.State(), err
		}

		in.mu.Lock()
		s := in.nextQueuedLocked()
		if s == nil {
			st := in.stateLocked()
			in.mu.Unlock()
			return st, nil
		}
		s.state = SlotParsing
		st := in.stateLocked()
		in.mu.Unlock()

		in.log.Debug("file parsing", zap.String("file", s.info.Name), zap.String("slot", s.id), zap.Stringer("state", SlotParsing))
		in.notify(st)

		in.process(ctx, s)
	}
}

// process runs one file to a terminal state and publishes the result.
func (in *Ingestor) process(ctx context.Context, s *slot) {
	start := in.now()
	ds, err := in.parseFile(ctx, s)
	took := in.now().Sub(start)

	kind := ""
	if ds != nil {
		kind = ds.Kind().String()
	}

	in.mu.Lock()
	if err != nil {
		s.state = SlotFailed
		s.err = err
	} else {
		s.state = SlotCompleted
	}
	if s.removed {
		in.slots = removeSlot(in.slots, s)
	} else if ds != nil {
		in.batch.Store(in.batch.Load().withAppended(s.id, ds))
	}
	st := in.stateLocked()
	in.mu.Unlock()

	fields := []zap.Field{
		zap.String("file", s.info.Name),
		zap.String("slot", s.id),
		zap.Stringer("state", s.state),
		zap.Int64("duration_ms", took.Milliseconds()),
	}
	if err != nil {
		metrics.RecordFile(metrics.StatusFailed, kind, 0, s.info.ByteSize, took)
		in.log.Warn("file failed", append(fields, zap.Error(err), zap.Strings("hints", ingesterr.Hints(err)))...)
	} else {
		metrics.RecordFile(metrics.StatusCompleted, kind, ds.Len(), s.info.ByteSize, took)
		in.log.Info("file completed", append(fields,
			zap.Int("rows", ds.Len()),
			zap.Int("columns", len(ds.header)),
			zap.Int("missing", ds.quality.MissingValueCount),
			zap.Int("duplicates", ds.quality.DuplicateRowCount),
		)...)
	}
	if s.removed {
		in.log.Debug("discarded result of removed file", zap.String("slot", s.id))
	}

	in.notify(st)
}

// parseFile reads, parses, infers and audits one file. Every error is a
// *ingesterr.ParseError.
func (in *Ingestor) parseFile(ctx context.Context, s *slot) (*Dataset, error) {
	info := s.info
	if in.maxBytes > 0 && info.ByteSize > in.maxBytes {
		return nil, ingesterr.Wrap(info.Name, ingesterr.Oversize(info.ByteSize, in.maxBytes))
	}

	data, err := in.read(ctx, s.src)
	if err != nil {
		return nil, ingesterr.Wrap(info.Name, err)
	}
	if in.maxBytes > 0 && int64(len(data)) > in.maxBytes {
		size := info.ByteSize
		if size <= in.maxBytes {
			size = int64(len(data))
		}
		return nil, ingesterr.Wrap(info.Name, ingesterr.Oversize(size, in.maxBytes))
	}

	res, err := parser.Parse(parser.Input{Name: info.Name, ContentType: info.MIMEHint, Data: data}, in.parserOpts)
	if err != nil {
		return nil, ingesterr.Wrap(info.Name, err)
	}

	if info.ByteSize == 0 {
		info.ByteSize = int64(len(data))
	}
	return newDataset(info, res.Kind, res.Table), nil
}

// read returns the file bytes, at most maxBytes+1 of them so an oversize
// stream is detected without reading it whole.
func (in *Ingestor) read(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer rc.Close()

	var r io.Reader = rc
	if in.maxBytes > 0 {
		r = io.LimitReader(rc, in.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return data, nil
}

func (in *Ingestor) notify(st BatchState) {
	if in.progress != nil {
		in.progress(st)
	}
}

func (in *Ingestor) stateLocked() BatchState {
	var st BatchState
	for _, s := range in.slots {
		if s.removed {
			continue
		}
		switch s.state {
		case SlotQueued:
			st.Queued++
		case SlotParsing:
			st.InFlight++
		case SlotCompleted:
			st.Done++
		case SlotFailed:
			st.Failed++
		}
	}
	return st
}

func (in *Ingestor) indexLocked(id string) int {
	for i, s := range in.slots {
		if s.id == id && !s.removed {
			return i
		}
	}
	return -1
}

func (in *Ingestor) nextQueuedLocked() *slot {
	for _, s := range in.slots {
		if s.state == SlotQueued {
			return s
		}
	}
	return nil
}

func removeSlot(slots []*slot, target *slot) []*slot {
	out := slots[:0:0]
	for _, s := range slots {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
