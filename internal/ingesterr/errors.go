// Package ingesterr holds the per-file failure taxonomy of the ingestion engine.
//
// Every failure is scoped to one file. The batch records it against the
// file's slot and moves on; nothing here is process-fatal.
package ingesterr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Use errors.Is against these; ParseError matches the
// sentinel of its Kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrMalformedDocument = errors.New("malformed document")
	ErrOversizeInput     = errors.New("input exceeds size limit")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoDataset         = errors.New("no such dataset")
)

// Kind classifies a per-file failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFormat
	KindMalformedDocument
	KindOversizeInput
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindMalformedDocument:
		return "MalformedDocument"
	case KindOversizeInput:
		return "OversizeInput"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindMalformedDocument:
		return ErrMalformedDocument
	case KindOversizeInput:
		return ErrOversizeInput
	default:
		return nil
	}
}

// ParseError is the terminal error for one file.
type ParseError struct {
	Kind Kind
	File string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.File, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedDocument) match a ParseError of that kind
// even when the cause chain does not carry the sentinel itself.
func (e *ParseError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Unsupported builds an UnsupportedFormat cause.
func Unsupported(format string, args ...any) error {
	return errors.WithHint(
		errors.Mark(errors.Newf(format, args...), ErrUnsupportedFormat),
		"supported inputs are delimited text (.csv, .tsv, .txt), JSON (.json, .ndjson, .jsonl) and HTML tables",
	)
}

// Malformed wraps a structural parse failure as MalformedDocument.
func Malformed(cause error, format string, args ...any) error {
	if cause == nil {
		return errors.Mark(errors.Newf(format, args...), ErrMalformedDocument)
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrMalformedDocument)
}

// Oversize builds an OversizeInput cause for a file larger than limit bytes.
func Oversize(size, limit int64) error {
	err := errors.Newf("size %d bytes exceeds limit of %d bytes", size, limit)
	return errors.WithHintf(errors.Mark(err, ErrOversizeInput), "raise max_file_size above %d bytes or split the file", limit)
}

// KindOf maps err onto the taxonomy. Errors outside it return KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *ParseError
	if errors.As(err, &pe) && pe.Kind != KindUnknown {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(err, ErrOversizeInput):
		return KindOversizeInput
	default:
		return KindUnknown
	}
}

// Wrap turns any stage error for file into a *ParseError. Errors that already
// are ParseErrors pass through; causes outside the taxonomy are classified as
// MalformedDocument since every stage failure means the bytes could not be
// turned into a table.
func Wrap(file string, err error) *ParseError {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	k := KindOf(err)
	if k == KindUnknown {
		k = KindMalformedDocument
	}
	return &ParseError{Kind: k, File: file, Err: err}
}

// Hints returns the user-facing hints attached anywhere in err's chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}
