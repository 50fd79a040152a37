package ingest

import (
	"bytes"
	"context"
	"io"
)

// Source supplies one file to the Ingestor. Info must be cheap; Open is
// called once, when the file's turn comes.
type Source interface {
	Info() SourceFile
	Open(ctx context.Context) (io.ReadCloser, error)
}

type bytesSource struct {
	info SourceFile
	data []byte
}

// FromBytes returns a Source over an in-memory buffer. ByteSize is set from
// len(data) when zero.
func FromBytes(info SourceFile, data []byte) Source {
	if info.ByteSize == 0 {
		info.ByteSize = int64(len(data))
	}
	return &bytesSource{info: info, data: data}
}

func (s *bytesSource) Info() SourceFile { return s.info }

func (s *bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
