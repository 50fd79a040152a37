// Package file feeds local files to the Ingestor.
package file

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"dataingest/internal/ingest"

	"github.com/cockroachdb/errors"
)

// Source is a local file. Metadata is read at construction; the content is
// opened only when the Ingestor reaches it.
type Source struct {
	path string
	info ingest.SourceFile
}

// Open stats path and returns a Source for it. The MIME hint comes from the
// extension and may be empty.
func Open(path string) (*Source, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if st.IsDir() {
		return nil, errors.Newf("%s is a directory", path)
	}
	return &Source{
		path: path,
		info: ingest.SourceFile{
			Name:         filepath.Base(path),
			ByteSize:     st.Size(),
			MIMEHint:     mimeFor(path),
			LastModified: st.ModTime(),
		},
	}, nil
}

// OpenAll opens every path and stops at the first error.
func OpenAll(paths []string) ([]*Source, error) {
	out := make([]*Source, 0, len(paths))
	for _, p := range paths {
		s, err := Open(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Source) Path() string { return s.path }

func (s *Source) Info() ingest.SourceFile { return s.info }

func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	return f, nil
}

func mimeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return ""
	}
	return mt
}
