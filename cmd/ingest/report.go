package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"

	"dataingest/internal/exporter"
	"dataingest/internal/ingest"
	"dataingest/internal/ingesterr"
	"dataingest/internal/quality"
	"dataingest/internal/schema"
)

type columnSummary struct {
	Name     string            `json:"name"`
	Type     schema.ColumnType `json:"type"`
	Nulls    int               `json:"nulls"`
	Distinct int               `json:"distinct"`
}

type fileSummary struct {
	Slot     string            `json:"slot"`
	File     ingest.SourceFile `json:"file"`
	State    string            `json:"state"`
	Kind     string            `json:"kind,omitempty"`
	Rows     int               `json:"rows"`
	Columns  []columnSummary   `json:"columns,omitempty"`
	Quality  *quality.Report   `json:"quality,omitempty"`
	Error    string            `json:"error,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Hints    []string          `json:"hints,omitempty"`
	Selected bool              `json:"selected,omitempty"`
}

type runSummary struct {
	State  ingest.BatchState `json:"state"`
	Files  []fileSummary     `json:"files"`
	Export *exporter.Result  `json:"export,omitempty"`
}

func summarizeDataset(ds *ingest.Dataset) ([]columnSummary, *quality.Report) {
	q := ds.Quality()
	types := ds.Types()
	cols := make([]columnSummary, len(types))
	for i, name := range ds.Header() {
		cols[i] = columnSummary{Name: name, Type: types[i]}
		if i < len(q.Columns) {
			cols[i].Nulls = q.Columns[i].Nulls
			cols[i].Distinct = q.Columns[i].Distinct
		}
	}
	return cols, &q
}

// summarize joins the slot list with the batch snapshot.
func summarize(st ingest.BatchState, slots []ingest.SlotInfo, b *ingest.Batch) runSummary {
	bySlot := make(map[string]int, b.Len())
	for i := 0; i < b.Len(); i++ {
		bySlot[b.SlotOf(i)] = i
	}

	sum := runSummary{State: st, Files: make([]fileSummary, 0, len(slots))}
	for _, s := range slots {
		fs := fileSummary{Slot: s.ID, File: s.Source, State: s.State.String()}
		if s.Err != nil {
			fs.Error = s.Err.Error()
			fs.Reason = ingesterr.KindOf(s.Err).String()
			fs.Hints = ingesterr.Hints(s.Err)
		}
		if i, ok := bySlot[s.ID]; ok {
			ds, _ := b.At(i)
			fs.Kind = ds.Kind().String()
			fs.Rows = ds.Len()
			fs.Columns, fs.Quality = summarizeDataset(ds)
			fs.Selected = i == b.SelectedIndex()
		}
		sum.Files = append(sum.Files, fs)
	}
	return sum
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	failColor = color.New(color.FgRed).SprintFunc()
	selColor  = color.New(color.Bold).SprintFunc()
)

func stateLabel(state string) string {
	switch state {
	case ingest.SlotCompleted.String():
		return okColor(state)
	case ingest.SlotFailed.String():
		return failColor(state)
	}
	return state
}

// printFiles writes one line per file.
func printFiles(w io.Writer, sum runSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILE\tSIZE\tSTATE\tKIND\tROWS\tCOLS\tMISSING\tDUPLICATES\tMEMORY")
	for i, f := range sum.Files {
		mark := ""
		if f.Selected {
			mark = selColor("*")
		}
		if f.Quality == nil {
			fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t-\t-\t-\t-\t-\t-\n",
				i, mark, f.File.Name, humanize.Bytes(uint64(f.File.ByteSize)), stateLabel(f.State))
			continue
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			i, mark, f.File.Name, humanize.Bytes(uint64(f.File.ByteSize)), stateLabel(f.State), f.Kind,
			humanize.Comma(int64(f.Rows)), len(f.Columns),
			humanize.Comma(int64(f.Quality.MissingValueCount)),
			humanize.Comma(int64(f.Quality.DuplicateRowCount)),
			humanize.Bytes(uint64(f.Quality.EstimatedMemoryBytes)),
		)
	}
	_ = tw.Flush()

	for _, f := range sum.Files {
		if f.Error == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", failColor(f.Reason), f.File.Name, f.Error)
		for _, h := range f.Hints {
			fmt.Fprintf(w, "  hint: %s\n", h)
		}
	}
	fmt.Fprintf(w, "done=%d failed=%d\n", sum.State.Done, sum.State.Failed)
}

// printColumns writes the inferred schema of one dataset.
func printColumns(w io.Writer, cols []columnSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS\tDISTINCT")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Type, c.Nulls, c.Distinct)
	}
	_ = tw.Flush()
}

// printPreview writes the first n rows of ds with typed values.
func printPreview(w io.Writer, ds *ingest.Dataset, n int) {
	if n <= 0 || ds.Len() == 0 {
		return
	}
	if n > ds.Len() {
		n = ds.Len()
	}
	header := ds.Header()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	cells := make([]string, len(header))
	for r := 0; r < n; r++ {
		for c, name := range header {
			v, err := ds.Cell(r, name)
			if err != nil {
				cells[c] = "?"
				continue
			}
			cells[c] = schema.FormatScalar(v)
			if v.IsNull() {
				cells[c] = "null"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	if n < ds.Len() {
		fmt.Fprintf(w, "... %s more rows\n", humanize.Comma(int64(ds.Len()-n)))
	}
}
