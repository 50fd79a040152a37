package csv

import (
	"bytes"
	"strconv"
	"strings"

	"dataingest/internal/config"
	"dataingest/pkg/records"
)

// Options controls delimited-text parsing.
type Options struct {
	// Comma is the field delimiter. Zero means sniff it from the header line.
	Comma rune
	// TrimSpace trims unquoted whitespace around fields (default true).
	TrimSpace bool
	// MultilineQuotes joins physical lines while a quoted span is open, so a
	// quoted field may contain newlines. Off by default: each physical line
	// is one record and an open quote runs to the end of that line.
	MultilineQuotes bool
}

// OptionsFrom reads parser options from the generic option bag:
//
//	delimiter (rune), trim_space (bool), multiline_quotes (bool)
func OptionsFrom(opt config.Options) Options {
	return Options{
		Comma:           opt.Rune("delimiter", 0),
		TrimSpace:       opt.Bool("trim_space", true),
		MultilineQuotes: opt.Bool("multiline_quotes", false),
	}
}

// ParseRows turns a delimited-text buffer into a header and rows.
//
// The first non-blank line is the header. Every later non-blank line is
// tokenized and zipped against the header positionally: short rows are
// padded with null, extra values are dropped. A buffer with no non-blank
// lines yields an empty table.
func ParseRows(data []byte, opt Options) records.Table {
	lines := splitLines(data, opt.MultilineQuotes)

	var tbl records.Table
	start := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			start = i
			break
		}
	}
	if start < 0 {
		return tbl
	}

	comma := opt.Comma
	if comma == 0 {
		comma = SniffDelimiter(lines[start])
	}

	tbl.Header = NormalizeHeader(SplitLine(lines[start], comma, true))
	tbl.Rows = make([]records.RawRow, 0, len(lines)-start-1)

	for _, ln := range lines[start+1:] {
		fields := SplitLine(ln, comma, opt.TrimSpace)
		if fields == nil {
			continue
		}
		tbl.Rows = append(tbl.Rows, records.FromStrings(tbl.Header, fields))
	}
	return tbl
}

// splitLines splits on \n, \r\n and lone \r. With multiline set, physical
// lines are joined with "\n" while a quoted span is open.
func splitLines(data []byte, multiline bool) []string {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	raw := strings.Split(string(data), "\n")
	if !multiline {
		return raw
	}

	out := make([]string, 0, len(raw))
	var (
		cur  strings.Builder
		open bool
	)
	for _, ln := range raw {
		if open {
			cur.WriteByte('\n')
		}
		cur.WriteString(ln)
		open = quoteOpenAfter(ln, open)
		if !open {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

var sniffCandidates = []rune{',', ';', '\t', '|'}

// SniffDelimiter picks the candidate delimiter that occurs most often outside
// quotes in the header line. Ties go to the earlier candidate; no hit means ','.
func SniffDelimiter(header string) rune {
	counts := make(map[rune]int, len(sniffCandidates))
	inQuotes := false
	for _, r := range header {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	best, bestN := ',', 0
	for _, c := range sniffCandidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

// NormalizeHeader cleans raw header fields so every column name is non-empty
// and unique:
//   - a UTF-8 BOM on the first name is stripped
//   - blank names become column_<n> (1-based position)
//   - repeated names get a _<k> suffix (k = 2, 3, ...)
func NormalizeHeader(raw []string) records.Header {
	h := make(records.Header, len(raw))
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		if strings.TrimSpace(name) == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		base := name
		for seen[name] > 0 {
			seen[base]++
			name = base + "_" + strconv.Itoa(seen[base])
		}
		seen[name]++
		h[i] = name
	}
	return h
}
