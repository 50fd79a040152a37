// Package html reads the first data table of an HTML document as records.
package html

import (
	"io"
	"strings"

	"dataingest/internal/config"
	"dataingest/internal/ingesterr"
	csvparser "dataingest/internal/parser/csv"
	"dataingest/pkg/records"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// DefaultSelector matches the first <table> in the document.
const DefaultSelector = "table"

// Options controls table extraction.
type Options struct {
	// Selector picks the table; the first match wins.
	Selector string
}

// OptionsFrom reads html_table_selector from the option bag.
func OptionsFrom(opt config.Options) Options {
	sel := strings.TrimSpace(opt.String("html_table_selector", DefaultSelector))
	if sel == "" {
		sel = DefaultSelector
	}
	return Options{Selector: sel}
}

// ParseRows extracts the first table matched by opt.Selector.
//
// contentType is used to pick the character set when the document does not
// declare one in a <meta> tag; pass "text/html; charset=utf-8" for input that
// is already decoded.
//
// The header comes from the first row holding <th> cells, or from the first
// row when the table has no <th>. Rows above the header row (titles, notes)
// are skipped. Every row after it with at least one cell is a record. Cell
// text is whitespace-collapsed.
func ParseRows(r io.Reader, contentType string, opt Options) (records.Table, error) {
	sel := opt.Selector
	if sel == "" {
		sel = DefaultSelector
	}

	utf8r, err := charset.NewReader(r, contentType)
	if err != nil {
		return records.Table{}, ingesterr.Malformed(err, "html: detect charset")
	}
	doc, err := goquery.NewDocumentFromReader(utf8r)
	if err != nil {
		return records.Table{}, ingesterr.Malformed(err, "html: parse document")
	}

	table := doc.Find(sel).First()
	if table.Length() == 0 {
		return records.Table{}, ingesterr.Malformed(nil, "html: no element matches %q", sel)
	}

	// Rows of nested tables belong to those tables, not this one.
	trs := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.ParentsFiltered("table").First().IsSelection(table)
	})
	if trs.Length() == 0 {
		return records.Table{}, ingesterr.Malformed(nil, "html: table %q has no rows", sel)
	}

	headerAt := 0
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.ChildrenFiltered("th").Length() > 0 {
			headerAt = i
			return false
		}
		return true
	})

	var (
		header records.Header
		rows   []records.RawRow
	)
	trs.Each(func(i int, tr *goquery.Selection) {
		cells := cellTexts(tr)
		if i == headerAt {
			header = csvparser.NormalizeHeader(cells)
			return
		}
		if i < headerAt || len(cells) == 0 {
			return
		}
		rows = append(rows, records.FromStrings(header, cells))
	})

	return records.Table{Header: header, Rows: rows}, nil
}

func cellTexts(tr *goquery.Selection) []string {
	cells := tr.ChildrenFiltered("th, td")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(c.Text()), " "))
	})
	return out
}
