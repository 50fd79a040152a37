package csv

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitLine splits one record into fields on comma.
//
// Quoting rules:
//   - '"' opens a quoted span in which comma does not separate fields.
//   - Inside a span, '""' is a literal '"' and does not close the span.
//   - Whitespace around a field is trimmed when trim is set, but never the
//     whitespace inside a quoted span.
//   - An unterminated span runs to the end of the line.
//
// A blank line yields a nil slice; callers skip it.
func SplitLine(line string, comma rune, trim bool) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var (
		fields   []string
		b        strings.Builder
		inQuotes bool
		// Byte offsets into b of the first quoted span's start and the last
		// closed span's end; qEnd is -1 while a span is open.
		qStart = -1
		qEnd   = -1
	)

	finish := func() {
		s := b.String()
		if trim {
			s = trimOutsideQuotes(s, qStart, qEnd)
		}
		fields = append(fields, s)
		b.Reset()
		qStart, qEnd = -1, -1
	}

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		i += size

		if inQuotes {
			if r != '"' {
				b.WriteRune(r)
				continue
			}
			if i < len(line) && line[i] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			inQuotes = false
			qEnd = b.Len()
			continue
		}

		switch r {
		case '"':
			inQuotes = true
			qEnd = -1
			if qStart < 0 {
				qStart = b.Len()
			}
		case comma:
			finish()
		default:
			b.WriteRune(r)
		}
	}
	finish()

	return fields
}

// trimOutsideQuotes trims the unquoted prefix and suffix of a field. For an
// unterminated span (qStart set, qEnd unset) only the prefix is trimmed.
func trimOutsideQuotes(s string, qStart, qEnd int) string {
	if qStart < 0 {
		return strings.TrimSpace(s)
	}
	head := strings.TrimLeftFunc(s[:qStart], unicode.IsSpace)
	if qEnd < 0 {
		return head + s[qStart:]
	}
	return head + s[qStart:qEnd] + strings.TrimRightFunc(s[qEnd:], unicode.IsSpace)
}

// quoteOpenAfter reports whether a quoted span is still open at the end of
// line, given whether one was open at its start.
func quoteOpenAfter(line string, open bool) bool {
	for i := 0; i < len(line); i++ {
		if line[i] == '"' {
			open = !open
		}
	}
	return open
}
