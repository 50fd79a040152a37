package csv

import (
	"reflect"
	"testing"

	"dataingest/internal/config"
	"dataingest/pkg/records"
)

//
// SplitLine
//

// TestSplitLine verifies quote/escape handling and trimming of one record.
//
// Edge cases validated:
//   - delimiters inside quotes do not split
//   - "" inside a quoted span is a literal quote
//   - whitespace is trimmed outside quotes only
//   - an unterminated quote runs to end of line
//   - blank input yields nil
func TestSplitLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		comma rune
		want  []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"quoted comma", `a,"b,c",d`, ',', []string{"a", "b,c", "d"}},
		{"escaped quote", `a,"b""c",d`, ',', []string{"a", `b"c`, "d"}},
		{"trim unquoted", "  a , b ,c  ", ',', []string{"a", "b", "c"}},
		{"keep quoted whitespace", `" a ", b`, ',', []string{" a ", "b"}},
		{"trim around quotes", `  "x y"  ,z`, ',', []string{"x y", "z"}},
		{"empty fields", "a,,c,", ',', []string{"a", "", "c", ""}},
		{"unterminated quote", `a,"b,c`, ',', []string{"a", "b,c"}},
		{"unterminated keeps tail space", `a,"b `, ',', []string{"a", "b "}},
		{"unterminated after closed span", `"a" "b  `, ',', []string{"a b  "}},
		{"two closed spans", ` "a" "b " `, ',', []string{"a b "}},
		{"semicolon", "a;b;c", ';', []string{"a", "b", "c"}},
		{"tab", "a\tb", '\t', []string{"a", "b"}},
		{"only quotes", `""`, ',', []string{""}},
		{"unicode", `ž,"č,ř"`, ',', []string{"ž", "č,ř"}},
		{"blank", "", ',', nil},
		{"whitespace only", "   \t", ',', nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitLine(tt.line, tt.comma, true)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitLine_NoTrim(t *testing.T) {
	t.Parallel()

	got := SplitLine(" a , b", ',', false)
	want := []string{" a ", " b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitLine(no trim) = %q, want %q", got, want)
	}
}

//
// ParseRows
//

// TestParseRows_RaggedRows verifies positional zipping against the header.
//
// A short row is padded with null, an extra value is dropped.
func TestParseRows_RaggedRows(t *testing.T) {
	t.Parallel()

	data := []byte("a,b,c\n1,2\n1,2,3,4\n")
	tbl := ParseRows(data, Options{Comma: ',', TrimSpace: true})

	if !tbl.Header.Equal(records.Header{"a", "b", "c"}) {
		t.Fatalf("header = %v", tbl.Header)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
	wantShort := []records.Raw{records.Str("1"), records.Str("2"), records.Null}
	if got := tbl.Rows[0].Values(); !reflect.DeepEqual(got, wantShort) {
		t.Fatalf("short row = %v, want %v", got, wantShort)
	}
	wantLong := []records.Raw{records.Str("1"), records.Str("2"), records.Str("3")}
	if got := tbl.Rows[1].Values(); !reflect.DeepEqual(got, wantLong) {
		t.Fatalf("long row = %v, want %v", got, wantLong)
	}
}

func TestParseRows_BlankLinesAndLineEndings(t *testing.T) {
	t.Parallel()

	data := []byte("\n\nid,name\r\n1,x\r\n\r\n2,y\r3,z")
	tbl := ParseRows(data, Options{TrimSpace: true})

	if !tbl.Header.Equal(records.Header{"id", "name"}) {
		t.Fatalf("header = %v", tbl.Header)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d, want 3: %v", len(tbl.Rows), tbl.Rows)
	}
	if v, _ := tbl.Rows[2].Get("name"); v != records.Str("z") {
		t.Fatalf("last row name = %v", v)
	}
}

func TestParseRows_Empty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "\n\n", "   \r\n"} {
		tbl := ParseRows([]byte(in), Options{})
		if len(tbl.Header) != 0 || len(tbl.Rows) != 0 {
			t.Fatalf("ParseRows(%q) = %+v, want empty", in, tbl)
		}
	}
}

func TestParseRows_HeaderOnly(t *testing.T) {
	t.Parallel()

	tbl := ParseRows([]byte("a,b\n"), Options{})
	if len(tbl.Header) != 2 || len(tbl.Rows) != 0 {
		t.Fatalf("ParseRows(header only) = %+v", tbl)
	}
}

// TestParseRows_Multiline verifies opt-in joining of quoted newlines.
func TestParseRows_Multiline(t *testing.T) {
	t.Parallel()

	data := []byte("id,note\n1,\"line one\nline two\"\n2,plain\n")

	on := ParseRows(data, Options{Comma: ',', TrimSpace: true, MultilineQuotes: true})
	if len(on.Rows) != 2 {
		t.Fatalf("multiline rows = %d, want 2", len(on.Rows))
	}
	if v, _ := on.Rows[0].Get("note"); v != records.Str("line one\nline two") {
		t.Fatalf("multiline note = %v", v)
	}

	off := ParseRows(data, Options{Comma: ',', TrimSpace: true})
	if len(off.Rows) != 3 {
		t.Fatalf("per-line rows = %d, want 3", len(off.Rows))
	}
	if v, _ := off.Rows[0].Get("note"); v != records.Str("line one") {
		t.Fatalf("per-line note = %v", v)
	}
}

func TestParseRows_SniffedDelimiter(t *testing.T) {
	t.Parallel()

	tbl := ParseRows([]byte("a;b;\"c,d\"\n1;2;3\n"), Options{TrimSpace: true})
	if !tbl.Header.Equal(records.Header{"a", "b", "c,d"}) {
		t.Fatalf("header = %v", tbl.Header)
	}
}

func TestSniffDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{`"x;y;z",b`, ','},
		{"single", ','},
		{"a,b;c", ','},
	}
	for _, tt := range tests {
		if got := SniffDelimiter(tt.in); got != tt.want {
			t.Fatalf("SniffDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	got := NormalizeHeader([]string{"\uFEFFid", "", "name", "name", "name_2", "name"})
	want := records.Header{"id", "column_2", "name", "name_2", "name_2_2", "name_3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeHeader = %v, want %v", got, want)
	}
}

func TestOptionsFrom(t *testing.T) {
	t.Parallel()

	o := OptionsFrom(config.Options{"delimiter": "tab", "trim_space": false, "multiline_quotes": "true"})
	want := Options{Comma: '\t', TrimSpace: false, MultilineQuotes: true}
	if o != want {
		t.Fatalf("OptionsFrom = %+v, want %+v", o, want)
	}
	if d := OptionsFrom(nil); d.Comma != 0 || !d.TrimSpace || d.MultilineQuotes {
		t.Fatalf("OptionsFrom(nil) = %+v", d)
	}
}
