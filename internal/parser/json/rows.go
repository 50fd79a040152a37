package json

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"dataingest/internal/config"
	"dataingest/internal/ingesterr"
	csvparser "dataingest/internal/parser/csv"
	"dataingest/pkg/records"
)

// Options controls JSON parsing.
type Options struct {
	// HeaderMap renames keys (original → column name) before the header is built.
	HeaderMap map[string]string
	// ArrayJoinSeparator joins array-of-strings values into one field.
	ArrayJoinSeparator string
	// Envelope, when set, treats the first array-of-objects field of a root
	// object as the record list instead of wrapping the root into one row.
	Envelope bool
}

// OptionsFrom reads JSON options from the generic option bag:
//
//	header_map, array_join_separator (default ","), json_envelope (bool)
func OptionsFrom(opt config.Options) Options {
	sep := strings.TrimSpace(opt.String("array_join_separator", ","))
	if sep == "" {
		sep = ","
	}
	return Options{
		HeaderMap:          opt.StringMap("header_map"),
		ArrayJoinSeparator: sep,
		Envelope:           opt.Bool("json_envelope", false),
	}
}

// object is one decoded record keyed by source key, in document order.
type object struct {
	keys []string
	vals map[string]records.Raw
}

func (o *object) set(k string, v records.Raw) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// ParseRows parses a JSON document into a header and rows.
//
// Accepted shapes:
//   - a single object → one row
//   - an array of objects → one row per element (null elements skipped)
//   - further objects concatenated after the root value (JSON Lines) → more rows
//
// The header is the union of keys in order of first occurrence, renamed by
// HeaderMap; a key missing from a row is null. Column names follow the
// delimited-text rules: a blank name becomes column_<n> and a repeated name
// gets a numeric suffix, so two keys mapped to one name stay two columns. Scalars keep their literal text, nested values become
// compact JSON, arrays of strings are joined with ArrayJoinSeparator.
//
// Any structural failure (syntax error, empty document, non-object element,
// scalar root) is a MalformedDocument error.
func ParseRows(data []byte, opt Options) (records.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	sep := opt.ArrayJoinSeparator
	if sep == "" {
		sep = ","
	}
	p := &docParser{dec: dec, sep: sep, headerMap: opt.HeaderMap, envelope: opt.Envelope}

	tok, err := dec.Token()
	if err == io.EOF {
		return records.Table{}, ingesterr.Malformed(nil, "json: empty document")
	}
	if err != nil {
		return records.Table{}, ingesterr.Malformed(err, "json: read first token")
	}

	var objs []*object
	switch d := tok.(type) {
	case json.Delim:
		switch d {
		case '[':
			objs, err = p.readArrayOfObjects()
		case '{':
			objs, err = p.readRootObject()
		default:
			err = ingesterr.Malformed(nil, "json: unexpected delimiter %q", d)
		}
	default:
		err = ingesterr.Malformed(nil, "json: root is %T, want object or array", tok)
	}
	if err != nil {
		return records.Table{}, err
	}

	trailing, err := p.readTrailingObjects()
	if err != nil {
		return records.Table{}, err
	}
	objs = append(objs, trailing...)

	return buildTable(objs, p.column), nil
}

type docParser struct {
	dec       *json.Decoder
	sep       string
	headerMap map[string]string
	envelope  bool
}

func (p *docParser) column(key string) string {
	if mapped, ok := p.headerMap[key]; ok && mapped != "" {
		return mapped
	}
	return key
}

// readArrayOfObjects reads elements after '[' through the closing ']'.
func (p *docParser) readArrayOfObjects() ([]*object, error) {
	var out []*object
	for i := 0; p.dec.More(); i++ {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, ingesterr.Malformed(err, "json: read array element %d", i)
		}
		if tok == nil {
			continue
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, ingesterr.Malformed(nil, "json: array element %d is not an object", i)
		}
		obj, err := p.readObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return out, nil
}

// readRootObject reads a root object after '{'. Without Envelope it is one
// record. With Envelope, the first field holding an array of objects supplies
// the records and the remaining fields are skipped.
func (p *docParser) readRootObject() ([]*object, error) {
	if !p.envelope {
		obj, err := p.readObject()
		if err != nil {
			return nil, err
		}
		return []*object{obj}, nil
	}

	single := &object{vals: map[string]records.Raw{}}
	for p.dec.More() {
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		tok, err := p.dec.Token()
		if err != nil {
			return nil, ingesterr.Malformed(err, "json: read value of %q", key)
		}
		if d, ok := tok.(json.Delim); ok && d == '[' {
			objs, isRecords, rest, err := p.readMaybeRecords()
			if err != nil {
				return nil, err
			}
			if isRecords {
				if err := p.skipRestOfObject(); err != nil {
					return nil, err
				}
				return objs, nil
			}
			single.set(key, p.arrayRaw(rest))
			continue
		}
		v, err := p.materialize(tok)
		if err != nil {
			return nil, err
		}
		single.set(key, p.toRaw(v))
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return []*object{single}, nil
}

// readMaybeRecords reads an array after '['. If its first element is an
// object, all elements must be objects and they are returned as records.
// Otherwise the array is materialized and returned as a plain value.
func (p *docParser) readMaybeRecords() ([]*object, bool, []any, error) {
	if !p.dec.More() {
		if err := p.expect(']'); err != nil {
			return nil, false, nil, err
		}
		return nil, false, []any{}, nil
	}
	tok, err := p.dec.Token()
	if err != nil {
		return nil, false, nil, ingesterr.Malformed(err, "json: read array element")
	}
	if d, ok := tok.(json.Delim); ok && d == '{' {
		first, err := p.readObject()
		if err != nil {
			return nil, false, nil, err
		}
		rest, err := p.readArrayOfObjects()
		if err != nil {
			return nil, false, nil, err
		}
		return append([]*object{first}, rest...), true, nil, nil
	}

	first, err := p.materialize(tok)
	if err != nil {
		return nil, false, nil, err
	}
	arr := []any{first}
	for p.dec.More() {
		t, err := p.dec.Token()
		if err != nil {
			return nil, false, nil, ingesterr.Malformed(err, "json: read array element")
		}
		v, err := p.materialize(t)
		if err != nil {
			return nil, false, nil, err
		}
		arr = append(arr, v)
	}
	if err := p.expect(']'); err != nil {
		return nil, false, nil, err
	}
	return nil, false, arr, nil
}

func (p *docParser) skipRestOfObject() error {
	for p.dec.More() {
		if _, err := p.readKey(); err != nil {
			return err
		}
		tok, err := p.dec.Token()
		if err != nil {
			return ingesterr.Malformed(err, "json: skip envelope value")
		}
		if _, err := p.materialize(tok); err != nil {
			return err
		}
	}
	return p.expect('}')
}

// readTrailingObjects reads objects concatenated after the root value.
func (p *docParser) readTrailingObjects() ([]*object, error) {
	var out []*object
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, ingesterr.Malformed(err, "json: read trailing value")
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, ingesterr.Malformed(nil, "json: trailing value is not an object")
		}
		obj, err := p.readObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}

// readObject reads fields after '{' through the closing '}'. A repeated key
// keeps its first position and its last value.
func (p *docParser) readObject() (*object, error) {
	obj := &object{vals: map[string]records.Raw{}}
	for p.dec.More() {
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		tok, err := p.dec.Token()
		if err != nil {
			return nil, ingesterr.Malformed(err, "json: read value of %q", key)
		}
		v, err := p.materialize(tok)
		if err != nil {
			return nil, err
		}
		obj.set(key, p.toRaw(v))
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func (p *docParser) readKey() (string, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return "", ingesterr.Malformed(err, "json: read object key")
	}
	key, ok := tok.(string)
	if !ok {
		return "", ingesterr.Malformed(nil, "json: object key is %T, want string", tok)
	}
	return key, nil
}

func (p *docParser) expect(want json.Delim) error {
	tok, err := p.dec.Token()
	if err != nil {
		return ingesterr.Malformed(err, "json: expected %q", want)
	}
	if tok != want {
		return ingesterr.Malformed(nil, "json: expected %q, got %v", want, tok)
	}
	return nil
}

// materialize builds a Go value for the JSON value whose first token is tok.
func (p *docParser) materialize(tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := make(map[string]any)
		for p.dec.More() {
			k, err := p.readKey()
			if err != nil {
				return nil, err
			}
			vt, err := p.dec.Token()
			if err != nil {
				return nil, ingesterr.Malformed(err, "json: read nested value of %q", k)
			}
			v, err := p.materialize(vt)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return m, nil

	case '[':
		arr := []any{}
		for p.dec.More() {
			vt, err := p.dec.Token()
			if err != nil {
				return nil, ingesterr.Malformed(err, "json: read nested array value")
			}
			v, err := p.materialize(vt)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return arr, nil

	default:
		return nil, ingesterr.Malformed(nil, "json: unexpected delimiter %q", d)
	}
}

// toRaw stringifies a decoded value into a raw field.
func (p *docParser) toRaw(v any) records.Raw {
	switch t := v.(type) {
	case nil:
		return records.Null
	case string:
		return records.Str(t)
	case json.Number:
		return records.Str(t.String())
	case bool:
		if t {
			return records.Str("true")
		}
		return records.Str("false")
	case []any:
		return p.arrayRaw(t)
	default:
		return compactRaw(t)
	}
}

// arrayRaw joins an array of strings (nulls skipped) with the separator and
// falls back to compact JSON for any other element type.
func (p *docParser) arrayRaw(arr []any) records.Raw {
	ss := make([]string, 0, len(arr))
	for _, it := range arr {
		if it == nil {
			continue
		}
		s, ok := it.(string)
		if !ok {
			return compactRaw(arr)
		}
		ss = append(ss, s)
	}
	return records.Str(strings.Join(ss, p.sep))
}

func compactRaw(v any) records.Raw {
	b, err := json.Marshal(v)
	if err != nil {
		return records.Null
	}
	return records.Str(string(b))
}

// buildTable unions source keys by first occurrence and aligns every object
// to them. name maps a source key to its column name before normalization.
func buildTable(objs []*object, name func(string) string) records.Table {
	var keys []string
	seen := map[string]bool{}
	for _, o := range objs {
		for _, k := range o.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = name(k)
	}
	h := csvparser.NormalizeHeader(names)

	rows := make([]records.RawRow, 0, len(objs))
	for _, o := range objs {
		vals := make([]records.Raw, len(keys))
		for i, k := range keys {
			if v, ok := o.vals[k]; ok {
				vals[i] = v
			}
		}
		rows = append(rows, records.NewRawRow(h, vals))
	}
	return records.Table{Header: h, Rows: rows}
}
