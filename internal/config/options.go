package config

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options is a loosely typed option bag for parser-specific settings.
//
// Values arrive from JSON/YAML/TOML config, so numbers may be float64 or int,
// and booleans may be strings. Accessors are lenient and fall back to the
// supplied default when a key is missing or has an unusable type.
type Options map[string]any

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns key as a string.
func (o Options) String(key, def string) string {
	if v, ok := o.Any(key).(string); ok {
		return v
	}
	return def
}

// Bool returns key as a bool. Strings accepted by strconv.ParseBool work too.
func (o Options) Bool(key string, def bool) bool {
	switch v := o.Any(key).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Int returns key as an int.
func (o Options) Int(key string, def int) int {
	switch v := o.Any(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Rune returns key as a single rune. Accepted spellings: a one-character
// string, the escapes `\t` and "tab", or a code point number.
func (o Options) Rune(key string, def rune) rune {
	switch v := o.Any(key).(type) {
	case string:
		switch v {
		case `\t`, "tab", "TAB":
			return '\t'
		case "":
			return def
		}
		if utf8.RuneCountInString(v) == 1 {
			r, _ := utf8.DecodeRuneInString(v)
			return r
		}
	case int:
		return rune(v)
	case int64:
		return rune(v)
	case float64:
		return rune(v)
	}
	return def
}

// StringMap returns key as map[string]string. It accepts a map with string
// values, or a list of {from, to} pairs:
//
//	header_map:
//	  - {from: FullName, to: name}
//
// Map keys read from a config file are lowercased by the loader; the list
// form keeps their case.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch m := o.Any(key).(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	case []any:
		for _, it := range m {
			if from, to, ok := pair(it); ok {
				out[from] = to
			}
		}
	case []map[string]any:
		for _, it := range m {
			if from, to, ok := pair(it); ok {
				out[from] = to
			}
		}
	}
	return out
}

// pair reads one {from, to} entry. Both must be strings and from non-empty.
func pair(v any) (from, to string, ok bool) {
	var get func(string) any
	switch m := v.(type) {
	case map[string]any:
		get = func(k string) any { return m[k] }
	case map[any]any:
		get = func(k string) any { return m[k] }
	default:
		return "", "", false
	}
	from, fok := get("from").(string)
	to, tok := get("to").(string)
	if !fok || !tok || from == "" {
		return "", "", false
	}
	return from, to, true
}

// With returns a copy of o with key set to v.
func (o Options) With(key string, v any) Options {
	out := make(Options, len(o)+1)
	for k, val := range o {
		out[k] = val
	}
	out[key] = v
	return out
}
