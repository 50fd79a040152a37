// Package parser turns one file's bytes into a records.Table.
//
// It picks the source kind (declared, by extension, by content type, or by
// sniffing the leading bytes), decodes the text to UTF-8 and hands off to the
// kind's record parser.
package parser

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"

	"dataingest/internal/ingesterr"
)

// Kind is a supported source kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindDelimited
	KindJSON
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindDelimited:
		return "delimited-text"
	case KindJSON:
		return "json"
	case KindHTML:
		return "html"
	default:
		return "unknown"
	}
}

// ParseKind maps a declared kind name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delimited-text", "delimited", "csv", "tsv", "text":
		return KindDelimited, nil
	case "json", "jsonl", "ndjson":
		return KindJSON, nil
	case "html":
		return KindHTML, nil
	default:
		return KindUnknown, ingesterr.Unsupported("unknown source kind %q", s)
	}
}

var kindByExt = map[string]Kind{
	".csv":    KindDelimited,
	".tsv":    KindDelimited,
	".tab":    KindDelimited,
	".txt":    KindDelimited,
	".json":   KindJSON,
	".ndjson": KindJSON,
	".jsonl":  KindJSON,
	".html":   KindHTML,
	".htm":    KindHTML,
}

// Windows browsers label .csv uploads application/vnd.ms-excel.
var kindByMIME = map[string]Kind{
	"text/csv":                  KindDelimited,
	"application/csv":           KindDelimited,
	"text/tab-separated-values": KindDelimited,
	"text/plain":                KindDelimited,
	"application/vnd.ms-excel":  KindDelimited,
	"application/json":          KindJSON,
	"text/json":                 KindJSON,
	"application/x-ndjson":      KindJSON,
	"application/jsonl":         KindJSON,
	"text/html":                 KindHTML,
	"application/xhtml+xml":     KindHTML,
}

// mediaType strips parameters and lowercases a content type.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Detect picks the source kind for a file.
//
// The extension decides when it is a known one, then the content type. A file
// with neither an extension nor a specific content type is sniffed: '{' or '['
// means JSON, '<' means HTML, anything else delimited text. Everything else is
// UnsupportedFormat.
func Detect(name, contentType string, sample []byte) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if k, ok := kindByExt[ext]; ok {
		return k, nil
	}
	mt := mediaType(contentType)
	if k, ok := kindByMIME[mt]; ok {
		return k, nil
	}
	if ext == "" && (mt == "" || mt == "application/octet-stream") {
		return sniff(sample), nil
	}

	what := ext
	if what == "" {
		what = mt
	}
	return KindUnknown, ingesterr.Unsupported("%s: unsupported file type %q", name, what)
}

func sniff(sample []byte) Kind {
	trim := bytes.TrimSpace(bytes.TrimPrefix(sample, utf8BOM))
	if len(trim) == 0 {
		return KindDelimited
	}
	switch trim[0] {
	case '{', '[':
		return KindJSON
	case '<':
		return KindHTML
	default:
		return KindDelimited
	}
}

// impliedTab reports whether the file is declared tab separated.
func impliedTab(name, contentType string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsv", ".tab":
		return true
	}
	return mediaType(contentType) == "text/tab-separated-values"
}
