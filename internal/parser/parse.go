package parser

import (
	"bytes"
	"strings"

	"dataingest/internal/config"
	csvparser "dataingest/internal/parser/csv"
	htmlparser "dataingest/internal/parser/html"
	jsonparser "dataingest/internal/parser/json"
	"dataingest/pkg/records"
)

// Input is one file handed to Parse.
type Input struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is a parsed file.
type Result struct {
	Kind  Kind
	Table records.Table
}

// Parse detects, decodes and parses one file.
//
// Option keys read here: kind (declared source kind, skips detection) and
// encoding. The remaining keys belong to the per-kind parsers.
func Parse(in Input, opt config.Options) (Result, error) {
	kind, err := resolveKind(in, opt)
	if err != nil {
		return Result{}, err
	}

	enc := opt.String("encoding", "")
	if kind == KindHTML && strings.TrimSpace(enc) == "" {
		// The HTML reader honors <meta charset> itself.
		tbl, err := htmlparser.ParseRows(bytes.NewReader(in.Data), in.ContentType, htmlparser.OptionsFrom(opt))
		return Result{Kind: kind, Table: tbl}, err
	}

	text, err := Decode(in.Data, enc)
	if err != nil {
		return Result{}, err
	}

	var tbl records.Table
	switch kind {
	case KindJSON:
		tbl, err = jsonparser.ParseRows(text, jsonparser.OptionsFrom(opt))
	case KindHTML:
		tbl, err = htmlparser.ParseRows(bytes.NewReader(text), "text/html; charset=utf-8", htmlparser.OptionsFrom(opt))
	default:
		copt := csvparser.OptionsFrom(opt)
		if copt.Comma == 0 && impliedTab(in.Name, in.ContentType) {
			copt.Comma = '\t'
		}
		tbl = csvparser.ParseRows(text, copt)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: kind, Table: tbl}, nil
}

func resolveKind(in Input, opt config.Options) (Kind, error) {
	if declared := opt.String("kind", ""); strings.TrimSpace(declared) != "" {
		return ParseKind(declared)
	}
	sample := in.Data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return Detect(in.Name, in.ContentType, sample)
}
