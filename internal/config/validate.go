package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// Severity of a configuration issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by a dotted config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// KnownEncoding reports whether name is empty (auto-detect) or an IANA
// character set name that has a decoder.
func KnownEncoding(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	enc, err := ianaindex.IANA.Encoding(name)
	return err == nil && enc != nil
}

// ValidateConfig reports problems in c. Errors make the config unusable;
// warnings describe settings that are ignored or suspicious.
func ValidateConfig(c Config) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := c.MaxFileBytes(); err != nil {
		add(SeverityError, "max_file_size", "%v", err)
	}

	if raw, ok := c.Parser["delimiter"]; ok {
		if r := c.Parser.Rune("delimiter", 0); r == 0 || r == '"' || r == '\n' || r == '\r' {
			add(SeverityError, "parser.delimiter", "invalid delimiter %v", raw)
		}
	}
	if enc := c.Parser.String("encoding", ""); !KnownEncoding(enc) {
		add(SeverityError, "parser.encoding", "unsupported encoding %q", enc)
	}
	switch hm := c.Parser["header_map"].(type) {
	case nil:
	case map[string]any:
		if len(hm) > 0 {
			add(SeverityWarning, "parser.header_map", "map keys are lowercased on load; list {from, to} pairs to match mixed-case keys")
		}
	case []any:
		if len(c.Parser.StringMap("header_map")) != len(hm) {
			add(SeverityWarning, "parser.header_map", "entries without string from/to are ignored")
		}
	}

	switch c.Metrics.Backend {
	case "", "none", "datadog":
	case "pushgateway":
		if strings.TrimSpace(c.Metrics.PushgatewayURL) == "" {
			add(SeverityError, "metrics.pushgateway_url", "required for pushgateway backend")
		}
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", c.Metrics.Backend)
	}

	switch c.Export.Kind {
	case "":
		if c.Export.DSN != "" || c.Export.Table != "" {
			add(SeverityWarning, "export.kind", "export dsn/table set but kind is empty; export disabled")
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(c.Export.DSN) == "" {
			add(SeverityError, "export.dsn", "required when export.kind=%s", c.Export.Kind)
		}
	default:
		add(SeverityError, "export.kind", "unsupported export kind %q", c.Export.Kind)
	}

	return out
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
