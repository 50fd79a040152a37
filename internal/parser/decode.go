package parser

import (
	"strings"

	"dataingest/internal/ingesterr"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts data to UTF-8.
//
// With no encoding configured, the input is taken as UTF-8 unless it starts
// with a UTF-16 byte order mark; a UTF-8 BOM is dropped and invalid sequences
// become U+FFFD. A configured IANA encoding name is used otherwise, and a BOM
// still overrides it.
func Decode(data []byte, encodingName string) ([]byte, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return nil, ingesterr.Malformed(err, "decode %s text", encodingLabel(encodingName))
	}
	return out, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc == nil {
		err = errors.Newf("no decoder for %q", name)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parser.encoding %q", name), ingesterr.ErrInvalidConfig)
	}
	return enc, nil
}

func encodingLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "utf-8"
	}
	return name
}
