package document

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// textCodec treats each line of a UTF-8 text file as one unit.
// Line endings and the trailing newline are preserved on encode.
type textCodec struct{}

func (textCodec) Format() Format   { return FormatText }
func (textCodec) MIMEType() string { return "text/plain; charset=utf-8" }

func (textCodec) Decode(raw []byte) ([]string, error) {
	if !utf8.Valid(raw) {
		return nil, errors.New("not valid UTF-8 text")
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, errors.New("text contains NUL bytes")
	}
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, "\n"), nil
}

func (textCodec) Encode(source []byte, units []string) ([]byte, error) {
	eol := "\n"
	if bytes.Contains(source, []byte("\r\n")) {
		eol = "\r\n"
	}
	out := strings.Join(units, eol)
	if bytes.HasSuffix(source, []byte("\n")) {
		out += eol
	}
	return []byte(out), nil
}
