package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported document encoding.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

// zipMagic is the local file header signature every DOCX package starts with.
var zipMagic = []byte("PK\x03\x04")

// Codec decodes raw bytes into units and encodes edited units back into
// the same format. Encode receives the originally uploaded bytes so it can
// preserve everything the unit sequence does not describe.
type Codec interface {
	Format() Format
	MIMEType() string
	Decode(raw []byte) ([]string, error)
	Encode(source []byte, units []string) ([]byte, error)
}

// CodecFor selects a codec from the declared filename and the content.
func CodecFor(filename string, raw []byte) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	isZip := bytes.HasPrefix(raw, zipMagic)

	switch {
	case ext == ".docx", ext == "" && isZip:
		return docxCodec{}, nil
	case isZip:
		return nil, fmt.Errorf("unsupported package type %q", ext)
	}

	switch ext {
	case "", ".txt", ".text", ".md", ".markdown":
		return textCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q (supported: .docx, .txt, .md)", ext)
	}
}
