package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// wordNS is the WordprocessingML main namespace.
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	// documentPart is the package part holding the document body.
	documentPart = "word/document.xml"

	// maxPartSize bounds the decompressed size of document.xml.
	maxPartSize = 64 << 20

	docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// docxCodec maps each body-level <w:p> of word/document.xml to one unit.
//
// Encoding splices only the paragraphs whose text changed back into the
// original XML; every other byte of the package is copied unchanged.
type docxCodec struct{}

func (docxCodec) Format() Format   { return FormatDOCX }
func (docxCodec) MIMEType() string { return docxMIME }

func (docxCodec) Decode(raw []byte) ([]string, error) {
	_, part, err := readDocumentPart(raw)
	if err != nil {
		return nil, err
	}
	spans, err := scanParagraphs(part)
	if err != nil {
		return nil, err
	}
	units := make([]string, len(spans))
	for i, sp := range spans {
		units[i] = sp.text
	}
	return units, nil
}

func (docxCodec) Encode(source []byte, units []string) ([]byte, error) {
	zr, part, err := readDocumentPart(source)
	if err != nil {
		return nil, err
	}
	spans, err := scanParagraphs(part)
	if err != nil {
		return nil, err
	}
	if len(spans) != len(units) {
		return nil, fmt.Errorf("docx: unit count changed from %d to %d", len(spans), len(units))
	}

	var body bytes.Buffer
	body.Grow(len(part))
	last := int64(0)
	for i, sp := range spans {
		if units[i] == sp.text {
			continue
		}
		body.Write(part[last:sp.start])
		body.Write(renderParagraph(sp, units[i]))
		last = sp.end
	}
	body.Write(part[last:])

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if f.Name != documentPart {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("docx: copy %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("docx: create %s: %w", f.Name, err)
		}
		if _, err := w.Write(body.Bytes()); err != nil {
			return nil, fmt.Errorf("docx: write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx: finalize package: %w", err)
	}
	return out.Bytes(), nil
}

// readDocumentPart opens the package and returns word/document.xml.
func readDocumentPart(raw []byte) (*zip.Reader, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("not a DOCX package: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", documentPart, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		_ = rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", documentPart, err)
		}
		if len(data) > maxPartSize {
			return nil, nil, fmt.Errorf("%s exceeds %d bytes", documentPart, maxPartSize)
		}
		return zr, data, nil
	}
	return nil, nil, fmt.Errorf("package has no %s", documentPart)
}

// paragraphSpan locates one body-level paragraph inside document.xml.
type paragraphSpan struct {
	start, end int64  // byte range of the whole <w:p> element
	text       string // visible text: <w:t>, <w:tab/> as \t, <w:br/> as \n
	prefix     string // namespace prefix used by the source ("w")
	props      []byte // raw <w:pPr> element, if any
	runProps   []byte // raw <w:rPr> of the first run, if any
	objects    []byte // raw direct runs holding drawings, pictures or textboxes
}

// embedded reports whether a WordprocessingML element carries content of
// its own, such as a drawing or a textbox with nested paragraphs. Text
// inside it does not belong to the enclosing paragraph.
func embedded(local string) bool {
	switch local {
	case "p", "txbxContent", "drawing", "pict", "object":
		return true
	}
	return false
}

// scanParagraphs walks document.xml with a namespace-aware decoder and
// records the byte range and text of every direct child <w:p> of <w:body>.
func scanParagraphs(data []byte) ([]paragraphSpan, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		stack     []xml.Name
		spans     []paragraphSpan
		cur       *paragraphSpan
		text      strings.Builder
		pDepth    int
		runs      int
		sawBody   bool
		propsAt   int64 = -1
		runPropAt int64 = -1
		runAt     int64 = -1
		runObject bool
		runText   int
		skip      int
	)

	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := top(stack)
			stack = append(stack, t.Name)
			if t.Name.Space != wordNS {
				continue
			}
			depth := len(stack)
			if cur != nil && depth > pDepth && embedded(t.Name.Local) {
				skip++
				runObject = true
				continue
			}
			if skip > 0 {
				continue
			}
			switch {
			case t.Name.Local == "body":
				sawBody = true
			case cur == nil:
				if t.Name.Local == "p" && isWord(parent, "body") {
					cur = &paragraphSpan{start: offset, prefix: elementPrefix(data[offset:])}
					text.Reset()
					pDepth = depth
					runs = 0
				}
			case depth == pDepth+1 && t.Name.Local == "pPr":
				propsAt = offset
			case depth == pDepth+1 && t.Name.Local == "r":
				runs++
				runAt = offset
				runObject = false
				runText = text.Len()
			case depth == pDepth+2 && t.Name.Local == "rPr" && runs == 1 && isWord(parent, "r"):
				runPropAt = offset
			case isWord(parent, "r"):
				switch t.Name.Local {
				case "tab":
					text.WriteByte('\t')
				case "br", "cr":
					text.WriteByte('\n')
				}
			}

		case xml.CharData:
			if cur == nil || skip > 0 || len(stack) < 2 {
				continue
			}
			if isWord(top(stack), "t") && isWord(stack[len(stack)-2], "r") {
				text.Write(t)
			}

		case xml.EndElement:
			depth := len(stack)
			stack = stack[:len(stack)-1]
			if cur == nil || t.Name.Space != wordNS {
				continue
			}
			if skip > 0 {
				if depth > pDepth && embedded(t.Name.Local) {
					skip--
				}
				continue
			}
			end := d.InputOffset()
			switch {
			case depth == pDepth+1 && t.Name.Local == "r" && runObject && runAt >= 0:
				// The run is kept whole, so its own text is not part of the unit.
				cur.objects = append(cur.objects, data[runAt:end]...)
				keep := text.String()[:runText]
				text.Reset()
				text.WriteString(keep)
				runAt, runObject = -1, false
			case depth == pDepth && t.Name.Local == "p":
				cur.end = end
				cur.text = text.String()
				spans = append(spans, *cur)
				cur = nil
			case depth == pDepth+1 && t.Name.Local == "pPr" && propsAt >= 0:
				cur.props = data[propsAt:end]
				propsAt = -1
			case depth == pDepth+2 && t.Name.Local == "rPr" && runPropAt >= 0:
				cur.runProps = data[runPropAt:end]
				runPropAt = -1
			}
		}
	}

	if !sawBody {
		return nil, fmt.Errorf("%s has no w:body element", documentPart)
	}
	return spans, nil
}

// renderParagraph rebuilds a paragraph holding text as a single run,
// keeping the paragraph properties and the first run's formatting. Runs
// that hold drawings or textboxes follow the text run unchanged.
func renderParagraph(sp paragraphSpan, text string) []byte {
	p := sp.prefix
	if p != "" {
		p += ":"
	}
	var b bytes.Buffer
	b.WriteString("<" + p + "p>")
	b.Write(sp.props)
	if text != "" {
		b.WriteString("<" + p + "r>")
		b.Write(sp.runProps)
		writeRunContent(&b, p, text)
		b.WriteString("</" + p + "r>")
	}
	b.Write(sp.objects)
	b.WriteString("</" + p + "p>")
	return b.Bytes()
}

func writeRunContent(b *bytes.Buffer, p, text string) {
	flush := func(seg string) {
		if seg == "" {
			return
		}
		b.WriteString("<" + p + `t xml:space="preserve">`)
		_ = xml.EscapeText(b, []byte(seg))
		b.WriteString("</" + p + "t>")
	}
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\t':
			flush(text[start:i])
			b.WriteString("<" + p + "tab/>")
			start = i + 1
		case '\n':
			flush(text[start:i])
			b.WriteString("<" + p + "br/>")
			start = i + 1
		}
	}
	flush(text[start:])
}

// elementPrefix returns the namespace prefix of the element starting at
// raw[0], e.g. "w" for "<w:p w:rsidR=...>".
func elementPrefix(raw []byte) string {
	if len(raw) == 0 || raw[0] != '<' {
		return ""
	}
	end := bytes.IndexAny(raw, " \t\r\n/>")
	if end < 0 {
		return ""
	}
	name := string(raw[1:end])
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return ""
}

func top(stack []xml.Name) xml.Name {
	if len(stack) == 0 {
		return xml.Name{}
	}
	return stack[len(stack)-1]
}

func isWord(n xml.Name, local string) bool {
	return n.Space == wordNS && n.Local == local
}
