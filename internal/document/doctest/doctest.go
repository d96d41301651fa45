// Package doctest builds minimal in-memory DOCX packages for tests.
package doctest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DOCX returns a package whose body has one paragraph per argument.
// Each paragraph is a single plain run.
func DOCX(paragraphs ...string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p>")
		if p != "" {
			body.WriteString(`<w:r><w:t xml:space="preserve">`)
			_ = xml.EscapeText(&body, []byte(p))
			body.WriteString("</w:t></w:r>")
		}
		body.WriteString("</w:p>")
	}
	return Package(DocumentXML(body.String()))
}

// DocumentXML wraps body markup in a w:document/w:body envelope.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body +
		`<w:sectPr/></w:body></w:document>`
}

// Package zips documentXML together with the minimal companion parts.
func Package(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, part := range []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rels},
		{"word/document.xml", documentXML},
	} {
		f, _ := w.Create(part.name)
		_, _ = f.Write([]byte(part.body))
	}
	_ = w.Close()
	return buf.Bytes()
}

// ReadPart extracts one part of a package, or "" if it is missing.
func ReadPart(pkg []byte, name string) string {
	r, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return ""
	}
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()
		var b bytes.Buffer
		_, _ = b.ReadFrom(rc)
		return b.String()
	}
	return ""
}
