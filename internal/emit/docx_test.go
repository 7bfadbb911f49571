package emit

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

func readDocx(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = string(b)
	}
	return parts
}

func wellFormed(t *testing.T, name, doc string) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader([]byte(doc)))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, name)
	}
}

func TestDOCXEmitter_Package(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOCXEmitter().Emit(&buf, sampleDocument(t), Options{Title: "Report"}))

	parts := readDocx(t, buf.Bytes())
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/document.xml",
	} {
		require.Contains(t, parts, name)
		wellFormed(t, name, parts[name])
	}

	doc := parts["word/document.xml"]
	assert.Contains(t, doc, `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)
	assert.Contains(t, doc, `<w:pStyle w:val="Title"></w:pStyle>`)
	assert.Contains(t, doc, `<w:pStyle w:val="Heading1"></w:pStyle>`)
	assert.Contains(t, doc, `<w:t xml:space="preserve">Annual Report</w:t>`)
	assert.Contains(t, doc, `<w:pStyle w:val="ListParagraph"></w:pStyle>`)
	assert.Contains(t, doc, `<w:t xml:space="preserve">• Second point</w:t>`)
	assert.Contains(t, doc, `<w:br w:type="page"></w:br>`)
	assert.Contains(t, doc, `<w:tblStyle w:val="TableGrid"></w:tblStyle>`)
	assert.Contains(t, doc, `<w:t xml:space="preserve">Price</w:t>`)

	// body paragraph at 11pt keeps its size in half-points
	assert.Contains(t, doc, `<w:sz w:val="22"></w:sz>`)
}

func TestDOCXEmitter_BlockOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOCXEmitter().Emit(&buf, sampleDocument(t), Options{}))

	doc := readDocx(t, buf.Bytes())["word/document.xml"]
	heading := bytes.Index([]byte(doc), []byte("Annual Report"))
	body := bytes.Index([]byte(doc), []byte("This is the body."))
	pageBreak := bytes.Index([]byte(doc), []byte(`w:type="page"`))
	table := bytes.Index([]byte(doc), []byte("<w:tbl>"))

	assert.True(t, heading < body && body < pageBreak && pageBreak < table)
	assert.NotContains(t, doc, `w:val="Title"`)
}

func TestDOCXEmitter_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOCXEmitter().Emit(&buf, &layout.Document{}, Options{}))

	doc := readDocx(t, buf.Bytes())["word/document.xml"]
	wellFormed(t, "document.xml", doc)
	assert.Contains(t, doc, "<w:body></w:body>")
}
