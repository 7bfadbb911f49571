package emit

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

const nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// tableWidthTwips is the usable width of a Letter page with 1" margins
const tableWidthTwips = 9360

// DOCXEmitter writes a WordprocessingML package
type DOCXEmitter struct{}

// NewDOCXEmitter creates a DOCX emitter
func NewDOCXEmitter() *DOCXEmitter {
	return &DOCXEmitter{}
}

func (e *DOCXEmitter) Format() Format    { return FormatDOCX }
func (e *DOCXEmitter) Extension() string { return FormatDOCX.Extension() }

// document.xml elements. Tags carry the w: prefix literally so the output
// uses the conventional prefix instead of encoding/xml's generated ones.
type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	XmlnsW  string   `xml:"xmlns:w,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Content []any
}

type wP struct {
	XMLName xml.Name `xml:"w:p"`
	PPr     *wPPr    `xml:"w:pPr,omitempty"`
	Runs    []wR     `xml:"w:r"`
}

type wPPr struct {
	Style *wVal `xml:"w:pStyle,omitempty"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wR struct {
	RPr   *wRPr `xml:"w:rPr,omitempty"`
	Break *wBr  `xml:"w:br,omitempty"`
	Text  *wT   `xml:"w:t,omitempty"`
}

type wRPr struct {
	Italic *struct{} `xml:"w:i,omitempty"`
	Size   *wVal     `xml:"w:sz,omitempty"`
}

type wBr struct {
	Type string `xml:"w:type,attr"`
}

type wT struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

type wTbl struct {
	XMLName xml.Name `xml:"w:tbl"`
	Props   wTblPr   `xml:"w:tblPr"`
	Grid    wTblGrid `xml:"w:tblGrid"`
	Rows    []wTr    `xml:"w:tr"`
}

type wTblPr struct {
	Style wVal  `xml:"w:tblStyle"`
	Width wTblW `xml:"w:tblW"`
}

type wTblW struct {
	W    int    `xml:"w:w,attr"`
	Type string `xml:"w:type,attr"`
}

type wTblGrid struct {
	Cols []wGridCol `xml:"w:gridCol"`
}

type wGridCol struct {
	W int `xml:"w:w,attr"`
}

type wTr struct {
	Cells []wTc `xml:"w:tc"`
}

type wTc struct {
	Paragraph wP `xml:"w:p"`
}

// Emit implements Emitter
func (e *DOCXEmitter) Emit(w io.Writer, doc *layout.Document, opts Options) error {
	body := wBody{}
	if opts.Title != "" {
		body.Content = append(body.Content, styledParagraph("Title", opts.Title, nil))
	}

	first := true
	err := layout.ForEachPage(doc, func(_ int, blocks []layout.Block) error {
		if !first {
			body.Content = append(body.Content, wP{Runs: []wR{{Break: &wBr{Type: "page"}}}})
		}
		first = false
		for _, b := range blocks {
			body.Content = append(body.Content, docxBlock(b)...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	document, err := xml.Marshal(wDocument{XmlnsW: nsW, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode document.xml: %w", err)
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", append([]byte(xml.Header), document...)},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", part.name, err)
		}
		if _, err := f.Write(part.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	return zw.Close()
}

func docxBlock(b layout.Block) []any {
	switch v := b.(type) {
	case *layout.Table:
		return []any{docxTable(v)}
	case *layout.Paragraph:
		switch v.Kind() {
		case layout.KindHeading:
			return []any{styledParagraph(fmt.Sprintf("Heading%d", v.Style.HeadingLevel), v.Text(), nil)}
		case layout.KindListItem:
			items := listItems(v)
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = styledParagraph("ListParagraph", item, nil)
			}
			return out
		}
		return []any{styledParagraph("", v.Text(), runProps(v.Style))}
	default:
		return []any{styledParagraph("", b.Text(), nil)}
	}
}

func docxTable(t *layout.Table) wTbl {
	cols := t.Columns()
	colWidth := tableWidthTwips
	if cols > 0 {
		colWidth = tableWidthTwips / cols
	}

	tbl := wTbl{
		Props: wTblPr{Style: wVal{Val: "TableGrid"}, Width: wTblW{W: 0, Type: "auto"}},
	}
	for i := 0; i < cols; i++ {
		tbl.Grid.Cols = append(tbl.Grid.Cols, wGridCol{W: colWidth})
	}
	for _, row := range t.Rows {
		tr := wTr{}
		for _, cell := range row.Cells {
			tr.Cells = append(tr.Cells, wTc{Paragraph: styledParagraph("", strings.TrimSpace(cell), nil)})
		}
		tbl.Rows = append(tbl.Rows, tr)
	}
	return tbl
}

// runProps keeps italics and a non-default size on body paragraphs.
// Sizes are in half-points.
func runProps(s layout.Style) *wRPr {
	props := &wRPr{}
	if s.Italic {
		props.Italic = &struct{}{}
	}
	if s.AvgFontSize > 0 && s.AvgFontSize != layout.DefaultFontSize {
		props.Size = &wVal{Val: fmt.Sprintf("%d", int(math.Round(s.AvgFontSize*2)))}
	}
	if props.Italic == nil && props.Size == nil {
		return nil
	}
	return props
}

func styledParagraph(style, text string, props *wRPr) wP {
	p := wP{Runs: []wR{{RPr: props, Text: &wT{Space: "preserve", Value: text}}}}
	if style != "" {
		p.PPr = &wPPr{Style: &wVal{Val: style}}
	}
	return p
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:rPr><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="30"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="720"/></w:pPr></w:style>
<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:tblPr><w:tblBorders><w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/></w:tblBorders></w:tblPr></w:style>
</w:styles>`
