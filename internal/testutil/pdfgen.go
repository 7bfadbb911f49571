// Package testutil builds small fixture documents for tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Fonts available to fixture text
const (
	Regular = "F1"
	Bold    = "F2"
)

// Text is one string drawn at a baseline position, in points
type Text struct {
	S    string
	X, Y float64
	Size float64
	Font string
}

// At draws s in the regular font
func At(s string, x, y, size float64) Text {
	return Text{S: s, X: x, Y: y, Size: size, Font: Regular}
}

// BoldAt draws s in the bold font
func BoldAt(s string, x, y, size float64) Text {
	return Text{S: s, X: x, Y: y, Size: size, Font: Bold}
}

// BuildPDF returns a Letter-sized PDF with one page per entry. Both fonts
// are standard Type1 fonts with a fixed 500 unit advance so glyph positions
// are predictable.
func BuildPDF(pages [][]Text) []byte {
	var objects []string

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontObject("Helvetica"),
		fontObject("Helvetica-Bold"),
	)

	for i, page := range pages {
		content := pageContent(page)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// WritePDF writes BuildPDF's output to path
func WritePDF(path string, pages [][]Text) error {
	return os.WriteFile(path, BuildPDF(pages), 0o600)
}

func fontObject(base string) string {
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding "+
		"/FirstChar 32 /LastChar 126 /Widths [%s] >>", base, widths)
}

func pageContent(texts []Text) string {
	var b strings.Builder
	for _, t := range texts {
		font := t.Font
		if font == "" {
			font = Regular
		}
		fmt.Fprintf(&b, "BT /%s %.2f Tf 1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n", font, t.Size, t.X, t.Y, escape(t.S))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
