package emit

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// HTMLEmitter builds an HTML node tree and renders it. Each source page
// becomes a <section class="page">.
type HTMLEmitter struct{}

// NewHTMLEmitter creates an HTML emitter
func NewHTMLEmitter() *HTMLEmitter {
	return &HTMLEmitter{}
}

func (e *HTMLEmitter) Format() Format    { return FormatHTML }
func (e *HTMLEmitter) Extension() string { return FormatHTML.Extension() }

// Emit implements Emitter
func (e *HTMLEmitter) Emit(w io.Writer, doc *layout.Document, opts Options) error {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html)
	root.AppendChild(htmlEl)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	if opts.Title != "" {
		title := element(atom.Title)
		title.AppendChild(textNode(opts.Title))
		head.AppendChild(title)
	}
	htmlEl.AppendChild(head)

	body := element(atom.Body)
	htmlEl.AppendChild(body)

	err := layout.ForEachPage(doc, func(number int, blocks []layout.Block) error {
		section := element(atom.Section,
			html.Attribute{Key: "class", Val: "page"},
			html.Attribute{Key: "data-page", Val: strconv.Itoa(number)},
		)
		for _, b := range blocks {
			node, err := e.block(b)
			if err != nil {
				return fmt.Errorf("page %d: %w", number, err)
			}
			section.AppendChild(node)
		}
		body.AppendChild(section)
		return nil
	})
	if err != nil {
		return err
	}

	return html.Render(w, root)
}

func (e *HTMLEmitter) block(b layout.Block) (*html.Node, error) {
	switch v := b.(type) {
	case *layout.Table:
		return htmlTable(v), nil
	case *layout.Paragraph:
		switch v.Kind() {
		case layout.KindHeading:
			n := element(headingAtom(v.Style.HeadingLevel))
			n.AppendChild(textNode(v.Text()))
			return n, nil
		case layout.KindListItem:
			list := element(atom.Ul)
			if v.List.Ordered() {
				list = element(atom.Ol)
			}
			for _, item := range listItems(v) {
				li := element(atom.Li)
				li.AppendChild(textNode(item))
				list.AppendChild(li)
			}
			return list, nil
		}
		p := element(atom.P)
		content := p
		if v.Style.Italic {
			content = element(atom.Em)
			p.AppendChild(content)
		}
		content.AppendChild(textNode(v.Text()))
		return p, nil
	default:
		return nil, fmt.Errorf("unknown block kind %q", b.Kind())
	}
}

func htmlTable(t *layout.Table) *html.Node {
	table := element(atom.Table)
	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, row := range t.Rows {
		tr := element(atom.Tr)
		for _, cell := range row.Cells {
			td := element(atom.Td)
			td.AppendChild(textNode(cell))
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	return table
}

func headingAtom(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	default:
		return atom.H3
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
