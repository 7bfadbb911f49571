package emit

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// YAMLEmitter dumps the reconstructed structure for inspection
type YAMLEmitter struct{}

// NewYAMLEmitter creates a YAML structure emitter
func NewYAMLEmitter() *YAMLEmitter {
	return &YAMLEmitter{}
}

func (e *YAMLEmitter) Format() Format    { return FormatYAML }
func (e *YAMLEmitter) Extension() string { return FormatYAML.Extension() }

// StructureDocument is the serialisable view of a layout.Document
type StructureDocument struct {
	Title string          `yaml:"title,omitempty" json:"title,omitempty"`
	Stats StructureStats  `yaml:"stats" json:"stats"`
	Pages []StructurePage `yaml:"pages" json:"pages"`
}

// StructureStats mirrors layout.Stats
type StructureStats struct {
	Pages      int `yaml:"pages" json:"pages"`
	EmptyPages int `yaml:"empty_pages" json:"empty_pages"`
	Paragraphs int `yaml:"paragraphs" json:"paragraphs"`
	Headings   int `yaml:"headings" json:"headings"`
	ListItems  int `yaml:"list_items" json:"list_items"`
	Tables     int `yaml:"tables" json:"tables"`
}

// StructurePage holds one page's blocks
type StructurePage struct {
	Number int              `yaml:"number" json:"number"`
	Blocks []StructureBlock `yaml:"blocks" json:"blocks"`
}

// StructureBlock flattens a paragraph or table
type StructureBlock struct {
	Kind     layout.BlockKind `yaml:"kind" json:"kind"`
	Text     string           `yaml:"text,omitempty" json:"text,omitempty"`
	Heading  int              `yaml:"heading,omitempty" json:"heading,omitempty"`
	List     string           `yaml:"list,omitempty" json:"list,omitempty"`
	FontSize float64          `yaml:"font_size,omitempty" json:"font_size,omitempty"`
	Bold     bool             `yaml:"bold,omitempty" json:"bold,omitempty"`
	Italic   bool             `yaml:"italic,omitempty" json:"italic,omitempty"`
	Indent   float64          `yaml:"indent,omitempty" json:"indent,omitempty"`
	Lines    int              `yaml:"lines,omitempty" json:"lines,omitempty"`
	Anchors  []float64        `yaml:"anchors,omitempty" json:"anchors,omitempty"`
	Rows     [][]string       `yaml:"rows,omitempty" json:"rows,omitempty"`
}

// Structure builds the serialisable view of doc
func Structure(doc *layout.Document, title string) (*StructureDocument, error) {
	out := &StructureDocument{Title: title, Pages: []StructurePage{}}
	if doc != nil {
		s := doc.Stats()
		out.Stats = StructureStats(s)
	}

	err := layout.ForEachPage(doc, func(number int, blocks []layout.Block) error {
		page := StructurePage{Number: number, Blocks: make([]StructureBlock, 0, len(blocks))}
		for _, b := range blocks {
			page.Blocks = append(page.Blocks, structureBlock(b))
		}
		out.Pages = append(out.Pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func structureBlock(b layout.Block) StructureBlock {
	sb := StructureBlock{Kind: b.Kind()}
	switch v := b.(type) {
	case *layout.Table:
		sb.Anchors = v.Anchors
		sb.Lines = len(v.Rows)
		for _, r := range v.Rows {
			sb.Rows = append(sb.Rows, r.Cells)
		}
	case *layout.Paragraph:
		sb.Text = v.Text()
		sb.Heading = v.Style.HeadingLevel
		if v.List != layout.ListNone {
			sb.List = v.List.String()
		}
		sb.FontSize = v.Style.AvgFontSize
		sb.Bold = v.Style.Bold
		sb.Italic = v.Style.Italic
		sb.Indent = v.Indent()
		sb.Lines = len(v.Lines)
	default:
		sb.Text = b.Text()
	}
	return sb
}

// Emit implements Emitter
func (e *YAMLEmitter) Emit(w io.Writer, doc *layout.Document, opts Options) error {
	view, err := Structure(doc, opts.Title)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("failed to encode structure: %w", err)
	}
	return enc.Close()
}
