package layout

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// BlockKind tags the entries of a page
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindListItem  BlockKind = "list_item"
	KindTable     BlockKind = "table"
)

// Block is a paragraph or a table on a page
type Block interface {
	Kind() BlockKind
	Text() string
}

// Page is the ordered block sequence reconstructed from one source page
type Page struct {
	Number int     `json:"number"`
	Blocks []Block `json:"blocks"`
}

// Empty reports whether the page produced no blocks
func (p Page) Empty() bool {
	return len(p.Blocks) == 0
}

// Document is the ordered list of reconstructed pages. It is owned by the
// caller and never modified once Reconstruct returns.
type Document struct {
	Pages []Page `json:"pages"`
}

// Stats counts what a document contains
type Stats struct {
	Pages      int `json:"pages"`
	EmptyPages int `json:"empty_pages"`
	Paragraphs int `json:"paragraphs"`
	Headings   int `json:"headings"`
	ListItems  int `json:"list_items"`
	Tables     int `json:"tables"`
}

// Stats walks the document and counts blocks by kind
func (d *Document) Stats() Stats {
	s := Stats{Pages: len(d.Pages)}
	for _, p := range d.Pages {
		if p.Empty() {
			s.EmptyPages++
		}
		for _, b := range p.Blocks {
			switch b.Kind() {
			case KindHeading:
				s.Headings++
			case KindListItem:
				s.ListItems++
			case KindTable:
				s.Tables++
			default:
				s.Paragraphs++
			}
		}
	}
	return s
}

// PageVisitor receives each page number with its blocks, in order
type PageVisitor func(number int, blocks []Block) error

// ForEachPage visits pages sequentially in document order. It stops at the
// first visitor error and returns it unchanged.
func ForEachPage(doc *Document, visit PageVisitor) error {
	if doc == nil {
		return nil
	}
	for _, p := range doc.Pages {
		if err := visit(p.Number, p.Blocks); err != nil {
			return err
		}
	}
	return nil
}

// PageItems is the raw extraction output for a single page
type PageItems struct {
	Number int
	Items  []RawItem
}

// Engine runs the reconstruction pipeline with a fixed configuration
type Engine struct {
	cfg       Config
	collector *Collector
}

// NewEngine creates an engine. The configuration is not validated here;
// callers that accept user thresholds should call Config.Validate first.
func NewEngine(cfg Config) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:       cfg,
		collector: NewCollector(cfg),
	}
}

// Config returns the engine's thresholds
func (e *Engine) Config() Config {
	return e.cfg
}

// ReconstructPage turns one page's raw items into paragraphs and tables.
// It is pure and never fails; a page without usable text yields no blocks.
func (e *Engine) ReconstructPage(number int, items []RawItem) Page {
	page := Page{Number: number}

	lines := AssembleLines(e.collector.Collect(items), e.cfg)
	for _, p := range SegmentParagraphs(lines, e.cfg) {
		if e.cfg.DetectTables {
			if table, ok := DetectTable(p.Lines, e.cfg); ok {
				page.Blocks = append(page.Blocks, table)
				continue
			}
		}
		page.Blocks = append(page.Blocks, p)
	}

	return page
}

// Reconstruct processes pages concurrently, bounded by Config.Workers, and
// assembles the document by page number. The only error is ctx's.
func (e *Engine) Reconstruct(ctx context.Context, pages []PageItems) (*Document, error) {
	results := make([]Page, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.ReconstructPage(p.Number, p.Items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Number < results[j].Number
	})
	return &Document{Pages: results}, nil
}
