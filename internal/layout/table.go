package layout

import (
	"math"
	"sort"
	"strings"
)

// DefaultCellDelimiter separates cells when a table row is rendered as text
const DefaultCellDelimiter = " | "

// TableRow holds one line's cells, one per column anchor
type TableRow struct {
	Cells []string `json:"cells" yaml:"cells"`
}

// Table is a paragraph reinterpreted as a grid of column-aligned cells
type Table struct {
	Anchors []float64  `json:"anchors" yaml:"anchors"`
	Rows    []TableRow `json:"rows" yaml:"rows"`
	Lines   []Line     `json:"-" yaml:"-"`
}

// Kind implements Block
func (t *Table) Kind() BlockKind {
	return KindTable
}

// Columns returns the number of column anchors
func (t *Table) Columns() int {
	return len(t.Anchors)
}

// Text renders rows with the default delimiter, one row per line
func (t *Table) Text() string {
	return strings.Join(t.Delimited(DefaultCellDelimiter), "\n")
}

// Delimited joins each row's cells with sep
func (t *Table) Delimited(sep string) []string {
	rows := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = strings.Join(r.Cells, sep)
	}
	return rows
}

// DetectTable decides whether the lines form a table and, if so, reshapes
// them into rows and columns. Sparse rows are kept as they are.
func DetectTable(lines []Line, cfg Config) (*Table, bool) {
	if len(lines) < cfg.MinTableLines {
		return nil, false
	}

	anchors := columnAnchors(lines, cfg.ColumnQuantum)
	if len(anchors) < cfg.MinTableColumns {
		return nil, false
	}

	table := &Table{
		Anchors: anchors,
		Rows:    make([]TableRow, 0, len(lines)),
		Lines:   lines,
	}
	for _, l := range lines {
		table.Rows = append(table.Rows, buildRow(l, anchors, cfg.ColumnQuantum))
	}
	return table, true
}

// quantize snaps x to the nearest multiple of quantum
func quantize(x, quantum float64) float64 {
	return math.Round(x/quantum) * quantum
}

func columnAnchors(lines []Line, quantum float64) []float64 {
	seen := make(map[float64]struct{})
	var anchors []float64
	for _, l := range lines {
		for _, f := range l.Fragments {
			q := quantize(f.X, quantum)
			if _, ok := seen[q]; ok {
				continue
			}
			seen[q] = struct{}{}
			anchors = append(anchors, q)
		}
	}
	sort.Float64s(anchors)
	return anchors
}

// buildRow places every fragment into the single nearest anchor within
// tolerance, so no text is duplicated across neighbouring cells
func buildRow(l Line, anchors []float64, quantum float64) TableRow {
	cells := make([][]string, len(anchors))
	for _, f := range l.Fragments {
		if idx := nearestAnchor(quantize(f.X, quantum), anchors, quantum); idx >= 0 {
			cells[idx] = append(cells[idx], f.Text)
		}
	}

	row := TableRow{Cells: make([]string, len(anchors))}
	for i, parts := range cells {
		if len(parts) == 0 {
			row.Cells[i] = " "
			continue
		}
		row.Cells[i] = strings.Join(parts, " ")
	}
	return row
}

func nearestAnchor(qx float64, anchors []float64, tolerance float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, a := range anchors {
		d := math.Abs(qx - a)
		if d <= tolerance && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
