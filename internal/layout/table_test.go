package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(y float64, cells map[float64]string) Line {
	var l Line
	for x, text := range cells {
		l.Fragments = append(l.Fragments, frag(text, x, y, 10))
	}
	return newLine(l.Fragments)
}

func TestDetectTable_ThreeColumns(t *testing.T) {
	lines := []Line{
		row(700, map[float64]string{10: "Name", 100: "Qty", 200: "Price"}),
		row(685, map[float64]string{11: "Apple", 98: "3", 203: "1.20"}),
	}

	table, ok := DetectTable(lines, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, 3, table.Columns())
	assert.Equal(t, []float64{10, 100, 200}, table.Anchors)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Name", "Qty", "Price"}, table.Rows[0].Cells)
	assert.Equal(t, []string{"Apple", "3", "1.20"}, table.Rows[1].Cells)
	assert.Equal(t, KindTable, table.Kind())
}

func TestDetectTable_AnchorThreshold(t *testing.T) {
	cfg := DefaultConfig()

	two := []Line{
		row(700, map[float64]string{10: "a", 100: "b"}),
		row(690, map[float64]string{10: "c", 100: "d"}),
	}
	_, ok := DetectTable(two, cfg)
	assert.False(t, ok, "two anchors are never a table")

	three := []Line{
		row(700, map[float64]string{10: "a", 100: "b"}),
		row(690, map[float64]string{10: "c", 150: "d"}),
	}
	_, ok = DetectTable(three, cfg)
	assert.True(t, ok, "three anchors always are")
}

func TestDetectTable_SingleLine(t *testing.T) {
	lines := []Line{row(700, map[float64]string{10: "a", 100: "b", 200: "c"})}
	_, ok := DetectTable(lines, DefaultConfig())
	assert.False(t, ok)
}

func TestDetectTable_SparseRowsKeepEmptyCells(t *testing.T) {
	lines := []Line{
		row(700, map[float64]string{10: "a", 100: "b", 200: "c"}),
		row(690, map[float64]string{10: "only"}),
	}

	table, ok := DetectTable(lines, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, []string{"only", " ", " "}, table.Rows[1].Cells)
}

func TestDetectTable_Quantization(t *testing.T) {
	// 96 and 104 both snap to 100
	lines := []Line{
		row(700, map[float64]string{10: "a", 96: "b", 200: "c"}),
		row(690, map[float64]string{10: "d", 104: "e", 200: "f"}),
	}

	table, ok := DetectTable(lines, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, 3, table.Columns())
	assert.Equal(t, "e", table.Rows[1].Cells[1])
}

func TestDetectTable_MergesFragmentsInSameCell(t *testing.T) {
	l := Line{Fragments: []TextFragment{
		frag("New", 10, 700, 10),
		frag("York", 12, 700, 10),
		frag("NY", 100, 700, 10),
		frag("8M", 200, 700, 10),
	}}
	lines := []Line{l, row(690, map[float64]string{10: "Austin", 100: "TX", 200: "1M"})}

	table, ok := DetectTable(lines, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, "New York", table.Rows[0].Cells[0])
}

func TestTable_Delimited(t *testing.T) {
	table := &Table{
		Anchors: []float64{10, 100, 200},
		Rows: []TableRow{
			{Cells: []string{"a", "b", "c"}},
			{Cells: []string{"d", " ", "f"}},
		},
	}

	assert.Equal(t, []string{"a,b,c", "d, ,f"}, table.Delimited(","))
	assert.Equal(t, "a | b | c\nd |   | f", table.Text())
}
