package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// column describes one table column. Numeric columns are right-aligned so
// durations and coordinates line up on their units.
type column struct {
	header  string
	numeric bool
	// max caps the display width; longer cells end in "…". Zero is unbounded.
	max     int
}

var (
	listColumns = []column{
		{header: "TIME"},
		{header: "KIND"},
		{header: "PLACE", max: 32},
		{header: "DURATION", numeric: true},
		{header: "ID"},
	}
	placeColumns = []column{
		{header: "NAME", max: 32},
		{header: "LAT", numeric: true},
		{header: "LON", numeric: true},
		{header: "RADIUS", numeric: true},
	}
)

// writeTable prints rows under cols. Missing cells print empty and extra
// cells are dropped. The last column is never padded on the right.
func writeTable(out io.Writer, cols []column, rows [][]string) error {
	if len(cols) == 0 {
		return nil
	}

	cells := make([][]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	cells = append(cells, header)
	for _, row := range rows {
		fitted := make([]string, len(cols))
		for i, c := range cols {
			if i < len(row) {
				fitted[i] = c.fit(row[i])
			}
		}
		cells = append(cells, fitted)
	}

	widths := make([]int, len(cols))
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	w := bufio.NewWriter(out)
	for _, row := range cells {
		var line strings.Builder
		for i, cell := range row {
			last := i == len(row)-1
			pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
			switch {
			case cols[i].numeric:
				line.WriteString(pad + cell)
			case last:
				line.WriteString(cell)
			default:
				line.WriteString(cell + pad)
			}
			if !last {
				line.WriteString(columnGap)
			}
		}
		line.WriteByte('\n')
		if _, err := w.WriteString(line.String()); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (c column) fit(cell string) string {
	if c.max <= 0 || runewidth.StringWidth(cell) <= c.max {
		return cell
	}
	return runewidth.Truncate(cell, c.max, "…")
}
