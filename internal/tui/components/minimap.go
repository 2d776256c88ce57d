package components

import (
	"math"
	"strings"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/tui/styles"
)

// Mark is one item drawn on the mini map.
type Mark struct {
	Kind      models.ItemKind
	Points    []models.Coordinate
	Highlight bool
}

// Extent is the lat/lon box the mini map projects onto its grid.
type Extent struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

type cell struct {
	glyph rune
	color string
}

// RenderMiniMap plots marks into a width x height grid. Paths are drawn
// first so visits stay on top.
func RenderMiniMap(theme styles.Theme, marks []Mark, extent Extent, width, height int) []string {
	if width <= 0 || height <= 0 {
		return nil
	}
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{glyph: ' '}
		}
	}

	project := func(c models.Coordinate) (int, int) {
		return projectAxis(c.Longitude, extent.MinLongitude, extent.MaxLongitude, width),
			height - 1 - projectAxis(c.Latitude, extent.MinLatitude, extent.MaxLatitude, height)
	}

	for _, mark := range marks {
		if mark.Kind != models.ItemKindPath || len(mark.Points) == 0 {
			continue
		}
		color := theme.Map.Path
		if mark.Highlight {
			color = theme.Map.Selected
		}
		for i := 1; i < len(mark.Points); i++ {
			x0, y0 := project(mark.Points[i-1])
			x1, y1 := project(mark.Points[i])
			plotLine(grid, x0, y0, x1, y1, cell{glyph: '·', color: color})
		}
		if len(mark.Points) == 1 {
			x, y := project(mark.Points[0])
			grid[y][x] = cell{glyph: '·', color: color}
		}
	}
	for _, mark := range marks {
		if mark.Kind != models.ItemKindVisit || len(mark.Points) == 0 {
			continue
		}
		glyph, color := 'o', theme.Map.Visit
		if mark.Highlight {
			glyph, color = '●', theme.Map.Selected
		}
		x, y := project(mark.Points[0])
		grid[y][x] = cell{glyph: glyph, color: color}
	}

	lines := make([]string, height)
	for y, row := range grid {
		lines[y] = renderCells(row)
	}
	return lines
}

func projectAxis(v, lo, hi float64, cells int) int {
	if cells <= 1 {
		return 0
	}
	span := hi - lo
	if span <= 0 || math.IsNaN(span) {
		return (cells - 1) / 2
	}
	pos := int(math.Round((v - lo) / span * float64(cells-1)))
	return styles.ClampInt(pos, 0, cells-1)
}

func plotLine(grid [][]cell, x0, y0, x1, y1 int, c cell) {
	steps := maxAbs(x1-x0, y1-y0)
	if steps == 0 {
		grid[y0][x0] = c
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + (x1-x0)*i/steps
		y := y0 + (y1-y0)*i/steps
		grid[y][x] = c
	}
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// renderCells styles runs of same-colored cells together.
func renderCells(row []cell) string {
	var b strings.Builder
	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		var run strings.Builder
		for _, c := range row[start:end] {
			run.WriteRune(c.glyph)
		}
		if row[start].color == "" {
			b.WriteString(run.String())
		} else {
			b.WriteString(styles.Fg(row[start].color).Render(run.String()))
		}
	}
	for i := 1; i <= len(row); i++ {
		if i == len(row) || row[i].color != row[start].color {
			flush(i)
			start = i
		}
	}
	return b.String()
}
