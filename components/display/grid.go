package display

import "strings"

// Grid is an in-memory character display surface. It is not safe for concurrent use; owners guard
// it with their own lock.
type Grid struct {
	rows     [][]rune
	col, row int
}

// NewGrid returns a blank grid.
func NewGrid(cols, rows int) *Grid {
	g := &Grid{rows: make([][]rune, rows)}
	for i := range g.rows {
		g.rows[i] = []rune(strings.Repeat(" ", cols))
	}
	return g
}

// Cursor returns the write position.
func (g *Grid) Cursor() (col, row int) {
	return g.col, g.row
}

// SetCursor moves the write position. Positions outside the grid are allowed; writes there are
// dropped.
func (g *Grid) SetCursor(col, row int) {
	g.col, g.row = col, row
}

// Write puts text at the cursor and advances it.
func (g *Grid) Write(text string) {
	if g.row < 0 || g.row >= len(g.rows) {
		return
	}
	line := g.rows[g.row]
	for _, r := range text {
		if g.col >= 0 && g.col < len(line) {
			line[g.col] = r
		}
		g.col++
	}
}

// Clear blanks every cell and homes the cursor.
func (g *Grid) Clear() {
	for i := range g.rows {
		for j := range g.rows[i] {
			g.rows[i][j] = ' '
		}
	}
	g.col, g.row = 0, 0
}

// Line returns row with trailing blanks removed.
func (g *Grid) Line(row int) string {
	if row < 0 || row >= len(g.rows) {
		return ""
	}
	return strings.TrimRight(string(g.rows[row]), " ")
}

// Lines returns every row, trailing blanks removed.
func (g *Grid) Lines() []string {
	lines := make([]string, len(g.rows))
	for i := range g.rows {
		lines[i] = g.Line(i)
	}
	return lines
}
