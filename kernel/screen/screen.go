// Package screen simulates the text-mode display: a fixed grid of
// character cells with a current color attribute.
package screen

import "strings"

const (
	Cols = 80
	Rows = 25
)

// Default VGA attribute: light grey on black.
const defaultAttr = 0x07

type cell struct {
	ch   byte
	attr byte
}

// Screen is the display state. Output wraps at the right edge and
// scrolls at the bottom.
type Screen struct {
	cells    [Rows * Cols]cell
	row, col int
	attr     byte
}

// New returns a cleared screen with the default attribute.
func New() *Screen {
	s := &Screen{attr: defaultAttr}
	s.Clear()
	return s
}

// SetTextColor sets the attribute for subsequent output: low nibble
// foreground, high nibble background.
func (s *Screen) SetTextColor(fg, bg byte) {
	s.attr = (bg&0x0F)<<4 | fg&0x0F
}

// Attr reports the current color attribute.
func (s *Screen) Attr() byte { return s.attr }

// Clear blanks every cell with the current attribute and homes the
// cursor.
func (s *Screen) Clear() {
	for i := range s.cells {
		s.cells[i] = cell{ch: ' ', attr: s.attr}
	}
	s.row, s.col = 0, 0
}

// Putc writes one character at the cursor. '\n' moves to the next
// line.
func (s *Screen) Putc(c byte) {
	if c == '\n' {
		s.col = 0
		s.row++
	} else {
		s.cells[s.row*Cols+s.col] = cell{ch: c, attr: s.attr}
		s.col++
		if s.col == Cols {
			s.col = 0
			s.row++
		}
	}
	if s.row == Rows {
		s.scroll()
	}
}

func (s *Screen) scroll() {
	copy(s.cells[:], s.cells[Cols:])
	for i := (Rows - 1) * Cols; i < Rows*Cols; i++ {
		s.cells[i] = cell{ch: ' ', attr: s.attr}
	}
	s.row = Rows - 1
}

// CharAt reports the character at a cell, for tests and the demo dump.
func (s *Screen) CharAt(row, col int) byte { return s.cells[row*Cols+col].ch }

// Line returns one row with trailing blanks trimmed.
func (s *Screen) Line(row int) string {
	var b strings.Builder
	for c := 0; c < Cols; c++ {
		b.WriteByte(s.cells[row*Cols+c].ch)
	}
	return strings.TrimRight(b.String(), " ")
}

// String dumps the visible rows, trailing blank lines trimmed.
func (s *Screen) String() string {
	lines := make([]string, 0, Rows)
	for r := 0; r < Rows; r++ {
		lines = append(lines, s.Line(r))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
