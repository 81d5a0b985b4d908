package game

import "errors"

var (
	ErrOutOfBounds    = errors.New("cell out of bounds")
	ErrCellOccupied   = errors.New("cell already occupied")
	ErrInvalidPattern = errors.New("invalid pattern format")
)

// Pattern is a binary stamp matrix. 1-cells are placed, 0-cells leave
// the board untouched.
type Pattern [][]int

// Validate rejects empty, ragged or non-binary matrices.
func (p Pattern) Validate() error {
	if len(p) == 0 || len(p[0]) == 0 {
		return ErrInvalidPattern
	}
	width := len(p[0])
	for _, row := range p {
		if len(row) != width {
			return ErrInvalidPattern
		}
		for _, c := range row {
			if c != 0 && c != 1 {
				return ErrInvalidPattern
			}
		}
	}
	return nil
}

// IsValidMove reports whether (x, y) is an in-bounds empty cell.
// Pure predicate, no mutation.
func IsValidMove(g Grid, x, y int) bool {
	return g.InBounds(x, y) && g[y][x] == Empty
}

// PlaceCell returns a copy of the grid with one cell claimed for team.
func PlaceCell(g Grid, x, y int, team Team) (Grid, error) {
	if !g.InBounds(x, y) {
		return nil, ErrOutOfBounds
	}
	if g[y][x] != Empty {
		return nil, ErrCellOccupied
	}
	out := g.Clone()
	out[y][x] = team.Cell()
	return out, nil
}

// PatternFits reports whether every 1-cell of the pattern lands on an
// in-bounds empty cell when stamped at (x, y).
func PatternFits(g Grid, p Pattern, x, y int) bool {
	if p.Validate() != nil {
		return false
	}
	if x < 0 || y < 0 || x+len(p[0]) > len(g) || y+len(p) > len(g) {
		return false
	}
	for dy, row := range p {
		for dx, c := range row {
			if c == 1 && g[y+dy][x+dx] != Empty {
				return false
			}
		}
	}
	return true
}

// PlacePattern returns a copy of the grid with the pattern's 1-cells
// claimed for team at offset (x, y).
func PlacePattern(g Grid, p Pattern, x, y int, team Team) (Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || x+len(p[0]) > len(g) || y+len(p) > len(g) {
		return nil, ErrOutOfBounds
	}
	if !PatternFits(g, p, x, y) {
		return nil, ErrCellOccupied
	}
	out := g.Clone()
	for dy, row := range p {
		for dx, c := range row {
			if c == 1 {
				out[y+dy][x+dx] = team.Cell()
			}
		}
	}
	return out, nil
}
