package game

// Cell is one square of the board. Zero value is empty.
type Cell uint8

const (
	Empty Cell = 0
	Red   Cell = 1
	Blue  Cell = 2
)

// Team identifies one of the two sides. The wire format uses the
// lowercase colour names.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func (t Team) Cell() Cell {
	switch t {
	case TeamRed:
		return Red
	case TeamBlue:
		return Blue
	}
	return Empty
}

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Grid is a square board of cells, indexed grid[y][x].
type Grid [][]Cell

func NewGrid(size int) Grid {
	g := make(Grid, size)
	for y := range g {
		g[y] = make([]Cell, size)
	}
	return g
}

func (g Grid) Size() int {
	return len(g)
}

func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && x < len(g) && y >= 0 && y < len(g)
}

// Clone returns a deep copy. Mutations always go through a copy so a
// broadcast snapshot never changes under the reader.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for y := range g {
		out[y] = make([]Cell, len(g[y]))
		copy(out[y], g[y])
	}
	return out
}
