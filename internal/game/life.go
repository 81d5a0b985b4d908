package game

// Two-colour Conway variant. Birth colour is contested by neighbour
// majority, survival colour is sticky.

// NextGeneration computes one evolution step. Edges are clipped, no
// wraparound.
func NextGeneration(g Grid) Grid {
	size := len(g)
	next := NewGrid(size)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			next[y][x] = nextCellState(g, x, y)
		}
	}
	return next
}

func nextCellState(g Grid, x, y int) Cell {
	red, blue := countNeighbors(g, x, y)
	total := red + blue

	if g[y][x] == Empty {
		// Birth on exactly 3 neighbours, coloured by majority.
		// Red wins ties.
		if total == 3 {
			if red >= blue {
				return Red
			}
			return Blue
		}
		return Empty
	}

	if total == 2 || total == 3 {
		return g[y][x]
	}
	return Empty
}

// countNeighbors counts occupied Moore neighbours of (x, y) split by
// colour, clipped at the board edges.
func countNeighbors(g Grid, x, y int) (red, blue int) {
	size := len(g)

	yStart := max(0, y-1)
	yEnd := min(size-1, y+1)
	xStart := max(0, x-1)
	xEnd := min(size-1, x+1)

	for ny := yStart; ny <= yEnd; ny++ {
		for nx := xStart; nx <= xEnd; nx++ {
			if nx == x && ny == y {
				continue
			}
			switch g[ny][nx] {
			case Red:
				red++
			case Blue:
				blue++
			}
		}
	}
	return red, blue
}

// Territory counts each team's occupied cells.
func Territory(g Grid) (red, blue int) {
	for y := range g {
		for x := range g[y] {
			switch g[y][x] {
			case Red:
				red++
			case Blue:
				blue++
			}
		}
	}
	return red, blue
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
