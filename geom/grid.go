package geom

// Grid provides an interface for reasoning over a 1D slice as if it were a
// square 2D grid with periodic boundaries.
type Grid struct {
	Length, Area int
}

// NewGrid returns a new Grid instance with the given number of points on a
// side.
func NewGrid(length int) *Grid {
	g := &Grid{}
	g.Init(length)
	return g
}

// Init initializes a Grid instance.
func (g *Grid) Init(length int) {
	g.Length = length
	g.Area = length * length
}

// Idx returns the grid index corresponding to a set of coordinates. The
// coordinates may lie outside the grid, in which case they are wrapped.
func (g *Grid) Idx(x, y int) int {
	if x < 0 || x >= g.Length {
		x = pMod(x, g.Length)
	}
	if y < 0 || y >= g.Length {
		y = pMod(y, g.Length)
	}
	return x + y*g.Length
}

// Coords returns the x, y coordinates of a point from its grid index.
func (g *Grid) Coords(idx int) (x, y int) {
	return idx % g.Length, idx / g.Length
}

// pMod computes the positive modulo x % y.
func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}
