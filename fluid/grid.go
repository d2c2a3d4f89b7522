/*package fluid contains the Eulerian side of the solver: a doubly periodic
square grid holding the velocity field and the forcing spread onto it, and
a spectral Navier-Stokes integrator which advances that field.
*/
package fluid

import (
	"math"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// MinPoints is the smallest supported number of grid points per side.
const MinPoints = 4

// Grid is an N x N periodic grid covering [0, Width) x [0, Width). Node
// (i, j) is located at (i H, j H) and stored at index i + j N.
//
// U and V are the velocity components. Fx, Fy and Src hold per-node totals
// of the force and the volume source spread from the markers; dividing them
// by H^2 gives the force density and source density seen by the solver.
type Grid struct {
	geom.Grid
	N        int
	Width, H float64

	U, V        []float64
	Fx, Fy, Src []float64
}

// NewGrid allocates a grid of points x points nodes spanning width.
func NewGrid(points int, width float64) (*Grid, error) {
	if points < MinPoints {
		return nil, errs.Config(
			"a fluid grid needs at least %d points per side, got %d",
			MinPoints, points,
		)
	} else if !(width > 0) || math.IsInf(width, 0) {
		return nil, errs.Config("domain width must be positive, got %g", width)
	}

	g := &Grid{N: points, Width: width, H: width / float64(points)}
	g.Grid.Init(points)

	area := g.Area
	g.U, g.V = make([]float64, area), make([]float64, area)
	g.Fx, g.Fy = make([]float64, area), make([]float64, area)
	g.Src = make([]float64, area)
	return g, nil
}

// Spacing returns the distance between adjacent nodes.
func (g *Grid) Spacing() float64 { return g.H }

// Pos returns the position of the node at idx.
func (g *Grid) Pos(idx int) geom.Vec {
	x, y := g.Coords(idx)
	return geom.Vec{float64(x) * g.H, float64(y) * g.H}
}

// ClearForcing zeroes Fx, Fy and Src.
func (g *Grid) ClearForcing() {
	zero(g.Fx)
	zero(g.Fy)
	zero(g.Src)
}

// Reset zeroes every field on the grid.
func (g *Grid) Reset() {
	zero(g.U)
	zero(g.V)
	g.ClearForcing()
}

// IsFinite checks the velocity field. If it contains a NaN or an infinity,
// the index of the first offending node is returned with ok = false.
func (g *Grid) IsFinite() (idx int, ok bool) {
	for i := range g.U {
		if g.U[i]-g.U[i] != 0 || g.V[i]-g.V[i] != 0 {
			return i, false
		}
	}
	return -1, true
}

// MeanVelocity returns the velocity averaged over every node.
func (g *Grid) MeanVelocity() geom.Vec {
	var sum geom.Vec
	for i := range g.U {
		sum[0] += g.U[i]
		sum[1] += g.V[i]
	}
	return sum.Scale(1 / float64(g.Area))
}

// MaxSpeed returns the largest velocity magnitude on the grid.
func (g *Grid) MaxSpeed() float64 {
	max := 0.0
	for i := range g.U {
		s := g.U[i]*g.U[i] + g.V[i]*g.V[i]
		if s > max {
			max = s
		}
	}
	return math.Sqrt(max)
}

func zero(xs []float64) {
	for i := range xs {
		xs[i] = 0
	}
}
