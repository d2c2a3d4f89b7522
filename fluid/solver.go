package fluid

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/phil-mansfield/goib/errs"
)

// Solver advances the incompressible Navier-Stokes equations with a volume
// source,
//
//     rho (du/dt + (u . grad) u) = -grad p + mu lap u + f
//     div u = s
//
// on a periodic Grid. Each step treats viscosity implicitly and advection
// explicitly, and solves for the pressure exactly in Fourier space. The mean
// of s is removed, which is the same as balancing the sources with a
// uniform sink: a periodic velocity field cannot have net divergence.
type Solver struct {
	// Advection toggles the nonlinear term. It is on by default.
	Advection bool

	g                  *Grid
	viscosity, density float64

	fft *fourier.CmplxFFT
	// k holds the signed wavenumber of each index and kd the wavenumber
	// used for first derivatives, which is zero at the Nyquist frequency.
	k, kd []float64
	keep  []bool

	uh, vh, fxh, fyh, sh, nxh, nyh []complex128
	work                           []complex128
	ux, uy, vx, vy                 []float64
	row, col                       []complex128
}

// NewSolver returns a Solver which advances the velocity on g for a fluid
// with the given dynamic viscosity and density.
func NewSolver(g *Grid, viscosity, density float64) (*Solver, error) {
	if g == nil {
		return nil, errs.Config("no fluid grid given")
	} else if !(viscosity >= 0) || math.IsInf(viscosity, 0) {
		return nil, errs.Config(
			"viscosity must be non-negative, got %g", viscosity,
		)
	} else if !(density > 0) || math.IsInf(density, 0) {
		return nil, errs.Config("density must be positive, got %g", density)
	}

	n, area := g.N, g.Area
	s := &Solver{
		Advection: true,
		g:         g, viscosity: viscosity, density: density,
		fft: fourier.NewCmplxFFT(n),
		k:   make([]float64, n), kd: make([]float64, n),
		keep: make([]bool, n),
		row:  make([]complex128, n), col: make([]complex128, n),
	}

	dk := 2 * math.Pi / g.Width
	for i := 0; i < n; i++ {
		m := i
		if i > n/2 {
			m = i - n
		}
		s.k[i] = dk * float64(m)
		s.kd[i] = s.k[i]
		if 2*i == n {
			s.kd[i] = 0
		}
		// Two-thirds rule for the nonlinear term.
		s.keep[i] = 3*abs(m) <= n
	}

	cs := make([][]complex128, 8)
	for i := range cs {
		cs[i] = make([]complex128, area)
	}
	s.uh, s.vh, s.fxh, s.fyh = cs[0], cs[1], cs[2], cs[3]
	s.sh, s.nxh, s.nyh, s.work = cs[4], cs[5], cs[6], cs[7]

	s.ux, s.uy = make([]float64, area), make([]float64, area)
	s.vx, s.vy = make([]float64, area), make([]float64, area)

	return s, nil
}

// Grid returns the grid the solver acts on.
func (s *Solver) Grid() *Grid { return s.g }

// Viscosity returns the dynamic viscosity of the fluid.
func (s *Solver) Viscosity() float64 { return s.viscosity }

// Density returns the density of the fluid.
func (s *Solver) Density() float64 { return s.density }

// Step advances U and V by dt using the forcing currently stored on the grid.
func (s *Solver) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return errs.Config("time step must be positive, got %g", dt)
	}

	g, n := s.g, s.g.N
	s.forward(s.uh, g.U)
	s.forward(s.vh, g.V)
	s.forward(s.fxh, g.Fx)
	s.forward(s.fyh, g.Fy)
	s.forward(s.sh, g.Src)

	if s.Advection {
		s.nonlinear()
	} else {
		zeroComplex(s.nxh)
		zeroComplex(s.nyh)
	}

	rho, mu := s.density, s.viscosity
	rdt, h2 := rho/dt, g.H*g.H

	for y := 0; y < n; y++ {
		ky, dy := s.k[y], s.kd[y]
		for x := 0; x < n; x++ {
			i := x + y*n
			kx, dx := s.k[x], s.kd[x]

			a := complex(rdt+mu*(kx*kx+ky*ky), 0)
			rx := complex(rdt, 0)*s.uh[i] - complex(rho, 0)*s.nxh[i] +
				s.fxh[i]/complex(h2, 0)
			ry := complex(rdt, 0)*s.vh[i] - complex(rho, 0)*s.nyh[i] +
				s.fyh[i]/complex(h2, 0)

			kd2 := dx*dx + dy*dy
			if kd2 == 0 {
				s.uh[i], s.vh[i] = rx/a, ry/a
				continue
			}

			// Leray projection, then the potential flow carrying the source.
			kr := (complex(dx, 0)*rx + complex(dy, 0)*ry) / complex(kd2, 0)
			rx -= complex(dx, 0) * kr
			ry -= complex(dy, 0) * kr

			src := s.sh[i] / complex(h2*kd2, 0)
			s.uh[i] = rx/a + complex(0, -dx)*src
			s.vh[i] = ry/a + complex(0, -dy)*src
		}
	}

	s.inverse(g.U, s.uh)
	s.inverse(g.V, s.vh)
	return nil
}

// nonlinear computes the dealiased transform of (u . grad) u into nxh and
// nyh. uh and vh must already hold the transforms of U and V.
func (s *Solver) nonlinear() {
	g := s.g
	s.derivative(s.ux, s.uh, true)
	s.derivative(s.uy, s.uh, false)
	s.derivative(s.vx, s.vh, true)
	s.derivative(s.vy, s.vh, false)

	nx, ny := s.ux, s.vx
	for i := range g.U {
		u, v := g.U[i], g.V[i]
		nx[i] = u*s.ux[i] + v*s.uy[i]
		ny[i] = u*s.vx[i] + v*s.vy[i]
	}

	s.forward(s.nxh, nx)
	s.forward(s.nyh, ny)
	s.dealias(s.nxh)
	s.dealias(s.nyh)
}

// derivative writes the x or y derivative of the field with transform fh
// to out.
func (s *Solver) derivative(out []float64, fh []complex128, xDir bool) {
	n := s.g.N
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := x + y*n
			k := s.kd[y]
			if xDir {
				k = s.kd[x]
			}
			s.work[i] = complex(0, k) * fh[i]
		}
	}
	s.inverse(out, s.work)
}

func (s *Solver) dealias(fh []complex128) {
	n := s.g.N
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !s.keep[x] || !s.keep[y] {
				fh[x+y*n] = 0
			}
		}
	}
}

// Divergence writes the spectral divergence of the velocity field to out
// and returns it. If out is nil, a new slice is allocated.
func (s *Solver) Divergence(out []float64) []float64 {
	g, n := s.g, s.g.N
	if out == nil {
		out = make([]float64, g.Area)
	}

	s.forward(s.work, g.U)
	s.forward(s.nyh, g.V)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := x + y*n
			s.work[i] = complex(0, s.kd[x])*s.work[i] +
				complex(0, s.kd[y])*s.nyh[i]
		}
	}
	s.inverse(out, s.work)
	return out
}

// Vorticity writes dv/dx - du/dy to out and returns it. If out is nil, a new
// slice is allocated.
func (s *Solver) Vorticity(out []float64) []float64 {
	g, n := s.g, s.g.N
	if out == nil {
		out = make([]float64, g.Area)
	}

	s.forward(s.work, g.V)
	s.forward(s.nyh, g.U)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := x + y*n
			s.work[i] = complex(0, s.kd[x])*s.work[i] -
				complex(0, s.kd[y])*s.nyh[i]
		}
	}
	s.inverse(out, s.work)
	return out
}

// KineticEnergy returns the kinetic energy of the fluid, rho/2 int |u|^2.
func (s *Solver) KineticEnergy() float64 {
	sum := 0.0
	for i := range s.g.U {
		sum += s.g.U[i]*s.g.U[i] + s.g.V[i]*s.g.V[i]
	}
	return 0.5 * s.density * sum * s.g.H * s.g.H
}

// forward writes the two dimensional transform of f to fh.
func (s *Solver) forward(fh []complex128, f []float64) {
	for i := range f {
		fh[i] = complex(f[i], 0)
	}
	s.transform(fh, false)
}

// inverse writes the real part of the normalized inverse transform of fh to
// f. fh is overwritten.
func (s *Solver) inverse(f []float64, fh []complex128) {
	s.transform(fh, true)
	norm := 1 / float64(s.g.Area)
	for i := range f {
		f[i] = real(fh[i]) * norm
	}
}

// transform applies an unnormalized 2D FFT in place, rows then columns.
func (s *Solver) transform(data []complex128, inverse bool) {
	n := s.g.N
	apply := s.fft.Coefficients
	if inverse {
		apply = s.fft.Sequence
	}

	for y := 0; y < n; y++ {
		row := data[y*n : (y+1)*n]
		copy(s.row, row)
		apply(s.col, s.row)
		copy(row, s.col)
	}

	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			s.row[y] = data[x+y*n]
		}
		apply(s.col, s.row)
		for y := 0; y < n; y++ {
			data[x+y*n] = s.col[y]
		}
	}
}

func zeroComplex(xs []complex128) {
	for i := range xs {
		xs[i] = 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
