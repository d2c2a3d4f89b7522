package density

import (
	"runtime"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// Spreader moves values between markers and an n x n periodic grid with
// spacing h. Node (i, j) sits at (i h, j h) and is stored at index i + j n.
//
// Spread and SpreadScalar add per-node totals: the sum over the grid of a
// spread field equals the sum of the marker values that went into it.
// Dividing by h^2 converts a spread field into a density.
//
// A Spreader is not safe for concurrent use, since it owns the per-worker
// accumulation buffers.
type Spreader struct {
	kernel  Kernel
	g       geom.Grid
	h       float64
	workers int

	bufs [][]float64
}

// NewSpreader returns a Spreader for an n x n grid with spacing h which
// splits markers across the given number of workers. A non-positive worker
// count uses one per CPU.
func NewSpreader(k Kernel, n int, h float64, workers int) (*Spreader, error) {
	if k == nil {
		return nil, errs.Config("no spreading kernel given")
	} else if n < k.Support() {
		return nil, errs.Config(
			"grid of %d points is narrower than the %s kernel",
			n, k.Name(),
		)
	} else if !(h > 0) || h-h != 0 {
		return nil, errs.Config("grid spacing must be positive, got %g", h)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &Spreader{kernel: k, h: h, workers: workers}
	s.g.Init(n)
	s.bufs = make([][]float64, workers)
	return s, nil
}

// Kernel returns the spreader's kernel.
func (s *Spreader) Kernel() Kernel { return s.kernel }

// Points returns the number of grid points per side.
func (s *Spreader) Points() int { return s.g.Length }

// Spacing returns the grid spacing.
func (s *Spreader) Spacing() float64 { return s.h }

// Workers returns the number of workers markers are split across.
func (s *Spreader) Workers() int { return s.workers }

// stencil is the set of nodes and weights touched by a single marker.
type stencil struct {
	support int
	ix, iy  [MaxSupport]int
	wx, wy  [MaxSupport]float64
}

func (s *Spreader) stencil(x geom.Vec, st *stencil) {
	st.support = s.kernel.Support()
	bx := s.kernel.Weights(x[0]/s.h, &st.wx)
	by := s.kernel.Weights(x[1]/s.h, &st.wy)
	for k := 0; k < st.support; k++ {
		st.ix[k] = s.g.Idx(bx+k, 0)
		st.iy[k] = s.g.Idx(0, by+k)
	}
}

// chunk returns the range of n markers handled by worker id.
func chunk(id, workers, n int) (lo, hi int) {
	return id * n / workers, (id + 1) * n / workers
}

func (s *Spreader) workerCount(n int) int {
	if n < s.workers {
		if n == 0 {
			return 1
		}
		return n
	}
	return s.workers
}

func (s *Spreader) buffer(id, size int) []float64 {
	if cap(s.bufs[id]) < size {
		s.bufs[id] = make([]float64, size)
	}
	buf := s.bufs[id][:size]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Spread adds the vectors fs located at xs onto the component grids gx and gy.
func (s *Spreader) Spread(xs, fs []geom.Vec, gx, gy []float64) {
	if len(xs) != len(fs) {
		panic("Length of positions doesn't match length of values.")
	} else if len(gx) != s.g.Area || len(gy) != s.g.Area {
		panic("Length of grids doesn't match spreader grid size.")
	}

	area := s.g.Area
	workers := s.workerCount(len(xs))
	out := make(chan int, workers)

	for id := 0; id < workers; id++ {
		go func(id int) {
			buf := s.buffer(id, 2*area)
			bx, by := buf[:area], buf[area:]
			st := &stencil{}

			lo, hi := chunk(id, workers, len(xs))
			for m := lo; m < hi; m++ {
				s.stencil(xs[m], st)
				f := fs[m]
				for j := 0; j < st.support; j++ {
					row, wy := st.iy[j], st.wy[j]
					for i := 0; i < st.support; i++ {
						w := st.wx[i] * wy
						bx[row+st.ix[i]] += w * f[0]
						by[row+st.ix[i]] += w * f[1]
					}
				}
			}
			out <- id
		}(id)
	}

	for i := 0; i < workers; i++ {
		<-out
	}
	// Buffers are added in worker order so results are reproducible.
	for id := 0; id < workers; id++ {
		buf := s.bufs[id][:2*area]
		addTo(gx, buf[:area])
		addTo(gy, buf[area:])
	}
}

// SpreadScalar adds the values vals located at xs onto g.
func (s *Spreader) SpreadScalar(xs []geom.Vec, vals []float64, g []float64) {
	if len(xs) != len(vals) {
		panic("Length of positions doesn't match length of values.")
	} else if len(g) != s.g.Area {
		panic("Length of grid doesn't match spreader grid size.")
	}

	area := s.g.Area
	workers := s.workerCount(len(xs))
	out := make(chan int, workers)

	for id := 0; id < workers; id++ {
		go func(id int) {
			buf := s.buffer(id, area)
			st := &stencil{}

			lo, hi := chunk(id, workers, len(xs))
			for m := lo; m < hi; m++ {
				if vals[m] == 0 {
					continue
				}
				s.stencil(xs[m], st)
				for j := 0; j < st.support; j++ {
					row, wy := st.iy[j], st.wy[j]*vals[m]
					for i := 0; i < st.support; i++ {
						buf[row+st.ix[i]] += st.wx[i] * wy
					}
				}
			}
			out <- id
		}(id)
	}

	for i := 0; i < workers; i++ {
		<-out
	}
	for id := 0; id < workers; id++ {
		addTo(g, s.bufs[id][:area])
	}
}

// Interpolate writes the kernel-weighted average of the component grids u and
// v at each position in xs to out. A uniform field is returned to within
// rounding, since the weights only sum to one to within rounding.
func (s *Spreader) Interpolate(xs []geom.Vec, u, v []float64, out []geom.Vec) {
	if len(xs) != len(out) {
		panic("Length of positions doesn't match length of output.")
	} else if len(u) != s.g.Area || len(v) != s.g.Area {
		panic("Length of grids doesn't match spreader grid size.")
	}

	workers := s.workerCount(len(xs))
	done := make(chan int, workers)

	for id := 0; id < workers; id++ {
		go func(id int) {
			st := &stencil{}
			lo, hi := chunk(id, workers, len(xs))
			for m := lo; m < hi; m++ {
				s.stencil(xs[m], st)
				var sum geom.Vec
				for j := 0; j < st.support; j++ {
					row, wy := st.iy[j], st.wy[j]
					for i := 0; i < st.support; i++ {
						w := st.wx[i] * wy
						sum[0] += w * u[row+st.ix[i]]
						sum[1] += w * v[row+st.ix[i]]
					}
				}
				out[m] = sum
			}
			done <- id
		}(id)
	}

	for i := 0; i < workers; i++ {
		<-done
	}
}

func addTo(dst, src []float64) {
	for i := range src {
		dst[i] += src[i]
	}
}
