package goib

import (
	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/geom"
)

// workspace holds flat, per-marker arenas covering every curve, so that the
// spreader and interpolator see a single contiguous sequence of markers.
// offsets[c] is the index of curve c's first marker in the arenas.
type workspace struct {
	offsets []int

	xs, fs, vs []geom.Vec
	forces     [][]geom.Vec

	srcXs   []geom.Vec
	srcVals []float64

	savedU, savedV []float64
}

func newWorkspace(curves []*curve.Curve, area int) *workspace {
	w := &workspace{offsets: make([]int, len(curves)+1)}
	for i, c := range curves {
		w.offsets[i+1] = w.offsets[i] + c.Len()
	}
	n := w.offsets[len(curves)]

	w.xs = make([]geom.Vec, n)
	w.fs = make([]geom.Vec, n)
	w.vs = make([]geom.Vec, n)

	// forces[c] aliases curve c's span of fs, so force laws write directly
	// into the arena.
	w.forces = make([][]geom.Vec, len(curves))
	for i := range curves {
		w.forces[i] = w.fs[w.offsets[i]:w.offsets[i+1]]
	}

	w.savedU = make([]float64, area)
	w.savedV = make([]float64, area)
	return w
}

// gather copies marker positions and active sources into the arenas.
func (w *workspace) gather(curves []*curve.Curve) {
	w.srcXs, w.srcVals = w.srcXs[:0], w.srcVals[:0]

	for i, c := range curves {
		ms := c.Markers()
		xs := w.xs[w.offsets[i]:w.offsets[i+1]]
		for j := range ms {
			xs[j] = ms[j].Pos
		}

		for _, s := range c.Sources() {
			if s.Strength() == 0 {
				continue
			}
			w.srcXs = append(w.srcXs, ms[s.Marker()].Pos)
			w.srcVals = append(w.srcVals, s.Strength())
		}
	}
}

// advect moves every free marker by its interpolated velocity times dt.
func (w *workspace) advect(curves []*curve.Curve, dt float64) {
	for i, c := range curves {
		ms := c.Markers()
		xs := w.xs[w.offsets[i]:w.offsets[i+1]]
		vs := w.vs[w.offsets[i]:w.offsets[i+1]]
		for j := range ms {
			if ms[j].Fixed {
				continue
			}
			ms[j].Pos = xs[j].Add(vs[j].Scale(dt))
		}
	}
}

// restore moves every marker back to the positions last gathered.
func (w *workspace) restore(curves []*curve.Curve) {
	for i, c := range curves {
		ms := c.Markers()
		xs := w.xs[w.offsets[i]:w.offsets[i+1]]
		for j := range ms {
			ms[j].Pos = xs[j]
		}
	}
}

func (w *workspace) saveVelocity(u, v []float64) {
	copy(w.savedU, u)
	copy(w.savedV, v)
}

func (w *workspace) restoreVelocity(u, v []float64) {
	copy(u, w.savedU)
	copy(v, w.savedV)
}
