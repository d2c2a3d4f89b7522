package curve

import (
	"gonum.org/v1/gonum/interp"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// resamplePad is the number of markers wrapped onto each end of the arc
// length table so that the spline's end conditions lie away from the seam.
const resamplePad = 3

// Resample returns a new curve of n markers spaced evenly in arc length
// along a smooth interpolant through c's markers. The first new marker sits
// on c's first marker. Sources and fixed flags are not carried over.
func (c *Curve) Resample(n int) (*Curve, error) {
	m := len(c.markers)
	if n < MinMarkers {
		return nil, errs.Config(
			"a curve needs at least %d markers, got %d", MinMarkers, n,
		)
	} else if m < MinMarkers {
		return nil, errs.Config(
			"cannot resample a curve with %d markers", m,
		)
	}

	pad := resamplePad
	if pad > m {
		pad = m
	}

	// Arc length, x, and y for markers -pad through m+pad.
	size := m + 2*pad + 1
	ss, xs, ys := make([]float64, size), make([]float64, size), make([]float64, size)
	perimeter := c.Perimeter()
	for k := 0; k < size; k++ {
		j := k - pad
		i := ((j % m) + m) % m
		xs[k], ys[k] = c.markers[i].Pos[0], c.markers[i].Pos[1]
		if k > 0 {
			prev := geom.Vec{xs[k-1], ys[k-1]}
			ds := c.markers[i].Pos.Sub(prev).Norm()
			if !(ds > 0) {
				return nil, errs.Config(
					"cannot resample curve: marker %d coincides with "+
						"marker %d", i, c.Prev(i),
				)
			}
			ss[k] = ss[k-1] + ds
		}
	}
	// Shift so that marker 0 is at s = 0.
	s0 := ss[pad]
	for k := range ss {
		ss[k] -= s0
	}

	var fx, fy interp.AkimaSpline
	if err := fx.Fit(ss, xs); err != nil {
		return nil, errs.Config("cannot resample curve: %s", err.Error())
	} else if err := fy.Fit(ss, ys); err != nil {
		return nil, errs.Config("cannot resample curve: %s", err.Error())
	}

	out := New(n)
	for k := 0; k < n; k++ {
		s := perimeter * float64(k) / float64(n)
		out.AddMarker(geom.Vec{fx.Predict(s), fy.Predict(s)})
	}
	return out, nil
}
