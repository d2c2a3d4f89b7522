package curve

import (
	"math"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// MinMarkers is the smallest number of markers a generated shape may have.
const MinMarkers = 3

// Circle returns a counter-clockwise curve of n evenly spaced markers on a
// circle.
func Circle(center geom.Vec, radius float64, n int) (*Curve, error) {
	return Superellipse(center, radius, radius, 2, n)
}

// Superellipse returns a counter-clockwise curve of n markers on the curve
// |x/a|^p + |y/b|^p = 1 centered at center. Markers are evenly spaced in the
// polar parameter, not in arc length.
func Superellipse(center geom.Vec, a, b, p float64, n int) (*Curve, error) {
	switch {
	case n < MinMarkers:
		return nil, errs.Config(
			"a shape needs at least %d markers, got %d", MinMarkers, n,
		)
	case !(a > 0) || !finite(a):
		return nil, errs.Config("semi-axis a must be positive, got %g", a)
	case !(b > 0) || !finite(b):
		return nil, errs.Config("semi-axis b must be positive, got %g", b)
	case !(p > 0) || !finite(p):
		return nil, errs.Config("superellipse exponent must be positive, got %g", p)
	case !center.IsFinite():
		return nil, errs.Config("center %v is not finite", center)
	}

	c := New(n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		sin, cos := math.Sincos(theta)
		x := a * signedPow(cos, 2/p)
		y := b * signedPow(sin, 2/p)
		c.AddMarker(geom.Vec{center[0] + x, center[1] + y})
	}
	return c, nil
}

func signedPow(x, p float64) float64 {
	if x < 0 {
		return -math.Pow(-x, p)
	}
	return math.Pow(x, p)
}

// FromPositions returns a curve with markers at the given positions.
func FromPositions(xs []geom.Vec) (*Curve, error) {
	if len(xs) < MinMarkers {
		return nil, errs.Config(
			"a curve needs at least %d markers, got %d", MinMarkers, len(xs),
		)
	}
	c := New(len(xs))
	for i, x := range xs {
		if !x.IsFinite() {
			return nil, errs.Config("marker %d position %v is not finite", i, x)
		}
		c.AddMarker(x)
	}
	return c, nil
}
